package giniapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gini/gini-sdk-go/pkg/session"
)

func newTestManager(t *testing.T, handler http.HandlerFunc) *APIManager {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	factory := NewRequestFactory(&staticSource{
		session: session.New("access-token", "", time.Now().Add(time.Hour)),
	})

	m, err := NewAPIManager(APIConfig{BaseURL: server.URL, Factory: factory})
	require.NoError(t, err)
	return m
}

func TestGetDocument(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/documents/doc-1", r.URL.Path)
		require.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))
		require.Equal(t, AcceptV1, r.Header.Get("Accept"))

		w.Header().Set("Content-Type", AcceptV1)
		io.WriteString(w, `{"id":"doc-1","progress":"COMPLETED"}`)
	})

	raw, err := m.GetDocument(context.Background(), "doc-1")
	require.NoError(t, err)

	var doc map[string]string
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Equal(t, "doc-1", doc["id"])
}

func TestUploadDocument(t *testing.T) {
	t.Parallel()

	var location string
	m := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/documents", r.URL.Path)
		require.Equal(t, "invoice.pdf", r.URL.Query().Get("filename"))
		require.Equal(t, "Invoice", r.URL.Query().Get("doctype"))
		require.Equal(t, "application/pdf", r.Header.Get("Content-Type"))
		require.Equal(t, "tx-42", r.Header.Get(MetadataHeaderPrefix+"TransactionID"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.Equal(t, []byte("%PDF-1.4 ..."), body)

		w.Header().Set("Location", location)
		w.WriteHeader(http.StatusCreated)
	})
	location = m.baseURL + "/documents/doc-1"

	got, err := m.UploadDocument(context.Background(), []byte("%PDF-1.4 ..."), "application/pdf", "invoice.pdf", "Invoice",
		map[string]string{"TransactionID": "tx-42"})
	require.NoError(t, err)
	require.Equal(t, location, got)
}

func TestDeleteDocument(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/documents/doc-1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, m.DeleteDocument(context.Background(), "doc-1"))
}

func TestSubmitFeedback(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/documents/doc-1/extractions/amountToPay", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "24.99:EUR", payload["value"])

		w.WriteHeader(http.StatusNoContent)
	})

	err := m.SubmitFeedback(context.Background(), "doc-1", "amountToPay", map[string]any{"value": "24.99:EUR"})
	require.NoError(t, err)
}

func TestSubmitFeedbackBatch(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/documents/doc-1/extractions", r.URL.Path)

		var payload struct {
			Feedback map[string]any `json:"feedback"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Contains(t, payload.Feedback, "iban")

		w.WriteHeader(http.StatusNoContent)
	})

	err := m.SubmitFeedbackBatch(context.Background(), "doc-1", map[string]any{
		"iban": map[string]any{"value": "DE89370400440532013000"},
	})
	require.NoError(t, err)
}

func TestGetLayoutXML(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/documents/doc-1/layout", r.URL.Path)
		require.Equal(t, string(LayoutXML), r.Header.Get("Accept"))
		io.WriteString(w, "<layout/>")
	})

	layout, err := m.GetLayout(context.Background(), "doc-1", LayoutXML)
	require.NoError(t, err)
	require.Equal(t, []byte("<layout/>"), layout)
}

func TestGetPagePreview(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/documents/doc-1/pages/1/750x900", r.URL.Path)
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte{0xff, 0xd8, 0xff})
	})

	img, err := m.GetPagePreview(context.Background(), "doc-1", 1, "750x900")
	require.NoError(t, err)
	require.Equal(t, []byte{0xff, 0xd8, 0xff}, img)
}

func TestSearch(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search", r.URL.Path)
		require.Equal(t, "Deutsche Telekom", r.URL.Query().Get("q"))
		require.Equal(t, "invoice", r.URL.Query().Get("docType"))
		io.WriteString(w, `{"documents":[],"totalCount":0}`)
	})

	_, err := m.Search(context.Background(), "Deutsche Telekom", 20, 0, "invoice")
	require.NoError(t, err)
}

func TestReportError(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/documents/doc-1/errorreport", r.URL.Path)
		require.Equal(t, "wrong amount", r.URL.Query().Get("summary"))
		io.WriteString(w, `{"message":"error was reported","errorId":"deadbeef"}`)
	})

	id, err := m.ReportError(context.Background(), "doc-1", "wrong amount", "the amount is off by one")
	require.NoError(t, err)
	require.Equal(t, "deadbeef", id)
}

func TestCreatePartialDocument(t *testing.T) {
	t.Parallel()

	var location string
	m := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, ContentTypePartialPrefix+"image/jpeg", r.Header.Get("Content-Type"))
		require.Equal(t, AcceptV2, r.Header.Get("Accept"))
		w.Header().Set("Location", location)
		w.WriteHeader(http.StatusCreated)
	})
	location = m.baseURL + "/documents/partial-1"

	got, err := m.CreatePartialDocument(context.Background(), []byte{0xff, 0xd8}, "image/jpeg", "page1.jpg")
	require.NoError(t, err)
	require.Equal(t, location, got)
}

func TestCreateCompositeDocument(t *testing.T) {
	t.Parallel()

	var location string
	m := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, ContentTypeComposite, r.Header.Get("Content-Type"))

		var payload struct {
			PartialDocuments []PartialDocumentInfo `json:"partialDocuments"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Len(t, payload.PartialDocuments, 2)
		require.Equal(t, 90, payload.PartialDocuments[1].RotationDelta)

		w.Header().Set("Location", location)
		w.WriteHeader(http.StatusCreated)
	})
	location = m.baseURL + "/documents/composite-1"

	got, err := m.CreateCompositeDocument(context.Background(), []PartialDocumentInfo{
		{Document: m.baseURL + "/documents/partial-1"},
		{Document: m.baseURL + "/documents/partial-2", RotationDelta: 90},
	}, "invoice.pdf")
	require.NoError(t, err)
	require.Equal(t, location, got)
}

func TestAPIErrorParsing(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"message":"document not found","requestId":"req-1"}`)
	})

	_, err := m.GetDocument(context.Background(), "missing")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.True(t, apiErr.NotFound())
	require.Equal(t, "document not found", apiErr.Message)
	require.Equal(t, "req-1", apiErr.RequestID)
}

func TestAPIErrorSynthesizedFromStatus(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "<html>gateway error</html>")
	})

	_, err := m.GetDocument(context.Background(), "doc-1")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	require.Equal(t, http.StatusText(http.StatusBadGateway), apiErr.Message)
}
