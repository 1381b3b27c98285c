package giniapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gini/gini-sdk-go/pkg/slogx"
)

// LayoutFormat selects the representation of a document layout.
type LayoutFormat string

const (
	LayoutJSON LayoutFormat = "application/vnd.gini.v1+json"
	LayoutXML  LayoutFormat = "application/vnd.gini.v1+xml"
)

// PartialDocumentInfo references one partial document inside a composite
// document, optionally rotated.
type PartialDocumentInfo struct {
	// Document is the URL of the partial document.
	Document string `json:"document"`

	// RotationDelta is the clockwise rotation in degrees to apply before
	// processing, normalized to 0, 90, 180 or 270.
	RotationDelta int `json:"rotationDelta"`
}

// APIManager performs the HTTP requests of the Gini document API.
type APIManager struct {
	baseURL    string
	httpClient *http.Client
	factory    *RequestFactory
	log        *slog.Logger
}

// APIConfig configures an APIManager.
type APIConfig struct {
	// BaseURL is the Gini API base URL, e.g. "https://api.gini.net".
	BaseURL string

	// Factory authorizes outgoing requests.
	Factory *RequestFactory

	// HTTPClient is optional; a default client with a 60s timeout is used
	// when nil. Uploads and previews can be slow on large documents.
	HTTPClient *http.Client

	// Logger is optional; logs are discarded when nil.
	Logger *slog.Logger
}

// NewAPIManager creates an APIManager.
func NewAPIManager(cfg APIConfig) (*APIManager, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("api base URL is required")
	}
	if cfg.Factory == nil {
		return nil, errors.New("a request factory is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	log := cfg.Logger
	if log == nil {
		log = slogx.Discard()
	}

	return &APIManager{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: httpClient,
		factory:    cfg.Factory,
		log:        log,
	}, nil
}

// GetDocument fetches a document's metadata by ID.
func (m *APIManager) GetDocument(ctx context.Context, documentID string) (json.RawMessage, error) {
	return m.GetDocumentFromURL(ctx, m.baseURL+"/documents/"+url.PathEscape(documentID))
}

// GetDocumentFromURL fetches a document's metadata from its resource URL,
// typically the Location of an upload response or a link from another
// document.
func (m *APIManager) GetDocumentFromURL(ctx context.Context, documentURL string) (json.RawMessage, error) {
	return m.getJSON(ctx, documentURL, AcceptV1)
}

// ListDocuments fetches a page of the user's documents.
func (m *APIManager) ListDocuments(ctx context.Context, limit, offset int) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	return m.getJSON(ctx, m.baseURL+"/documents?"+q.Encode(), AcceptV1)
}

// UploadDocument uploads a document for processing and returns the URL of
// the created resource. Processing is asynchronous; poll the returned URL
// until the document reaches a terminal state. Metadata keys are attached as
// "X-Document-Metadata-" headers.
func (m *APIManager) UploadDocument(
	ctx context.Context,
	data []byte,
	contentType, filename, docType string,
	metadata map[string]string,
) (string, error) {
	q := url.Values{}
	if filename != "" {
		q.Set("filename", filename)
	}
	if docType != "" {
		q.Set("doctype", docType)
	}

	uploadURL := m.baseURL + "/documents"
	if len(q) > 0 {
		uploadURL += "?" + q.Encode()
	}

	req, err := m.factory.NewRequest(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	for key, value := range metadata {
		req.Header.Set(MetadataHeaderPrefix+key, value)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", m.responseError(resp)
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return "", errors.New("upload response carried no document location")
	}

	m.log.Debug("uploaded document", "location", location)
	return location, nil
}

// DeleteDocument deletes a document and everything derived from it.
func (m *APIManager) DeleteDocument(ctx context.Context, documentID string) error {
	req, err := m.factory.NewRequest(ctx, http.MethodDelete, m.baseURL+"/documents/"+url.PathEscape(documentID), nil)
	if err != nil {
		return err
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return m.responseError(resp)
	}
	return nil
}

// GetExtractions fetches the extractions and candidates of a processed
// document.
func (m *APIManager) GetExtractions(ctx context.Context, documentID string) (json.RawMessage, error) {
	return m.getJSON(ctx, m.baseURL+"/documents/"+url.PathEscape(documentID)+"/extractions", AcceptV1)
}

// SubmitFeedback corrects a single extraction. The payload carries the
// corrected value and optionally its bounding box.
func (m *APIManager) SubmitFeedback(ctx context.Context, documentID, name string, payload any) error {
	return m.putJSON(ctx,
		m.baseURL+"/documents/"+url.PathEscape(documentID)+"/extractions/"+url.PathEscape(name),
		payload)
}

// SubmitFeedbackBatch corrects several extractions in one request.
func (m *APIManager) SubmitFeedbackBatch(ctx context.Context, documentID string, feedback map[string]any) error {
	return m.putJSON(ctx,
		m.baseURL+"/documents/"+url.PathEscape(documentID)+"/extractions",
		map[string]any{"feedback": feedback})
}

// DeleteFeedback retracts previously submitted feedback for one extraction.
func (m *APIManager) DeleteFeedback(ctx context.Context, documentID, name string) error {
	req, err := m.factory.NewRequest(ctx, http.MethodDelete,
		m.baseURL+"/documents/"+url.PathEscape(documentID)+"/extractions/"+url.PathEscape(name), nil)
	if err != nil {
		return err
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete feedback: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return m.responseError(resp)
	}
	return nil
}

// GetLayout fetches the recognized layout of a document in the requested
// format.
func (m *APIManager) GetLayout(ctx context.Context, documentID string, format LayoutFormat) ([]byte, error) {
	req, err := m.factory.NewRequest(ctx, http.MethodGet,
		m.baseURL+"/documents/"+url.PathEscape(documentID)+"/layout", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", string(format))

	return m.readBody(req)
}

// GetPages fetches the page listing of a document, including the available
// preview image URLs per page.
func (m *APIManager) GetPages(ctx context.Context, documentID string) (json.RawMessage, error) {
	return m.getJSON(ctx, m.baseURL+"/documents/"+url.PathEscape(documentID)+"/pages", AcceptV1)
}

// GetPagePreview fetches a rendered page image. Size is a Gini preview
// dimension such as "750x900"; page numbering starts at 1.
func (m *APIManager) GetPagePreview(ctx context.Context, documentID string, page int, size string) ([]byte, error) {
	req, err := m.factory.NewRequest(ctx, http.MethodGet,
		m.baseURL+"/documents/"+url.PathEscape(documentID)+"/pages/"+strconv.Itoa(page)+"/"+url.PathEscape(size), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/jpeg")

	return m.readBody(req)
}

// Search searches the user's documents.
func (m *APIManager) Search(ctx context.Context, query string, limit, offset int, docType string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	if docType != "" {
		q.Set("docType", docType)
	}

	return m.getJSON(ctx, m.baseURL+"/search?"+q.Encode(), AcceptV1)
}

// ReportError files an error report for a document with Gini support and
// returns the report ID.
func (m *APIManager) ReportError(ctx context.Context, documentID, summary, description string) (string, error) {
	q := url.Values{}
	if summary != "" {
		q.Set("summary", summary)
	}
	if description != "" {
		q.Set("description", description)
	}

	reportURL := m.baseURL + "/documents/" + url.PathEscape(documentID) + "/errorreport"
	if len(q) > 0 {
		reportURL += "?" + q.Encode()
	}

	req, err := m.factory.NewRequest(ctx, http.MethodPost, reportURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to report error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read error report response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", ParseAPIError(resp.StatusCode, body)
	}

	var report struct {
		ErrorID string `json:"errorId"`
	}
	if err := json.Unmarshal(body, &report); err != nil {
		return "", fmt.Errorf("failed to decode error report response: %w", err)
	}
	return report.ErrorID, nil
}

// CreatePartialDocument uploads one page or photo of a multi-part document
// and returns the URL of the created partial document. The original media
// type is folded into the Gini partial content type.
func (m *APIManager) CreatePartialDocument(ctx context.Context, data []byte, mediaType, filename string) (string, error) {
	q := url.Values{}
	if filename != "" {
		q.Set("filename", filename)
	}

	uploadURL := m.baseURL + "/documents"
	if len(q) > 0 {
		uploadURL += "?" + q.Encode()
	}

	req, err := m.factory.NewRequest(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", AcceptV2)
	req.Header.Set("Content-Type", ContentTypePartialPrefix+mediaType)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to create partial document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", m.responseError(resp)
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return "", errors.New("partial document response carried no location")
	}
	return location, nil
}

// CreateCompositeDocument combines previously uploaded partial documents
// into one document for processing and returns its URL.
func (m *APIManager) CreateCompositeDocument(ctx context.Context, partials []PartialDocumentInfo, filename string) (string, error) {
	payload, err := json.Marshal(map[string]any{"partialDocuments": partials})
	if err != nil {
		return "", fmt.Errorf("failed to encode composite document: %w", err)
	}

	q := url.Values{}
	if filename != "" {
		q.Set("filename", filename)
	}

	uploadURL := m.baseURL + "/documents"
	if len(q) > 0 {
		uploadURL += "?" + q.Encode()
	}

	req, err := m.factory.NewRequest(ctx, http.MethodPost, uploadURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", AcceptV2)
	req.Header.Set("Content-Type", ContentTypeComposite)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to create composite document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", m.responseError(resp)
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return "", errors.New("composite document response carried no location")
	}
	return location, nil
}

// getJSON performs an authorized GET expecting a 200 JSON response.
func (m *APIManager) getJSON(ctx context.Context, requestURL, accept string) (json.RawMessage, error) {
	req, err := m.factory.NewRequest(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)

	return m.readBody(req)
}

// putJSON performs an authorized PUT with a JSON body expecting 204.
func (m *APIManager) putJSON(ctx context.Context, requestURL string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := m.factory.NewRequest(ctx, http.MethodPut, requestURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", AcceptV1)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return m.responseError(resp)
	}
	return nil
}

// readBody executes the request and returns the body of a 200 response.
func (m *APIManager) readBody(req *http.Request) ([]byte, error) {
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, ParseAPIError(resp.StatusCode, body)
	}
	return body, nil
}

// responseError drains a failed response into an *APIError.
func (m *APIManager) responseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	return ParseAPIError(resp.StatusCode, body)
}
