package document

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDocument(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
		"id": "626626a0-749f-11e2-bfd6-000000000000",
		"name": "invoice.pdf",
		"progress": "COMPLETED",
		"pageCount": 2,
		"creationDate": 1515151515000,
		"sourceClassification": "NATIVE",
		"_links": {
			"document": "https://api.gini.net/documents/doc-1",
			"extractions": "https://api.gini.net/documents/doc-1/extractions",
			"layout": "https://api.gini.net/documents/doc-1/layout"
		}
	}`)

	doc, err := ParseDocument(raw)
	require.NoError(t, err)
	require.Equal(t, "626626a0-749f-11e2-bfd6-000000000000", doc.ID)
	require.Equal(t, "invoice.pdf", doc.Name)
	require.Equal(t, StateCompleted, doc.State)
	require.Equal(t, 2, doc.PageCount)
	require.Equal(t, time.UnixMilli(1515151515000), doc.CreationDate)
	require.Equal(t, SourceNative, doc.SourceClassification)
	require.Equal(t, "https://api.gini.net/documents/doc-1/extractions", doc.Links.Extractions)
	require.True(t, doc.Terminal())
}

func TestParseDocumentWithoutID(t *testing.T) {
	t.Parallel()

	_, err := ParseDocument([]byte(`{"progress":"PENDING"}`))
	require.Error(t, err)
}

func TestDocumentTerminal(t *testing.T) {
	t.Parallel()

	require.False(t, (&Document{State: StatePending}).Terminal())
	require.True(t, (&Document{State: StateCompleted}).Terminal())
	require.True(t, (&Document{State: StateError}).Terminal())
}
