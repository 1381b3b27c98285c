package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/gini/gini-sdk-go/pkg/giniapi"
	"github.com/gini/gini-sdk-go/pkg/slogx"
)

// DefaultPollInterval paces the document processing polls.
const DefaultPollInterval = time.Second

// API is the part of the Gini API client the TaskManager depends on; it is
// implemented by *giniapi.APIManager.
type API interface {
	GetDocument(ctx context.Context, documentID string) (json.RawMessage, error)
	GetDocumentFromURL(ctx context.Context, documentURL string) (json.RawMessage, error)
	UploadDocument(ctx context.Context, data []byte, contentType, filename, docType string, metadata map[string]string) (string, error)
	DeleteDocument(ctx context.Context, documentID string) error
	GetExtractions(ctx context.Context, documentID string) (json.RawMessage, error)
	SubmitFeedbackBatch(ctx context.Context, documentID string, feedback map[string]any) error
	GetLayout(ctx context.Context, documentID string, format giniapi.LayoutFormat) ([]byte, error)
	ReportError(ctx context.Context, documentID, summary, description string) (string, error)
}

var _ API = (*giniapi.APIManager)(nil)

// TaskManager is the high-level document workflow: create, poll until
// processed, fetch extractions, feed corrections back.
type TaskManager struct {
	api     API
	limiter *rate.Limiter
	log     *slog.Logger
}

// TaskManagerOption customizes a TaskManager.
type TaskManagerOption func(*TaskManager)

// WithPollInterval overrides the minimum delay between processing polls.
func WithPollInterval(interval time.Duration) TaskManagerOption {
	return func(m *TaskManager) { m.limiter = rate.NewLimiter(rate.Every(interval), 1) }
}

// WithLogger attaches a logger.
func WithLogger(log *slog.Logger) TaskManagerOption {
	return func(m *TaskManager) { m.log = log }
}

// NewTaskManager creates a TaskManager on top of an API client.
func NewTaskManager(api API, opts ...TaskManagerOption) *TaskManager {
	m := &TaskManager{
		api:     api,
		limiter: rate.NewLimiter(rate.Every(DefaultPollInterval), 1),
		log:     slogx.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateDocument uploads a document and returns it in its initial, usually
// still pending, state. Use PollDocument to wait for processing to finish.
func (m *TaskManager) CreateDocument(
	ctx context.Context,
	data []byte,
	contentType, filename, docType string,
	metadata map[string]string,
) (*Document, error) {
	location, err := m.api.UploadDocument(ctx, data, contentType, filename, docType, metadata)
	if err != nil {
		return nil, err
	}

	raw, err := m.api.GetDocumentFromURL(ctx, location)
	if err != nil {
		return nil, err
	}
	return ParseDocument(raw)
}

// GetDocument fetches a document by ID.
func (m *TaskManager) GetDocument(ctx context.Context, documentID string) (*Document, error) {
	raw, err := m.api.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return ParseDocument(raw)
}

// DeleteDocument deletes a document.
func (m *TaskManager) DeleteDocument(ctx context.Context, documentID string) error {
	return m.api.DeleteDocument(ctx, documentID)
}

// PollDocument refetches the document until processing reaches a terminal
// state. A document that is already terminal is returned as is without any
// request. Polls are paced by the configured interval; cancelling ctx stops
// the wait between polls.
func (m *TaskManager) PollDocument(ctx context.Context, doc *Document) (*Document, error) {
	if doc.Terminal() {
		return doc, nil
	}

	for {
		if err := m.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		current, err := m.GetDocument(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		if current.Terminal() {
			m.log.Debug("document processing finished", "document_id", current.ID, "state", current.State)
			return current, nil
		}
	}
}

// GetExtractions fetches the extractions of a processed document. Documents
// in the error state have none.
func (m *TaskManager) GetExtractions(ctx context.Context, doc *Document) (ExtractionSet, error) {
	if doc.State == StateError {
		return nil, fmt.Errorf("document %s failed processing and has no extractions", doc.ID)
	}

	raw, err := m.api.GetExtractions(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	return ParseExtractions(raw)
}

// SendFeedback submits the corrections of all dirty extractions in one
// batch and marks them clean on success. With no dirty extraction it is a
// no-op.
func (m *TaskManager) SendFeedback(ctx context.Context, doc *Document, extractions ExtractionSet) error {
	dirty := extractions.Dirty()
	if len(dirty) == 0 {
		return nil
	}

	feedback := make(map[string]any, len(dirty))
	for _, e := range dirty {
		entry := map[string]any{"value": e.Value()}
		if box := e.Box(); box != nil {
			entry["box"] = box
		}
		feedback[e.Name] = entry
	}

	if err := m.api.SubmitFeedbackBatch(ctx, doc.ID, feedback); err != nil {
		return err
	}

	for _, e := range dirty {
		e.markClean()
	}
	m.log.Debug("submitted extraction feedback", "document_id", doc.ID, "extractions", len(dirty))
	return nil
}

// GetLayout fetches the recognized layout of a processed document.
func (m *TaskManager) GetLayout(ctx context.Context, doc *Document, format giniapi.LayoutFormat) ([]byte, error) {
	return m.api.GetLayout(ctx, doc.ID, format)
}

// ReportError files an error report for a document and returns the report
// ID.
func (m *TaskManager) ReportError(ctx context.Context, doc *Document, summary, description string) (string, error) {
	if doc == nil {
		return "", errors.New("a document is required to report an error")
	}
	return m.api.ReportError(ctx, doc.ID, summary, description)
}
