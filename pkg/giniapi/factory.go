package giniapi

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gini/gini-sdk-go/pkg/session"
)

// Media types of the Gini API.
const (
	// AcceptV1 is the Accept header value for v1 endpoints.
	AcceptV1 = "application/vnd.gini.v1+json"

	// AcceptV2 is the Accept header value for the v2 (partial/composite
	// document) endpoints.
	AcceptV2 = "application/vnd.gini.v2+json"

	// ContentTypeComposite is the Content-Type of composite document
	// creation requests.
	ContentTypeComposite = "application/vnd.gini.v2.composite+json"

	// ContentTypePartialPrefix prefixes the original media type when
	// uploading a partial document, e.g.
	// "application/vnd.gini.v2.partial+image/jpeg".
	ContentTypePartialPrefix = "application/vnd.gini.v2.partial+"
)

// MetadataHeaderPrefix prefixes custom document metadata headers attached at
// upload time.
const MetadataHeaderPrefix = "X-Document-Metadata-"

// SessionSource provides sessions for outgoing requests; it is implemented
// by session.Manager.
type SessionSource interface {
	GetSession(ctx context.Context) (*session.Session, error)
}

// RequestFactory builds authorized requests against the Gini API. Failures
// to obtain a session surface unchanged, so a *session.UnavailableError
// reaches the API caller exactly as the session manager produced it.
type RequestFactory struct {
	source SessionSource
}

// NewRequestFactory creates a request factory on top of a session source.
func NewRequestFactory(source SessionSource) *RequestFactory {
	return &RequestFactory{source: source}
}

// NewRequest builds a request carrying a bearer token and the v1 Accept
// header. Callers may override headers on the returned request.
func (f *RequestFactory) NewRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	s, err := f.source.GetSession(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.AccessToken)
	req.Header.Set("Accept", AcceptV1)

	return req, nil
}
