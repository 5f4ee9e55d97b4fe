// Package fetcher is the shared HTTP layer of the provider clients: per-host
// rate limiting, status classification and JSON decoding.
package fetcher

import (
	"context"
	"net/http"
	"net/url"
)

// Fetcher issues JSON API calls on behalf of a named provider. Errors for
// retryable statuses are resilience.TransientError values.
type Fetcher interface {
	// GetJSON fetches rawURL and decodes the JSON body into out.
	GetJSON(ctx context.Context, provider, rawURL string, header http.Header, out any) error

	// PostJSON sends body as JSON and decodes the JSON response into out.
	PostJSON(ctx context.Context, provider, rawURL string, header http.Header, body, out any) error

	// PostForm sends form values and decodes the JSON response into out.
	PostForm(ctx context.Context, provider, rawURL string, form url.Values, out any) error
}
