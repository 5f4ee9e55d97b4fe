package geocode

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sells-group/house-report/internal/fetcher"
)

// newTestClient returns a client whose requests go to handler.
func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{RateLimiters: map[string]*fetcher.AdaptiveLimiter{}})
	return NewClient(WithBaseURL(srv.URL), WithFetcher(f))
}
