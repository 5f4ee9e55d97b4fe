package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/house-report/internal/resilience"
)

// maxBody bounds how much of a response is read into memory.
const maxBody = 16 << 20

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent    string
	Timeout      time.Duration
	Client       *http.Client
	RateLimiters map[string]*AdaptiveLimiter
}

// AdaptiveLimiter wraps a rate.Limiter with adaptive rate adjustment.
// On success it increases the rate by 20% (up to 2x initial).
// On 429 it halves the rate (down to initial/4 minimum).
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	maxRate     rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates an adaptive rate limiter that auto-tunes.
func NewAdaptiveLimiter(initialRate rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(initialRate, burst),
		maxRate:     initialRate * 2,
		minRate:     initialRate / 4,
		currentRate: initialRate,
	}
}

// Wait blocks until the limiter allows an event.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess increases the rate by 20%, up to 2x initial.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	newRate := a.currentRate * 1.2
	if newRate > a.maxRate {
		newRate = a.maxRate
	}
	a.currentRate = newRate
	a.limiter.SetLimit(newRate)
}

// OnRateLimit halves the rate on 429 responses.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	newRate := a.currentRate * 0.5
	if newRate < a.minRate {
		newRate = a.minRate
	}
	a.currentRate = newRate
	a.limiter.SetLimit(newRate)
	zap.L().Warn("adaptive rate limit: reducing rate after 429",
		zap.Float64("new_rate", float64(newRate)),
	)
}

// Limit returns the current rate limit.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

// DefaultRateLimiters returns limiters for the hosts that publish quotas.
func DefaultRateLimiters() map[string]*AdaptiveLimiter {
	return map[string]*AdaptiveLimiter{
		"api-adresse.data.gouv.fr":  NewAdaptiveLimiter(40, 40),
		"georisques.gouv.fr":        NewAdaptiveLimiter(10, 10),
		"overpass-api.de":           NewAdaptiveLimiter(2, 2),
		"places.googleapis.com":     NewAdaptiveLimiter(10, 10),
		"tabular-api.data.gouv.fr":  NewAdaptiveLimiter(10, 10),
		"api-immobilier.pappers.fr": NewAdaptiveLimiter(5, 5),
		"data.education.gouv.fr":    NewAdaptiveLimiter(10, 10),
	}
}

// HTTPFetcher implements Fetcher using net/http. It does not retry; the
// caller's resilience policy decides that from the returned error.
type HTTPFetcher struct {
	client   *http.Client
	opts     HTTPOptions
	limiters map[string]*AdaptiveLimiter
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "house-report/1.0"
	}
	limiters := opts.RateLimiters
	if limiters == nil {
		limiters = DefaultRateLimiters()
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				MaxConnsPerHost:     20,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &HTTPFetcher{client: client, opts: opts, limiters: limiters}
}

// Default is the process-wide fetcher used by clients built without one.
var Default Fetcher = NewHTTPFetcher(HTTPOptions{})

func (f *HTTPFetcher) limiterFor(u *url.URL) *AdaptiveLimiter {
	return f.limiters[u.Host]
}

// GetJSON implements Fetcher.
func (f *HTTPFetcher) GetJSON(ctx context.Context, provider, rawURL string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return eris.Wrapf(err, "%s: create request", provider)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	return f.do(provider, req, out)
}

// PostJSON implements Fetcher.
func (f *HTTPFetcher) PostJSON(ctx context.Context, provider, rawURL string, header http.Header, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return eris.Wrapf(err, "%s: marshal request", provider)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrapf(err, "%s: create request", provider)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")
	return f.do(provider, req, out)
}

// PostForm implements Fetcher.
func (f *HTTPFetcher) PostForm(ctx context.Context, provider, rawURL string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return eris.Wrapf(err, "%s: create request", provider)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.do(provider, req, out)
}

func (f *HTTPFetcher) do(provider string, req *http.Request, out any) error {
	req.Header.Set("User-Agent", f.opts.UserAgent)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	adaptive := f.limiterFor(req.URL)
	if adaptive != nil {
		if err := adaptive.Wait(req.Context()); err != nil {
			return eris.Wrapf(err, "%s: rate limiter wait", provider)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return eris.Wrapf(err, "%s: send request", provider)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return eris.Wrapf(err, "%s: read response", provider)
	}

	if resp.StatusCode == http.StatusTooManyRequests && adaptive != nil {
		adaptive.OnRateLimit()
	}
	if resp.StatusCode != http.StatusOK {
		return resilience.StatusError(provider, resp.StatusCode, body)
	}
	if adaptive != nil {
		adaptive.OnSuccess()
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrapf(err, "%s: unmarshal response", provider)
	}
	return nil
}
