// Package arcep reads fixed-broadband eligibility ("Ma connexion internet")
// for a coordinate.
package arcep

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/sells-group/house-report/internal/fetcher"
)

const (
	defaultBaseURL = "https://api.arcep.fr/v1"
	provider       = "arcep"
)

// Technology codes, best first.
var technologyRank = map[string]int{
	"FTTH":  5,
	"CABLE": 4,
	"THD":   4,
	"VDSL2": 3,
	"ADSL":  2,
	"4G":    1,
	"SAT":   0,
}

// Client checks broadband eligibility.
type Client interface {
	Eligibility(ctx context.Context, lat, lon float64) (*Eligibility, error)
}

// Offer is one technology sold by one operator at the address.
type Offer struct {
	Technology      string        `json:"technologie"`
	Operator        string        `json:"operateur"`
	MaxDownloadMbps fetcher.Float `json:"debit_max_descendant"`
	Eligible        bool          `json:"eligible"`
}

// Eligibility is the set of offers at the closest address.
type Eligibility struct {
	Address string  `json:"adresse"`
	Offers  []Offer `json:"technologies"`
}

// FiberAvailable reports whether an eligible FTTH offer exists.
func (e *Eligibility) FiberAvailable() bool {
	for _, o := range e.Offers {
		if o.Eligible && strings.EqualFold(o.Technology, "FTTH") {
			return true
		}
	}
	return false
}

// Best returns the highest-ranked eligible technology and the fastest
// download rate across eligible offers.
func (e *Eligibility) Best() (technology string, maxMbps int) {
	rank := -1
	for _, o := range e.Offers {
		if !o.Eligible {
			continue
		}
		t := strings.ToUpper(o.Technology)
		if r, ok := technologyRank[t]; ok && r > rank {
			rank, technology = r, t
		}
		if int(o.MaxDownloadMbps) > maxMbps {
			maxMbps = int(o.MaxDownloadMbps)
		}
	}
	return technology, maxMbps
}

// Operators lists the distinct operators of eligible offers, sorted.
func (e *Eligibility) Operators() []string {
	seen := map[string]bool{}
	var out []string
	for _, o := range e.Offers {
		name := strings.TrimSpace(o.Operator)
		if !o.Eligible || name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithFetcher overrides the HTTP fetcher.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(c *httpClient) {
		c.fetch = f
	}
}

type httpClient struct {
	baseURL string
	fetch   fetcher.Fetcher
}

// NewClient creates an Arcep client.
func NewClient(opts ...Option) Client {
	c := &httpClient{baseURL: defaultBaseURL, fetch: fetcher.Default}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Eligibility(ctx context.Context, lat, lon float64) (*Eligibility, error) {
	params := url.Values{
		"lat": {fmt.Sprintf("%f", lat)},
		"lon": {fmt.Sprintf("%f", lon)},
	}

	var resp Eligibility
	if err := c.fetch.GetJSON(ctx, provider, c.baseURL+"/eligibilite?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
