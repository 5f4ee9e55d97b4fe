// Package georisques queries the Géorisques natural and technological
// hazard API.
package georisques

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/house-report/internal/fetcher"
)

const (
	defaultBaseURL = "https://georisques.gouv.fr/api/v1"
	provider       = "georisques"
)

// Client fetches hazard data for a location.
type Client interface {
	// RiskReport returns the hazard report for a coordinate together with the
	// raw payload.
	RiskReport(ctx context.Context, lat, lon float64) (*RiskReport, json.RawMessage, error)

	// Radon returns the radon potential class (1 to 3) for a commune, or 0
	// when unpublished.
	Radon(ctx context.Context, citycode string) (int, json.RawMessage, error)

	// SeismicZone returns the seismic zone (1 to 5) for a commune, or 0 when
	// unpublished.
	SeismicZone(ctx context.Context, citycode string) (int, json.RawMessage, error)
}

// RiskReport is the subset of /resultats_rapport_risque used downstream.
type RiskReport struct {
	Commune           Commune         `json:"commune"`
	NaturalRisks      map[string]Risk `json:"risquesNaturels"`
	TechnologicalRisk map[string]Risk `json:"risquesTechnologiques"`
}

// Commune identifies the commune of the report.
type Commune struct {
	Name     string `json:"libelle"`
	Citycode string `json:"codeInsee"`
}

// Risk is one hazard entry of the report.
type Risk struct {
	Present       bool   `json:"present"`
	Label         string `json:"libelle"`
	CommuneStatus string `json:"libelleStatutCommune"`
	AddressStatus string `json:"libelleStatutAdresse"`
}

// Validate rejects reports without any hazard block.
func (r *RiskReport) Validate() error {
	if len(r.NaturalRisks) == 0 && len(r.TechnologicalRisk) == 0 {
		return eris.New("georisques: report has no hazard entries")
	}
	return nil
}

// PresentLabels lists the labels of every present hazard, natural first.
func (r *RiskReport) PresentLabels() []string {
	var out []string
	for _, group := range []map[string]Risk{r.NaturalRisks, r.TechnologicalRisk} {
		keys := make([]string, 0, len(group))
		for k := range group {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if risk := group[k]; risk.Present {
				out = append(out, risk.Label)
			}
		}
	}
	return out
}

type zoneResponse struct {
	Data []struct {
		Code       string `json:"code_zone"`
		Label      string `json:"zone_sismicite"`
		RadonClass string `json:"classe_potentiel"`
	} `json:"data"`
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

// NewClient creates a Géorisques client.
func NewClient(opts ...Option) Client {
	c := &httpClient{baseURL: defaultBaseURL, fetch: fetcher.Default}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) RiskReport(ctx context.Context, lat, lon float64) (*RiskReport, json.RawMessage, error) {
	params := url.Values{"latlon": {fmt.Sprintf("%f,%f", lon, lat)}}

	var raw json.RawMessage
	if err := c.fetch.GetJSON(ctx, provider, c.baseURL+"/resultats_rapport_risque?"+params.Encode(), nil, &raw); err != nil {
		return nil, nil, err
	}

	var report RiskReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, nil, eris.Wrap(err, "georisques: decode report")
	}
	if err := report.Validate(); err != nil {
		return nil, nil, err
	}
	return &report, raw, nil
}

func (c *httpClient) Radon(ctx context.Context, citycode string) (int, json.RawMessage, error) {
	resp, raw, err := c.zone(ctx, "/radon", citycode)
	if err != nil || len(resp.Data) == 0 {
		return 0, raw, err
	}
	return parseLeadingDigit(resp.Data[0].RadonClass, 3), raw, nil
}

func (c *httpClient) SeismicZone(ctx context.Context, citycode string) (int, json.RawMessage, error) {
	resp, raw, err := c.zone(ctx, "/zonage_sismique", citycode)
	if err != nil || len(resp.Data) == 0 {
		return 0, raw, err
	}
	zone := parseLeadingDigit(resp.Data[0].Code, 5)
	if zone == 0 {
		zone = parseLeadingDigit(resp.Data[0].Label, 5)
	}
	return zone, raw, nil
}

func (c *httpClient) zone(ctx context.Context, path, citycode string) (*zoneResponse, json.RawMessage, error) {
	params := url.Values{"code_insee": {citycode}}

	var raw json.RawMessage
	if err := c.fetch.GetJSON(ctx, provider, c.baseURL+path+"?"+params.Encode(), nil, &raw); err != nil {
		return nil, nil, err
	}
	var resp zoneResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, nil, eris.Wrapf(err, "georisques: decode %s", path)
	}
	return &resp, raw, nil
}

// parseLeadingDigit reads the first digit of s, returning 0 when it is
// missing or above max.
func parseLeadingDigit(s string, max int) int {
	s = strings.TrimSpace(s)
	if s == "" || s[0] < '0' || s[0] > '9' {
		return 0
	}
	d := int(s[0] - '0')
	if d > max {
		return 0
	}
	return d
}
