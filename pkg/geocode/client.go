// Package geocode resolves billing addresses to counties via the Census
// Geocoder geographies API, with an optional local shapefile fallback.
package geocode

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/ridgeline-services/fieldops/internal/retry"
)

// Confidence is the geocoder's self-reported certainty about a match.
type Confidence string

const (
	ConfidenceMatch   Confidence = "Match"
	ConfidenceTie     Confidence = "Tie"
	ConfidenceNoMatch Confidence = "No_Match"
	ConfidenceError   Confidence = "Error"
)

// Client resolves a free-text address to a county.
type Client interface {
	// CountyLookup geocodes a single one-line address. Expected "no match"
	// conditions are reported through the result, not the error; the error
	// is reserved for context cancellation.
	CountyLookup(ctx context.Context, address string) (*CountyResult, error)
}

// CountyResult holds the outcome of a county lookup. RawResponse is the
// unmodified provider payload, persisted downstream for troubleshooting.
type CountyResult struct {
	Success      bool
	County       string
	State        string
	Confidence   Confidence
	RawResponse  []byte
	ErrorMessage string
}

// CountyLocator finds the county containing a coordinate. Used as a fallback
// when the geocoder matches an address but returns no county geography.
type CountyLocator interface {
	Locate(lon, lat float64) (county string, ok bool)
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithBaseURL overrides the Census endpoint, mainly for tests.
func WithBaseURL(u string) Option {
	return func(g *geocoder) {
		g.baseURL = u
	}
}

// WithBenchmark sets the Census benchmark and vintage identifiers.
func WithBenchmark(benchmark, vintage string) Option {
	return func(g *geocoder) {
		g.benchmark = benchmark
		g.vintage = vintage
	}
}

// WithRateLimit sets the requests-per-second rate limit for Census calls.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		g.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
	}
}

// WithCountyFallback enables coordinate-based county resolution when the
// geocoder matches an address without county geography.
func WithCountyFallback(loc CountyLocator) Option {
	return func(g *geocoder) {
		g.fallback = loc
	}
}

// WithRetry overrides the retry budget for Census transport errors.
func WithRetry(cfg retry.Config) Option {
	return func(g *geocoder) {
		g.retryCfg = cfg
	}
}

type geocoder struct {
	httpClient *http.Client
	baseURL    string
	benchmark  string
	vintage    string
	limiter    *rate.Limiter
	fallback   CountyLocator
	retryCfg   retry.Config
}

// NewClient creates a new geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    censusGeographiesURL,
		benchmark:  censusBenchmark,
		vintage:    censusVintage,
		limiter:    rate.NewLimiter(10, 10),
		retryCfg:   retry.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}
