package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ridgeline-services/fieldops/internal/retry"
)

const (
	censusGeographiesURL = "https://geocoding.geo.census.gov/geocoder/geographies/onelineaddress"
	censusBenchmark      = "Public_AR_Current"
	censusVintage        = "Current_Current"
	countiesLayer        = "Counties"
)

// censusGeographiesResponse is the JSON response from the Census geographies API.
type censusGeographiesResponse struct {
	Result struct {
		AddressMatches []censusAddressMatch `json:"addressMatches"`
	} `json:"result"`
}

type censusAddressMatch struct {
	MatchedAddress string `json:"matchedAddress"`
	Coordinates    struct {
		X float64 `json:"x"` // longitude
		Y float64 `json:"y"` // latitude
	} `json:"coordinates"`
	Geographies map[string][]censusGeography `json:"geographies"`
}

type censusGeography struct {
	Name     string `json:"NAME"`
	BaseName string `json:"BASENAME"`
	State    string `json:"STATE"`
}

// CountyLookup implements Client. Expected failures (no match, no county
// geography, transport errors) come back in the result with a distinct
// confidence; only context cancellation surfaces as an error.
func (g *geocoder) CountyLookup(ctx context.Context, address string) (*CountyResult, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limit")
	}

	addr := ParseAddress(address)
	params := url.Values{
		"address":   {addr.OneLine()},
		"benchmark": {g.benchmark},
		"vintage":   {g.vintage},
		"layers":    {countiesLayer},
		"format":    {"json"},
	}

	reqURL := g.baseURL + "?" + params.Encode()

	// Transport flaps are retried; HTTP statuses are handled below so the
	// provider's payload is preserved in the result.
	resp, err := retry.DoVal(ctx, g.retryCfg, func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		return g.httpClient.Do(req)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, eris.Wrap(err, "geocode: census request")
		}
		return errorResult(err), nil
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errorResult(err), nil
	}

	if resp.StatusCode != http.StatusOK {
		return &CountyResult{
			Confidence:   ConfidenceError,
			RawResponse:  body,
			ErrorMessage: "census returned status " + resp.Status,
		}, nil
	}

	var censusResp censusGeographiesResponse
	if err := json.Unmarshal(body, &censusResp); err != nil {
		return &CountyResult{
			Confidence:   ConfidenceError,
			RawResponse:  body,
			ErrorMessage: eris.Wrap(err, "parse response").Error(),
		}, nil
	}

	matches := censusResp.Result.AddressMatches
	if len(matches) == 0 {
		return &CountyResult{Confidence: ConfidenceNoMatch, RawResponse: body}, nil
	}

	// Ambiguity is tolerated: take the first match but flag the tie so a
	// human can audit the determination later.
	confidence := ConfidenceMatch
	if len(matches) > 1 {
		confidence = ConfidenceTie
		zap.L().Debug("geocode: ambiguous address",
			zap.String("address", address),
			zap.Int("matches", len(matches)),
		)
	}

	match := matches[0]
	county, state := countyFromMatch(match)
	if county == "" && g.fallback != nil {
		if c, ok := g.fallback.Locate(match.Coordinates.X, match.Coordinates.Y); ok {
			county = c
		}
	}
	if county == "" {
		return &CountyResult{Confidence: ConfidenceNoMatch, RawResponse: body}, nil
	}

	return &CountyResult{
		Success:     true,
		County:      county,
		State:       state,
		Confidence:  confidence,
		RawResponse: body,
	}, nil
}

// countyFromMatch extracts the county base name from the Counties geography
// layer. NAME carries a "County" suffix; BASENAME is the bare county name.
func countyFromMatch(match censusAddressMatch) (county, state string) {
	counties, ok := match.Geographies[countiesLayer]
	if !ok || len(counties) == 0 {
		return "", ""
	}
	geo := counties[0]
	name := geo.BaseName
	if name == "" {
		name = strings.TrimSuffix(strings.TrimSpace(geo.Name), " County")
	}
	return name, geo.State
}

func errorResult(err error) *CountyResult {
	return &CountyResult{
		Confidence:   ConfidenceError,
		ErrorMessage: err.Error(),
	}
}
