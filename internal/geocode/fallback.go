package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/rotisserie/eris"

	"github.com/verdefield/agrocheck/internal/model"
)

// defaultFallbackGeocodeURL is the OpenCage-compatible geocoding endpoint
// used as the optional second provider in the cascade when the primary
// Nominatim lookup misses or errors.
const defaultFallbackGeocodeURL = "https://api.opencagedata.com/geo/json"

// FallbackProvider wraps a key-authenticated geocoding API, used only when
// configured (spec §6 "optional fallback key").
type FallbackProvider struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewFallbackProvider builds the secondary provider. apiKey must be
// non-empty for this provider to be wired into a cascade; callers should
// omit it from the provider list otherwise.
func NewFallbackProvider(baseURL, apiKey string, httpClient *http.Client) *FallbackProvider {
	if baseURL == "" {
		baseURL = defaultFallbackGeocodeURL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &FallbackProvider{httpClient: httpClient, baseURL: baseURL, apiKey: apiKey}
}

// Name implements Provider.
func (p *FallbackProvider) Name() string { return "fallback" }

type fallbackResponse struct {
	Results []struct {
		Formatted string `json:"formatted"`
		Geometry  struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"geometry"`
		Components map[string]string `json:"components"`
	} `json:"results"`
}

// Geocode implements Provider.
func (p *FallbackProvider) Geocode(ctx context.Context, address string) (providerMatch, bool, error) {
	if p.apiKey == "" {
		return providerMatch{}, false, eris.New("geocode: fallback provider has no api key configured")
	}

	params := url.Values{
		"q":           {address},
		"key":         {p.apiKey},
		"countrycode": {"br"},
		"limit":       {"1"},
	}
	reqURL := p.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return providerMatch{}, false, eris.Wrap(err, "geocode: fallback build request")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return providerMatch{}, false, eris.Wrap(err, "geocode: fallback request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return providerMatch{}, false, eris.Errorf("geocode: fallback returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return providerMatch{}, false, eris.Wrap(err, "geocode: fallback read body")
	}

	var parsed fallbackResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return providerMatch{}, false, eris.Wrap(err, "geocode: fallback parse response")
	}

	if len(parsed.Results) == 0 {
		return providerMatch{}, false, nil
	}

	r := parsed.Results[0]
	return providerMatch{
		Coordinates:  model.Coordinates{Lat: r.Geometry.Lat, Lon: r.Geometry.Lng},
		DisplayName:  r.Formatted,
		AddressParts: r.Components,
	}, true, nil
}
