package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/verdefield/agrocheck/internal/model"
	"github.com/verdefield/agrocheck/internal/resilience"
)

const (
	// DefaultNominatimBaseURL is the public OpenStreetMap Nominatim instance.
	DefaultNominatimBaseURL = "https://nominatim.openstreetmap.org"
	// DefaultUserAgent identifies this service per Nominatim's usage policy,
	// which requires a distinguishing User-Agent on every request.
	DefaultUserAgent = "agrocheck/1.0"
	defaultTimeout   = 5 * time.Second
	maxRetries       = 2
	retryBaseDelay   = 1 * time.Second
)

// stateAbbreviations expands Brazilian state abbreviations to their full
// names, improving Nominatim's hit rate on addresses like "Altamira, PA".
var stateAbbreviations = map[string]string{
	"AC": "Acre", "AL": "Alagoas", "AP": "Amapá", "AM": "Amazonas",
	"BA": "Bahia", "CE": "Ceará", "DF": "Distrito Federal",
	"ES": "Espírito Santo", "GO": "Goiás", "MA": "Maranhão",
	"MT": "Mato Grosso", "MS": "Mato Grosso do Sul", "MG": "Minas Gerais",
	"PA": "Pará", "PB": "Paraíba", "PR": "Paraná", "PE": "Pernambuco",
	"PI": "Piauí", "RJ": "Rio de Janeiro", "RN": "Rio Grande do Norte",
	"RS": "Rio Grande do Sul", "RO": "Rondônia", "RR": "Roraima",
	"SC": "Santa Catarina", "SP": "São Paulo", "SE": "Sergipe",
	"TO": "Tocantins",
}

// normalizeAddressQuery appends "Brazil" if no country is present and
// expands a trailing two-letter state abbreviation.
func normalizeAddressQuery(address string) string {
	q := address
	lower := strings.ToLower(q)
	for abbr, full := range stateAbbreviations {
		suffix := ", " + abbr
		if strings.HasSuffix(q, suffix) {
			q = strings.TrimSuffix(q, suffix) + ", " + full
			break
		}
	}
	if !strings.Contains(lower, "brazil") && !strings.Contains(lower, "brasil") {
		q += ", Brazil"
	}
	return q
}

// NominatimProvider geocodes Brazilian addresses via the OpenStreetMap
// Nominatim /search endpoint, restricted to countrycodes=br.
type NominatimProvider struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	email      string
	limiter    *rate.Limiter
}

// NominatimOption configures a NominatimProvider.
type NominatimOption func(*NominatimProvider)

// WithNominatimHTTPClient overrides the default HTTP client.
func WithNominatimHTTPClient(hc *http.Client) NominatimOption {
	return func(p *NominatimProvider) { p.httpClient = hc }
}

// WithNominatimRateLimit overrides the default 1 req/s rate limit, which
// matches Nominatim's public-instance usage policy.
func WithNominatimRateLimit(rps float64) NominatimOption {
	return func(p *NominatimProvider) { p.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

// NewNominatimProvider builds the primary geocoding provider.
func NewNominatimProvider(baseURL, email string, opts ...NominatimOption) *NominatimProvider {
	if baseURL == "" {
		baseURL = DefaultNominatimBaseURL
	}
	p := &NominatimProvider{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    baseURL,
		userAgent:  DefaultUserAgent,
		email:      email,
		limiter:    rate.NewLimiter(rate.Limit(1.0), 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider.
func (p *NominatimProvider) Name() string { return "nominatim" }

type nominatimSearchResult struct {
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address"`
}

// Geocode implements Provider, querying /search restricted to Brazil.
func (p *NominatimProvider) Geocode(ctx context.Context, address string) (providerMatch, bool, error) {
	if address == "" {
		return providerMatch{}, false, nil
	}

	values := url.Values{}
	values.Set("q", normalizeAddressQuery(address))
	values.Set("format", "jsonv2")
	values.Set("countrycodes", "br")
	values.Set("addressdetails", "1")
	values.Set("limit", "1")
	if p.email != "" {
		values.Set("email", p.email)
	}

	requestURL := fmt.Sprintf("%s/search?%s", p.baseURL, values.Encode())

	var results []nominatimSearchResult
	if err := p.doWithRetry(ctx, requestURL, &results); err != nil {
		return providerMatch{}, false, eris.Wrap(err, "nominatim: search")
	}
	if len(results) == 0 {
		return providerMatch{}, false, nil
	}

	r := results[0]
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return providerMatch{}, false, eris.Wrap(err, "nominatim: parse lat")
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return providerMatch{}, false, eris.Wrap(err, "nominatim: parse lon")
	}

	return providerMatch{
		Coordinates:  model.Coordinates{Lat: lat, Lon: lon},
		DisplayName:  r.DisplayName,
		AddressParts: r.Address,
	}, true, nil
}

// doWithRetry issues the request, retrying transient failures with
// exponential backoff while honoring the rate limiter on every attempt.
func (p *NominatimProvider) doWithRetry(ctx context.Context, requestURL string, result any) error {
	cfg := resilience.RetryConfig{
		MaxAttempts:    maxRetries + 1,
		InitialBackoff: retryBaseDelay,
		MaxBackoff:     retryBaseDelay * time.Duration(uint(1)<<uint(maxRetries)),
		Multiplier:     2.0,
		OnRetry: func(attempt int, err error) {
			zap.L().Debug("nominatim: request error, retrying", zap.Error(err), zap.Int("attempt", attempt))
		},
	}

	return resilience.Do(ctx, cfg, func(ctx context.Context) error {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", p.userAgent)

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return resilience.NewTransientError(err, 0)
		}

		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			resp.Body.Close()
			return resilience.NewTransientError(eris.Errorf("nominatim: transient status %d", resp.StatusCode), resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			defer resp.Body.Close()
			return eris.Errorf("nominatim: unexpected status %d", resp.StatusCode)
		}

		err = json.NewDecoder(resp.Body).Decode(result)
		resp.Body.Close()
		if err != nil {
			return eris.Wrap(err, "nominatim: decode response")
		}
		return nil
	})
}
