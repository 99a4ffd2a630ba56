// Package normalize implements the Input Normalizer: it validates and
// canonicalizes a raw request Input into a model.NormalizedInput, promoting
// ADDRESS inputs to COORDINATES via a geocode.Client (spec §4.1).
package normalize

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/verdefield/agrocheck/internal/geocode"
	"github.com/verdefield/agrocheck/internal/model"
)

// diacriticsTransformer strips combining marks via a decompose/filter/
// recompose pipeline (NFD -> drop Unicode Mn runes -> NFC), so "São Paulo"
// and "Sao Paulo" normalize to the same geocoder query and cache key.
var diacriticsTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeAddressForGeocoding collapses internal whitespace and strips
// diacritics before an address is sent to the geocoder cascade.
func normalizeAddressForGeocoding(s string) string {
	collapsed := strings.Join(strings.Fields(s), " ")
	out, _, err := transform.String(diacriticsTransformer, collapsed)
	if err != nil {
		return collapsed
	}
	return out
}

// Normalizer canonicalizes raw request inputs.
type Normalizer struct {
	geocoder geocode.Client
}

// New builds a Normalizer. geocoder is only consulted for ADDRESS inputs.
func New(geocoder geocode.Client) *Normalizer {
	return &Normalizer{geocoder: geocoder}
}

// Normalize validates and canonicalizes raw per spec §4.1. Validation
// failures are returned as *model.ValidationError; geocoding failures for
// ADDRESS inputs are returned as *model.GeocodingError.
func (n *Normalizer) Normalize(ctx context.Context, raw model.Input) (model.NormalizedInput, error) {
	switch raw.Type {
	case model.InputCPF, model.InputCNPJ:
		return n.normalizeDocument(raw)
	case model.InputCoordinates:
		return n.normalizeCoordinates(raw)
	case model.InputAddress:
		return n.normalizeAddress(ctx, raw)
	case model.InputCAR:
		return n.normalizeCAR(raw)
	default:
		return model.NormalizedInput{}, &model.ValidationError{Field: "input.type", Message: fmt.Sprintf("unsupported input type %q", raw.Type)}
	}
}

// digitsOnly strips every non-digit rune from s.
func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (n *Normalizer) normalizeDocument(raw model.Input) (model.NormalizedInput, error) {
	str, ok := raw.Value.(string)
	if !ok {
		return model.NormalizedInput{}, &model.ValidationError{Field: "input.value", Message: "document value must be a string"}
	}

	digits := digitsOnly(str)
	wantLen := 11
	if raw.Type == model.InputCNPJ {
		wantLen = 14
	}
	if len(digits) != wantLen {
		return model.NormalizedInput{}, &model.ValidationError{
			Field:   "input.value",
			Message: fmt.Sprintf("%s must have %d digits, got %d", raw.Type, wantLen, len(digits)),
		}
	}

	return model.NormalizedInput{
		Type:           raw.Type,
		CanonicalValue: digits,
		OriginalValue:  str,
	}, nil
}

func (n *Normalizer) normalizeCoordinates(raw model.Input) (model.NormalizedInput, error) {
	coords, err := parseCoordinates(raw.Value)
	if err != nil {
		return model.NormalizedInput{}, err
	}
	if !model.InBrazilBounds(coords) {
		return model.NormalizedInput{}, &model.ValidationError{
			Field:   "input.value",
			Message: fmt.Sprintf("coordinates (%.6f, %.6f) are outside Brazil's bounding box", coords.Lat, coords.Lon),
		}
	}

	return model.NormalizedInput{
		Type:           model.InputCoordinates,
		CanonicalValue: fmt.Sprintf("%.6f,%.6f", coords.Lat, coords.Lon),
		OriginalValue:  fmt.Sprintf("%v", raw.Value),
		Coordinates:    &coords,
	}, nil
}

// parseCoordinates accepts a map[string]any (the typical JSON-decoded
// shape) with numeric lat/lon, rejecting anything non-numeric.
func parseCoordinates(value any) (model.Coordinates, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return model.Coordinates{}, &model.ValidationError{Field: "input.value", Message: "coordinates must be an object with lat/lon"}
	}

	lat, err := toFloat(m["lat"])
	if err != nil {
		return model.Coordinates{}, &model.ValidationError{Field: "input.value.lat", Message: "lat must be numeric"}
	}
	lon, err := toFloat(m["lon"])
	if err != nil {
		return model.Coordinates{}, &model.ValidationError{Field: "input.value.lon", Message: "lon must be numeric"}
	}

	return model.Coordinates{Lat: lat, Lon: lon}, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("not numeric: %v", v)
	}
}

func (n *Normalizer) normalizeAddress(ctx context.Context, raw model.Input) (model.NormalizedInput, error) {
	str, ok := raw.Value.(string)
	if !ok {
		return model.NormalizedInput{}, &model.ValidationError{Field: "input.value", Message: "address value must be a string"}
	}
	trimmed := strings.TrimSpace(str)
	if trimmed == "" {
		return model.NormalizedInput{}, &model.ValidationError{Field: "input.value", Message: "address must not be empty"}
	}

	query := normalizeAddressForGeocoding(trimmed)

	result, err := n.geocoder.Geocode(ctx, query)
	if err != nil {
		return model.NormalizedInput{}, err
	}

	coords := result.Coordinates
	return model.NormalizedInput{
		Type:           model.InputCoordinates,
		CanonicalValue: fmt.Sprintf("%.6f,%.6f", coords.Lat, coords.Lon),
		OriginalValue:  trimmed,
		Coordinates:    &coords,
		Metadata: map[string]any{
			"originalType": model.InputAddress,
			"geocodingResult": map[string]any{
				"displayName":  result.DisplayName,
				"addressParts": result.AddressParts,
				"source":       string(result.Source),
			},
		},
	}, nil
}

func (n *Normalizer) normalizeCAR(raw model.Input) (model.NormalizedInput, error) {
	str, ok := raw.Value.(string)
	if !ok {
		return model.NormalizedInput{}, &model.ValidationError{Field: "input.value", Message: "CAR value must be a string"}
	}
	canonical := strings.ToUpper(strings.TrimSpace(str))
	if canonical == "" {
		return model.NormalizedInput{}, &model.ValidationError{Field: "input.value", Message: "CAR code must not be empty"}
	}

	return model.NormalizedInput{
		Type:           model.InputCAR,
		CanonicalValue: canonical,
		OriginalValue:  str,
	}, nil
}
