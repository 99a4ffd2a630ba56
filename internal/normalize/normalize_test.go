package normalize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdefield/agrocheck/internal/geocode"
	"github.com/verdefield/agrocheck/internal/model"
)

type fakeGeocoder struct {
	result  geocode.Result
	err     error
	capture *string
}

func (f *fakeGeocoder) Geocode(_ context.Context, address string) (geocode.Result, error) {
	if f.capture != nil {
		*f.capture = address
	}
	return f.result, f.err
}

func TestNormalize_CPF_StripsAndValidatesLength(t *testing.T) {
	t.Parallel()
	n := New(nil)

	out, err := n.Normalize(context.Background(), model.Input{Type: model.InputCPF, Value: "123.456.789-01"})
	require.NoError(t, err)
	assert.Equal(t, "12345678901", out.CanonicalValue)
	assert.Equal(t, model.InputCPF, out.Type)
}

func TestNormalize_CNPJ_WrongLengthRejected(t *testing.T) {
	t.Parallel()
	n := New(nil)

	_, err := n.Normalize(context.Background(), model.Input{Type: model.InputCNPJ, Value: "123"})
	require.Error(t, err)
	var valErr *model.ValidationError
	require.ErrorAs(t, err, &valErr)
}

func TestNormalize_Coordinates_InBounds(t *testing.T) {
	t.Parallel()
	n := New(nil)

	out, err := n.Normalize(context.Background(), model.Input{
		Type:  model.InputCoordinates,
		Value: map[string]any{"lat": -3.119, "lon": -60.021},
	})
	require.NoError(t, err)
	require.NotNil(t, out.Coordinates)
	assert.InDelta(t, -3.119, out.Coordinates.Lat, 0.0001)
}

func TestNormalize_Coordinates_OutOfBoundsRejected(t *testing.T) {
	t.Parallel()
	n := New(nil)

	_, err := n.Normalize(context.Background(), model.Input{
		Type:  model.InputCoordinates,
		Value: map[string]any{"lat": 40.0, "lon": -74.0},
	})
	require.Error(t, err)
}

func TestNormalize_Coordinates_NonNumericRejected(t *testing.T) {
	t.Parallel()
	n := New(nil)

	_, err := n.Normalize(context.Background(), model.Input{
		Type:  model.InputCoordinates,
		Value: map[string]any{"lat": "north", "lon": -60.0},
	})
	require.Error(t, err)
}

func TestNormalize_Address_PromotedToCoordinates(t *testing.T) {
	t.Parallel()
	g := &fakeGeocoder{result: geocode.Result{
		Coordinates: model.Coordinates{Lat: -8.05, Lon: -34.9},
		DisplayName: "Recife, PE, Brazil",
		Source:      geocode.SourcePrimary,
	}}
	n := New(g)

	out, err := n.Normalize(context.Background(), model.Input{Type: model.InputAddress, Value: "  Recife, PE  "})
	require.NoError(t, err)
	assert.Equal(t, model.InputCoordinates, out.Type)
	require.NotNil(t, out.Coordinates)
	assert.Equal(t, model.InputAddress, out.Metadata["originalType"])
	geoResult, ok := out.Metadata["geocodingResult"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Recife, PE, Brazil", geoResult["displayName"])
	assert.Equal(t, "Recife, PE", out.OriginalValue)
}

func TestNormalize_Address_GeocodingFailurePropagates(t *testing.T) {
	t.Parallel()
	g := &fakeGeocoder{err: &model.GeocodingError{Address: "bogus", Message: "not found"}}
	n := New(g)

	_, err := n.Normalize(context.Background(), model.Input{Type: model.InputAddress, Value: "bogus"})
	require.Error(t, err)
	var geErr *model.GeocodingError
	require.ErrorAs(t, err, &geErr)
}

func TestNormalizeAddressForGeocoding_StripsDiacriticsAndCollapsesSpace(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Sao Paulo, SP", normalizeAddressForGeocoding("São   Paulo, SP"))
	assert.Equal(t, "Altamira, Para", normalizeAddressForGeocoding("Altamira,  Pará"))
}

func TestNormalize_Address_QueriesGeocoderWithDiacriticsStripped(t *testing.T) {
	t.Parallel()
	var gotQuery string
	g := &fakeGeocoder{result: geocode.Result{Coordinates: model.Coordinates{Lat: -8.05, Lon: -34.9}}}
	g.capture = &gotQuery
	n := New(g)

	_, err := n.Normalize(context.Background(), model.Input{Type: model.InputAddress, Value: "São  Paulo"})
	require.NoError(t, err)
	assert.Equal(t, "Sao Paulo", gotQuery)
}

func TestNormalize_CAR_UppercasedAndTrimmed(t *testing.T) {
	t.Parallel()
	n := New(nil)

	out, err := n.Normalize(context.Background(), model.Input{Type: model.InputCAR, Value: "  pa-1234567-abcd.ef01  "})
	require.NoError(t, err)
	assert.Equal(t, "PA-1234567-ABCD.EF01", out.CanonicalValue)
}

func TestNormalize_UnsupportedType(t *testing.T) {
	t.Parallel()
	n := New(nil)

	_, err := n.Normalize(context.Background(), model.Input{Type: model.InputType("bogus")})
	require.Error(t, err)
}
