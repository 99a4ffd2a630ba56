package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInputTypeValid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		t    InputType
		want bool
	}{
		{InputCPF, true},
		{InputCNPJ, true},
		{InputCoordinates, true},
		{InputAddress, true},
		{InputCAR, true},
		{InputType("bogus"), false},
		{InputType(""), false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.t.Valid(), "type %q", c.t)
	}
}

func TestInBrazilBounds(t *testing.T) {
	t.Parallel()

	assert.True(t, InBrazilBounds(Coordinates{Lat: -10.5, Lon: -62.5}))
	assert.True(t, InBrazilBounds(Coordinates{Lat: BrazilMinLat, Lon: BrazilMinLon}))
	assert.True(t, InBrazilBounds(Coordinates{Lat: BrazilMaxLat, Lon: BrazilMaxLon}))
	assert.False(t, InBrazilBounds(Coordinates{Lat: 40.0, Lon: -74.0}), "New York is out of bounds")
	assert.False(t, InBrazilBounds(Coordinates{Lat: -10.5, Lon: 10.0}))
}

func TestCheckerDescriptorAppliesTo(t *testing.T) {
	t.Parallel()

	d := CheckerDescriptor{
		Name:                "labor-blacklist",
		SupportedInputTypes: []InputType{InputCPF, InputCNPJ},
	}
	assert.True(t, d.AppliesTo(InputCPF))
	assert.True(t, d.AppliesTo(InputCNPJ))
	assert.False(t, d.AppliesTo(InputCoordinates))
}

func TestSeverityWeight(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.0, SeverityWeight(SeverityCritical))
	assert.Equal(t, 0.75, SeverityWeight(SeverityHigh))
	assert.Equal(t, 0.5, SeverityWeight(SeverityMedium))
	assert.Equal(t, 0.25, SeverityWeight(SeverityLow))
}

func TestCheckerResultApplicable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status Status
		want   bool
	}{
		{StatusPass, true},
		{StatusFail, true},
		{StatusWarning, true},
		{StatusError, false},
		{StatusNotApplicable, false},
	}
	for _, c := range cases {
		r := CheckerResult{Status: c.status}
		assert.Equal(t, c.want, r.Applicable(), "status %q", c.status)
	}
}

func TestErrorTaxonomyMessages(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "coordinates: out of bounds", (&ValidationError{Field: "coordinates", Message: "out of bounds"}).Error())
	assert.Equal(t, "missing key", (&AuthError{Message: "missing key"}).Error())
	assert.Contains(t, (&GeocodingError{Address: "Altamira, PA", Message: "not found"}).Error(), "Altamira, PA")
	assert.Contains(t, (&CheckerError{Checker: "labor-blacklist", Message: "timeout"}).Error(), "labor-blacklist")
}
