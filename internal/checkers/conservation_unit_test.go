package checkers

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdefield/agrocheck/internal/model"
)

func TestConservationUnitOverlap_Pass_WhenNoContainment(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT name, protection_group").WillReturnError(pgx.ErrNoRows)

	c := NewConservationUnitOverlap(mock)
	result, err := c.Execute(context.Background(), model.NormalizedInput{
		Type:        model.InputCoordinates,
		Coordinates: &model.Coordinates{Lat: -10.0, Lon: -55.0},
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPass, result.Status)
}

func TestConservationUnitOverlap_SustainableUseIsHigh(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"name", "protection_group", "category"}).
		AddRow("APA Y", "Sustainable-Use", "APA")
	mock.ExpectQuery("SELECT name, protection_group").WillReturnRows(rows)

	c := NewConservationUnitOverlap(mock)
	result, err := c.Execute(context.Background(), model.NormalizedInput{
		Type:        model.InputCoordinates,
		Coordinates: &model.Coordinates{Lat: -10.0, Lon: -55.0},
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusFail, result.Status)
	assert.Equal(t, model.SeverityHigh, result.Severity)
}

func TestConservationUnitOverlap_Error_WhenProtectionGroupUnrecognized(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"name", "protection_group", "category"}).
		AddRow("RPPN W", "Reserva Particular", "RPPN")
	mock.ExpectQuery("SELECT name, protection_group").WillReturnRows(rows)

	c := NewConservationUnitOverlap(mock)
	_, err = c.Execute(context.Background(), model.NormalizedInput{
		Type:        model.InputCoordinates,
		Coordinates: &model.Coordinates{Lat: -10.0, Lon: -55.0},
	})
	require.Error(t, err)
	var checkerErr *model.CheckerError
	require.ErrorAs(t, err, &checkerErr)
	assert.Equal(t, "conservation-unit-overlap", checkerErr.Checker)
}

func TestConservationUnitOverlap_FullProtectionIsCritical(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"name", "protection_group", "category"}).
		AddRow("Parque Z", "Full-Protection", "Parque Nacional")
	mock.ExpectQuery("SELECT name, protection_group").WillReturnRows(rows)

	c := NewConservationUnitOverlap(mock)
	result, err := c.Execute(context.Background(), model.NormalizedInput{
		Type:        model.InputCoordinates,
		Coordinates: &model.Coordinates{Lat: -10.0, Lon: -55.0},
	})
	require.NoError(t, err)
	assert.Equal(t, model.SeverityCritical, result.Severity)
}
