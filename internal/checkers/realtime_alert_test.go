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

func TestRealtimeAlert_Pass_WhenNoneRecent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT classname").WillReturnError(pgx.ErrNoRows)

	c := NewRealtimeAlert(mock)
	result, err := c.Execute(context.Background(), model.NormalizedInput{
		Type:        model.InputCoordinates,
		Coordinates: &model.Coordinates{Lat: -10.0, Lon: -55.0},
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPass, result.Status)
}

func TestRealtimeAlert_RecentAlertForcesCritical(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"classname", "age_days"}).AddRow("CORTE_RASO", 3)
	mock.ExpectQuery("SELECT classname").WillReturnRows(rows)

	c := NewRealtimeAlert(mock)
	result, err := c.Execute(context.Background(), model.NormalizedInput{
		Type:        model.InputCoordinates,
		Coordinates: &model.Coordinates{Lat: -10.0, Lon: -55.0},
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusFail, result.Status)
	assert.Equal(t, model.SeverityCritical, result.Severity)
}

func TestRealtimeAlert_CriticalClassOverridesAge(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"classname", "age_days"}).AddRow("DESMATAMENTO_VEG", 60)
	mock.ExpectQuery("SELECT classname").WillReturnRows(rows)

	c := NewRealtimeAlert(mock)
	result, err := c.Execute(context.Background(), model.NormalizedInput{
		Type:        model.InputCoordinates,
		Coordinates: &model.Coordinates{Lat: -10.0, Lon: -55.0},
	})
	require.NoError(t, err)
	assert.Equal(t, model.SeverityCritical, result.Severity)
}

func TestRealtimeAlert_OlderNonCriticalClassIsHigh(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"classname", "age_days"}).AddRow("MINERACAO", 45)
	mock.ExpectQuery("SELECT classname").WillReturnRows(rows)

	c := NewRealtimeAlert(mock)
	result, err := c.Execute(context.Background(), model.NormalizedInput{
		Type:        model.InputCoordinates,
		Coordinates: &model.Coordinates{Lat: -10.0, Lon: -55.0},
	})
	require.NoError(t, err)
	assert.Equal(t, model.SeverityHigh, result.Severity)
}
