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

func TestEmbargoProximity_Pass_WhenNoneWithinBuffer(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT embargo_id").WillReturnError(pgx.ErrNoRows)

	c := NewEmbargoProximity(mock)
	result, err := c.Execute(context.Background(), model.NormalizedInput{
		Type:        model.InputCoordinates,
		Coordinates: &model.Coordinates{Lat: -10.0, Lon: -55.0},
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPass, result.Status)
}

func TestEmbargoProximity_VeryClose_IsCritical(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"embargo_id", "distance"}).AddRow("EMB-1", 200.0)
	mock.ExpectQuery("SELECT embargo_id").WillReturnRows(rows)

	c := NewEmbargoProximity(mock)
	result, err := c.Execute(context.Background(), model.NormalizedInput{
		Type:        model.InputCoordinates,
		Coordinates: &model.Coordinates{Lat: -10.0, Lon: -55.0},
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusFail, result.Status)
	assert.Equal(t, model.SeverityCritical, result.Severity)
}

func TestEmbargoProximity_Far_IsLow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"embargo_id", "distance"}).AddRow("EMB-2", 4800.0)
	mock.ExpectQuery("SELECT embargo_id").WillReturnRows(rows)

	c := NewEmbargoProximity(mock)
	result, err := c.Execute(context.Background(), model.NormalizedInput{
		Type:        model.InputCoordinates,
		Coordinates: &model.Coordinates{Lat: -10.0, Lon: -55.0},
	})
	require.NoError(t, err)
	assert.Equal(t, model.SeverityLow, result.Severity)
}
