package checkers

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdefield/agrocheck/internal/model"
)

func TestCARDeforestationIntersection_Warning_WhenCARNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT ST_AsBinary").WillReturnError(pgx.ErrNoRows)

	c := NewCARDeforestationIntersection(mock)
	result, err := c.Execute(context.Background(), model.NormalizedInput{Type: model.InputCAR, CanonicalValue: "ZZ-999"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusWarning, result.Status)
}

func TestCARDeforestationIntersection_Pass_WhenNoOverlap(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	geomRows := pgxmock.NewRows([]string{"st_asbinary"}).AddRow([]byte{0x01})
	mock.ExpectQuery("SELECT ST_AsBinary").WillReturnRows(geomRows)

	empty := pgxmock.NewRows([]string{"reference_year", "area_ha", "polygon_count"})
	mock.ExpectQuery("SELECT d.reference_year").WillReturnRows(empty)

	c := NewCARDeforestationIntersection(mock)
	result, err := c.Execute(context.Background(), model.NormalizedInput{Type: model.InputCAR, CanonicalValue: "MT-123"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPass, result.Status)
}

func TestCARDeforestationIntersection_Critical_WhenRecentAndLarge(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	geomRows := pgxmock.NewRows([]string{"st_asbinary"}).AddRow([]byte{0x01})
	mock.ExpectQuery("SELECT ST_AsBinary").WillReturnRows(geomRows)

	currentYear := time.Now().Year()
	overlapRows := pgxmock.NewRows([]string{"reference_year", "area_ha", "polygon_count"}).
		AddRow(currentYear, 150.0, 1)
	mock.ExpectQuery("SELECT d.reference_year").WillReturnRows(overlapRows)

	c := NewCARDeforestationIntersection(mock)
	result, err := c.Execute(context.Background(), model.NormalizedInput{Type: model.InputCAR, CanonicalValue: "MT-123"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusFail, result.Status)
	assert.Equal(t, model.SeverityCritical, result.Severity)
}

func TestCARDeforestationIntersection_Medium_WhenOldAndSmall(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	geomRows := pgxmock.NewRows([]string{"st_asbinary"}).AddRow([]byte{0x01})
	mock.ExpectQuery("SELECT ST_AsBinary").WillReturnRows(geomRows)

	overlapRows := pgxmock.NewRows([]string{"reference_year", "area_ha", "polygon_count"}).
		AddRow(2010, 5.0, 1)
	mock.ExpectQuery("SELECT d.reference_year").WillReturnRows(overlapRows)

	c := NewCARDeforestationIntersection(mock)
	result, err := c.Execute(context.Background(), model.NormalizedInput{Type: model.InputCAR, CanonicalValue: "MT-123"})
	require.NoError(t, err)
	assert.Equal(t, model.SeverityMedium, result.Severity)
}

func TestCARDeforestationIntersection_High_WhenPolygonCountMeetsThreshold(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	geomRows := pgxmock.NewRows([]string{"st_asbinary"}).AddRow([]byte{0x01})
	mock.ExpectQuery("SELECT ST_AsBinary").WillReturnRows(geomRows)

	// A single old, small-area year whose polygon_count alone crosses the
	// high-severity threshold (spec: HIGH if polygons >= 5), proving the
	// count is summed per intersecting polygon rather than per result row.
	overlapRows := pgxmock.NewRows([]string{"reference_year", "area_ha", "polygon_count"}).
		AddRow(2010, 5.0, 6)
	mock.ExpectQuery("SELECT d.reference_year").WillReturnRows(overlapRows)

	c := NewCARDeforestationIntersection(mock)
	result, err := c.Execute(context.Background(), model.NormalizedInput{Type: model.InputCAR, CanonicalValue: "MT-123"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusFail, result.Status)
	assert.Equal(t, model.SeverityHigh, result.Severity)
	assert.Equal(t, 6, result.Details["polygonCount"])
}
