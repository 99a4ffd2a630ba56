package checkers

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/verdefield/agrocheck/internal/db"
	"github.com/verdefield/agrocheck/internal/model"
)

const (
	carDeforestationIntersectionLimit   = 50
	carDeforestationCriticalRecentYears = 2
	carDeforestationCriticalTotalAreaHa = 100
	carDeforestationHighRecentYears     = 5
	carDeforestationHighTotalAreaHa     = 25
	carDeforestationHighPolygonCount    = 5
)

// CARDeforestationIntersection computes the area of a CAR-registered
// property that overlaps PRODES annual-deforestation polygons, grouped by
// year, and classifies severity by recency, total area, and polygon count
// (spec §4.4.2).
type CARDeforestationIntersection struct{ base }

// NewCARDeforestationIntersection builds the checker.
func NewCARDeforestationIntersection(pool db.Pool) *CARDeforestationIntersection {
	return &CARDeforestationIntersection{base{
		pool: pool,
		descriptor: describedDescriptor(
			"car-deforestation-intersection",
			model.CategoryEnvironmental,
			"Intersection of a CAR-registered property with PRODES annual-deforestation polygons, grouped by year",
			8,
			[]model.InputType{model.InputCAR},
			86400,
			5000,
		),
	}}
}

type carDeforestationYear struct {
	Year         int     `json:"year"`
	AreaHa       float64 `json:"areaHa"`
	PolygonCount int     `json:"polygonCount"`
}

// Execute implements checker.Checker.
func (c *CARDeforestationIntersection) Execute(ctx context.Context, input model.NormalizedInput) (model.CheckerResult, error) {
	if input.Type != model.InputCAR {
		return model.CheckerResult{Status: model.StatusNotApplicable, Message: "input type not supported by this checker"}, nil
	}

	var propertyGeom []byte
	row := c.pool.QueryRow(ctx, `SELECT ST_AsBinary(geom) FROM car_properties WHERE car_code = $1`, input.CanonicalValue)
	if err := row.Scan(&propertyGeom); err != nil {
		if isNoRows(err) {
			return model.CheckerResult{
				Status:   model.StatusWarning,
				Message:  "no CAR registration found for this code",
				Evidence: model.Evidence{DataSource: "car_properties"},
			}, nil
		}
		return model.CheckerResult{}, eris.Wrap(err, "car-deforestation-intersection: lookup property")
	}

	rows, err := c.pool.Query(ctx, `
		SELECT d.reference_year,
		       sum(ST_Area(ST_Intersection(d.geom::geometry, p.geom::geometry)::geography)) / 10000.0 AS area_ha,
		       count(*) AS polygon_count
		FROM (
			SELECT geom, reference_year FROM prodes_deforestation d2
			WHERE ST_Intersects(d2.geom, (SELECT geom FROM car_properties WHERE car_code = $1))
			LIMIT $2
		) d
		CROSS JOIN (SELECT geom FROM car_properties WHERE car_code = $1) p
		GROUP BY d.reference_year
		ORDER BY d.reference_year DESC`,
		input.CanonicalValue, carDeforestationIntersectionLimit)
	if err != nil {
		return model.CheckerResult{}, eris.Wrap(err, "car-deforestation-intersection: query")
	}
	defer rows.Close()

	var years []carDeforestationYear
	var totalAreaHa float64
	var polygonCount int
	for rows.Next() {
		var y carDeforestationYear
		if err := rows.Scan(&y.Year, &y.AreaHa, &y.PolygonCount); err != nil {
			return model.CheckerResult{}, eris.Wrap(err, "car-deforestation-intersection: scan")
		}
		years = append(years, y)
		totalAreaHa += y.AreaHa
		polygonCount += y.PolygonCount
	}
	if err := rows.Err(); err != nil {
		return model.CheckerResult{}, eris.Wrap(err, "car-deforestation-intersection: rows")
	}

	if len(years) == 0 {
		return model.CheckerResult{
			Status:   model.StatusPass,
			Message:  "no intersection with PRODES annual-deforestation polygons",
			Evidence: model.Evidence{DataSource: "prodes_deforestation"},
		}, nil
	}

	newestYear := years[0].Year
	currentYear := time.Now().Year()

	severity := model.SeverityMedium
	switch {
	case newestYear >= currentYear-carDeforestationCriticalRecentYears || totalAreaHa >= carDeforestationCriticalTotalAreaHa:
		severity = model.SeverityCritical
	case newestYear >= currentYear-carDeforestationHighRecentYears ||
		totalAreaHa >= carDeforestationHighTotalAreaHa ||
		polygonCount >= carDeforestationHighPolygonCount:
		severity = model.SeverityHigh
	}

	yearDetails := make([]map[string]any, 0, len(years))
	for _, y := range years {
		yearDetails = append(yearDetails, map[string]any{"year": y.Year, "areaHa": y.AreaHa})
	}

	return model.CheckerResult{
		Status:   model.StatusFail,
		Severity: severity,
		Message:  fmt.Sprintf("property overlaps %.2f ha of PRODES deforestation across %d year(s), newest %d", totalAreaHa, len(years), newestYear),
		Details: map[string]any{
			"totalAreaHa":  totalAreaHa,
			"newestYear":   newestYear,
			"polygonCount": polygonCount,
			"byYear":       yearDetails,
		},
		Evidence: model.Evidence{DataSource: "prodes_deforestation"},
	}, nil
}
