package checkers

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/verdefield/agrocheck/internal/db"
	"github.com/verdefield/agrocheck/internal/model"
)

// AnnualDeforestation checks whether a point falls within an annual PRODES
// deforestation polygon.
type AnnualDeforestation struct{ base }

// NewAnnualDeforestation builds the checker.
func NewAnnualDeforestation(pool db.Pool) *AnnualDeforestation {
	return &AnnualDeforestation{base{
		pool: pool,
		descriptor: describedDescriptor(
			"annual-deforestation",
			model.CategoryEnvironmental,
			"Point-in-polygon containment against INPE/PRODES annual deforestation polygons",
			7,
			[]model.InputType{model.InputCoordinates, model.InputCAR},
			604800,
			5000,
		),
	}}
}

// Execute implements checker.Checker.
func (c *AnnualDeforestation) Execute(ctx context.Context, input model.NormalizedInput) (model.CheckerResult, error) {
	point, ok, err := pointWKBForInput(ctx, c.pool, input)
	if err != nil {
		return model.CheckerResult{}, eris.Wrap(err, "annual-deforestation: resolve point")
	}
	if !ok {
		return model.CheckerResult{Status: model.StatusNotApplicable, Message: "no resolvable location for this input"}, nil
	}

	var year int
	var areaHa float64
	row := c.pool.QueryRow(ctx, `
		SELECT reference_year, area_ha
		FROM prodes_deforestation
		WHERE ST_Contains(geom, ST_GeogFromWKB($1)::geometry)
		ORDER BY reference_year DESC
		LIMIT 1`, point)

	switch err := row.Scan(&year, &areaHa); {
	case err == nil:
		return model.CheckerResult{
			Status:   model.StatusFail,
			Severity: model.SeverityHigh,
			Message:  fmt.Sprintf("location contained in a %d PRODES deforestation polygon (%.2f ha)", year, areaHa),
			Details: map[string]any{
				"referenceYear": year,
				"areaHa":        areaHa,
			},
			Evidence: model.Evidence{DataSource: "prodes_deforestation"},
		}, nil
	case isNoRows(err):
		return model.CheckerResult{
			Status:   model.StatusPass,
			Message:  "no PRODES deforestation polygon contains this location",
			Evidence: model.Evidence{DataSource: "prodes_deforestation"},
		}, nil
	default:
		return model.CheckerResult{}, eris.Wrap(err, "annual-deforestation: query")
	}
}
