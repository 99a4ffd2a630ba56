package checkers

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/verdefield/agrocheck/internal/db"
	"github.com/verdefield/agrocheck/internal/model"
)

const embargoProximityBufferMeters = 5000

// EmbargoProximity extends the document-indexed environmental embargo
// check with a spatial dimension: for coordinate/CAR inputs it looks for
// embargoed polygons within a buffer, with severity rising as the closest
// embargo gets nearer (spec §4.4.2).
type EmbargoProximity struct{ base }

// NewEmbargoProximity builds the checker.
func NewEmbargoProximity(pool db.Pool) *EmbargoProximity {
	return &EmbargoProximity{base{
		pool: pool,
		descriptor: describedDescriptor(
			"embargo-proximity",
			model.CategoryEnvironmental,
			"Proximity to IBAMA environmental embargo polygons, severity scaled by distance to the closest one",
			6,
			[]model.InputType{model.InputCoordinates, model.InputCAR},
			86400,
			5000,
		),
	}}
}

// Execute implements checker.Checker.
func (c *EmbargoProximity) Execute(ctx context.Context, input model.NormalizedInput) (model.CheckerResult, error) {
	point, ok, err := pointWKBForInput(ctx, c.pool, input)
	if err != nil {
		return model.CheckerResult{}, eris.Wrap(err, "embargo-proximity: resolve point")
	}
	if !ok {
		return model.CheckerResult{Status: model.StatusNotApplicable, Message: "no resolvable location for this input"}, nil
	}

	var embargoID string
	var distanceMeters float64
	row := c.pool.QueryRow(ctx, `
		SELECT embargo_id, ST_Distance(geom, ST_GeogFromWKB($1))
		FROM environmental_embargoes
		WHERE ST_DWithin(geom, ST_GeogFromWKB($1), $2)
		ORDER BY ST_Distance(geom, ST_GeogFromWKB($1))
		LIMIT 1`, point, embargoProximityBufferMeters)

	switch err := row.Scan(&embargoID, &distanceMeters); {
	case err == nil:
		severity := model.SeverityLow
		switch {
		case distanceMeters <= 500:
			severity = model.SeverityCritical
		case distanceMeters <= 1500:
			severity = model.SeverityHigh
		case distanceMeters <= 3000:
			severity = model.SeverityMedium
		}
		return model.CheckerResult{
			Status:   model.StatusFail,
			Severity: severity,
			Message:  fmt.Sprintf("embargo %s is %.0fm away", embargoID, distanceMeters),
			Details: map[string]any{
				"embargoId":      embargoID,
				"distanceMeters": distanceMeters,
				"bufferMeters":   embargoProximityBufferMeters,
			},
			Evidence: model.Evidence{DataSource: "environmental_embargoes"},
		}, nil
	case isNoRows(err):
		return model.CheckerResult{
			Status:   model.StatusPass,
			Message:  "no environmental embargoes within buffer distance",
			Evidence: model.Evidence{DataSource: "environmental_embargoes"},
		}, nil
	default:
		return model.CheckerResult{}, eris.Wrap(err, "embargo-proximity: query")
	}
}
