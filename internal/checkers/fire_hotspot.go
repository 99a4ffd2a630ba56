package checkers

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/verdefield/agrocheck/internal/db"
	"github.com/verdefield/agrocheck/internal/model"
)

const (
	fireHotspotBufferMeters  = 3000
	fireHotspotWindowDays    = 90
)

// FireHotspotProximity checks for satellite-detected fire hotspots within
// a configured buffer of the point, over the last 90 days.
type FireHotspotProximity struct{ base }

// NewFireHotspotProximity builds the checker.
func NewFireHotspotProximity(pool db.Pool) *FireHotspotProximity {
	return &FireHotspotProximity{base{
		pool: pool,
		descriptor: describedDescriptor(
			"fire-hotspot-proximity",
			model.CategoryEnvironmental,
			"Proximity to INPE satellite-detected fire hotspots from the last 90 days",
			5,
			[]model.InputType{model.InputCoordinates, model.InputCAR},
			21600,
			5000,
		),
	}}
}

// Execute implements checker.Checker.
func (c *FireHotspotProximity) Execute(ctx context.Context, input model.NormalizedInput) (model.CheckerResult, error) {
	point, ok, err := pointWKBForInput(ctx, c.pool, input)
	if err != nil {
		return model.CheckerResult{}, eris.Wrap(err, "fire-hotspot-proximity: resolve point")
	}
	if !ok {
		return model.CheckerResult{Status: model.StatusNotApplicable, Message: "no resolvable location for this input"}, nil
	}

	var count int
	row := c.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM fire_hotspots
		WHERE detected_at > now() - make_interval(days => $2)
		  AND ST_DWithin(geom, ST_GeogFromWKB($1), $3)`,
		point, fireHotspotWindowDays, fireHotspotBufferMeters)

	if err := row.Scan(&count); err != nil {
		return model.CheckerResult{}, eris.Wrap(err, "fire-hotspot-proximity: query")
	}

	if count == 0 {
		return model.CheckerResult{
			Status:   model.StatusPass,
			Message:  "no fire hotspots detected nearby in the last 90 days",
			Evidence: model.Evidence{DataSource: "fire_hotspots"},
		}, nil
	}

	severity := model.SeverityMedium
	if count >= 10 {
		severity = model.SeverityHigh
	}

	return model.CheckerResult{
		Status:   model.StatusFail,
		Severity: severity,
		Message:  fmt.Sprintf("%d fire hotspot(s) detected within %dm in the last 90 days", count, fireHotspotBufferMeters),
		Details: map[string]any{
			"hotspotCount": count,
			"bufferMeters": fireHotspotBufferMeters,
			"windowDays":   fireHotspotWindowDays,
		},
		Evidence: model.Evidence{DataSource: "fire_hotspots"},
	}, nil
}
