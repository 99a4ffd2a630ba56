package checkers

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/verdefield/agrocheck/internal/db"
	"github.com/verdefield/agrocheck/internal/model"
)

const waterUsePermitBufferMeters = 5000

// WaterUsePermitProximity is informational only: it always returns PASS,
// reporting the count of valid vs expired water-use permits nearby and
// their total authorized volume (spec §4.4.2).
type WaterUsePermitProximity struct{ base }

// NewWaterUsePermitProximity builds the checker.
func NewWaterUsePermitProximity(pool db.Pool) *WaterUsePermitProximity {
	return &WaterUsePermitProximity{base{
		pool: pool,
		descriptor: describedDescriptor(
			"water-use-permit-proximity",
			model.CategoryLegal,
			"Informational: nearby ANA water-use permits, valid vs expired, with total authorized volume",
			3,
			[]model.InputType{model.InputCoordinates, model.InputCAR},
			604800,
			5000,
		),
	}}
}

// Execute implements checker.Checker.
func (c *WaterUsePermitProximity) Execute(ctx context.Context, input model.NormalizedInput) (model.CheckerResult, error) {
	point, ok, err := pointWKBForInput(ctx, c.pool, input)
	if err != nil {
		return model.CheckerResult{}, eris.Wrap(err, "water-use-permit-proximity: resolve point")
	}
	if !ok {
		return model.CheckerResult{Status: model.StatusNotApplicable, Message: "no resolvable location for this input"}, nil
	}

	var validCount, expiredCount int
	var totalVolumeM3 float64
	row := c.pool.QueryRow(ctx, `
		SELECT
			count(*) FILTER (WHERE status = 'valid'),
			count(*) FILTER (WHERE status = 'expired'),
			coalesce(sum(authorized_volume_m3) FILTER (WHERE status = 'valid'), 0)
		FROM water_use_permits
		WHERE ST_DWithin(geom, ST_GeogFromWKB($1), $2)`,
		point, waterUsePermitBufferMeters)

	if err := row.Scan(&validCount, &expiredCount, &totalVolumeM3); err != nil {
		return model.CheckerResult{}, eris.Wrap(err, "water-use-permit-proximity: query")
	}

	return model.CheckerResult{
		Status:  model.StatusPass,
		Message: fmt.Sprintf("%d valid, %d expired water-use permit(s) within %dm", validCount, expiredCount, waterUsePermitBufferMeters),
		Details: map[string]any{
			"validPermits":          validCount,
			"expiredPermits":        expiredCount,
			"totalAuthorizedVolumeM3": totalVolumeM3,
			"bufferMeters":          waterUsePermitBufferMeters,
		},
		Evidence: model.Evidence{DataSource: "water_use_permits"},
	}, nil
}
