package checkers

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/verdefield/agrocheck/internal/db"
	"github.com/verdefield/agrocheck/internal/model"
)

const (
	validatedDeforestationBufferMeters = 1000
	validatedDeforestationWindowYears  = 2
	validatedDeforestationBigAreaHa    = 25
	validatedDeforestationRecentMonths = 6
)

// ValidatedDeforestationProximity checks for MapBiomas-validated
// deforestation alerts within a buffer of the point, over the last two
// years, escalating severity when an alert overlaps protected land, an
// embargo, or is itself large and recent.
type ValidatedDeforestationProximity struct{ base }

// NewValidatedDeforestationProximity builds the checker.
func NewValidatedDeforestationProximity(pool db.Pool) *ValidatedDeforestationProximity {
	return &ValidatedDeforestationProximity{base{
		pool: pool,
		descriptor: describedDescriptor(
			"validated-deforestation-proximity",
			model.CategoryEnvironmental,
			"Proximity to MapBiomas-validated deforestation alerts from the last two years",
			7,
			[]model.InputType{model.InputCoordinates, model.InputCAR},
			86400,
			5000,
		),
	}}
}

// Execute implements checker.Checker.
func (c *ValidatedDeforestationProximity) Execute(ctx context.Context, input model.NormalizedInput) (model.CheckerResult, error) {
	point, ok, err := pointWKBForInput(ctx, c.pool, input)
	if err != nil {
		return model.CheckerResult{}, eris.Wrap(err, "validated-deforestation-proximity: resolve point")
	}
	if !ok {
		return model.CheckerResult{Status: model.StatusNotApplicable, Message: "no resolvable location for this input"}, nil
	}

	var alertID string
	var areaHa float64
	var monthsOld int
	var overlapsProtected bool
	row := c.pool.QueryRow(ctx, `
		SELECT
			a.alert_id,
			a.area_ha,
			EXTRACT(MONTH FROM age(now(), a.detected_at))::int AS months_old,
			EXISTS (
				SELECT 1 FROM indigenous_lands il WHERE ST_Intersects(il.geom, a.geom)
				UNION SELECT 1 FROM conservation_units cu WHERE ST_Intersects(cu.geom, a.geom)
				UNION SELECT 1 FROM environmental_embargoes ee WHERE ST_Intersects(ee.geom, a.geom)
			) AS overlaps_protected
		FROM mapbiomas_alerts a
		WHERE a.detected_at > now() - make_interval(years => $2)
		  AND ST_DWithin(a.geom, ST_GeogFromWKB($1), $3)
		ORDER BY a.detected_at DESC
		LIMIT 1`, point, validatedDeforestationWindowYears, validatedDeforestationBufferMeters)

	switch err := row.Scan(&alertID, &areaHa, &monthsOld, &overlapsProtected); {
	case err == nil:
		severity := model.SeverityMedium
		if overlapsProtected || areaHa >= validatedDeforestationBigAreaHa {
			severity = model.SeverityCritical
		} else if monthsOld <= validatedDeforestationRecentMonths {
			severity = model.SeverityHigh
		}
		return model.CheckerResult{
			Status:   model.StatusFail,
			Severity: severity,
			Message:  fmt.Sprintf("MapBiomas deforestation alert %s within %dm (%.2f ha, %d months old)", alertID, validatedDeforestationBufferMeters, areaHa, monthsOld),
			Details: map[string]any{
				"alertId":           alertID,
				"areaHa":            areaHa,
				"monthsOld":         monthsOld,
				"overlapsProtected": overlapsProtected,
			},
			Evidence: model.Evidence{DataSource: "mapbiomas_alerts"},
		}, nil
	case isNoRows(err):
		return model.CheckerResult{
			Status:   model.StatusPass,
			Message:  "no nearby validated deforestation alerts",
			Evidence: model.Evidence{DataSource: "mapbiomas_alerts"},
		}, nil
	default:
		return model.CheckerResult{}, eris.Wrap(err, "validated-deforestation-proximity: query")
	}
}
