package checkers

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/verdefield/agrocheck/internal/db"
	"github.com/verdefield/agrocheck/internal/model"
)

// realtimeAlertWindowDays is how far back DETER alerts are considered
// (spec §4.4.2 "published within the last 90 days").
const realtimeAlertWindowDays = 90

// realtimeAlertForceCriticalDays is the recency threshold that forces
// CRITICAL regardless of class.
const realtimeAlertForceCriticalDays = 7

// criticalAlertClasses are DETER classnames that always imply CRITICAL.
var criticalAlertClasses = map[string]bool{
	"DESMATAMENTO_VEG": true,
	"DESMATAMENTO_CR":  true,
	"CORTE_SELETIVO":   true,
}

// RealtimeAlert checks whether a point falls within a recent DETER
// near-real-time deforestation alert polygon.
type RealtimeAlert struct{ base }

// NewRealtimeAlert builds the checker.
func NewRealtimeAlert(pool db.Pool) *RealtimeAlert {
	return &RealtimeAlert{base{
		pool: pool,
		descriptor: describedDescriptor(
			"realtime-deforestation-alert",
			model.CategoryEnvironmental,
			"Point-in-polygon containment against INPE/DETER near-real-time deforestation alerts from the last 90 days",
			10,
			[]model.InputType{model.InputCoordinates, model.InputCAR},
			3600,
			5000,
		),
	}}
}

// Execute implements checker.Checker.
func (c *RealtimeAlert) Execute(ctx context.Context, input model.NormalizedInput) (model.CheckerResult, error) {
	point, ok, err := pointWKBForInput(ctx, c.pool, input)
	if err != nil {
		return model.CheckerResult{}, eris.Wrap(err, "realtime-deforestation-alert: resolve point")
	}
	if !ok {
		return model.CheckerResult{Status: model.StatusNotApplicable, Message: "no resolvable location for this input"}, nil
	}

	var className string
	var ageDays int
	row := c.pool.QueryRow(ctx, `
		SELECT classname, EXTRACT(DAY FROM now() - published_at)::int AS age_days
		FROM deter_alerts
		WHERE published_at > now() - make_interval(days => $2)
		  AND ST_Contains(geom, ST_GeogFromWKB($1)::geometry)
		ORDER BY published_at DESC
		LIMIT 1`, point, realtimeAlertWindowDays)

	switch err := row.Scan(&className, &ageDays); {
	case err == nil:
		severity := model.SeverityHigh
		if criticalAlertClasses[strings.ToUpper(className)] {
			severity = model.SeverityCritical
		}
		if ageDays <= realtimeAlertForceCriticalDays {
			severity = model.SeverityCritical
		}
		return model.CheckerResult{
			Status:   model.StatusFail,
			Severity: severity,
			Message:  fmt.Sprintf("location contained in a DETER alert (%s, %d days old)", className, ageDays),
			Details: map[string]any{
				"classname": className,
				"ageDays":   ageDays,
			},
			Evidence: model.Evidence{DataSource: "deter_alerts"},
		}, nil
	case isNoRows(err):
		return model.CheckerResult{
			Status:   model.StatusPass,
			Message:  "no recent DETER alert contains this location",
			Evidence: model.Evidence{DataSource: "deter_alerts"},
		}, nil
	default:
		return model.CheckerResult{}, eris.Wrap(err, "realtime-deforestation-alert: query")
	}
}
