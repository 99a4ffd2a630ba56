package checkers

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/verdefield/agrocheck/internal/db"
	"github.com/verdefield/agrocheck/internal/geom"
	"github.com/verdefield/agrocheck/internal/model"
)

// Canonical CAR registration statuses (spec §E.1): raw Portuguese status
// values read from car_properties are mapped here before any check logic
// runs. A raw value with no entry is never guessed at — it surfaces as a
// CheckerError.
const (
	CARActive    = "CARActive"
	CARCancelled = "CARCancelled"
	CARSuspended = "CARSuspended"
	CARPending   = "CARPending"
)

// carStatusLookup maps every raw status car_properties is known to store to
// its canonical constant.
var carStatusLookup = map[string]string{
	"ATIVO":      CARActive,
	"CANCELADO":  CARCancelled,
	"SUSPENSO":   CARSuspended,
	"PENDENTE":   CARPending,
	"EM ANALISE": CARPending,
	"EM ANÁLISE": CARPending,
}

// carFailStatuses is the closed set of canonical CAR statuses that fail
// this checker (spec §4.4.2).
var carFailStatuses = map[string]bool{
	CARCancelled: true,
	CARSuspended: true,
	CARPending:   true,
}

// canonicalCARStatus maps a raw status to its canonical constant. An
// unmapped raw value is a data-quality problem, not a status to guess at.
func canonicalCARStatus(raw string) (string, error) {
	canonical, ok := carStatusLookup[strings.ToUpper(strings.TrimSpace(raw))]
	if !ok {
		return "", &model.CheckerError{Checker: "car-status", Message: fmt.Sprintf("unrecognized CAR status %q", raw)}
	}
	return canonical, nil
}

// CARStatus surfaces the rural property registration (CAR) status for a
// CAR code, or finds the containing CAR polygon for coordinates.
type CARStatus struct{ base }

// NewCARStatus builds the checker.
func NewCARStatus(pool db.Pool) *CARStatus {
	return &CARStatus{base{
		pool: pool,
		descriptor: describedDescriptor(
			"car-status",
			model.CategoryLegal,
			"Rural property registration (Cadastro Ambiental Rural) status lookup",
			7,
			[]model.InputType{model.InputCAR, model.InputCoordinates},
			604800,
			5000,
		),
	}}
}

// Execute implements checker.Checker.
func (c *CARStatus) Execute(ctx context.Context, input model.NormalizedInput) (model.CheckerResult, error) {
	var carCode, status string
	var err error

	switch input.Type {
	case model.InputCAR:
		row := c.pool.QueryRow(ctx, `SELECT car_code, status FROM car_properties WHERE car_code = $1`, input.CanonicalValue)
		err = row.Scan(&carCode, &status)
	case model.InputCoordinates:
		var point []byte
		point, err = geom.PointWKB(input.Coordinates.Lon, input.Coordinates.Lat)
		if err != nil {
			return model.CheckerResult{}, eris.Wrap(err, "car-status: encode point")
		}
		row := c.pool.QueryRow(ctx, `
			SELECT car_code, status FROM car_properties
			WHERE ST_Contains(geom, ST_GeogFromWKB($1)::geometry)
			LIMIT 1`, point)
		err = row.Scan(&carCode, &status)
	default:
		return model.CheckerResult{Status: model.StatusNotApplicable, Message: "input type not supported by this checker"}, nil
	}

	switch {
	case err == nil:
		canonical, canonErr := canonicalCARStatus(status)
		if canonErr != nil {
			return model.CheckerResult{}, canonErr
		}
		if carFailStatuses[canonical] {
			return model.CheckerResult{
				Status:   model.StatusFail,
				Severity: model.SeverityHigh,
				Message:  fmt.Sprintf("CAR registration %s has status %s", carCode, status),
				Details:  map[string]any{"carCode": carCode, "status": status},
				Evidence: model.Evidence{DataSource: "car_properties"},
			}, nil
		}
		return model.CheckerResult{
			Status:   model.StatusPass,
			Message:  fmt.Sprintf("CAR registration %s has status %s", carCode, status),
			Details:  map[string]any{"carCode": carCode, "status": status},
			Evidence: model.Evidence{DataSource: "car_properties"},
		}, nil
	case isNoRows(err):
		return model.CheckerResult{
			Status:   model.StatusWarning,
			Message:  "no CAR registration found for this location",
			Evidence: model.Evidence{DataSource: "car_properties"},
		}, nil
	default:
		return model.CheckerResult{}, eris.Wrap(err, "car-status: query")
	}
}
