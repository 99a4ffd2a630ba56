package checkers

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/verdefield/agrocheck/internal/db"
	"github.com/verdefield/agrocheck/internal/model"
)

// Canonical FUNAI demarcation phases (spec §E.1), ordered from least to
// most advanced. A raw phase with no entry in phaseLookup is never guessed
// at — it surfaces as a CheckerError.
const (
	PhaseUnderStudy  = "PhaseUnderStudy"
	PhaseIdentified  = "PhaseIdentified"
	PhaseDelimited   = "PhaseDelimited"
	PhaseDeclared    = "PhaseDeclared"
	PhaseHomologated = "PhaseHomologated"
	PhaseRegularized = "PhaseRegularized"
)

var phaseLookup = map[string]string{
	"EM ESTUDO":    PhaseUnderStudy,
	"IDENTIFICADA": PhaseIdentified,
	"DELIMITADA":   PhaseDelimited,
	"DECLARADA":    PhaseDeclared,
	"HOMOLOGADA":   PhaseHomologated,
	"REGULARIZADA": PhaseRegularized,
}

// canonicalPhase maps a raw demarcation phase to its canonical constant.
func canonicalPhase(raw string) (string, error) {
	canonical, ok := phaseLookup[strings.ToUpper(strings.TrimSpace(raw))]
	if !ok {
		return "", &model.CheckerError{Checker: "indigenous-land-overlap", Message: fmt.Sprintf("unrecognized demarcation phase %q", raw)}
	}
	return canonical, nil
}

// IndigenousLandOverlap checks whether a point lies within any demarcated
// indigenous land polygon. Severity depends on demarcation phase.
type IndigenousLandOverlap struct{ base }

// NewIndigenousLandOverlap builds the checker.
func NewIndigenousLandOverlap(pool db.Pool) *IndigenousLandOverlap {
	return &IndigenousLandOverlap{base{
		pool: pool,
		descriptor: describedDescriptor(
			"indigenous-land-overlap",
			model.CategoryLegal,
			"Point-in-polygon containment against FUNAI's demarcated indigenous land boundaries",
			9,
			[]model.InputType{model.InputCoordinates, model.InputCAR},
			2592000,
			5000,
		),
	}}
}

// Execute implements checker.Checker.
func (c *IndigenousLandOverlap) Execute(ctx context.Context, input model.NormalizedInput) (model.CheckerResult, error) {
	point, ok, err := pointWKBForInput(ctx, c.pool, input)
	if err != nil {
		return model.CheckerResult{}, eris.Wrap(err, "indigenous-land-overlap: resolve point")
	}
	if !ok {
		return model.CheckerResult{Status: model.StatusNotApplicable, Message: "no resolvable location for this input"}, nil
	}

	var name, ethnicGroup, phase, state string
	row := c.pool.QueryRow(ctx, `
		SELECT name, ethnic_group, demarcation_phase, state
		FROM indigenous_lands
		WHERE ST_Contains(geom, ST_GeogFromWKB($1)::geometry)
		ORDER BY name
		LIMIT 1`, point)

	switch err := row.Scan(&name, &ethnicGroup, &phase, &state); {
	case err == nil:
		canonical, canonErr := canonicalPhase(phase)
		if canonErr != nil {
			return model.CheckerResult{}, canonErr
		}
		severity := model.SeverityHigh
		if canonical == PhaseRegularized || canonical == PhaseHomologated {
			severity = model.SeverityCritical
		}
		return model.CheckerResult{
			Status:   model.StatusFail,
			Severity: severity,
			Message:  fmt.Sprintf("location overlaps indigenous land %q (%s, %s)", name, ethnicGroup, phase),
			Details: map[string]any{
				"name":              name,
				"ethnicGroup":       ethnicGroup,
				"demarcationPhase":  phase,
				"state":             state,
			},
			Evidence: model.Evidence{DataSource: "indigenous_lands"},
		}, nil
	case isNoRows(err):
		return model.CheckerResult{
			Status:   model.StatusPass,
			Message:  "no overlap with any indigenous land",
			Evidence: model.Evidence{DataSource: "indigenous_lands"},
		}, nil
	default:
		return model.CheckerResult{}, eris.Wrap(err, "indigenous-land-overlap: query")
	}
}
