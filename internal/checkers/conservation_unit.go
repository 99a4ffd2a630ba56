package checkers

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/verdefield/agrocheck/internal/db"
	"github.com/verdefield/agrocheck/internal/model"
)

// Canonical SNUC protection groups. A raw value with no entry in
// protectionGroupLookup is never guessed at — it surfaces as a
// CheckerError, matching the status/phase canonicalization rule applied
// to every other variant-coded field this checker set reads.
const (
	ProtectionIntegral       = "ProtectionIntegral"
	ProtectionSustainableUse = "ProtectionSustainableUse"
)

var protectionGroupLookup = map[string]string{
	"PROTECAO INTEGRAL": ProtectionIntegral,
	"PROTEÇÃO INTEGRAL": ProtectionIntegral,
	"INTEGRAL":          ProtectionIntegral,
	"FULL-PROTECTION":   ProtectionIntegral,
	"USO SUSTENTAVEL":   ProtectionSustainableUse,
	"USO SUSTENTÁVEL":   ProtectionSustainableUse,
	"SUSTAINABLE-USE":   ProtectionSustainableUse,
}

// canonicalProtectionGroup maps a raw SNUC protection group to its
// canonical constant.
func canonicalProtectionGroup(raw string) (string, error) {
	canonical, ok := protectionGroupLookup[strings.ToUpper(strings.TrimSpace(raw))]
	if !ok {
		return "", &model.CheckerError{Checker: "conservation-unit-overlap", Message: fmt.Sprintf("unrecognized protection group %q", raw)}
	}
	return canonical, nil
}

// ConservationUnitOverlap checks whether a point lies within a protected
// conservation unit. Severity depends on the unit's protection group.
type ConservationUnitOverlap struct{ base }

// NewConservationUnitOverlap builds the checker.
func NewConservationUnitOverlap(pool db.Pool) *ConservationUnitOverlap {
	return &ConservationUnitOverlap{base{
		pool: pool,
		descriptor: describedDescriptor(
			"conservation-unit-overlap",
			model.CategoryEnvironmental,
			"Point-in-polygon containment against MMA/ICMBio conservation unit boundaries",
			9,
			[]model.InputType{model.InputCoordinates, model.InputCAR},
			2592000,
			5000,
		),
	}}
}

// Execute implements checker.Checker.
func (c *ConservationUnitOverlap) Execute(ctx context.Context, input model.NormalizedInput) (model.CheckerResult, error) {
	point, ok, err := pointWKBForInput(ctx, c.pool, input)
	if err != nil {
		return model.CheckerResult{}, eris.Wrap(err, "conservation-unit-overlap: resolve point")
	}
	if !ok {
		return model.CheckerResult{Status: model.StatusNotApplicable, Message: "no resolvable location for this input"}, nil
	}

	var name, protectionGroup, category string
	row := c.pool.QueryRow(ctx, `
		SELECT name, protection_group, category
		FROM conservation_units
		WHERE ST_Contains(geom, ST_GeogFromWKB($1)::geometry)
		ORDER BY name
		LIMIT 1`, point)

	switch err := row.Scan(&name, &protectionGroup, &category); {
	case err == nil:
		canonical, canonErr := canonicalProtectionGroup(protectionGroup)
		if canonErr != nil {
			return model.CheckerResult{}, canonErr
		}
		severity := model.SeverityCritical
		if canonical == ProtectionSustainableUse {
			severity = model.SeverityHigh
		}
		return model.CheckerResult{
			Status:   model.StatusFail,
			Severity: severity,
			Message:  fmt.Sprintf("location overlaps conservation unit %q (%s)", name, category),
			Details: map[string]any{
				"name":            name,
				"protectionGroup": protectionGroup,
				"category":        category,
			},
			Evidence: model.Evidence{DataSource: "conservation_units"},
		}, nil
	case isNoRows(err):
		return model.CheckerResult{
			Status:   model.StatusPass,
			Message:  "no overlap with any conservation unit",
			Evidence: model.Evidence{DataSource: "conservation_units"},
		}, nil
	default:
		return model.CheckerResult{}, eris.Wrap(err, "conservation-unit-overlap: query")
	}
}
