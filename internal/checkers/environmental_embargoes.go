package checkers

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/verdefield/agrocheck/internal/db"
	"github.com/verdefield/agrocheck/internal/model"
)

// EnvironmentalEmbargoesByDocument checks a CPF/CNPJ against IBAMA's
// environmental embargo list, severity scaled by total embargoed area.
type EnvironmentalEmbargoesByDocument struct{ base }

// NewEnvironmentalEmbargoesByDocument builds the checker.
func NewEnvironmentalEmbargoesByDocument(pool db.Pool) *EnvironmentalEmbargoesByDocument {
	return &EnvironmentalEmbargoesByDocument{base{
		pool: pool,
		descriptor: describedDescriptor(
			"environmental-embargoes-document",
			model.CategoryEnvironmental,
			"Exact-match lookup against IBAMA's environmental embargo registry, severity scaled by aggregate embargoed area",
			8,
			[]model.InputType{model.InputCPF, model.InputCNPJ},
			86400,
			3000,
		),
	}}
}

type embargoRow struct {
	embargoID  string
	areaHa     float64
	embargoedAt string
	state      string
}

// embargoesFirstK is the spec §4.4.1 cap on how many embargo rows to return.
const embargoesFirstK = 5

// Execute implements checker.Checker.
func (c *EnvironmentalEmbargoesByDocument) Execute(ctx context.Context, input model.NormalizedInput) (model.CheckerResult, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT embargo_id, area_ha, embargoed_at, state
		FROM environmental_embargoes
		WHERE document = $1
		ORDER BY embargoed_at DESC`, documentInput(input))
	if err != nil {
		return model.CheckerResult{}, eris.Wrap(err, "environmental-embargoes-document: query")
	}
	defer rows.Close()

	var matches []embargoRow
	var totalArea float64
	for rows.Next() {
		var r embargoRow
		if err := rows.Scan(&r.embargoID, &r.areaHa, &r.embargoedAt, &r.state); err != nil {
			return model.CheckerResult{}, eris.Wrap(err, "environmental-embargoes-document: scan")
		}
		matches = append(matches, r)
		totalArea += r.areaHa
	}
	if err := rows.Err(); err != nil {
		return model.CheckerResult{}, eris.Wrap(err, "environmental-embargoes-document: rows")
	}

	if len(matches) == 0 {
		return model.CheckerResult{
			Status:   model.StatusPass,
			Message:  "no environmental embargoes found",
			Evidence: model.Evidence{DataSource: "environmental_embargoes"},
		}, nil
	}

	severity := model.SeverityMedium
	switch {
	case totalArea > 1000:
		severity = model.SeverityCritical
	case totalArea >= 100:
		severity = model.SeverityHigh
	}

	top := matches
	if len(top) > embargoesFirstK {
		top = top[:embargoesFirstK]
	}
	embargoes := make([]map[string]any, 0, len(top))
	for _, r := range top {
		embargoes = append(embargoes, map[string]any{
			"embargoId":   r.embargoID,
			"areaHa":      r.areaHa,
			"embargoedAt": r.embargoedAt,
			"state":       r.state,
		})
	}

	return model.CheckerResult{
		Status:   model.StatusFail,
		Severity: severity,
		Message:  fmt.Sprintf("%d environmental embargo(es) totaling %.1f ha", len(matches), totalArea),
		Details: map[string]any{
			"totalAreaHa":   totalArea,
			"totalEmbargoes": len(matches),
			"embargoes":      embargoes,
		},
		Evidence: model.Evidence{DataSource: "environmental_embargoes"},
	}, nil
}
