package checkers

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/verdefield/agrocheck/internal/db"
	"github.com/verdefield/agrocheck/internal/model"
)

// sanctionClasses is the closed set of sanction registries this checker
// recognizes (spec §4.4.1).
var sanctionClasses = map[string]bool{
	"CEIS": true, // Cadastro de Empresas Inidôneas e Suspensas
	"CNEP": true, // Cadastro Nacional de Empresas Punidas
	"CEAF": true, // Cadastro de Expulsões da Administração Federal
}

// Sanctions checks a CPF/CNPJ against federal administrative sanction
// registries (CEIS/CNEP/CEAF).
type Sanctions struct{ base }

// NewSanctions builds the checker.
func NewSanctions(pool db.Pool) *Sanctions {
	return &Sanctions{base{
		pool: pool,
		descriptor: describedDescriptor(
			"sanctions",
			model.CategoryLegal,
			"Exact-match lookup against federal administrative sanction registries (CEIS/CNEP/CEAF)",
			8,
			[]model.InputType{model.InputCPF, model.InputCNPJ},
			86400,
			3000,
		),
	}}
}

type sanctionRow struct {
	class        string
	organ        string
	startDate    string
	endDate      *string
}

// Execute implements checker.Checker.
func (c *Sanctions) Execute(ctx context.Context, input model.NormalizedInput) (model.CheckerResult, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT sanction_class, sanctioning_organ, start_date, end_date
		FROM sanctions
		WHERE document = $1
		ORDER BY start_date DESC`, documentInput(input))
	if err != nil {
		return model.CheckerResult{}, eris.Wrap(err, "sanctions: query")
	}
	defer rows.Close()

	var matches []sanctionRow
	for rows.Next() {
		var r sanctionRow
		if err := rows.Scan(&r.class, &r.organ, &r.startDate, &r.endDate); err != nil {
			return model.CheckerResult{}, eris.Wrap(err, "sanctions: scan")
		}
		if sanctionClasses[r.class] {
			matches = append(matches, r)
		}
	}
	if err := rows.Err(); err != nil {
		return model.CheckerResult{}, eris.Wrap(err, "sanctions: rows")
	}

	if len(matches) == 0 {
		return model.CheckerResult{
			Status:   model.StatusPass,
			Message:  "no active sanctions found",
			Evidence: model.Evidence{DataSource: "sanctions"},
		}, nil
	}

	latest := matches[0]
	endDate := "ongoing"
	if latest.endDate != nil {
		endDate = *latest.endDate
	}

	return model.CheckerResult{
		Status:   model.StatusFail,
		Severity: model.SeverityCritical,
		Message:  fmt.Sprintf("sanctioned under %s by %s (%s – %s)", latest.class, latest.organ, latest.startDate, endDate),
		Details: map[string]any{
			"sanctionClass":    latest.class,
			"sanctioningOrgan": latest.organ,
			"startDate":        latest.startDate,
			"endDate":          endDate,
			"totalSanctions":   len(matches),
		},
		Evidence: model.Evidence{DataSource: "sanctions"},
	}, nil
}
