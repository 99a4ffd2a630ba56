package checkers

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/verdefield/agrocheck/internal/db"
	"github.com/verdefield/agrocheck/internal/model"
)

// LaborBlacklist checks a CPF/CNPJ against Brazil's federal "lista suja" of
// employers found using labor in conditions analogous to slavery.
type LaborBlacklist struct{ base }

// NewLaborBlacklist builds the checker.
func NewLaborBlacklist(pool db.Pool) *LaborBlacklist {
	return &LaborBlacklist{base{
		pool: pool,
		descriptor: describedDescriptor(
			"labor-blacklist",
			model.CategorySocial,
			"Exact-match lookup against the federal labor blacklist (cadastro de empregadores com trabalho em condição análoga à de escravo)",
			9,
			[]model.InputType{model.InputCPF, model.InputCNPJ},
			86400,
			3000,
		),
	}}
}

type laborBlacklistRow struct {
	year           int
	jurisdiction   string
	workersAffected int
}

// Execute implements checker.Checker.
func (c *LaborBlacklist) Execute(ctx context.Context, input model.NormalizedInput) (model.CheckerResult, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT year, jurisdiction, workers_affected
		FROM labor_blacklist
		WHERE document = $1
		ORDER BY year DESC`, documentInput(input))
	if err != nil {
		return model.CheckerResult{}, eris.Wrap(err, "labor-blacklist: query")
	}
	defer rows.Close()

	var matches []laborBlacklistRow
	for rows.Next() {
		var r laborBlacklistRow
		if err := rows.Scan(&r.year, &r.jurisdiction, &r.workersAffected); err != nil {
			return model.CheckerResult{}, eris.Wrap(err, "labor-blacklist: scan")
		}
		matches = append(matches, r)
	}
	if err := rows.Err(); err != nil {
		return model.CheckerResult{}, eris.Wrap(err, "labor-blacklist: rows")
	}

	if len(matches) == 0 {
		return model.CheckerResult{
			Status:   model.StatusPass,
			Message:  "no entry on the federal labor blacklist",
			Evidence: model.Evidence{DataSource: "labor_blacklist"},
		}, nil
	}

	latest := matches[0]
	return model.CheckerResult{
		Status:   model.StatusFail,
		Severity: model.SeverityCritical,
		Message:  fmt.Sprintf("listed on the federal labor blacklist (%d, %s)", latest.year, latest.jurisdiction),
		Details: map[string]any{
			"year":            latest.year,
			"jurisdiction":    latest.jurisdiction,
			"workersAffected": latest.workersAffected,
			"totalEntries":    len(matches),
		},
		Evidence: model.Evidence{DataSource: "labor_blacklist"},
	}, nil
}
