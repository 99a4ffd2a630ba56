package checkers

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

// isNoRows reports whether err is pgx's "no matching row" sentinel, used
// throughout this package to distinguish "no match" (PASS) from a genuine
// query failure (ERROR).
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
