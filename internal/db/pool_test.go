package db

import (
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

// TestPoolInterfaceSatisfiedByMock asserts pgxmock's pool satisfies Pool,
// which is how every checker/cache unit test in this module exercises
// Postgres-backed code without a live database.
func TestPoolInterfaceSatisfiedByMock(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	var _ Pool = mock
}
