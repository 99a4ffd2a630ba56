package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdefield/agrocheck/internal/config"
)

func newTestChecker(t *testing.T, interval int) *Checker {
	t.Helper()
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	pool.MatchExpectationsInOrder(false)
	pool.ExpectPing().WillReturnError(nil)
	pool.ExpectQuery("SELECT name, last_updated, total_records FROM sources").
		WillReturnRows(pgxmock.NewRows([]string{"name", "last_updated", "total_records"}))

	collector := NewCollector(pool, newTestRedis(t), config.MonitoringConfig{}, nil)
	alerter := NewAlerter(config.MonitoringConfig{})
	return NewChecker(collector, alerter, config.MonitoringConfig{CheckIntervalSecs: interval})
}

func TestChecker_RunStopsOnCancel(t *testing.T) {
	checker := newTestChecker(t, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		checker.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Checker.Run did not stop after context cancellation")
	}
}

func TestChecker_DefaultInterval(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	collector := NewCollector(pool, newTestRedis(t), config.MonitoringConfig{}, nil)
	alerter := NewAlerter(config.MonitoringConfig{})

	checker := NewChecker(collector, alerter, config.MonitoringConfig{CheckIntervalSecs: 0})
	assert.NotNil(t, checker)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	checker.Run(ctx)
}
