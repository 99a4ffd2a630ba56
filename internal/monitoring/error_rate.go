package monitoring

import "sync"

// ErrorRateTracker accumulates per-checker execution outcomes in process
// memory, so GET /health can report an error_rate per checker the same way
// it reports per-table row counts — a live operational signal, not a
// historical one; it resets on process restart.
type ErrorRateTracker struct {
	mu    sync.Mutex
	total map[string]int
	errs  map[string]int
}

// NewErrorRateTracker builds an empty tracker.
func NewErrorRateTracker() *ErrorRateTracker {
	return &ErrorRateTracker{total: make(map[string]int), errs: make(map[string]int)}
}

// Record tallies one checker execution. isError is true for StatusError
// results, which includes the "timeout" message checker.Run produces on
// context-deadline exceeded.
func (t *ErrorRateTracker) Record(checkerName string, isError bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total[checkerName]++
	if isError {
		t.errs[checkerName]++
	}
}

// Rates returns the current error rate (errors/total) for every checker
// that has executed at least once.
func (t *ErrorRateTracker) Rates() map[string]float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	rates := make(map[string]float64, len(t.total))
	for name, n := range t.total {
		rates[name] = float64(t.errs[name]) / float64(n)
	}
	return rates
}
