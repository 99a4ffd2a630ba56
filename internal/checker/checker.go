// Package checker defines the Checker contract, a Registry of checkers, and
// Run, which adds timeout enforcement and execution timing (result caching
// is done by the orchestrator around Run), grounded on the provider registry in
// internal/waterfall/provider/provider.go, generalized to this domain's
// checker model (spec §4.3).
package checker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/verdefield/agrocheck/internal/model"
)

// Checker is a single compliance check against a normalized input.
type Checker interface {
	Descriptor() model.CheckerDescriptor
	AppliesTo(t model.InputType) bool
	Execute(ctx context.Context, input model.NormalizedInput) (model.CheckerResult, error)
}

// Registry holds every registered Checker, keyed by name.
type Registry struct {
	mu       sync.RWMutex
	checkers map[string]Checker
}

// NewRegistry creates an empty checker registry.
func NewRegistry() *Registry {
	return &Registry{checkers: make(map[string]Checker)}
}

// Register adds c to the registry, keyed by its descriptor name.
func (r *Registry) Register(c Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[c.Descriptor().Name] = c
}

// GetByName returns a checker by exact name, or nil if absent.
func (r *Registry) GetByName(name string) Checker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.checkers[name]
}

// GetByCategory returns every registered checker in the given category,
// enabled or not,
// ordered by priority descending, tie-broken by name ascending.
func (r *Registry) GetByCategory(category model.Category) []Checker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Checker
	for _, c := range r.checkers {
		if c.Descriptor().Category == category {
			out = append(out, c)
		}
	}
	sortByPriorityThenName(out)
	return out
}

// GetApplicable returns every enabled checker whose supported input types
// include t, ordered by priority descending, tie-broken by name ascending
// (spec §4.3).
func (r *Registry) GetApplicable(t model.InputType) []Checker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Checker
	for _, c := range r.checkers {
		d := c.Descriptor()
		if d.Enabled && c.AppliesTo(t) {
			out = append(out, c)
		}
	}
	sortByPriorityThenName(out)
	return out
}

// All returns every registered checker regardless of enabled state, used
// by GET /sources.
func (r *Registry) All() []Checker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Checker, 0, len(r.checkers))
	for _, c := range r.checkers {
		out = append(out, c)
	}
	sortByPriorityThenName(out)
	return out
}

func sortByPriorityThenName(checkers []Checker) {
	sort.Slice(checkers, func(i, j int) bool {
		di, dj := checkers[i].Descriptor(), checkers[j].Descriptor()
		if di.Priority != dj.Priority {
			return di.Priority > dj.Priority
		}
		return di.Name < dj.Name
	})
}

// Run executes c against input, enforcing the descriptor's timeout and
// converting a panic or context deadline into a StatusError result rather
// than letting it fail the whole request (spec §4.4 "on transport or query
// failure return ERROR").
func Run(ctx context.Context, c Checker, input model.NormalizedInput) (res model.CheckerResult) {
	d := c.Descriptor()

	if !c.AppliesTo(input.Type) {
		return model.CheckerResult{Status: model.StatusNotApplicable, Message: "input type not supported by this checker"}
	}

	timeout := time.Duration(d.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			zap.L().Error("checker panicked", zap.String("checker", d.Name), zap.Any("panic", p))
			res = model.CheckerResult{
				Status:          model.StatusError,
				Message:         fmt.Sprintf("checker panicked: %v", p),
				ExecutionTimeMs: time.Since(start).Milliseconds(),
			}
		}
	}()
	result, err := c.Execute(runCtx, input)
	elapsed := time.Since(start)
	result.ExecutionTimeMs = elapsed.Milliseconds()

	if err != nil {
		zap.L().Warn("checker execution failed",
			zap.String("checker", d.Name),
			zap.Error(err),
		)
		message := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			message = "timeout"
		}
		return model.CheckerResult{
			Status:          model.StatusError,
			Message:         message,
			ExecutionTimeMs: elapsed.Milliseconds(),
		}
	}

	return result
}
