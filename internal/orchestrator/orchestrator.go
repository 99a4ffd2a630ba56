// Package orchestrator ties the check pipeline together: normalize → (if
// ADDRESS) geocode is already folded into the normalizer → select
// applicable checkers → fan-out with per-checker cache lookup → verdict →
// async audit persist (spec.md §4.6).
//
// The fan-out shape is grounded on internal/pipeline/pipeline.go's
// errgroup.WithContext phases (Phase 1A-1D), generalized so that instead of
// a fixed, small set of named goroutines, this orchestrator starts exactly
// one per selected checker and lets errgroup's shared context carry the
// request deadline into each.
package orchestrator

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/verdefield/agrocheck/internal/audit"
	"github.com/verdefield/agrocheck/internal/cache"
	"github.com/verdefield/agrocheck/internal/checker"
	"github.com/verdefield/agrocheck/internal/model"
	"github.com/verdefield/agrocheck/internal/monitoring"
	"github.com/verdefield/agrocheck/internal/normalize"
	"github.com/verdefield/agrocheck/internal/verdict"
)

// auditEnqueueTimeout bounds the best-effort persist call so a stalled
// queue database can never hold a response-serving goroutine open.
const auditEnqueueTimeout = 5 * time.Second

// Orchestrator runs the full check pipeline for a single request.
type Orchestrator struct {
	normalizer *normalize.Normalizer
	registry   *checker.Registry
	cache      *cache.Cache
	persister  audit.Persister
	apiVersion string
	logger     *zap.Logger
	errorRates *monitoring.ErrorRateTracker
}

// New builds an Orchestrator. errorRates may be nil, in which case
// per-checker error rates are not tracked.
func New(normalizer *normalize.Normalizer, registry *checker.Registry, c *cache.Cache, persister audit.Persister, apiVersion string, logger *zap.Logger, errorRates *monitoring.ErrorRateTracker) *Orchestrator {
	if persister == nil {
		persister = audit.NopPersister{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		normalizer: normalizer,
		registry:   registry,
		cache:      c,
		persister:  persister,
		apiVersion: apiVersion,
		logger:     logger,
		errorRates: errorRates,
	}
}

// Check runs the pipeline end to end. Request-level errors (validation,
// geocoding) are returned directly and short-circuit before fan-out, per
// spec.md §4.6's propagation policy; checker-local failures never reach
// this error return — they surface as ERROR entries in sources[].
func (o *Orchestrator) Check(ctx context.Context, req model.Request) (model.ResponseEnvelope, error) {
	start := time.Now()

	normalized, err := o.normalizer.Normalize(ctx, req.Input)
	if err != nil {
		return model.ResponseEnvelope{}, err
	}

	selected := o.selectCheckers(normalized.Type, req.Options.Sources)
	sources := o.runFanOut(ctx, selected, normalized)

	outcome := verdict.Evaluate(sources)
	envelope := model.ResponseEnvelope{
		CheckID:   ulid.Make().String(),
		Input:     req.Input,
		Timestamp: model.Now(),
		Verdict:   outcome.Verdict,
		Score:     outcome.Score,
		Sources:   sources,
		Summary:   outcome.Summary,
		Metadata: model.ResponseMetadata{
			ProcessingTimeMs: time.Since(start).Milliseconds(),
			CacheHitRate:     outcome.CacheHitRate,
			APIVersion:       o.apiVersion,
		},
	}

	o.persistAsync(envelope, normalized)

	return envelope, nil
}

// selectCheckers returns the registry's applicable checkers for t,
// intersected with an optional caller-supplied sources allowlist. An
// empty allowlist means "all applicable".
func (o *Orchestrator) selectCheckers(t model.InputType, sourceNames []string) []checker.Checker {
	applicable := o.registry.GetApplicable(t)
	if len(sourceNames) == 0 {
		return applicable
	}

	allowed := make(map[string]bool, len(sourceNames))
	for _, name := range sourceNames {
		allowed[name] = true
	}

	var filtered []checker.Checker
	for _, c := range applicable {
		if allowed[c.Descriptor().Name] {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// runFanOut invokes every selected checker concurrently — one goroutine
// per checker — collecting results into a slice that preserves the
// registry's priority-desc/name-asc order regardless of completion order
// (spec.md §4.6/§4.3's "determinism under normalization" invariant).
func (o *Orchestrator) runFanOut(ctx context.Context, selected []checker.Checker, input model.NormalizedInput) []model.SourceResult {
	sources := make([]model.SourceResult, len(selected))

	g, gCtx := errgroup.WithContext(ctx)
	for i, c := range selected {
		i, c := i, c
		g.Go(func() error {
			sources[i] = o.runOne(gCtx, c, input)
			return nil
		})
	}
	_ = g.Wait()

	return sources
}

// runOne wraps a single checker invocation with cache-lookup → execute →
// cache-store, per spec.md §4.5/§4.6. The cache fingerprint is
// (checkerName, canonicalValue); concurrent misses for the same
// fingerprint across requests collapse via the cache layer's singleflight
// group.
func (o *Orchestrator) runOne(ctx context.Context, c checker.Checker, input model.NormalizedInput) model.SourceResult {
	d := c.Descriptor()

	ttl := time.Duration(d.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}

	result, err := o.cache.GetOrExecute(ctx, d.Name, input.CanonicalValue, "", ttl, func(execCtx context.Context) (model.CheckerResult, error) {
		return checker.Run(execCtx, c, input), nil
	})
	if err != nil {
		// GetOrExecute's own execute function never returns an error above;
		// this path only triggers on a cache-layer bug, not a checker
		// failure, so it still must not fail the request.
		o.logger.Warn("checker invocation failed unexpectedly", zap.String("checker", d.Name), zap.Error(err))
		result = model.CheckerResult{Status: model.StatusError, Message: err.Error()}
	}

	if o.errorRates != nil {
		o.errorRates.Record(d.Name, result.Status == model.StatusError)
	}

	return model.SourceResult{
		Name:          d.Name,
		Category:      d.Category,
		Priority:      d.Priority,
		CheckerResult: result,
	}
}

// persistAsync enqueues the completed check for durable audit storage
// without blocking the response. Per spec.md §4.8, a persist failure is
// logged and never surfaces to the caller.
func (o *Orchestrator) persistAsync(envelope model.ResponseEnvelope, normalized model.NormalizedInput) {
	row := model.AuditRow{
		CheckID:          envelope.CheckID,
		RawInput:         envelope.Input,
		NormalizedValue:  normalized.CanonicalValue,
		Verdict:          envelope.Verdict,
		Score:            envelope.Score,
		Sources:          envelope.Sources,
		Summary:          envelope.Summary,
		Metadata:         envelope.Metadata,
		ProcessingTimeMs: envelope.Metadata.ProcessingTimeMs,
		CreatedAt:        envelope.Timestamp,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), auditEnqueueTimeout)
		defer cancel()
		if err := o.persister.Enqueue(ctx, row); err != nil {
			o.logger.Warn("audit enqueue failed", zap.String("checkId", row.CheckID), zap.Error(err))
		}
	}()
}
