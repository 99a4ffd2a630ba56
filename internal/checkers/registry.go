package checkers

import (
	"context"

	"github.com/verdefield/agrocheck/internal/checker"
	"github.com/verdefield/agrocheck/internal/config"
	"github.com/verdefield/agrocheck/internal/db"
	"github.com/verdefield/agrocheck/internal/model"
)

// BuildRegistry constructs every concrete checker, applies per-checker
// config overrides (enable/disable, timeout, cache TTL), and registers
// each one into a fresh checker.Registry.
func BuildRegistry(pool db.Pool, overrides map[string]config.CheckerOverride) *checker.Registry {
	registry := checker.NewRegistry()

	all := []checker.Checker{
		NewLaborBlacklist(pool),
		NewEnvironmentalEmbargoesByDocument(pool),
		NewSanctions(pool),
		NewIndigenousLandOverlap(pool),
		NewConservationUnitOverlap(pool),
		NewAnnualDeforestation(pool),
		NewRealtimeAlert(pool),
		NewValidatedDeforestationProximity(pool),
		NewFireHotspotProximity(pool),
		NewWaterUsePermitProximity(pool),
		NewCARStatus(pool),
		NewCARDeforestationIntersection(pool),
		NewEmbargoProximity(pool),
	}

	for _, c := range all {
		d := c.Descriptor()
		if o, ok := overrides[d.Name]; ok {
			if o.Enabled != nil && !*o.Enabled {
				continue
			}
			if o.TimeoutMs > 0 {
				d.TimeoutMs = o.TimeoutMs
			}
			if o.CacheTTLSeconds > 0 {
				d.CacheTTLSeconds = o.CacheTTLSeconds
			}
		}
		registry.Register(describedChecker{Checker: c, descriptor: d})
	}

	return registry
}

// describedChecker overrides Descriptor() on a wrapped checker so
// per-checker config overrides take effect without mutating the
// concrete checker's own state.
type describedChecker struct {
	checker.Checker
	descriptor model.CheckerDescriptor
}

func (d describedChecker) Descriptor() model.CheckerDescriptor { return d.descriptor }

func (d describedChecker) AppliesTo(t model.InputType) bool { return d.descriptor.AppliesTo(t) }

func (d describedChecker) Execute(ctx context.Context, input model.NormalizedInput) (model.CheckerResult, error) {
	return d.Checker.Execute(ctx, input)
}
