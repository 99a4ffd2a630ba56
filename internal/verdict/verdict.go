// Package verdict implements the severity-weighted scoring and verdict
// classification rules from spec.md §4.7. It is pure and CPU-bound — no
// I/O, per the concurrency model's "Verdict Engine must not perform I/O"
// rule (spec.md §5) — authored fresh; the closest relative in the prior
// codebase, waterfall field resolution, picks a single winning value
// rather than scoring a set, so it doesn't generalize here.
package verdict

import (
	"math"

	"github.com/verdefield/agrocheck/internal/model"
)

// Outcome bundles the Verdict Engine's three outputs.
type Outcome struct {
	Verdict      model.Verdict
	Score        int
	Summary      model.Summary
	CacheHitRate float64
}

// Evaluate computes the verdict, score, and summary over sources per
// spec.md §4.7. sources is the full set produced by the orchestrator's
// fan-out, including NOT_APPLICABLE and ERROR entries.
func Evaluate(sources []model.SourceResult) Outcome {
	summary := summarize(sources)

	applicable := 0
	cacheHits := 0
	var totalContribution, totalWeight float64
	anyFail := false
	anyWarning := false
	allPass := true

	for _, s := range sources {
		if !s.Applicable() {
			continue
		}
		applicable++
		if s.Cached {
			cacheHits++
		}

		weight := 1.0
		if s.Status == model.StatusFail {
			weight = model.SeverityWeight(s.Severity)
			anyFail = true
			allPass = false
		}

		var contribution float64
		switch s.Status {
		case model.StatusPass:
			contribution = 100 * weight
		case model.StatusWarning:
			contribution = 50 * weight
			anyWarning = true
			allPass = false
		case model.StatusFail:
			contribution = 0
		}

		totalContribution += contribution
		totalWeight += weight
	}

	score := 0
	if totalWeight > 0 {
		score = int(math.Round(totalContribution / totalWeight))
	}

	var v model.Verdict
	switch {
	case applicable == 0:
		v = model.VerdictUnknown
	case anyFail:
		v = model.VerdictNonCompliant
	case anyWarning || !allPass:
		v = model.VerdictPartial
	default:
		v = model.VerdictCompliant
	}

	cacheHitRate := 0.0
	if applicable > 0 {
		cacheHitRate = float64(cacheHits) / float64(applicable)
	}

	return Outcome{Verdict: v, Score: score, Summary: summary, CacheHitRate: cacheHitRate}
}

func summarize(sources []model.SourceResult) model.Summary {
	var s model.Summary
	for _, r := range sources {
		switch r.Status {
		case model.StatusPass:
			s.Pass++
		case model.StatusFail:
			s.Fail++
		case model.StatusWarning:
			s.Warning++
		case model.StatusError:
			s.Error++
		case model.StatusNotApplicable:
			s.NotApplicable++
		}
	}
	return s
}
