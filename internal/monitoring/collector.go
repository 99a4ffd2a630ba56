// Package monitoring implements the Health & Freshness Monitor (spec.md
// §4.9): database/cache reachability, per-source freshness classification,
// per-table row counts, and an overall down/degraded/ok status, plus an
// optional periodic alert loop.
//
// Grounded on internal/monitoring/collector.go's Collect(ctx, lookbackHours)
// shape and internal/monitoring/alerter.go's threshold-evaluation +
// webhook-delivery pattern, re-pointed from pipeline/fedsync run health at
// per-source data freshness.
package monitoring

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/verdefield/agrocheck/internal/config"
	"github.com/verdefield/agrocheck/internal/db"
)

// Status is the overall health classification returned by GET /health.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// FreshnessClass classifies a single source's staleness.
type FreshnessClass string

const (
	FreshnessFresh        FreshnessClass = "fresh"
	FreshnessWarning      FreshnessClass = "warning"
	FreshnessStale        FreshnessClass = "stale"
	FreshnessNeverUpdated FreshnessClass = "never_updated"
)

// cadenceThreshold holds the warning/stale hour boundaries for one update
// cadence, per spec.md §4.9's examples (daily 48/96h, weekly 168/336h,
// monthly 720/1440h).
type cadenceThreshold struct {
	WarnHours  float64
	StaleHours float64
}

var cadenceThresholds = map[string]cadenceThreshold{
	"daily":   {WarnHours: 48, StaleHours: 96},
	"weekly":  {WarnHours: 168, StaleHours: 336},
	"monthly": {WarnHours: 720, StaleHours: 1440},
}

func classify(cadence string, lastUpdated *time.Time, now time.Time) (FreshnessClass, float64) {
	if lastUpdated == nil {
		return FreshnessNeverUpdated, 0
	}
	hours := now.Sub(*lastUpdated).Hours()
	if hours < 0 {
		hours = 0
	}

	th, ok := cadenceThresholds[cadence]
	if !ok {
		th = cadenceThresholds["daily"]
	}
	switch {
	case hours >= th.StaleHours:
		return FreshnessStale, hours
	case hours >= th.WarnHours:
		return FreshnessWarning, hours
	default:
		return FreshnessFresh, hours
	}
}

// SourceFreshness is a single row from the sources metadata table, per
// spec.md §6 ("Sources metadata table exposes (name, last_updated,
// config.totalRecords)"), enriched with its computed freshness class.
type SourceFreshness struct {
	Name             string         `json:"name"`
	Cadence          string         `json:"cadence"`
	LastUpdated      *time.Time     `json:"lastUpdated,omitempty"`
	HoursSinceUpdate float64        `json:"hoursSinceUpdate"`
	TotalRecords     int            `json:"totalRecords"`
	Class            FreshnessClass `json:"class"`
}

// Snapshot is a point-in-time health/freshness view, the body of GET /health.
type Snapshot struct {
	DBReachable       bool               `json:"dbReachable"`
	CacheReachable    bool               `json:"cacheReachable"`
	Sources           []SourceFreshness  `json:"sources"`
	TableCounts       map[string]int     `json:"tableCounts"`
	CheckerErrorRates map[string]float64 `json:"checkerErrorRates,omitempty"`
	Status            Status             `json:"status"`
	CollectedAt       time.Time          `json:"collectedAt"`
}

// Collector gathers a Snapshot from the relational store and cache client.
type Collector struct {
	pool       db.Pool
	redis      *redis.Client
	cfg        config.MonitoringConfig
	tables     []string
	errorRates *ErrorRateTracker
}

// NewCollector builds a Collector. tables lists the data-store tables to
// report row counts for on GET /health (spec.md §4.9 "per-table row counts").
func NewCollector(pool db.Pool, redisClient *redis.Client, cfg config.MonitoringConfig, tables []string) *Collector {
	return &Collector{pool: pool, redis: redisClient, cfg: cfg, tables: tables}
}

// SetErrorRateTracker wires a shared ErrorRateTracker into the collector so
// Collect can surface checkerErrorRates. A nil tracker (the default) leaves
// that field empty.
func (c *Collector) SetErrorRateTracker(t *ErrorRateTracker) {
	c.errorRates = t
}

// Collect builds a fresh Snapshot. It never returns an error: every
// sub-check failure is captured as an unreachable/never_updated state
// within the snapshot itself, since GET /health must always produce a
// body (200 or 503) rather than fail outright.
func (c *Collector) Collect(ctx context.Context) *Snapshot {
	now := time.Now().UTC()
	snap := &Snapshot{TableCounts: make(map[string]int), CollectedAt: now}

	snap.DBReachable = c.pool.Ping(ctx) == nil
	snap.CacheReachable = c.checkCache(ctx)

	if snap.DBReachable {
		snap.Sources = c.collectSourceFreshness(ctx, now)
		for _, table := range c.tables {
			if n, err := c.countRows(ctx, table); err == nil {
				snap.TableCounts[table] = n
			}
		}
	}

	if c.errorRates != nil {
		snap.CheckerErrorRates = c.errorRates.Rates()
	}

	snap.Status = c.overallStatus(snap)
	return snap
}

func (c *Collector) checkCache(ctx context.Context) bool {
	if c.redis == nil {
		return true
	}
	return c.redis.Ping(ctx).Err() == nil
}

func (c *Collector) collectSourceFreshness(ctx context.Context, now time.Time) []SourceFreshness {
	rows, err := c.pool.Query(ctx, `SELECT name, last_updated, total_records FROM sources ORDER BY name`)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var out []SourceFreshness
	for rows.Next() {
		var name string
		var lastUpdated *time.Time
		var totalRecords int
		if err := rows.Scan(&name, &lastUpdated, &totalRecords); err != nil {
			continue
		}
		cadence := c.cfg.SourceCadence[name]
		if cadence == "" {
			cadence = "daily"
		}
		class, hours := classify(cadence, lastUpdated, now)
		out = append(out, SourceFreshness{
			Name:             name,
			Cadence:          cadence,
			LastUpdated:      lastUpdated,
			HoursSinceUpdate: hours,
			TotalRecords:     totalRecords,
			Class:            class,
		})
	}
	return out
}

func (c *Collector) countRows(ctx context.Context, table string) (int, error) {
	var n int
	// table is sourced from an operator-configured list (not request input),
	// so this count query's trusted-identifier concatenation is safe.
	err := c.pool.QueryRow(ctx, `SELECT count(*) FROM `+table).Scan(&n)
	if err != nil {
		return 0, eris.Wrapf(err, "monitoring: count rows in %s", table)
	}
	return n, nil
}

// overallStatus implements spec.md §4.9's classification law: down if any
// critical infra is down, degraded if any source is stale or has never
// been updated, else ok.
func (c *Collector) overallStatus(snap *Snapshot) Status {
	if !snap.DBReachable || !snap.CacheReachable {
		return StatusDown
	}
	for _, s := range snap.Sources {
		if s.Class == FreshnessStale || s.Class == FreshnessNeverUpdated {
			return StatusDegraded
		}
	}
	return StatusOK
}
