// Package audit implements the Audit Persister (spec.md §4.8): a
// write-only, best-effort record of every completed check. A persist
// failure is logged and never propagates back to the request — the
// caller gets its ResponseEnvelope regardless of whether the audit row
// ever lands.
//
// The durable-queue shape is grounded on Togather-Foundation-server's
// internal/jobs (river.go's NewClientConfig/NewClient, and
// cleanup_geocoding_cache.go's concrete JobArgs/Worker pair): a
// riverqueue/river client backed by riverpgxv5, with a single job kind
// whose worker inserts the row via db.Pool.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/verdefield/agrocheck/internal/db"
	"github.com/verdefield/agrocheck/internal/model"
)

const jobKindPersistRow = "persist_audit_row"

// persistMaxAttempts caps retries on a best-effort job: a handful of
// attempts absorb a transient connection blip without holding the queue
// open indefinitely for a row nobody will ever read synchronously.
const persistMaxAttempts = 3

const migration = `
CREATE TABLE IF NOT EXISTS audit_rows (
	id                 TEXT PRIMARY KEY,
	check_id           TEXT NOT NULL,
	raw_input          JSONB NOT NULL,
	normalized_value   TEXT NOT NULL,
	verdict            TEXT NOT NULL,
	score              INTEGER NOT NULL,
	sources            JSONB NOT NULL,
	summary            JSONB NOT NULL,
	metadata           JSONB NOT NULL,
	processing_time_ms BIGINT NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_audit_rows_check_id ON audit_rows(check_id);
CREATE INDEX IF NOT EXISTS idx_audit_rows_created_at ON audit_rows(created_at);
`

// Migrate creates the audit_rows table if it does not already exist.
func Migrate(ctx context.Context, pool db.Pool) error {
	_, err := pool.Exec(ctx, migration)
	return eris.Wrap(err, "audit: migrate")
}

// Persister enqueues a completed check for durable, asynchronous
// persistence. Enqueue itself may fail (e.g. the queue's own database is
// down); callers must log and discard that error rather than fail the
// in-flight request.
type Persister interface {
	Enqueue(ctx context.Context, row model.AuditRow) error
}

// PersistRowArgs is the job payload: the full audit row, already
// assembled by the orchestrator.
type PersistRowArgs struct {
	Row model.AuditRow `json:"row"`
}

func (PersistRowArgs) Kind() string { return jobKindPersistRow }

// RowWorker inserts a persisted audit row into Postgres.
type RowWorker struct {
	river.WorkerDefaults[PersistRowArgs]
	Pool   db.Pool
	Logger *zap.Logger
}

func (RowWorker) Kind() string { return jobKindPersistRow }

func (w RowWorker) Work(ctx context.Context, job *river.Job[PersistRowArgs]) error {
	logger := w.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	row := job.Args.Row
	if row.ID == "" {
		row.ID = ulid.Make().String()
	}

	rawInput, err := json.Marshal(row.RawInput)
	if err != nil {
		return eris.Wrap(err, "audit: marshal raw input")
	}
	sources, err := json.Marshal(row.Sources)
	if err != nil {
		return eris.Wrap(err, "audit: marshal sources")
	}
	summary, err := json.Marshal(row.Summary)
	if err != nil {
		return eris.Wrap(err, "audit: marshal summary")
	}
	metadata, err := json.Marshal(row.Metadata)
	if err != nil {
		return eris.Wrap(err, "audit: marshal metadata")
	}

	_, err = w.Pool.Exec(ctx,
		`INSERT INTO audit_rows
			(id, check_id, raw_input, normalized_value, verdict, score, sources, summary, metadata, processing_time_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO NOTHING`,
		row.ID, row.CheckID, rawInput, row.NormalizedValue, string(row.Verdict), row.Score,
		sources, summary, metadata, row.ProcessingTimeMs, row.CreatedAt,
	)
	if err != nil {
		logger.Warn("audit row insert failed", zap.String("checkId", row.CheckID), zap.Error(err))
		return eris.Wrapf(err, "audit: insert row %s", row.CheckID)
	}
	return nil
}

// RiverPersister is a Persister backed by a riverqueue/river client.
type RiverPersister struct {
	client *river.Client[pgx.Tx]
}

// NewClient builds the river.Client used both to enqueue rows and to run
// the worker pool that drains them. maxWorkers mirrors
// config.AuditConfig.MaxWorkers.
func NewClient(pool *pgxpool.Pool, maxWorkers int, logger *zap.Logger) (*river.Client[pgx.Tx], error) {
	if maxWorkers <= 0 {
		maxWorkers = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &RowWorker{Pool: pool, Logger: logger})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Workers:     workers,
		MaxAttempts: persistMaxAttempts,
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: maxWorkers},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "audit: new river client")
	}
	return client, nil
}

// NewPersister wraps a river.Client as a Persister.
func NewPersister(client *river.Client[pgx.Tx]) *RiverPersister {
	return &RiverPersister{client: client}
}

func (p *RiverPersister) Enqueue(ctx context.Context, row model.AuditRow) error {
	if row.ID == "" {
		row.ID = ulid.Make().String()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	_, err := p.client.Insert(ctx, PersistRowArgs{Row: row}, nil)
	return eris.Wrap(err, "audit: enqueue")
}

// NopPersister discards every row. Used where audit persistence is
// disabled (e.g. a queue-less dev/test configuration).
type NopPersister struct{}

func (NopPersister) Enqueue(ctx context.Context, row model.AuditRow) error { return nil }
