package audit

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/riverqueue/river"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdefield/agrocheck/internal/model"
)

func sampleRow() model.AuditRow {
	return model.AuditRow{
		CheckID:          "chk_1",
		RawInput:         model.Input{Type: model.InputCPF, Value: "123.456.789-00"},
		NormalizedValue:  "12345678900",
		Verdict:          model.VerdictCompliant,
		Score:            100,
		Summary:          model.Summary{Pass: 1},
		Metadata:         model.ResponseMetadata{APIVersion: "1.0"},
		ProcessingTimeMs: 42,
		CreatedAt:        time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestRowWorker_Work_InsertsRowAndAssignsID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO audit_rows").WillReturnResult(pgxmock.NewResult("INSERT", 1))

	w := RowWorker{Pool: mock}
	job := &river.Job[PersistRowArgs]{Args: PersistRowArgs{Row: sampleRow()}}

	err = w.Work(context.Background(), job)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRowWorker_Work_GeneratesIDWhenMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO audit_rows").WillReturnResult(pgxmock.NewResult("INSERT", 1))

	row := sampleRow()
	row.ID = ""
	w := RowWorker{Pool: mock}
	job := &river.Job[PersistRowArgs]{Args: PersistRowArgs{Row: row}}

	err = w.Work(context.Background(), job)
	require.NoError(t, err)
}

func TestRowWorker_Work_ReturnsErrorOnInsertFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO audit_rows").WillReturnError(assert.AnError)

	w := RowWorker{Pool: mock}
	job := &river.Job[PersistRowArgs]{Args: PersistRowArgs{Row: sampleRow()}}

	err = w.Work(context.Background(), job)
	assert.Error(t, err)
}

func TestNopPersister_DiscardsRow(t *testing.T) {
	var p NopPersister
	err := p.Enqueue(context.Background(), sampleRow())
	assert.NoError(t, err)
}

func TestPersistRowArgs_Kind(t *testing.T) {
	assert.Equal(t, "persist_audit_row", PersistRowArgs{}.Kind())
}
