package orchestrator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdefield/agrocheck/internal/cache"
	"github.com/verdefield/agrocheck/internal/checker"
	"github.com/verdefield/agrocheck/internal/model"
	"github.com/verdefield/agrocheck/internal/monitoring"
	"github.com/verdefield/agrocheck/internal/normalize"
)

type fakeChecker struct {
	descriptor model.CheckerDescriptor
	calls      atomic.Int32
	result     model.CheckerResult
}

func (f *fakeChecker) Descriptor() model.CheckerDescriptor { return f.descriptor }
func (f *fakeChecker) AppliesTo(t model.InputType) bool    { return f.descriptor.AppliesTo(t) }
func (f *fakeChecker) Execute(_ context.Context, _ model.NormalizedInput) (model.CheckerResult, error) {
	f.calls.Add(1)
	return f.result, nil
}

func newFakeChecker(name string, priority int, status model.Status) *fakeChecker {
	return &fakeChecker{
		descriptor: model.CheckerDescriptor{
			Name:                name,
			Category:            model.CategoryLegal,
			Priority:            priority,
			SupportedInputTypes: []model.InputType{model.InputCPF, model.InputCNPJ},
			CacheTTLSeconds:     3600,
			TimeoutMs:           1000,
			Enabled:             true,
		},
		result: model.CheckerResult{Status: status},
	}
}

type fakePersister struct {
	enqueued atomic.Int32
	err      error
}

func (p *fakePersister) Enqueue(_ context.Context, _ model.AuditRow) error {
	p.enqueued.Add(1)
	return p.err
}

func newTestOrchestrator(t *testing.T, checkers ...*fakeChecker) (*Orchestrator, *fakePersister) {
	o, persister, _ := newTestOrchestratorWithErrorRates(t, checkers...)
	return o, persister
}

func newTestOrchestratorWithErrorRates(t *testing.T, checkers ...*fakeChecker) (*Orchestrator, *fakePersister, *monitoring.ErrorRateTracker) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	c, err := cache.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), 100, nil)
	require.NoError(t, err)

	registry := checker.NewRegistry()
	for _, ch := range checkers {
		registry.Register(ch)
	}

	persister := &fakePersister{}
	errorRates := monitoring.NewErrorRateTracker()
	o := New(normalize.New(nil), registry, c, persister, "1.0", nil, errorRates)
	return o, persister, errorRates
}

func TestCheck_RunsApplicableCheckersAndReturnsVerdict(t *testing.T) {
	pass := newFakeChecker("sanctions", 9, model.StatusPass)
	o, _ := newTestOrchestrator(t, pass)

	envelope, err := o.Check(context.Background(), model.Request{
		Input: model.Input{Type: model.InputCPF, Value: "123.456.789-00"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.VerdictCompliant, envelope.Verdict)
	require.Len(t, envelope.Sources, 1)
	assert.Equal(t, "sanctions", envelope.Sources[0].Name)
	assert.EqualValues(t, 1, pass.calls.Load())
}

func TestCheck_ValidationError_ShortCircuitsBeforeFanOut(t *testing.T) {
	c := newFakeChecker("sanctions", 9, model.StatusPass)
	o, _ := newTestOrchestrator(t, c)

	_, err := o.Check(context.Background(), model.Request{
		Input: model.Input{Type: model.InputCPF, Value: "123"},
	})
	require.Error(t, err)
	var valErr *model.ValidationError
	assert.ErrorAs(t, err, &valErr)
	assert.EqualValues(t, 0, c.calls.Load())
}

func TestCheck_SourcesOption_FiltersToNamedChecker(t *testing.T) {
	a := newFakeChecker("aaa", 5, model.StatusPass)
	b := newFakeChecker("bbb", 5, model.StatusPass)
	o, _ := newTestOrchestrator(t, a, b)

	envelope, err := o.Check(context.Background(), model.Request{
		Input:   model.Input{Type: model.InputCPF, Value: "123.456.789-00"},
		Options: model.RequestOptions{Sources: []string{"bbb"}},
	})
	require.NoError(t, err)
	require.Len(t, envelope.Sources, 1)
	assert.Equal(t, "bbb", envelope.Sources[0].Name)
	assert.EqualValues(t, 0, a.calls.Load())
	assert.EqualValues(t, 1, b.calls.Load())
}

func TestCheck_SecondIdenticalRequest_ServedFromCache(t *testing.T) {
	c := newFakeChecker("sanctions", 9, model.StatusPass)
	o, _ := newTestOrchestrator(t, c)

	req := model.Request{Input: model.Input{Type: model.InputCPF, Value: "123.456.789-00"}}

	first, err := o.Check(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Sources[0].Cached)

	second, err := o.Check(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Sources[0].Cached)
	assert.EqualValues(t, 1, c.calls.Load(), "second request must be served from cache, not re-executed")
}

func TestCheck_PersisterError_DoesNotFailRequest(t *testing.T) {
	pass := newFakeChecker("sanctions", 9, model.StatusPass)
	o, persister := newTestOrchestrator(t, pass)
	persister.err = errors.New("queue db down")

	envelope, err := o.Check(context.Background(), model.Request{
		Input: model.Input{Type: model.InputCPF, Value: "123.456.789-00"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.VerdictCompliant, envelope.Verdict)

	require.Eventually(t, func() bool { return persister.enqueued.Load() == 1 }, time.Second, 10*time.Millisecond)
}

func TestCheck_RecordsErrorRatePerChecker(t *testing.T) {
	pass := newFakeChecker("sanctions", 9, model.StatusPass)
	errChecker := newFakeChecker("labor-blacklist", 8, model.StatusError)
	o, _, errorRates := newTestOrchestratorWithErrorRates(t, pass, errChecker)

	_, err := o.Check(context.Background(), model.Request{
		Input: model.Input{Type: model.InputCPF, Value: "123.456.789-00"},
	})
	require.NoError(t, err)

	rates := errorRates.Rates()
	assert.Equal(t, 0.0, rates["sanctions"])
	assert.Equal(t, 1.0, rates["labor-blacklist"])
}

func TestCheck_NonCompliant_WhenCheckerFails(t *testing.T) {
	fail := newFakeChecker("labor-blacklist", 10, model.StatusFail)
	fail.result.Severity = model.SeverityCritical
	o, _ := newTestOrchestrator(t, fail)

	envelope, err := o.Check(context.Background(), model.Request{
		Input: model.Input{Type: model.InputCPF, Value: "123.456.789-00"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.VerdictNonCompliant, envelope.Verdict)
	assert.Equal(t, 0, envelope.Score)
}
