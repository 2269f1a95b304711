package partition

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/orgdigestor/pkg/batch/component/partitioner"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/repository"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/metrics"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/ports"
	"github.com/tigerroll/orgdigestor/pkg/batch/engine/step/chunk"
	"github.com/tigerroll/orgdigestor/pkg/batch/engine/step/retry"
	"github.com/tigerroll/orgdigestor/pkg/batch/infrastructure/repository/inmemory"
	"github.com/tigerroll/orgdigestor/pkg/batch/support/util/exception"
	"github.com/tigerroll/orgdigestor/pkg/batch/test"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyDigestCompletion(ctx context.Context, summary *model.SummaryReport) error {
	return m.Called(ctx, summary).Error(0)
}

type panickingNotifier struct{}

func (panickingNotifier) NotifyDigestCompletion(context.Context, *model.SummaryReport) error {
	panic("mail server on fire")
}

type countingDispatcher struct {
	Dispatcher
	calls int
}

func (d *countingDispatcher) Dispatch(ctx context.Context, units []Unit) []UnitResult {
	d.calls++
	return d.Dispatcher.Dispatch(ctx, units)
}

type fixture struct {
	storage    *test.MemoryStorage
	store      *inmemory.Store
	history    *inmemory.JobRepository
	dispatcher *countingDispatcher
}

func newFixture() *fixture {
	return &fixture{
		storage:    test.NewMemoryStorage(),
		store:      inmemory.NewStore(),
		history:    inmemory.NewJobRepository(),
		dispatcher: &countingDispatcher{Dispatcher: NewGoroutineDispatcher(4)},
	}
}

func (f *fixture) orchestrator(store repository.OrganizationStore, notifier ports.Notifier) *Orchestrator {
	policy := retry.NewDefaultRetryPolicyFactory().Create(3, time.Millisecond, nil)
	recorder, tracer := metrics.NewNoOpMetricRecorder(), metrics.NewNoOpTracer()
	processor := chunk.NewProcessor(f.storage, store, policy, recorder, tracer)
	return NewOrchestrator(partitioner.NewCSVSplitter(f.storage), processor, f.dispatcher, notifier, recorder, tracer).
		WithJobHistory(f.history)
}

func writeSource(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "organizations.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	source := writeSource(t, test.ScenarioCSV())
	notifier := &mockNotifier{}
	notifier.On("NotifyDigestCompletion", mock.Anything, mock.Anything).Return(nil)
	o := f.orchestrator(f.store, notifier)

	summary, err := o.Run(ctx, source, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Chunks)
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 0, summary.Updated)
	assert.Equal(t, 1, summary.Errors)
	require.Len(t, summary.ErrorMessages, 1)
	assert.Contains(t, summary.ErrorMessages[0], "A3")
	assert.True(t, summary.Complete())

	countries, _ := f.store.CountCountries(ctx)
	assert.EqualValues(t, 2, countries)
	_, ok := f.store.Industry("Tech")
	assert.True(t, ok)
	assert.Empty(t, f.storage.Names(), "every chunk object must be consumed")
	notifier.AssertNumberOfCalls(t, "NotifyDigestCompletion", 1)

	exec, err := f.history.FindJobExecution(ctx, summary.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, exec.Status)
	assert.Equal(t, 2, exec.Created)

	t.Run("rerun updates instead of creating", func(t *testing.T) {
		industries, _ := f.store.CountIndustries(ctx)

		again, err := o.Run(ctx, source, 2)
		require.NoError(t, err)
		assert.Equal(t, 0, again.Created)
		assert.Equal(t, 2, again.Updated)
		assert.Equal(t, 1, again.Errors)

		c, _ := f.store.CountCountries(ctx)
		i, _ := f.store.CountIndustries(ctx)
		assert.EqualValues(t, 2, c)
		assert.Equal(t, industries, i)
		assert.NotEqual(t, summary.JobID, again.JobID)
	})
}

func TestRunIsolatesShortRows(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	source := writeSource(t, "identifier,name,country,industry,website\n"+
		"A1,Acme,US,Tech,\n"+
		"A2,Beta\n"+
		"A3,Gamma,FR,Finance,\n")
	notifier := &mockNotifier{}
	notifier.On("NotifyDigestCompletion", mock.Anything, mock.Anything).Return(nil)

	summary, err := f.orchestrator(f.store, notifier).Run(ctx, source, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Chunks)
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 1, summary.Errors)
	require.Len(t, summary.ErrorMessages, 1)
	assert.Contains(t, summary.ErrorMessages[0], "A2")
	assert.True(t, summary.Complete())
	assert.Empty(t, f.storage.Names())
}

func TestRunSurfacesLostChunks(t *testing.T) {
	f := newFixture()
	f.storage.DownloadErr["_batch_1"] = test.ErrInjected
	source := writeSource(t, test.CSV(test.SourceHeader,
		test.OrgRow("1", "A1", "Acme", "US", "Tech"),
		test.OrgRow("2", "A2", "Beta", "US", "Tech"),
		test.OrgRow("3", "A3", "Gamma", "FR", "Finance"),
	))

	summary, err := f.orchestrator(f.store, nil).Run(context.Background(), source, 2)
	require.NoError(t, err)

	assert.False(t, summary.Complete())
	require.Len(t, summary.LostChunks, 1)
	assert.Equal(t, 1, summary.LostChunks[0].ChunkIndex)
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 0, summary.Errors, "a lost chunk is not a row error")
	assert.Equal(t, 1, f.dispatcher.calls, "lost chunks are not resubmitted")

	exec, err := f.history.FindJobExecution(context.Background(), summary.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusIncomplete, exec.Status)
	assert.Equal(t, 1, exec.Lost)
}

func TestRunFailsBeforeDispatchWhenSplitFails(t *testing.T) {
	for name, source := range map[string]func(t *testing.T) string{
		"missing file": func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent.csv") },
		"missing column": func(t *testing.T) string {
			return writeSource(t, "Index,Organization Id,Name\n1,A1,Acme\n")
		},
	} {
		source := source
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			notifier := &mockNotifier{}

			summary, err := f.orchestrator(f.store, notifier).Run(context.Background(), source(t), 2)
			require.Error(t, err)
			assert.Nil(t, summary)
			assert.Zero(t, f.dispatcher.calls)
			notifier.AssertNotCalled(t, "NotifyDigestCompletion", mock.Anything, mock.Anything)

			recent, err := f.history.ListRecentJobExecutions(context.Background(), 1)
			require.NoError(t, err)
			require.Len(t, recent, 1)
			assert.Equal(t, model.JobStatusFailed, recent[0].Status)
		})
	}

	t.Run("malformed input is classified", func(t *testing.T) {
		f := newFixture()
		_, err := f.orchestrator(f.store, nil).Run(context.Background(), writeSource(t, ""), 2)
		assert.ErrorIs(t, err, exception.ErrMalformedInput)
	})
}

func TestRunHeaderOnlySource(t *testing.T) {
	f := newFixture()
	summary, err := f.orchestrator(f.store, nil).Run(context.Background(), writeSource(t, test.CSV(test.SourceHeader)), 2)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Chunks)
	assert.Equal(t, 0, summary.Processed())
	assert.True(t, summary.Complete())
}

func TestNotifierFailureDoesNotAffectReport(t *testing.T) {
	source := func(t *testing.T) string { return writeSource(t, test.ScenarioCSV()) }

	t.Run("error", func(t *testing.T) {
		f := newFixture()
		notifier := &mockNotifier{}
		notifier.On("NotifyDigestCompletion", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

		summary, err := f.orchestrator(f.store, notifier).Run(context.Background(), source(t), 2)
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Created)
	})

	t.Run("panic", func(t *testing.T) {
		f := newFixture()
		summary, err := f.orchestrator(f.store, panickingNotifier{}).Run(context.Background(), source(t), 2)
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Created)
	})
}

type stubProcessor func(ctx context.Context, c model.Chunk) (model.ChunkReport, error)

func (s stubProcessor) Process(ctx context.Context, c model.Chunk) (model.ChunkReport, error) {
	return s(ctx, c)
}

func TestRunIsolatesCrashedWorker(t *testing.T) {
	f := newFixture()
	processor := stubProcessor(func(_ context.Context, c model.Chunk) (model.ChunkReport, error) {
		if c.Index == 0 {
			panic("out of memory")
		}
		return model.ChunkReport{ChunkIndex: c.Index, Rows: c.Rows, Created: c.Rows}, nil
	})
	o := NewOrchestrator(partitioner.NewCSVSplitter(f.storage), processor, f.dispatcher, nil,
		metrics.NewNoOpMetricRecorder(), metrics.NewNoOpTracer())

	summary, err := o.Run(context.Background(), writeSource(t, test.ScenarioCSV()), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Chunks)
	assert.Equal(t, 2, summary.Created)
	require.Len(t, summary.LostChunks, 1)
	assert.Equal(t, 0, summary.LostChunks[0].ChunkIndex)
}

type droppingDispatcher struct{}

func (droppingDispatcher) Dispatch(ctx context.Context, units []Unit) []UnitResult {
	return SequentialDispatcher{}.Dispatch(ctx, units[1:])
}

func TestRunCountsMissingResultsAsLost(t *testing.T) {
	f := newFixture()
	recorder, tracer := metrics.NewNoOpMetricRecorder(), metrics.NewNoOpTracer()
	policy := retry.NewDefaultRetryPolicyFactory().Create(1, 0, nil)
	o := NewOrchestrator(partitioner.NewCSVSplitter(f.storage),
		chunk.NewProcessor(f.storage, f.store, policy, recorder, tracer),
		droppingDispatcher{}, nil, recorder, tracer)

	summary, err := o.Run(context.Background(), writeSource(t, test.ScenarioCSV()), 2)
	require.NoError(t, err)
	require.Len(t, summary.LostChunks, 1)
	assert.Equal(t, 0, summary.LostChunks[0].ChunkIndex)
	assert.Equal(t, "dispatcher returned no result", summary.LostChunks[0].Message)
}
