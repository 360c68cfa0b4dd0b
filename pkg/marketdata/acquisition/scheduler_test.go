package acquisition

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-harvest/internal/logger"
	"github.com/rxtech-lab/argo-harvest/internal/types"
	"github.com/rxtech-lab/argo-harvest/mocks"
	harvesterrors "github.com/rxtech-lab/argo-harvest/pkg/errors"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata/artifact"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata/inventory"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata/pacing"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata/quality"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata/writer"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type failingScanner struct{}

func (failingScanner) Scan() (inventory.Inventory, error) {
	return inventory.Inventory{}, harvesterrors.New(harvesterrors.ErrCodeStorageUnavailable, "permission denied")
}

type SchedulerTestSuite struct {
	suite.Suite
	tempDir string
	ctrl    *gomock.Controller
	fetcher *mocks.MockFetcher
	store   writer.Store
	log     *logger.Logger
}

func TestSchedulerSuite(t *testing.T) {
	suite.Run(t, new(SchedulerTestSuite))
}

func (suite *SchedulerTestSuite) SetupTest() {
	tempDir, err := os.MkdirTemp("", "acquisition-test")
	suite.Require().NoError(err)

	suite.tempDir = filepath.Join(tempDir, "data")
	suite.ctrl = gomock.NewController(suite.T())
	suite.fetcher = mocks.NewMockFetcher(suite.ctrl)
	suite.fetcher.EXPECT().Name().Return("mock").AnyTimes()
	suite.log = logger.NewNopLogger()
	suite.store = writer.NewCSVStore(suite.tempDir, suite.log)
}

func (suite *SchedulerTestSuite) TearDownTest() {
	os.RemoveAll(filepath.Dir(suite.tempDir))
}

func (suite *SchedulerTestSuite) scheduler(policy pacing.Policy, onProgress OnProgress) *Scheduler {
	return NewScheduler(Dependencies{
		Scanner:    inventory.NewScanner(suite.tempDir, suite.log),
		Fetcher:    suite.fetcher,
		Validator:  quality.NewValidator(suite.log),
		Store:      suite.store,
		Pacing:     policy,
		Logger:     suite.log,
		OnProgress: onProgress,
	})
}

func (suite *SchedulerTestSuite) params(symbols ...string) RunParams {
	universe, err := types.NewUniverse(symbols)
	suite.Require().NoError(err)

	return RunParams{Universe: universe, Period: "1y", Interval: "1d"}
}

func (suite *SchedulerTestSuite) ok(symbol string) types.FetchOutcome {
	return types.Ok(mocks.GenerateDaily(symbol, 5))
}

func (suite *SchedulerTestSuite) artifactPath(symbol string) string {
	key := artifact.Key{Symbol: symbol, Period: "1y", Interval: "1d", Format: artifact.FormatCSV}

	return filepath.Join(suite.tempDir, key.Name())
}

func (suite *SchedulerTestSuite) TestRunFetchesMissingInUniverseOrder() {
	gomock.InOrder(
		suite.fetcher.EXPECT().Fetch(gomock.Any(), "THYAO.IS", types.Period("1y"), types.Interval("1d")).Return(suite.ok("THYAO.IS")),
		suite.fetcher.EXPECT().Fetch(gomock.Any(), "GARAN.IS", types.Period("1y"), types.Interval("1d")).Return(suite.ok("GARAN.IS")),
	)

	result, err := suite.scheduler(pacing.None(), nil).Run(context.Background(), suite.params("THYAO.IS", "GARAN.IS"))
	suite.Require().NoError(err)

	suite.Equal([]string{"THYAO.IS", "GARAN.IS"}, result.Missing)
	suite.Require().Len(result.Results, 2)
	suite.False(result.Cancelled)
	suite.Empty(result.Remaining)

	for _, res := range result.Results {
		suite.Equal(types.DataStatusValid, res.Status())
		suite.Equal(suite.artifactPath(res.Symbol), res.Path)
		suite.FileExists(res.Path)
		suite.Equal(5, res.Stats.Records)
	}
}

func (suite *SchedulerTestSuite) TestRunNeverRefetchesStoredSymbols() {
	_, err := suite.store.Persist(context.Background(),
		artifact.Key{Symbol: "AAPL", Period: "1y", Interval: "1d", Format: artifact.FormatCSV},
		mocks.GenerateDaily("AAPL", 3), types.ValidationResult{Passed: true}) //nolint:exhaustruct
	suite.Require().NoError(err)

	suite.fetcher.EXPECT().Fetch(gomock.Any(), "AAPL", gomock.Any(), gomock.Any()).Times(0)
	suite.fetcher.EXPECT().Fetch(gomock.Any(), "MSFT", gomock.Any(), gomock.Any()).Return(suite.ok("MSFT"))

	result, err := suite.scheduler(pacing.None(), nil).Run(context.Background(), suite.params("AAPL", "MSFT"))
	suite.Require().NoError(err)
	suite.Equal([]string{"MSFT"}, result.Missing)
	suite.Len(result.Results, 1)
}

func (suite *SchedulerTestSuite) TestSecondRunFetchesNothing() {
	suite.fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, symbol string, _ types.Period, _ types.Interval) types.FetchOutcome {
			return suite.ok(symbol)
		}).Times(3)

	params := suite.params("A", "B", "C")

	first, err := suite.scheduler(pacing.None(), nil).Run(context.Background(), params)
	suite.Require().NoError(err)
	suite.Len(first.Results, 3)

	second, err := suite.scheduler(pacing.None(), nil).Run(context.Background(), params)
	suite.Require().NoError(err)
	suite.Empty(second.Missing)
	suite.Empty(second.Results)
	suite.Empty(second.Outcomes())
}

func (suite *SchedulerTestSuite) TestOtherIntervalIsNotCoverage() {
	_, err := suite.store.Persist(context.Background(),
		artifact.Key{Symbol: "AAPL", Period: "1y", Interval: "1d", Format: artifact.FormatCSV},
		mocks.GenerateDaily("AAPL", 3), types.ValidationResult{Passed: true}) //nolint:exhaustruct
	suite.Require().NoError(err)

	suite.fetcher.EXPECT().Fetch(gomock.Any(), "AAPL", types.Period("1y"), types.Interval("1h")).Return(types.Empty())

	params := suite.params("AAPL")
	params.Interval = "1h"

	result, err := suite.scheduler(pacing.None(), nil).Run(context.Background(), params)
	suite.Require().NoError(err)
	suite.Equal([]string{"AAPL"}, result.Missing)
}

func (suite *SchedulerTestSuite) TestBatchContinuesPastFailures() {
	badTable := types.NewTable("BAD", nil, []types.Record{
		types.NewRecord(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), 1, 1, 1, 0, 10),
		types.NewRecord(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), 1, 1, 1, 1, 10),
	})

	gomock.InOrder(
		suite.fetcher.EXPECT().Fetch(gomock.Any(), "DELISTED", gomock.Any(), gomock.Any()).
			Return(types.Failed(harvesterrors.New(harvesterrors.ErrCodeProviderUnavailable, "no data found, symbol may be delisted"))),
		suite.fetcher.EXPECT().Fetch(gomock.Any(), "QUIET", gomock.Any(), gomock.Any()).Return(types.Empty()),
		suite.fetcher.EXPECT().Fetch(gomock.Any(), "BAD", gomock.Any(), gomock.Any()).Return(types.Ok(badTable)),
		suite.fetcher.EXPECT().Fetch(gomock.Any(), "GOOD", gomock.Any(), gomock.Any()).Return(suite.ok("GOOD")),
	)

	result, err := suite.scheduler(pacing.None(), nil).Run(context.Background(), suite.params("DELISTED", "QUIET", "BAD", "GOOD"))
	suite.Require().NoError(err)
	suite.Require().Len(result.Results, 4)

	statuses := map[string]types.DataStatus{}
	for _, res := range result.Results {
		statuses[res.Symbol] = res.Status()
	}

	suite.Equal(map[string]types.DataStatus{
		"DELISTED": types.DataStatusFailed,
		"QUIET":    types.DataStatusNoData,
		"BAD":      types.DataStatusIssues,
		"GOOD":     types.DataStatusValid,
	}, statuses)

	suite.NoFileExists(suite.artifactPath("DELISTED"))
	suite.NoFileExists(suite.artifactPath("QUIET"))
	suite.FileExists(suite.artifactPath("BAD"), "flagged data is still persisted")
	suite.FileExists(suite.artifactPath("GOOD"))

	suite.Equal(1, result.Results[2].Validation.NonPositiveCloseCount)
}

func (suite *SchedulerTestSuite) TestMalformedOutcomesNeverReachStorage() {
	store := mocks.NewMockStore(suite.ctrl)
	store.EXPECT().Dir().Return(suite.tempDir).AnyTimes()
	store.EXPECT().Format().Return(artifact.FormatCSV).AnyTimes()
	store.EXPECT().Persist(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	suite.store = store

	gomock.InOrder(
		suite.fetcher.EXPECT().Fetch(gomock.Any(), "ZERO", gomock.Any(), gomock.Any()).Return(types.FetchOutcome{}),
		suite.fetcher.EXPECT().Fetch(gomock.Any(), "ODD", gomock.Any(), gomock.Any()).
			Return(types.FetchOutcome{Kind: "partial", Table: mocks.GenerateDaily("ODD", 3), Err: nil}),
		suite.fetcher.EXPECT().Fetch(gomock.Any(), "HOLLOW", gomock.Any(), gomock.Any()).
			Return(types.FetchOutcome{Kind: types.OutcomeOk, Table: nil, Err: nil}),
	)

	result, err := suite.scheduler(pacing.None(), nil).Run(context.Background(), suite.params("ZERO", "ODD", "HOLLOW"))
	suite.Require().NoError(err)
	suite.Require().Len(result.Results, 3)

	suite.Equal(types.DataStatusFailed, result.Results[0].Status())
	suite.True(result.Results[0].Outcome.IsFailed())
	suite.True(harvesterrors.HasCode(result.Results[0].Outcome.Err, harvesterrors.ErrCodeProviderParseFailed))
	suite.Nil(result.Results[0].PersistErr)

	suite.Equal(types.DataStatusFailed, result.Results[1].Status())
	suite.Contains(result.Results[1].Outcome.Err.Error(), "partial")

	suite.Equal(types.DataStatusNoData, result.Results[2].Status())
}

func (suite *SchedulerTestSuite) TestStatusOfUnknownOutcome() {
	res := SymbolResult{Symbol: "X", Validation: types.ValidationResult{Passed: true}} //nolint:exhaustruct
	suite.Equal(types.DataStatusFailed, res.Status())
}

func (suite *SchedulerTestSuite) TestOutcomesReleaseTables() {
	suite.fetcher.EXPECT().Fetch(gomock.Any(), "AAPL", gomock.Any(), gomock.Any()).Return(suite.ok("AAPL"))
	suite.fetcher.EXPECT().Fetch(gomock.Any(), "MSFT", gomock.Any(), gomock.Any()).Return(types.Empty())

	result, err := suite.scheduler(pacing.None(), nil).Run(context.Background(), suite.params("AAPL", "MSFT"))
	suite.Require().NoError(err)

	outcomes := result.Outcomes()
	suite.Len(outcomes, 2)
	suite.True(outcomes["AAPL"].IsOk())
	suite.Nil(outcomes["AAPL"].Table)
	suite.True(outcomes["MSFT"].IsEmpty())
}

func (suite *SchedulerTestSuite) TestStorageFailureIsPerSymbol() {
	store := mocks.NewMockStore(suite.ctrl)
	store.EXPECT().Dir().Return(suite.tempDir).AnyTimes()
	store.EXPECT().Format().Return(artifact.FormatCSV).AnyTimes()
	gomock.InOrder(
		store.EXPECT().Persist(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return("", harvesterrors.New(harvesterrors.ErrCodeStorageWriteFailed, "disk full")),
		store.EXPECT().Persist(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return("/data/MSFT_1y_1d.csv", nil),
	)

	suite.fetcher.EXPECT().Fetch(gomock.Any(), "AAPL", gomock.Any(), gomock.Any()).Return(suite.ok("AAPL"))
	suite.fetcher.EXPECT().Fetch(gomock.Any(), "MSFT", gomock.Any(), gomock.Any()).Return(suite.ok("MSFT"))

	suite.store = store

	result, err := suite.scheduler(pacing.None(), nil).Run(context.Background(), suite.params("AAPL", "MSFT"))
	suite.Require().NoError(err)
	suite.Require().Len(result.Results, 2)

	suite.Equal(types.DataStatusStorageFailed, result.Results[0].Status())
	suite.Empty(result.Results[0].Path)
	suite.Equal(types.DataStatusValid, result.Results[1].Status())
	suite.Equal("/data/MSFT_1y_1d.csv", result.Results[1].Path)
}

func (suite *SchedulerTestSuite) TestUnusableStorageIsFatal() {
	blocker := filepath.Join(filepath.Dir(suite.tempDir), "blocker")
	suite.Require().NoError(os.WriteFile(blocker, []byte("x"), 0o644))

	suite.store = writer.NewCSVStore(filepath.Join(blocker, "data"), suite.log)
	suite.fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	_, err := suite.scheduler(pacing.None(), nil).Run(context.Background(), suite.params("AAPL"))
	suite.Require().Error(err)
	suite.True(harvesterrors.IsFatal(err))
}

func (suite *SchedulerTestSuite) TestScanErrorIsFatal() {
	suite.fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	scheduler := NewScheduler(Dependencies{ //nolint:exhaustruct
		Scanner:   failingScanner{},
		Fetcher:   suite.fetcher,
		Validator: quality.NewValidator(suite.log),
		Store:     suite.store,
	})

	_, err := scheduler.Run(context.Background(), suite.params("AAPL"))
	suite.True(harvesterrors.HasCode(err, harvesterrors.ErrCodeStorageUnavailable))
}

func (suite *SchedulerTestSuite) TestPacingOnlyBetweenAttempts() {
	policy := mocks.NewMockPolicy(suite.ctrl)

	failed := types.Failed(errors.New("timeout"))

	gomock.InOrder(
		suite.fetcher.EXPECT().Fetch(gomock.Any(), "A", gomock.Any(), gomock.Any()).Return(failed),
		policy.EXPECT().WaitBeforeNext(gomock.Any(), failed).Return(nil),
		suite.fetcher.EXPECT().Fetch(gomock.Any(), "B", gomock.Any(), gomock.Any()).Return(types.Empty()),
		policy.EXPECT().WaitBeforeNext(gomock.Any(), types.Empty()).Return(nil),
		suite.fetcher.EXPECT().Fetch(gomock.Any(), "C", gomock.Any(), gomock.Any()).Return(types.Empty()),
	)

	result, err := suite.scheduler(policy, nil).Run(context.Background(), suite.params("A", "B", "C"))
	suite.Require().NoError(err)
	suite.Len(result.Results, 3)
}

func (suite *SchedulerTestSuite) TestPacingSpacesCallStarts() {
	const delay = 40 * time.Millisecond

	var starts []time.Time

	suite.fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, string, types.Period, types.Interval) types.FetchOutcome {
			starts = append(starts, time.Now())

			return types.Empty()
		}).Times(3)

	_, err := suite.scheduler(pacing.Fixed(delay), nil).Run(context.Background(), suite.params("A", "B", "C"))
	suite.Require().NoError(err)
	suite.Require().Len(starts, 3)

	for i := 1; i < len(starts); i++ {
		suite.GreaterOrEqual(starts[i].Sub(starts[i-1]), delay)
	}
}

func (suite *SchedulerTestSuite) TestCancellationStopsBetweenSymbols() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	suite.fetcher.EXPECT().Fetch(gomock.Any(), "A", gomock.Any(), gomock.Any()).Return(suite.ok("A"))
	suite.fetcher.EXPECT().Fetch(gomock.Any(), "B", gomock.Any(), gomock.Any()).
		DoAndReturn(func(fetchCtx context.Context, symbol string, _ types.Period, _ types.Interval) types.FetchOutcome {
			cancel()
			suite.NoError(fetchCtx.Err(), "the symbol in flight is not interrupted")

			return suite.ok(symbol)
		})

	result, err := suite.scheduler(pacing.None(), nil).Run(ctx, suite.params("A", "B", "C", "D"))
	suite.Require().NoError(err)

	suite.True(result.Cancelled)
	suite.Equal([]string{"C", "D"}, result.Remaining)
	suite.Len(result.Results, 2)
	suite.FileExists(suite.artifactPath("B"), "the in-flight symbol is committed")
	suite.NoFileExists(suite.artifactPath("C"))

	// Resuming picks up exactly the remaining symbols.
	suite.fetcher.EXPECT().Fetch(gomock.Any(), "C", gomock.Any(), gomock.Any()).Return(suite.ok("C"))
	suite.fetcher.EXPECT().Fetch(gomock.Any(), "D", gomock.Any(), gomock.Any()).Return(suite.ok("D"))

	resumed, err := suite.scheduler(pacing.None(), nil).Run(context.Background(), suite.params("A", "B", "C", "D"))
	suite.Require().NoError(err)
	suite.Equal([]string{"C", "D"}, resumed.Missing)
}

func (suite *SchedulerTestSuite) TestCancellationDuringPacingWait() {
	ctx, cancel := context.WithCancel(context.Background())

	suite.fetcher.EXPECT().Fetch(gomock.Any(), "A", gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, string, types.Period, types.Interval) types.FetchOutcome {
			cancel()

			return types.Empty()
		})

	result, err := suite.scheduler(pacing.Fixed(time.Hour), nil).Run(ctx, suite.params("A", "B"))
	suite.Require().NoError(err)
	suite.True(result.Cancelled)
	suite.Equal([]string{"B"}, result.Remaining)
}

func (suite *SchedulerTestSuite) TestCancelledBeforeStart() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	suite.fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	result, err := suite.scheduler(pacing.None(), nil).Run(ctx, suite.params("A", "B"))
	suite.Require().NoError(err)
	suite.True(result.Cancelled)
	suite.Equal([]string{"A", "B"}, result.Remaining)
	suite.Empty(result.Results)
}

func (suite *SchedulerTestSuite) TestOnProgress() {
	suite.fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(types.Empty()).Times(2)

	type call struct {
		done, total int
		symbol      string
	}

	var calls []call

	onProgress := func(done, total int, symbol string) {
		calls = append(calls, call{done, total, symbol})
	}

	_, err := suite.scheduler(pacing.None(), onProgress).Run(context.Background(), suite.params("A", "B"))
	suite.Require().NoError(err)
	suite.Equal([]call{{1, 2, "A"}, {2, 2, "B"}}, calls)
}

func (suite *SchedulerTestSuite) TestConcurrentRunsDoNotOverlap() {
	var (
		mu       sync.Mutex
		inFlight int
		maxSeen  int
	)

	suite.fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, symbol string, _ types.Period, _ types.Interval) types.FetchOutcome {
			mu.Lock()
			inFlight++
			maxSeen = max(maxSeen, inFlight)
			mu.Unlock()

			time.Sleep(10 * time.Millisecond)

			mu.Lock()
			inFlight--
			mu.Unlock()

			return suite.ok(symbol)
		}).Times(2)

	scheduler := suite.scheduler(pacing.None(), nil)
	params := suite.params("A", "B")

	var wg sync.WaitGroup

	results := make([]RunResult, 2)
	for i := range results {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			res, err := scheduler.Run(context.Background(), params)
			suite.NoError(err)

			results[i] = res
		}(i)
	}

	wg.Wait()

	suite.Equal(1, maxSeen)
	suite.Equal(2, results[0].Attempted()+results[1].Attempted(), "each symbol is fetched by exactly one run")
}
