// Package acquisition drives one incremental download run over a universe.
package acquisition

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-harvest/internal/logger"
	"github.com/rxtech-lab/argo-harvest/internal/types"
	"github.com/rxtech-lab/argo-harvest/pkg/errors"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata/artifact"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata/inventory"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata/pacing"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata/provider"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata/writer"
	"go.uber.org/zap"
)

// InventoryScanner lists the artifacts already on disk.
type InventoryScanner interface {
	Scan() (inventory.Inventory, error)
}

// TableValidator checks a fetched table.
type TableValidator interface {
	Validate(table *types.Table) types.ValidationResult
}

// OnProgress is called after every attempted symbol.
type OnProgress func(done int, total int, symbol string)

// Dependencies are the components a Scheduler drives.
type Dependencies struct {
	Scanner    InventoryScanner
	Fetcher    provider.Fetcher
	Validator  TableValidator
	Store      writer.Store
	Pacing     pacing.Policy
	Logger     *logger.Logger
	OnProgress OnProgress
}

// RunParams describe the dataset generation a run fills in.
type RunParams struct {
	Universe types.Universe
	Period   types.Period
	Interval types.Interval
}

// SymbolResult is the terminal state of one attempted symbol.
type SymbolResult struct {
	Symbol     string
	Outcome    types.FetchOutcome
	Stats      types.TableStats
	Validation types.ValidationResult
	// Path of the committed artifact, empty when nothing was persisted.
	Path       string
	PersistErr error
	Duration   time.Duration
}

// Status classifies the result for reporting.
func (r SymbolResult) Status() types.DataStatus {
	switch {
	case r.Outcome.IsEmpty():
		return types.DataStatusNoData
	case !r.Outcome.IsOk():
		return types.DataStatusFailed
	case r.PersistErr != nil:
		return types.DataStatusStorageFailed
	case !r.Validation.Passed:
		return types.DataStatusIssues
	default:
		return types.DataStatusValid
	}
}

// RunResult summarizes a run.
type RunResult struct {
	// Missing is the work set computed from the inventory, in universe order.
	Missing []string
	// Results holds one entry per attempted symbol, in attempt order.
	Results []SymbolResult
	// Remaining lists the missing symbols a cancelled run never attempted.
	Remaining []string
	Cancelled bool
}

// Outcomes maps every attempted symbol to its outcome. Tables are released.
func (r RunResult) Outcomes() map[string]types.FetchOutcome {
	outcomes := make(map[string]types.FetchOutcome, len(r.Results))
	for _, res := range r.Results {
		outcomes[res.Symbol] = res.Outcome
	}

	return outcomes
}

// Attempted returns the number of symbols the run fetched.
func (r RunResult) Attempted() int {
	return len(r.Results)
}

// Scheduler runs acquisitions one symbol at a time.
type Scheduler struct {
	deps   Dependencies
	logger *logger.Logger
	mu     sync.Mutex
}

// NewScheduler creates a scheduler. Pacing defaults to no waiting and the logger
// to a nop logger.
func NewScheduler(deps Dependencies) *Scheduler {
	if deps.Pacing == nil {
		deps.Pacing = pacing.None()
	}

	log := deps.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Scheduler{
		deps:   deps,
		logger: log.Named("acquisition"),
	}
}

// Run fetches every universe symbol that has no artifact for the period and
// interval yet. Per-symbol failures are recorded in the result; only an unusable
// storage directory fails the run. Cancelling ctx stops the run before the next
// symbol, the symbol in flight is still committed.
func (s *Scheduler) Run(ctx context.Context, params RunParams) (RunResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result RunResult

	if err := os.MkdirAll(s.deps.Store.Dir(), 0o755); err != nil {
		return result, errors.Wrapf(errors.ErrCodeStorageUnavailable, err, "cannot create storage directory %s", s.deps.Store.Dir())
	}

	inv, err := s.deps.Scanner.Scan()
	if err != nil {
		return result, err
	}

	result.Missing = params.Universe.Minus(inv.SymbolsFor(params.Period, params.Interval))
	total := len(result.Missing)

	s.logger.Info("starting acquisition run",
		zap.String("provider", s.deps.Fetcher.Name()),
		zap.String("period", params.Period.String()),
		zap.String("interval", params.Interval.String()),
		zap.Int("universe", params.Universe.Len()),
		zap.Int("missing", total),
	)

	for i, symbol := range result.Missing {
		if i > 0 {
			last := result.Results[i-1].Outcome
			if err := s.deps.Pacing.WaitBeforeNext(ctx, last); err != nil {
				s.cancel(&result, i)

				break
			}
		}

		if ctx.Err() != nil {
			s.cancel(&result, i)

			break
		}

		// The symbol in flight runs to completion even if ctx is cancelled meanwhile.
		res := s.acquire(context.WithoutCancel(ctx), symbol, params)
		result.Results = append(result.Results, res)

		if s.deps.OnProgress != nil {
			s.deps.OnProgress(i+1, total, symbol)
		}
	}

	s.logger.Info("acquisition run finished",
		zap.Int("attempted", result.Attempted()),
		zap.Int("remaining", len(result.Remaining)),
		zap.Bool("cancelled", result.Cancelled),
	)

	return result, nil
}

func (s *Scheduler) cancel(result *RunResult, next int) {
	result.Cancelled = true
	result.Remaining = append([]string(nil), result.Missing[next:]...)

	s.logger.Warn("acquisition run cancelled", zap.Int("remaining", len(result.Remaining)))
}

// acquire fetches, validates and persists a single symbol.
func (s *Scheduler) acquire(ctx context.Context, symbol string, params RunParams) SymbolResult {
	log := s.logger.With(zap.String("symbol", symbol))
	started := time.Now()

	outcome := normalize(s.deps.Fetcher.Fetch(ctx, symbol, params.Period, params.Interval))
	res := SymbolResult{Symbol: symbol} //nolint:exhaustruct

	switch {
	case outcome.IsEmpty():
		log.Warn("provider returned no data")
	case outcome.IsFailed():
		log.Error("failed to fetch symbol", zap.Error(outcome.Err))
	case outcome.IsOk():
		res.Validation = s.deps.Validator.Validate(outcome.Table)
		res.Stats = outcome.Table.Stats()

		key := artifact.Key{
			Symbol:   symbol,
			Period:   params.Period,
			Interval: params.Interval,
			Format:   s.deps.Store.Format(),
		}

		path, err := s.deps.Store.Persist(ctx, key, outcome.Table, res.Validation)
		if err != nil {
			res.PersistErr = err
			log.Error("failed to persist artifact", zap.Error(err))
		} else {
			res.Path = path
			log.Info("persisted artifact",
				zap.String("path", path),
				zap.Int("records", res.Stats.Records),
				zap.Bool("valid", res.Validation.Passed),
			)
		}
	}

	res.Outcome = outcome.Released()
	res.Duration = time.Since(started)

	return res
}

// normalize maps outcomes a fetcher should not produce onto the three known kinds.
// An Ok outcome without records is Empty and an unknown kind is Failed.
func normalize(outcome types.FetchOutcome) types.FetchOutcome {
	switch {
	case outcome.IsOk() && outcome.Table.IsEmpty():
		return types.Empty()
	case outcome.IsOk(), outcome.IsEmpty(), outcome.IsFailed():
		return outcome
	default:
		return types.Failed(errors.Newf(errors.ErrCodeProviderParseFailed, "unknown fetch outcome %q", outcome.Kind))
	}
}
