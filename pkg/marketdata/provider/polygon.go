package provider

import (
	"context"
	"math"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-harvest/internal/logger"
	"github.com/rxtech-lab/argo-harvest/internal/types"
	"github.com/rxtech-lab/argo-harvest/pkg/errors"
	"go.uber.org/zap"
)

// aggIterator is the page iterator returned by ListAggs.
type aggIterator interface {
	Next() bool
	Item() models.Agg
	Err() error
}

type listAggsFunc func(ctx context.Context, params *models.ListAggsParams) aggIterator

// PolygonFetcher implements Fetcher with Polygon aggregates.
type PolygonFetcher struct {
	listAggs listAggsFunc
	logger   *logger.Logger
	now      func() time.Time
}

func NewPolygonFetcher(apiKey string, log *logger.Logger) (*PolygonFetcher, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "polygon provider requires an api key")
	}

	client := polygon.New(apiKey)

	return &PolygonFetcher{
		listAggs: func(ctx context.Context, params *models.ListAggsParams) aggIterator {
			return client.ListAggs(ctx, params)
		},
		logger: log.Named("polygon"),
		now:    time.Now,
	}, nil
}

func (f *PolygonFetcher) Name() string {
	return string(ProviderPolygon)
}

// Fetch implements Fetcher.
func (f *PolygonFetcher) Fetch(ctx context.Context, symbol string, period types.Period, interval types.Interval) types.FetchOutcome {
	ts, err := toPolygonTimespan(interval)
	if err != nil {
		return types.Failed(err)
	}

	now := f.now()

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: ts.Multiplier,
		Timespan:   ts.Timespan,
		From:       models.Millis(period.Start(now)),
		To:         models.Millis(now),
	}.WithLimit(50000)

	iter := f.listAggs(ctx, params)

	var records []types.Record

	for iter.Next() {
		agg := iter.Item()
		records = append(records, types.NewRecord(
			time.Time(agg.Timestamp).UTC(),
			agg.Open,
			agg.High,
			agg.Low,
			agg.Close,
			int64(math.Round(agg.Volume)),
		))
	}

	if iter.Err() != nil {
		return unavailable(f.Name(), symbol, iter.Err())
	}

	f.logger.Debug("fetched aggregates", zap.String("symbol", symbol), zap.Int("records", len(records)))

	return types.Ok(types.NewTable(symbol, nil, records))
}
