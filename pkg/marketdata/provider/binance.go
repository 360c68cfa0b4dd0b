package provider

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-harvest/internal/logger"
	"github.com/rxtech-lab/argo-harvest/internal/types"
	"go.uber.org/zap"
)

// binancePageSize is the largest page the klines endpoint serves.
const binancePageSize = 1000

// BinanceAPIClient is the part of the Binance SDK the fetcher uses.
type BinanceAPIClient interface {
	NewKlinesService() BinanceKlinesService
}

// BinanceKlinesService is a klines request builder.
type BinanceKlinesService interface {
	Symbol(symbol string) BinanceKlinesService
	Interval(interval string) BinanceKlinesService
	StartTime(startTime int64) BinanceKlinesService
	EndTime(endTime int64) BinanceKlinesService
	Limit(limit int) BinanceKlinesService
	Do(ctx context.Context) ([]*binance.Kline, error)
}

type binanceAPIAdapter struct {
	client *binance.Client
}

func (a *binanceAPIAdapter) NewKlinesService() BinanceKlinesService {
	return &binanceKlinesAdapter{service: a.client.NewKlinesService()}
}

type binanceKlinesAdapter struct {
	service *binance.KlinesService
}

func (s *binanceKlinesAdapter) Symbol(symbol string) BinanceKlinesService {
	s.service.Symbol(symbol)

	return s
}

func (s *binanceKlinesAdapter) Interval(interval string) BinanceKlinesService {
	s.service.Interval(interval)

	return s
}

func (s *binanceKlinesAdapter) StartTime(startTime int64) BinanceKlinesService {
	s.service.StartTime(startTime)

	return s
}

func (s *binanceKlinesAdapter) EndTime(endTime int64) BinanceKlinesService {
	s.service.EndTime(endTime)

	return s
}

func (s *binanceKlinesAdapter) Limit(limit int) BinanceKlinesService {
	s.service.Limit(limit)

	return s
}

func (s *binanceKlinesAdapter) Do(ctx context.Context) ([]*binance.Kline, error) {
	return s.service.Do(ctx)
}

// BinanceFetcher implements Fetcher with Binance spot klines.
type BinanceFetcher struct {
	apiClient BinanceAPIClient
	logger    *logger.Logger
	now       func() time.Time
}

// NewBinanceFetcher creates a fetcher on the public Binance API. baseURL overrides
// the API endpoint when set.
func NewBinanceFetcher(baseURL string, log *logger.Logger) *BinanceFetcher {
	client := binance.NewClient("", "")
	if baseURL != "" {
		client.BaseURL = baseURL
	}

	return NewBinanceFetcherWithAPI(&binanceAPIAdapter{client: client}, log)
}

// NewBinanceFetcherWithAPI creates a fetcher on the given API client.
func NewBinanceFetcherWithAPI(apiClient BinanceAPIClient, log *logger.Logger) *BinanceFetcher {
	return &BinanceFetcher{
		apiClient: apiClient,
		logger:    log.Named("binance"),
		now:       time.Now,
	}
}

func (f *BinanceFetcher) Name() string {
	return string(ProviderBinance)
}

// Fetch implements Fetcher. Pages are requested until a short page arrives or the
// window end is reached.
func (f *BinanceFetcher) Fetch(ctx context.Context, symbol string, period types.Period, interval types.Interval) types.FetchOutcome {
	binanceInterval, err := toBinanceInterval(interval)
	if err != nil {
		return types.Failed(err)
	}

	now := f.now()
	// Binance API uses milliseconds for timestamps
	currentStartTime := period.Start(now).UnixMilli()
	endTimeMillis := now.UnixMilli()

	var records []types.Record

	for {
		klines, err := f.apiClient.NewKlinesService().
			Symbol(symbol).
			Interval(binanceInterval).
			StartTime(currentStartTime).
			EndTime(endTimeMillis).
			Limit(binancePageSize).
			Do(ctx)
		if err != nil {
			return unavailable(f.Name(), symbol, err)
		}

		for _, k := range klines {
			rec, err := klineToRecord(k)
			if err != nil {
				return unparseable(f.Name(), symbol, err)
			}

			records = append(records, rec)
		}

		if len(klines) < binancePageSize {
			break
		}

		// Use the close time of the last kline + 1ms to avoid duplicates
		currentStartTime = klines[len(klines)-1].CloseTime + 1
		if currentStartTime >= endTimeMillis {
			break
		}
	}

	f.logger.Debug("fetched klines", zap.String("symbol", symbol), zap.Int("records", len(records)))

	return types.Ok(types.NewTable(symbol, nil, records))
}

// klineToRecord converts a Binance kline. The bar is stamped with its open time.
func klineToRecord(k *binance.Kline) (types.Record, error) {
	values := make([]float64, 0, 5)

	for _, field := range []struct {
		name  string
		value string
	}{
		{"open", k.Open}, {"high", k.High}, {"low", k.Low}, {"close", k.Close}, {"volume", k.Volume},
	} {
		v, err := strconv.ParseFloat(field.value, 64)
		if err != nil {
			return types.Record{}, fmt.Errorf("kline %d %s: %w", k.OpenTime, field.name, err)
		}

		values = append(values, v)
	}

	return types.Record{
		Time:   time.UnixMilli(k.OpenTime).UTC(),
		Open:   optional.Some(values[0]),
		High:   optional.Some(values[1]),
		Low:    optional.Some(values[2]),
		Close:  optional.Some(values[3]),
		Volume: optional.Some(int64(math.Round(values[4]))),
	}, nil
}
