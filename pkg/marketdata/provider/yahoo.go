package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-harvest/internal/logger"
	"github.com/rxtech-lab/argo-harvest/internal/types"
	"github.com/rxtech-lab/argo-harvest/pkg/errors"
	"go.uber.org/zap"
)

const (
	DefaultYahooBaseURL   = "https://query1.finance.yahoo.com"
	defaultYahooUserAgent = "Mozilla/5.0"
	defaultYahooTimeout   = 30 * time.Second
)

// yahooRanges are the period strings the chart endpoint accepts as range directly.
// Any other period is sent as an explicit window.
var yahooRanges = map[types.Period]bool{
	"1d": true, "5d": true, "1mo": true, "3mo": true, "6mo": true,
	"1y": true, "2y": true, "5y": true, "10y": true, "ytd": true, "max": true,
}

// YahooConfig configures the Yahoo Finance chart client.
type YahooConfig struct {
	BaseURL   string
	ProxyURL  string
	Timeout   time.Duration
	UserAgent string
}

// YahooFetcher implements Fetcher using the Yahoo Finance chart API.
type YahooFetcher struct {
	client    *http.Client
	baseURL   string
	userAgent string
	logger    *logger.Logger
	now       func() time.Time
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(cfg YahooConfig, log *logger.Logger) (*YahooFetcher, error) {
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment} //nolint:exhaustruct

	if cfg.ProxyURL != "" {
		u, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid proxy url %q", cfg.ProxyURL)
		}

		transport.Proxy = http.ProxyURL(u)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultYahooBaseURL
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultYahooTimeout
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultYahooUserAgent
	}

	return &YahooFetcher{
		client: &http.Client{ //nolint:exhaustruct
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		logger:    log.Named("yahoo"),
		now:       time.Now,
	}, nil
}

func (f *YahooFetcher) Name() string {
	return string(ProviderYahoo)
}

// yahooChart is the response structure from Yahoo Finance chart API.
// Null cells decode as nil pointers.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol       string `json:"symbol"`
				GMTOffset    int    `json:"gmtoffset"`
				ExchangeName string `json:"exchangeName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Fetch implements Fetcher.
func (f *YahooFetcher) Fetch(ctx context.Context, symbol string, period types.Period, interval types.Interval) types.FetchOutcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.chartURL(symbol, period, interval), nil)
	if err != nil {
		return unavailable(f.Name(), symbol, err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return unavailable(f.Name(), symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return unavailable(f.Name(), symbol, fmt.Errorf("read body: %w", err))
	}

	var chart yahooChart

	decodeErr := json.Unmarshal(body, &chart)

	// Error answers usually carry a chart error object; prefer its description.
	if decodeErr == nil && chart.Chart.Error != nil {
		return unavailable(f.Name(), symbol, fmt.Errorf("api error %s: %s", chart.Chart.Error.Code, chart.Chart.Error.Description))
	}

	if resp.StatusCode != http.StatusOK {
		return unavailable(f.Name(), symbol, fmt.Errorf("status %d, body: %s", resp.StatusCode, truncate(string(body), 200)))
	}

	if decodeErr != nil {
		return unparseable(f.Name(), symbol, decodeErr)
	}

	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		f.logger.Debug("no data returned", zap.String("symbol", symbol))

		return types.Empty()
	}

	table, err := chartToTable(symbol, chart)
	if err != nil {
		return unparseable(f.Name(), symbol, err)
	}

	return types.Ok(table)
}

func (f *YahooFetcher) chartURL(symbol string, period types.Period, interval types.Interval) string {
	query := url.Values{}
	query.Set("interval", string(interval))

	if yahooRanges[period] {
		query.Set("range", string(period))
	} else {
		now := f.now()
		query.Set("period1", strconv.FormatInt(period.Start(now).Unix(), 10))
		query.Set("period2", strconv.FormatInt(now.Unix(), 10))
	}

	return fmt.Sprintf("%s/v8/finance/chart/%s?%s", f.baseURL, url.PathEscape(symbol), query.Encode())
}

func chartToTable(symbol string, chart yahooChart) (*types.Table, error) {
	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no quote block for %d timestamps", len(result.Timestamp))
	}

	quote := result.Indicators.Quote[0]
	location := time.FixedZone(result.Meta.ExchangeName, result.Meta.GMTOffset)

	supplied := map[types.Column]bool{
		types.ColumnOpen:   quote.Open != nil,
		types.ColumnHigh:   quote.High != nil,
		types.ColumnLow:    quote.Low != nil,
		types.ColumnClose:  quote.Close != nil,
		types.ColumnVolume: quote.Volume != nil,
	}

	columns := make([]types.Column, 0, len(types.RequiredColumns))
	for _, column := range types.RequiredColumns {
		if supplied[column] {
			columns = append(columns, column)
		}
	}

	records := make([]types.Record, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		rec := types.Record{
			Time:   time.Unix(ts, 0).In(location),
			Open:   cell(quote.Open, i),
			High:   cell(quote.High, i),
			Low:    cell(quote.Low, i),
			Close:  cell(quote.Close, i),
			Volume: volumeCell(quote.Volume, i),
		}

		// Rows with nothing but a timestamp are holidays or halted sessions.
		if rec.Open.IsNone() && rec.High.IsNone() && rec.Low.IsNone() && rec.Close.IsNone() && rec.Volume.IsNone() {
			continue
		}

		records = append(records, rec)
	}

	return types.NewTable(symbol, columns, records), nil
}

func cell(values []*float64, i int) optional.Option[float64] {
	if i >= len(values) || values[i] == nil || math.IsNaN(*values[i]) {
		return optional.None[float64]()
	}

	return optional.Some(*values[i])
}

func volumeCell(values []*float64, i int) optional.Option[int64] {
	v := cell(values, i)
	if v.IsNone() {
		return optional.None[int64]()
	}

	return optional.Some(int64(math.Round(v.Unwrap())))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}
