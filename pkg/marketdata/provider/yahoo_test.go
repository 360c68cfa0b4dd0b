package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/rxtech-lab/argo-harvest/internal/logger"
	"github.com/rxtech-lab/argo-harvest/internal/types"
	"github.com/rxtech-lab/argo-harvest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

const yahooTwoBars = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "THYAO.IS", "gmtoffset": 10800, "exchangeName": "IST"},
      "timestamp": [1704175200, 1704261600, 1704348000],
      "indicators": {"quote": [{
        "open":   [285.25, null, 290.0],
        "high":   [290.5, null, 292.0],
        "low":    [283.75, null, null],
        "close":  [289.0, null, 291.5],
        "volume": [31250117, null, 1200]
      }]}
    }],
    "error": null
  }
}`

type YahooFetcherTestSuite struct {
	suite.Suite
	server    *httptest.Server
	router    *mux.Router
	fetcher   *YahooFetcher
	lastURL   atomic.Value
	userAgent atomic.Value
}

func TestYahooFetcherSuite(t *testing.T) {
	suite.Run(t, new(YahooFetcherTestSuite))
}

func (suite *YahooFetcherTestSuite) SetupTest() {
	suite.router = mux.NewRouter()
	suite.server = httptest.NewServer(suite.router)

	fetcher, err := NewYahooFetcher(YahooConfig{BaseURL: suite.server.URL, Timeout: 5 * time.Second}, logger.NewNopLogger()) //nolint:exhaustruct
	suite.Require().NoError(err)
	fetcher.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	suite.fetcher = fetcher
}

func (suite *YahooFetcherTestSuite) TearDownTest() {
	suite.server.Close()
}

func (suite *YahooFetcherTestSuite) serve(status int, body string) {
	suite.router.HandleFunc("/v8/finance/chart/{symbol}", func(w http.ResponseWriter, r *http.Request) {
		suite.lastURL.Store(r.URL.String())
		suite.userAgent.Store(r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}).Methods(http.MethodGet)
}

func (suite *YahooFetcherTestSuite) TestFetchParsesChart() {
	suite.serve(http.StatusOK, yahooTwoBars)

	outcome := suite.fetcher.Fetch(context.Background(), "THYAO.IS", "1y", "1d")
	suite.Require().True(outcome.IsOk(), "%v", outcome.Err)

	table := outcome.Table
	suite.Equal("THYAO.IS", table.Symbol)
	suite.Equal(types.RequiredColumns, table.Columns)
	suite.Require().Equal(2, table.Len(), "all-null row is dropped")

	first := table.Records[0]
	suite.Equal(time.Unix(1704175200, 0).Unix(), first.Time.Unix())
	_, offset := first.Time.Zone()
	suite.Equal(10800, offset)
	suite.Equal(289.0, first.Close.Unwrap())
	suite.Equal(int64(31250117), first.Volume.Unwrap())

	second := table.Records[1]
	suite.True(second.Low.IsNone())
	suite.Equal(291.5, second.Close.Unwrap())

	suite.Contains(suite.lastURL.Load(), "range=1y")
	suite.Contains(suite.lastURL.Load(), "interval=1d")
	suite.Equal("Mozilla/5.0", suite.userAgent.Load())
}

func (suite *YahooFetcherTestSuite) TestFetchUsesWindowForNonNativePeriods() {
	suite.serve(http.StatusOK, yahooTwoBars)

	outcome := suite.fetcher.Fetch(context.Background(), "THYAO.IS", "2wk", "1h")
	suite.True(outcome.IsOk())

	url := suite.lastURL.Load().(string)
	suite.NotContains(url, "range=")
	suite.Contains(url, fmt.Sprintf("period1=%d", time.Date(2024, 4, 17, 12, 0, 0, 0, time.UTC).Unix()))
	suite.Contains(url, fmt.Sprintf("period2=%d", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).Unix()))
}

func (suite *YahooFetcherTestSuite) TestFetchEscapesSymbol() {
	suite.serve(http.StatusOK, yahooTwoBars)

	outcome := suite.fetcher.Fetch(context.Background(), "^GSPC", "1y", "1d")
	suite.True(outcome.IsOk())
}

func (suite *YahooFetcherTestSuite) TestFetchNoTimestampsIsEmpty() {
	suite.serve(http.StatusOK, `{"chart":{"result":[{"meta":{"gmtoffset":0},"indicators":{"quote":[{}]}}],"error":null}`)

	outcome := suite.fetcher.Fetch(context.Background(), "NEWCO", "1y", "1d")
	suite.True(outcome.IsEmpty())
}

func (suite *YahooFetcherTestSuite) TestFetchAllNullRowsIsEmpty() {
	suite.serve(http.StatusOK, `{"chart":{"result":[{"meta":{"gmtoffset":0},"timestamp":[1,2],
		"indicators":{"quote":[{"open":[null,null],"high":[null,null],"low":[null,null],"close":[null,null],"volume":[null,null]}]}}],"error":null}`)

	outcome := suite.fetcher.Fetch(context.Background(), "HALTED", "1y", "1d")
	suite.True(outcome.IsEmpty())
}

func (suite *YahooFetcherTestSuite) TestFetchMissingColumn() {
	suite.serve(http.StatusOK, `{"chart":{"result":[{"meta":{"gmtoffset":0},"timestamp":[1704175200],
		"indicators":{"quote":[{"open":[1.0],"high":[1.0],"low":[1.0],"close":[1.0]}]}}],"error":null}`)

	outcome := suite.fetcher.Fetch(context.Background(), "NOVOL", "1y", "1d")
	suite.Require().True(outcome.IsOk())
	suite.False(outcome.Table.HasColumn(types.ColumnVolume))
	suite.True(outcome.Table.Records[0].Volume.IsNone())
}

func (suite *YahooFetcherTestSuite) TestFetchChartErrorIsFailed() {
	suite.serve(http.StatusNotFound, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)

	outcome := suite.fetcher.Fetch(context.Background(), "GONE.IS", "1y", "1d")
	suite.Require().True(outcome.IsFailed())
	suite.True(errors.HasCode(outcome.Err, errors.ErrCodeProviderUnavailable))
	suite.Contains(outcome.Err.Error(), "symbol may be delisted")
}

func (suite *YahooFetcherTestSuite) TestFetchServerErrorIsFailed() {
	suite.serve(http.StatusInternalServerError, "upstream exploded")

	outcome := suite.fetcher.Fetch(context.Background(), "THYAO.IS", "1y", "1d")
	suite.Require().True(outcome.IsFailed())
	suite.Contains(outcome.Err.Error(), "status 500")
}

func (suite *YahooFetcherTestSuite) TestFetchMalformedBodyIsFailed() {
	suite.serve(http.StatusOK, "<html>not json</html>")

	outcome := suite.fetcher.Fetch(context.Background(), "THYAO.IS", "1y", "1d")
	suite.Require().True(outcome.IsFailed())
	suite.True(errors.HasCode(outcome.Err, errors.ErrCodeProviderParseFailed))
}

func (suite *YahooFetcherTestSuite) TestFetchUnreachableIsFailed() {
	fetcher, err := NewYahooFetcher(YahooConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second}, logger.NewNopLogger()) //nolint:exhaustruct
	suite.Require().NoError(err)

	outcome := fetcher.Fetch(context.Background(), "THYAO.IS", "1y", "1d")
	suite.Require().True(outcome.IsFailed())
	suite.True(errors.HasCode(outcome.Err, errors.ErrCodeProviderUnavailable))
}

func (suite *YahooFetcherTestSuite) TestInvalidProxy() {
	_, err := NewYahooFetcher(YahooConfig{ProxyURL: "://bad"}, logger.NewNopLogger()) //nolint:exhaustruct
	suite.Error(err)
}

func (suite *YahooFetcherTestSuite) TestName() {
	suite.Equal("yahoo", suite.fetcher.Name())
}
