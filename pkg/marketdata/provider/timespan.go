package provider

import (
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-harvest/internal/types"
	"github.com/rxtech-lab/argo-harvest/pkg/errors"
)

// polygonTimespan is the (multiplier, timespan) pair Polygon uses for an interval.
type polygonTimespan struct {
	Multiplier int
	Timespan   models.Timespan
}

var polygonTimespans = map[types.Interval]polygonTimespan{
	types.IntervalOneMinute:      {1, models.Minute},
	types.IntervalTwoMinutes:     {2, models.Minute},
	types.IntervalFiveMinutes:    {5, models.Minute},
	types.IntervalFifteenMinutes: {15, models.Minute},
	types.IntervalThirtyMinutes:  {30, models.Minute},
	types.IntervalSixtyMinutes:   {1, models.Hour},
	types.IntervalNinetyMinutes:  {90, models.Minute},
	types.IntervalOneHour:        {1, models.Hour},
	types.IntervalOneDay:         {1, models.Day},
	types.IntervalFiveDays:       {5, models.Day},
	types.IntervalOneWeek:        {1, models.Week},
	types.IntervalOneMonth:       {1, models.Month},
	types.IntervalThreeMonths:    {1, models.Quarter},
}

// Binance intervals: 1m, 3m, 5m, 15m, 30m, 1h, 2h, 4h, 6h, 8h, 12h, 1d, 3d, 1w, 1M
// Ref: https://binance-docs.github.io/apidocs/spot/en/#kline-candlestick-data
var binanceIntervals = map[types.Interval]string{
	types.IntervalOneMinute:      "1m",
	types.IntervalFiveMinutes:    "5m",
	types.IntervalFifteenMinutes: "15m",
	types.IntervalThirtyMinutes:  "30m",
	types.IntervalSixtyMinutes:   "1h",
	types.IntervalOneHour:        "1h",
	types.IntervalOneDay:         "1d",
	types.IntervalOneWeek:        "1w",
	types.IntervalOneMonth:       "1M",
}

func toPolygonTimespan(interval types.Interval) (polygonTimespan, error) {
	ts, ok := polygonTimespans[interval]
	if !ok {
		return polygonTimespan{}, errors.Newf(errors.ErrCodeUnsupportedInterval, "unsupported interval for polygon: %s", interval)
	}

	return ts, nil
}

func toBinanceInterval(interval types.Interval) (string, error) {
	bi, ok := binanceIntervals[interval]
	if !ok {
		return "", errors.Newf(errors.ErrCodeUnsupportedInterval, "unsupported interval for binance: %s", interval)
	}

	return bi, nil
}
