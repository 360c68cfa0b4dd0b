package types

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/rxtech-lab/argo-harvest/pkg/errors"
)

// Period is the lookback window of a download, e.g. "1y", "6mo", "ytd".
type Period string

// Interval is the sampling granularity of a download, e.g. "1d", "1h", "1wk".
type Interval string

const (
	PeriodYearToDate Period = "ytd"
	PeriodMax        Period = "max"
)

const (
	IntervalOneMinute      Interval = "1m"
	IntervalTwoMinutes     Interval = "2m"
	IntervalFiveMinutes    Interval = "5m"
	IntervalFifteenMinutes Interval = "15m"
	IntervalThirtyMinutes  Interval = "30m"
	IntervalSixtyMinutes   Interval = "60m"
	IntervalNinetyMinutes  Interval = "90m"
	IntervalOneHour        Interval = "1h"
	IntervalOneDay         Interval = "1d"
	IntervalFiveDays       Interval = "5d"
	IntervalOneWeek        Interval = "1wk"
	IntervalOneMonth       Interval = "1mo"
	IntervalThreeMonths    Interval = "3mo"
)

// PeriodPattern matches every valid period. It is shared with artifact naming.
const PeriodPattern = `(?:[1-9][0-9]*(?:d|wk|mo|y)|ytd|max)`

// IntervalPattern matches the shape of an interval. Membership is checked by ParseInterval.
const IntervalPattern = `(?:[1-9][0-9]*(?:m|h|d|wk|mo))`

var (
	periodRegexp = regexp.MustCompile(`^([1-9][0-9]*)(d|wk|mo|y)$`)

	intervalDurations = map[Interval]time.Duration{
		IntervalOneMinute:      time.Minute,
		IntervalTwoMinutes:     2 * time.Minute,
		IntervalFiveMinutes:    5 * time.Minute,
		IntervalFifteenMinutes: 15 * time.Minute,
		IntervalThirtyMinutes:  30 * time.Minute,
		IntervalSixtyMinutes:   time.Hour,
		IntervalNinetyMinutes:  90 * time.Minute,
		IntervalOneHour:        time.Hour,
		IntervalOneDay:         24 * time.Hour,
		IntervalFiveDays:       5 * 24 * time.Hour,
		IntervalOneWeek:        7 * 24 * time.Hour,
		IntervalOneMonth:       30 * 24 * time.Hour,
		IntervalThreeMonths:    90 * 24 * time.Hour,
	}
)

// ParsePeriod validates a period string.
func ParsePeriod(s string) (Period, error) {
	p := Period(s)
	if p == PeriodYearToDate || p == PeriodMax || periodRegexp.MatchString(s) {
		return p, nil
	}

	return "", errors.Newf(errors.ErrCodeInvalidPeriod, "invalid period %q: expected Nd, Nwk, Nmo, Ny, ytd or max", s)
}

// Start returns the beginning of the window that ends at now.
func (p Period) Start(now time.Time) time.Time {
	switch p {
	case PeriodYearToDate:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	case PeriodMax:
		return time.Unix(0, 0).In(now.Location())
	}

	m := periodRegexp.FindStringSubmatch(string(p))
	if m == nil {
		return now
	}

	n, _ := strconv.Atoi(m[1])

	switch m[2] {
	case "d":
		return now.AddDate(0, 0, -n)
	case "wk":
		return now.AddDate(0, 0, -7*n)
	case "mo":
		return now.AddDate(0, -n, 0)
	default:
		return now.AddDate(-n, 0, 0)
	}
}

func (p Period) String() string {
	return string(p)
}

// ParseInterval validates an interval string.
func ParseInterval(s string) (Interval, error) {
	i := Interval(s)
	if _, ok := intervalDurations[i]; ok {
		return i, nil
	}

	return "", errors.Newf(errors.ErrCodeInvalidInterval, "invalid interval %q: supported intervals are %s", s, supportedIntervals())
}

// Duration returns the nominal width of one bar. Months count as 30 days.
func (i Interval) Duration() time.Duration {
	return intervalDurations[i]
}

// IsIntraday reports whether bars are shorter than a day.
func (i Interval) IsIntraday() bool {
	d := i.Duration()

	return d > 0 && d < 24*time.Hour
}

func (i Interval) String() string {
	return string(i)
}

func supportedIntervals() string {
	return fmt.Sprint([]Interval{
		IntervalOneMinute, IntervalTwoMinutes, IntervalFiveMinutes, IntervalFifteenMinutes,
		IntervalThirtyMinutes, IntervalSixtyMinutes, IntervalNinetyMinutes, IntervalOneHour,
		IntervalOneDay, IntervalFiveDays, IntervalOneWeek, IntervalOneMonth, IntervalThreeMonths,
	})
}
