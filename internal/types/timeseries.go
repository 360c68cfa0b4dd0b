package types

import (
	"slices"
	"sort"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// Column names a value column of a time series table.
type Column string

const (
	ColumnOpen   Column = "open"
	ColumnHigh   Column = "high"
	ColumnLow    Column = "low"
	ColumnClose  Column = "close"
	ColumnVolume Column = "volume"
)

// RequiredColumns lists the value columns every complete table carries, in storage order.
var RequiredColumns = []Column{ColumnOpen, ColumnHigh, ColumnLow, ColumnClose, ColumnVolume}

// Record is one bar of a time series. A None cell is a missing value.
type Record struct {
	Time   time.Time
	Open   optional.Option[float64]
	High   optional.Option[float64]
	Low    optional.Option[float64]
	Close  optional.Option[float64]
	Volume optional.Option[int64]
}

// NewRecord builds a record where every cell is present.
func NewRecord(t time.Time, open, high, low, closePrice float64, volume int64) Record {
	return Record{
		Time:   t,
		Open:   optional.Some(open),
		High:   optional.Some(high),
		Low:    optional.Some(low),
		Close:  optional.Some(closePrice),
		Volume: optional.Some(volume),
	}
}

// Has reports whether the cell for column c holds a value.
func (r Record) Has(c Column) bool {
	switch c {
	case ColumnOpen:
		return r.Open.IsSome()
	case ColumnHigh:
		return r.High.IsSome()
	case ColumnLow:
		return r.Low.IsSome()
	case ColumnClose:
		return r.Close.IsSome()
	case ColumnVolume:
		return r.Volume.IsSome()
	default:
		return false
	}
}

// Table is the time series of one symbol, strictly increasing in time.
type Table struct {
	Symbol string
	// Columns are the value columns the source supplied.
	Columns []Column
	Records []Record
}

// NewTable sorts records by time and collapses duplicate timestamps, keeping the
// last record seen for a timestamp. A nil columns slice means all required columns.
func NewTable(symbol string, columns []Column, records []Record) *Table {
	if columns == nil {
		columns = slices.Clone(RequiredColumns)
	}

	sorted := slices.Clone(records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	deduped := make([]Record, 0, len(sorted))
	for _, rec := range sorted {
		if n := len(deduped); n > 0 && deduped[n-1].Time.Equal(rec.Time) {
			deduped[n-1] = rec

			continue
		}

		deduped = append(deduped, rec)
	}

	return &Table{
		Symbol:  symbol,
		Columns: columns,
		Records: deduped,
	}
}

// Len returns the number of records. A nil table has none.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}

	return len(t.Records)
}

// IsEmpty reports whether the table has no records.
func (t *Table) IsEmpty() bool {
	return t.Len() == 0
}

// HasColumn reports whether the source supplied column c.
func (t *Table) HasColumn(c Column) bool {
	return slices.Contains(t.Columns, c)
}

// TableStats aggregates a table for reporting. Missing cells are ignored.
type TableStats struct {
	Records   int
	Start     time.Time
	End       time.Time
	MinClose  float64
	MaxClose  float64
	AvgVolume decimal.Decimal
}

// Stats computes the aggregate view of the table.
func (t *Table) Stats() TableStats {
	stats := TableStats{Records: t.Len(), AvgVolume: decimal.Zero}
	if t.IsEmpty() {
		return stats
	}

	stats.Start = t.Records[0].Time
	stats.End = t.Records[len(t.Records)-1].Time

	seenClose := false
	volumeSum := decimal.Zero
	volumeCount := int64(0)

	for _, rec := range t.Records {
		if closePrice, err := rec.Close.Take(); err == nil {
			if !seenClose || closePrice < stats.MinClose {
				stats.MinClose = closePrice
			}

			if !seenClose || closePrice > stats.MaxClose {
				stats.MaxClose = closePrice
			}

			seenClose = true
		}

		if volume, err := rec.Volume.Take(); err == nil {
			volumeSum = volumeSum.Add(decimal.NewFromInt(volume))
			volumeCount++
		}
	}

	if volumeCount > 0 {
		stats.AvgVolume = volumeSum.DivRound(decimal.NewFromInt(volumeCount), 4)
	}

	return stats
}
