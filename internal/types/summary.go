package types

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// DataStatus is the per-symbol verdict shown in the summary report.
type DataStatus string

const (
	// DataStatusValid means the data passed validation and was persisted.
	DataStatusValid DataStatus = "valid"

	// DataStatusIssues means validation flagged the data. It was persisted anyway.
	DataStatusIssues DataStatus = "issues"

	// DataStatusNoData means the provider returned no records.
	DataStatusNoData DataStatus = "no_data"

	// DataStatusFailed means the fetch failed.
	DataStatusFailed DataStatus = "failed"

	// DataStatusStorageFailed means the data could not be persisted.
	DataStatusStorageFailed DataStatus = "storage_failed"
)

// SummaryRow is one line of the summary report.
type SummaryRow struct {
	Symbol    string
	Records   int
	Start     time.Time
	End       time.Time
	MinClose  float64
	MaxClose  float64
	AvgVolume decimal.Decimal
	Status    DataStatus
	Detail    string
}

// SummaryReport is the immutable outcome of one run.
type SummaryReport struct {
	runAt time.Time
	rows  []SummaryRow
}

func NewSummaryReport(runAt time.Time, rows []SummaryRow) SummaryReport {
	return SummaryReport{runAt: runAt, rows: slices.Clone(rows)}
}

// RunAt is the time the run started.
func (r SummaryReport) RunAt() time.Time {
	return r.runAt
}

// Rows returns a copy of the report rows in attempt order.
func (r SummaryReport) Rows() []SummaryRow {
	return slices.Clone(r.rows)
}

// Len returns the number of rows.
func (r SummaryReport) Len() int {
	return len(r.rows)
}

// CountByStatus tallies rows per status.
func (r SummaryReport) CountByStatus() map[DataStatus]int {
	counts := make(map[DataStatus]int)
	for _, row := range r.rows {
		counts[row.Status]++
	}

	return counts
}
