// Package report turns the results of a run into the per-run summary.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/olekukonko/tablewriter"
	"github.com/rxtech-lab/argo-harvest/internal/logger"
	"github.com/rxtech-lab/argo-harvest/internal/types"
	"github.com/rxtech-lab/argo-harvest/internal/utils"
	"github.com/rxtech-lab/argo-harvest/pkg/errors"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata/acquisition"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata/artifact"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// FilePrefix starts every summary file name.
	FilePrefix = "download_summary_"
	fileLayout = "20060102_150405"

	maxNameAttempts = 100

	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

var header = []string{"symbol", "records", "start_date", "end_date", "min_close", "max_close", "avg_volume", "status", "detail"}

// csvRow is the on-disk layout of a summary row.
type csvRow struct {
	Symbol    string `csv:"symbol"`
	Records   int    `csv:"records"`
	StartDate string `csv:"start_date"`
	EndDate   string `csv:"end_date"`
	MinClose  string `csv:"min_close"`
	MaxClose  string `csv:"max_close"`
	AvgVolume string `csv:"avg_volume"`
	Status    string `csv:"status"`
	Detail    string `csv:"detail"`
}

// Reporter builds and writes summary reports.
type Reporter struct {
	dir    string
	logger *logger.Logger
}

// NewReporter creates a reporter writing summary files into dir.
func NewReporter(dir string, log *logger.Logger) *Reporter {
	return &Reporter{
		dir:    dir,
		logger: log.Named("report"),
	}
}

// Dir returns the output directory.
func (r *Reporter) Dir() string {
	return r.dir
}

// FileName returns the summary file name for a run started at runAt.
func FileName(runAt time.Time) string {
	return fileName(runAt, 1)
}

func fileName(runAt time.Time, seq int) string {
	if seq <= 1 {
		return FilePrefix + runAt.Format(fileLayout) + ".csv"
	}

	return FilePrefix + runAt.Format(fileLayout) + "_" + strconv.Itoa(seq) + ".csv"
}

// Summarize builds the report with one row per attempted symbol, in attempt order.
func (r *Reporter) Summarize(runAt time.Time, results []acquisition.SymbolResult) types.SummaryReport {
	rows := make([]types.SummaryRow, 0, len(results))

	for _, res := range results {
		row := types.SummaryRow{ //nolint:exhaustruct
			Symbol:    res.Symbol,
			Status:    res.Status(),
			Detail:    detail(res),
			AvgVolume: decimal.Zero,
		}

		if res.Outcome.IsOk() {
			row.Records = res.Stats.Records
			row.Start = res.Stats.Start
			row.End = res.Stats.End
			row.MinClose = res.Stats.MinClose
			row.MaxClose = res.Stats.MaxClose
			row.AvgVolume = res.Stats.AvgVolume
		}

		rows = append(rows, row)
	}

	return types.NewSummaryReport(runAt, rows)
}

// detail explains a status in a few words.
func detail(res acquisition.SymbolResult) string {
	switch res.Status() {
	case types.DataStatusNoData:
		return "provider returned no data"
	case types.DataStatusFailed:
		if res.Outcome.Err != nil {
			return res.Outcome.Err.Error()
		}

		return "fetch failed"
	case types.DataStatusStorageFailed:
		return res.PersistErr.Error()
	case types.DataStatusIssues:
		return validationDetail(res.Validation)
	default:
		if res.Validation.HasWarnings() {
			return fmt.Sprintf("%d missing values", res.Validation.MissingValueCount)
		}

		return ""
	}
}

func validationDetail(v types.ValidationResult) string {
	var parts []string

	if len(v.MissingColumns) > 0 {
		cols := make([]string, 0, len(v.MissingColumns))
		for _, c := range v.MissingColumns {
			cols = append(cols, string(c))
		}

		parts = append(parts, "missing columns: "+strings.Join(cols, ","))
	}

	if v.NonPositiveCloseCount > 0 {
		parts = append(parts, fmt.Sprintf("%d non-positive closes", v.NonPositiveCloseCount))
	}

	if v.MissingValueCount > 0 {
		parts = append(parts, fmt.Sprintf("%d missing values", v.MissingValueCount))
	}

	if len(parts) == 0 {
		return "validation failed"
	}

	return strings.Join(parts, "; ")
}

// Write stores the report as download_summary_YYYYMMDD_HHMMSS.csv in the output
// directory and returns its path. An existing summary file is never replaced: a
// run that starts in the same second as an earlier one gets a _2, _3, ... suffix.
func (r *Reporter) Write(report types.SummaryReport) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", errors.Wrapf(errors.ErrCodeReportWriteFailed, err, "cannot create output directory %s", r.dir)
	}

	rows := toCSVRows(report)

	var commitErr error

	for seq := 1; seq <= maxNameAttempts; seq++ {
		name := fileName(report.RunAt(), seq)
		finalPath := filepath.Join(r.dir, name)
		tmpPath := filepath.Join(r.dir, artifact.TempName(name))

		if err := writeRows(tmpPath, rows); err != nil {
			return "", err
		}

		commitErr = utils.CommitNoClobber(tmpPath, finalPath)
		if errors.HasCode(commitErr, errors.ErrCodeArtifactExists) {
			continue
		}

		if commitErr != nil {
			return "", errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to commit report", commitErr)
		}

		r.logger.Info("summary report written",
			zap.String("path", finalPath),
			zap.Int("rows", report.Len()),
		)

		return finalPath, nil
	}

	return "", errors.Wrap(errors.ErrCodeReportWriteFailed, "no free report file name", commitErr)
}

func writeRows(tmpPath string, rows []csvRow) error {
	file, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to create report file", err)
	}

	err = gocsv.MarshalFile(&rows, file)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		os.Remove(tmpPath)

		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to write report", err)
	}

	return nil
}

func toCSVRows(report types.SummaryReport) []csvRow {
	rows := make([]csvRow, 0, report.Len())
	for _, row := range report.Rows() {
		rows = append(rows, csvRow{
			Symbol:    row.Symbol,
			Records:   row.Records,
			StartDate: formatTime(row.Start),
			EndDate:   formatTime(row.End),
			MinClose:  formatPrice(row.MinClose),
			MaxClose:  formatPrice(row.MaxClose),
			AvgVolume: row.AvgVolume.StringFixed(2),
			Status:    string(row.Status),
			Detail:    row.Detail,
		})
	}

	return rows
}

// Render prints the report as a table followed by a per-status tally.
func (r *Reporter) Render(w io.Writer, report types.SummaryReport) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header[:len(header)-1])
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	for _, row := range toCSVRows(report) {
		table.Append([]string{
			row.Symbol,
			strconv.Itoa(row.Records),
			row.StartDate,
			row.EndDate,
			row.MinClose,
			row.MaxClose,
			row.AvgVolume,
			row.Status,
		})
	}

	table.Render()

	counts := report.CountByStatus()
	fmt.Fprintf(w, "%d symbols: %d valid, %d issues, %d no data, %d failed, %d storage failed\n",
		report.Len(),
		counts[types.DataStatusValid],
		counts[types.DataStatusIssues],
		counts[types.DataStatusNoData],
		counts[types.DataStatusFailed],
		counts[types.DataStatusStorageFailed],
	)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	h, m, s := t.Clock()
	if h == 0 && m == 0 && s == 0 {
		return t.Format(dateLayout)
	}

	return t.Format(dateTimeLayout)
}

func formatPrice(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(4)
}
