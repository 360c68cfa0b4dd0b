package writer

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-harvest/internal/logger"
	"github.com/rxtech-lab/argo-harvest/internal/types"
	"github.com/rxtech-lab/argo-harvest/pkg/errors"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata/artifact"
)

// csvRow is the on-disk row layout. An empty cell is a missing value.
type csvRow struct {
	Timestamp string `csv:"timestamp"`
	Open      string `csv:"open"`
	High      string `csv:"high"`
	Low       string `csv:"low"`
	Close     string `csv:"close"`
	Volume    string `csv:"volume"`
	Symbol    string `csv:"symbol"`
}

// CSVStore writes artifacts as CSV files.
type CSVStore struct {
	dir    string
	logger *logger.Logger
}

// NewCSVStore creates a store writing CSV artifacts into dir.
func NewCSVStore(dir string, log *logger.Logger) *CSVStore {
	return &CSVStore{
		dir:    dir,
		logger: log.Named("csv-store"),
	}
}

func (s *CSVStore) Format() artifact.Format {
	return artifact.FormatCSV
}

func (s *CSVStore) Dir() string {
	return s.dir
}

// Persist implements Store.
func (s *CSVStore) Persist(ctx context.Context, key artifact.Key, table *types.Table, validation types.ValidationResult) (string, error) {
	key.Format = s.Format()

	return commitArtifact(ctx, s.dir, key, table, validation, s.encode, s.logger)
}

func (s *CSVStore) encode(_ context.Context, tmpPath string, table *types.Table) error {
	rows := make([]csvRow, 0, table.Len())
	for _, rec := range table.Records {
		rows = append(rows, csvRow{
			Timestamp: rec.Time.Format(time.RFC3339Nano),
			Open:      formatFloat(rec.Open),
			High:      formatFloat(rec.High),
			Low:       formatFloat(rec.Low),
			Close:     formatFloat(rec.Close),
			Volume:    formatInt(rec.Volume),
			Symbol:    table.Symbol,
		})
	}

	file, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	return writeRows(file, rows)
}

// writeRows marshals rows into w and closes it. A failed close fails the write.
func writeRows(w io.WriteCloser, rows []csvRow) error {
	err := gocsv.Marshal(&rows, w)
	if closeErr := w.Close(); err == nil && closeErr != nil {
		return fmt.Errorf("failed to close csv file: %w", closeErr)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal csv: %w", err)
	}

	return nil
}

// Load implements Store.
func (s *CSVStore) Load(_ context.Context, path string) (*types.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeArtifactReadFailed, err, "failed to open %s", path)
	}
	defer file.Close()

	var rows []csvRow
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeArtifactReadFailed, err, "failed to parse %s", path)
	}

	symbol := ""
	records := make([]types.Record, 0, len(rows))

	for i, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeArtifactReadFailed, err, "%s row %d", path, i+1)
		}

		if symbol == "" {
			symbol = row.Symbol
		}

		records = append(records, rec)
	}

	return types.NewTable(symbol, nil, records), nil
}

func (r csvRow) toRecord() (types.Record, error) {
	t, err := parseTimestamp(r.Timestamp)
	if err != nil {
		return types.Record{}, err
	}

	open, err := parseFloat(r.Open)
	if err != nil {
		return types.Record{}, fmt.Errorf("open: %w", err)
	}

	high, err := parseFloat(r.High)
	if err != nil {
		return types.Record{}, fmt.Errorf("high: %w", err)
	}

	low, err := parseFloat(r.Low)
	if err != nil {
		return types.Record{}, fmt.Errorf("low: %w", err)
	}

	closePrice, err := parseFloat(r.Close)
	if err != nil {
		return types.Record{}, fmt.Errorf("close: %w", err)
	}

	volume, err := parseInt(r.Volume)
	if err != nil {
		return types.Record{}, fmt.Errorf("volume: %w", err)
	}

	return types.Record{
		Time:   t,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
	}, nil
}

// timestampLayouts are tried in order. Artifacts written by this package always use
// the first; the others accept hand-made files.
var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

func formatFloat(v optional.Option[float64]) string {
	f, err := v.Take()
	if err != nil {
		return ""
	}

	return strconv.FormatFloat(f, 'g', -1, 64)
}

func formatInt(v optional.Option[int64]) string {
	n, err := v.Take()
	if err != nil {
		return ""
	}

	return strconv.FormatInt(n, 10)
}

func parseFloat(s string) (optional.Option[float64], error) {
	if s == "" {
		return optional.None[float64](), nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return optional.None[float64](), err
	}

	return optional.Some(f), nil
}

func parseInt(s string) (optional.Option[int64], error) {
	if s == "" {
		return optional.None[int64](), nil
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return optional.None[int64](), err
	}

	return optional.Some(n), nil
}
