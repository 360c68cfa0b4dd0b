package writer

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-harvest/internal/logger"
	"github.com/rxtech-lab/argo-harvest/internal/types"
	"github.com/rxtech-lab/argo-harvest/pkg/errors"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata/artifact"
	"go.uber.org/zap"
)

// ParquetStore writes artifacts as Parquet files through an in-memory DuckDB.
type ParquetStore struct {
	dir    string
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewParquetStore creates a store writing Parquet artifacts into dir.
func NewParquetStore(dir string, log *logger.Logger) *ParquetStore {
	return &ParquetStore{
		dir:    dir,
		logger: log.Named("parquet-store"),
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}
}

func (s *ParquetStore) Format() artifact.Format {
	return artifact.FormatParquet
}

func (s *ParquetStore) Dir() string {
	return s.dir
}

// Persist implements Store.
func (s *ParquetStore) Persist(ctx context.Context, key artifact.Key, table *types.Table, validation types.ValidationResult) (string, error) {
	key.Format = s.Format()

	return commitArtifact(ctx, s.dir, key, table, validation, s.encode, s.logger)
}

// encode loads the table into an in-memory DuckDB table inside one transaction
// and exports it with COPY.
func (s *ParquetStore) encode(ctx context.Context, tmpPath string, table *types.Table) (err error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return fmt.Errorf("failed to open DuckDB connection: %w", err)
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, `
		CREATE TABLE market_data (
			"timestamp" TIMESTAMP,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume BIGINT,
			symbol TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO market_data ("timestamp", open, high, low, close, volume, symbol)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range table.Records {
		_, err = stmt.ExecContext(ctx,
			rec.Time.UTC(),
			nullable(rec.Open),
			nullable(rec.High),
			nullable(rec.Low),
			nullable(rec.Close),
			nullable(rec.Volume),
			table.Symbol,
		)
		if err != nil {
			return fmt.Errorf("failed to insert data: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf(`COPY market_data TO '%s' (FORMAT PARQUET)`, quoteLiteral(tmpPath)))
	if err != nil {
		return fmt.Errorf("failed to export to Parquet: %w", err)
	}

	s.logger.Debug("exported parquet", zap.String("path", tmpPath), zap.Int("records", table.Len()))

	return nil
}

// Load implements Store.
func (s *ParquetStore) Load(ctx context.Context, path string) (*types.Table, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeArtifactReadFailed, "failed to open DuckDB connection", err)
	}
	defer db.Close()

	query, args, err := s.sq.
		Select(`"timestamp"`, "open", "high", "low", "close", "volume", "symbol").
		From(fmt.Sprintf("read_parquet('%s')", quoteLiteral(path))).
		OrderBy(`"timestamp"`).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeArtifactReadFailed, err, "failed to read %s", path)
	}
	defer rows.Close()

	symbol := ""

	var records []types.Record

	for rows.Next() {
		var (
			t                           time.Time
			open, high, low, closePrice sql.NullFloat64
			volume                      sql.NullInt64
			rowSymbol                   sql.NullString
		)

		if err := rows.Scan(&t, &open, &high, &low, &closePrice, &volume, &rowSymbol); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeArtifactReadFailed, err, "failed to scan %s", path)
		}

		if symbol == "" && rowSymbol.Valid {
			symbol = rowSymbol.String
		}

		records = append(records, types.Record{
			Time:   t,
			Open:   fromNullFloat(open),
			High:   fromNullFloat(high),
			Low:    fromNullFloat(low),
			Close:  fromNullFloat(closePrice),
			Volume: fromNullInt(volume),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeArtifactReadFailed, err, "failed to iterate %s", path)
	}

	return types.NewTable(symbol, nil, records), nil
}

func nullable[T any](v optional.Option[T]) any {
	value, err := v.Take()
	if err != nil {
		return nil
	}

	return value
}

func fromNullFloat(v sql.NullFloat64) optional.Option[float64] {
	if !v.Valid {
		return optional.None[float64]()
	}

	return optional.Some(v.Float64)
}

func fromNullInt(v sql.NullInt64) optional.Option[int64] {
	if !v.Valid {
		return optional.None[int64]()
	}

	return optional.Some(v.Int64)
}

// quoteLiteral escapes a value for use inside a single-quoted SQL string.
func quoteLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
