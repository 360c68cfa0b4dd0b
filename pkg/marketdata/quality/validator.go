// Package quality checks fetched tables before they are persisted.
package quality

import (
	"github.com/rxtech-lab/argo-harvest/internal/logger"
	"github.com/rxtech-lab/argo-harvest/internal/types"
	"go.uber.org/zap"
)

// Validator applies the quality rules to a table. Every rule is evaluated, so a
// result always carries the full picture.
type Validator struct {
	logger *logger.Logger
}

func NewValidator(log *logger.Logger) *Validator {
	return &Validator{logger: log.Named("quality")}
}

// Validate checks that the required columns exist, that every present close is
// positive and counts missing cells. Missing cells only produce a warning.
func (v *Validator) Validate(table *types.Table) types.ValidationResult {
	result := types.ValidationResult{
		Passed:                false,
		MissingColumns:        nil,
		NonPositiveCloseCount: 0,
		MissingValueCount:     0,
	}

	if table.IsEmpty() {
		v.logger.Warn("empty table fails validation")

		return result
	}

	var present []types.Column

	for _, column := range types.RequiredColumns {
		if table.HasColumn(column) {
			present = append(present, column)
		} else {
			result.MissingColumns = append(result.MissingColumns, column)
		}
	}

	hasClose := table.HasColumn(types.ColumnClose)

	for _, rec := range table.Records {
		for _, column := range present {
			if !rec.Has(column) {
				result.MissingValueCount++
			}
		}

		if !hasClose {
			continue
		}

		if closePrice, err := rec.Close.Take(); err == nil && closePrice <= 0 {
			result.NonPositiveCloseCount++
		}
	}

	result.Passed = len(result.MissingColumns) == 0 && result.NonPositiveCloseCount == 0

	log := v.logger.With(zap.String("symbol", table.Symbol))

	if len(result.MissingColumns) > 0 {
		log.Warn("missing required columns", zap.Any("columns", result.MissingColumns))
	}

	if result.NonPositiveCloseCount > 0 {
		log.Warn("non-positive close prices", zap.Int("count", result.NonPositiveCloseCount))
	}

	if result.MissingValueCount > 0 {
		log.Warn("missing values", zap.Int("count", result.MissingValueCount))
	}

	return result
}
