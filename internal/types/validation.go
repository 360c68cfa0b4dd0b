package types

// ValidationResult is the quality verdict for one table.
type ValidationResult struct {
	Passed bool `yaml:"passed"`
	// MissingColumns lists required columns the source did not supply.
	MissingColumns []Column `yaml:"missing_columns,omitempty"`
	// NonPositiveCloseCount counts present close cells that are zero or negative.
	NonPositiveCloseCount int `yaml:"non_positive_close_count"`
	// MissingValueCount counts missing cells across the supplied columns. It never fails a table.
	MissingValueCount int `yaml:"missing_value_count"`
}

// HasWarnings reports a passing table that still has missing cells.
func (v ValidationResult) HasWarnings() bool {
	return v.Passed && v.MissingValueCount > 0
}
