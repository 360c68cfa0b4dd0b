package types

import (
	"slices"
	"strings"

	"github.com/rxtech-lab/argo-harvest/pkg/errors"
)

// Universe is the ordered, de-duplicated set of symbols a run should cover.
type Universe struct {
	symbols []string
	index   map[string]struct{}
}

// NewUniverse trims every symbol, drops duplicates keeping the first occurrence
// and fails when a symbol is blank or nothing is left.
func NewUniverse(symbols []string) (Universe, error) {
	u := Universe{
		symbols: make([]string, 0, len(symbols)),
		index:   make(map[string]struct{}, len(symbols)),
	}

	for i, raw := range symbols {
		symbol := strings.TrimSpace(raw)
		if symbol == "" {
			return Universe{}, errors.Newf(errors.ErrCodeInvalidSymbol, "symbol at position %d is blank", i)
		}

		if _, seen := u.index[symbol]; seen {
			continue
		}

		u.index[symbol] = struct{}{}
		u.symbols = append(u.symbols, symbol)
	}

	if len(u.symbols) == 0 {
		return Universe{}, errors.New(errors.ErrCodeEmptyUniverse, "symbol universe is empty")
	}

	return u, nil
}

// Symbols returns the symbols in configured order.
func (u Universe) Symbols() []string {
	return slices.Clone(u.symbols)
}

// Len returns the number of distinct symbols.
func (u Universe) Len() int {
	return len(u.symbols)
}

// Contains reports whether symbol belongs to the universe.
func (u Universe) Contains(symbol string) bool {
	_, ok := u.index[symbol]

	return ok
}

// Minus returns the universe symbols absent from covered, in universe order.
func (u Universe) Minus(covered map[string]struct{}) []string {
	missing := make([]string, 0, len(u.symbols))
	for _, symbol := range u.symbols {
		if _, ok := covered[symbol]; !ok {
			missing = append(missing, symbol)
		}
	}

	return missing
}
