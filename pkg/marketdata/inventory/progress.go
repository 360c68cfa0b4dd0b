package inventory

import (
	"math"

	"github.com/rxtech-lab/argo-harvest/internal/types"
)

// ProgressReport summarizes how much of a universe is on disk for one period and interval.
// Percent is rounded to one decimal place.
type ProgressReport struct {
	Total      int
	Downloaded int
	Missing    []string
	Percent    float64
	Files      []Entry
	TotalBytes int64
}

// Progress compares a universe with an inventory.
func Progress(universe types.Universe, inv Inventory, period types.Period, interval types.Interval) ProgressReport {
	covered := inv.SymbolsFor(period, interval)
	missing := universe.Minus(covered)

	var files []Entry
	var totalBytes int64

	for _, entry := range inv.EntriesFor(period, interval) {
		if !universe.Contains(entry.Key.Symbol) {
			continue
		}

		files = append(files, entry)
		totalBytes += entry.Size
	}

	downloaded := universe.Len() - len(missing)
	percent := 0.0

	if universe.Len() > 0 {
		percent = math.Round(float64(downloaded)/float64(universe.Len())*1000) / 10
	}

	return ProgressReport{
		Total:      universe.Len(),
		Downloaded: downloaded,
		Missing:    missing,
		Percent:    percent,
		Files:      files,
		TotalBytes: totalBytes,
	}
}

// IsComplete reports whether nothing is missing.
func (p ProgressReport) IsComplete() bool {
	return len(p.Missing) == 0
}
