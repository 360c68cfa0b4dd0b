// Package inventory discovers which datasets already exist on disk.
package inventory

import (
	"cmp"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rxtech-lab/argo-harvest/internal/logger"
	"github.com/rxtech-lab/argo-harvest/internal/types"
	"github.com/rxtech-lab/argo-harvest/pkg/errors"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata/artifact"
	"go.uber.org/zap"
)

// Entry is one committed artifact found in the storage directory.
type Entry struct {
	Key     artifact.Key
	Path    string
	Size    int64
	ModTime time.Time
}

// Inventory is a point-in-time listing of the storage directory.
type Inventory struct {
	Dir     string
	Entries []Entry
}

// Symbols returns every symbol with at least one artifact.
func (inv Inventory) Symbols() map[string]struct{} {
	symbols := make(map[string]struct{}, len(inv.Entries))
	for _, entry := range inv.Entries {
		symbols[entry.Key.Symbol] = struct{}{}
	}

	return symbols
}

// SymbolsFor returns the symbols covered for one period and interval, in any format.
func (inv Inventory) SymbolsFor(period types.Period, interval types.Interval) map[string]struct{} {
	symbols := make(map[string]struct{})
	for _, entry := range inv.Entries {
		if entry.Key.Period == period && entry.Key.Interval == interval {
			symbols[entry.Key.Symbol] = struct{}{}
		}
	}

	return symbols
}

// EntriesFor returns the artifacts of one period and interval.
func (inv Inventory) EntriesFor(period types.Period, interval types.Interval) []Entry {
	var entries []Entry
	for _, entry := range inv.Entries {
		if entry.Key.Period == period && entry.Key.Interval == interval {
			entries = append(entries, entry)
		}
	}

	return entries
}

// Dataset groups the artifacts of one period and interval.
type Dataset struct {
	Period   types.Period
	Interval types.Interval
	Files    int
	Bytes    int64
}

// Datasets returns every period and interval pair with artifacts, ordered by
// interval width and then period.
func (inv Inventory) Datasets() []Dataset {
	var datasets []Dataset

	for _, entry := range inv.Entries {
		i := slices.IndexFunc(datasets, func(d Dataset) bool {
			return d.Period == entry.Key.Period && d.Interval == entry.Key.Interval
		})
		if i < 0 {
			datasets = append(datasets, Dataset{Period: entry.Key.Period, Interval: entry.Key.Interval, Files: 0, Bytes: 0})
			i = len(datasets) - 1
		}

		datasets[i].Files++
		datasets[i].Bytes += entry.Size
	}

	slices.SortFunc(datasets, func(a, b Dataset) int {
		if c := cmp.Compare(a.Interval.Duration(), b.Interval.Duration()); c != 0 {
			return c
		}

		if c := strings.Compare(string(a.Interval), string(b.Interval)); c != 0 {
			return c
		}

		return strings.Compare(string(a.Period), string(b.Period))
	})

	return datasets
}

// Len returns the number of artifacts.
func (inv Inventory) Len() int {
	return len(inv.Entries)
}

// Scanner lists the storage directory. It never modifies it.
type Scanner struct {
	dir    string
	logger *logger.Logger
}

func NewScanner(dir string, log *logger.Logger) *Scanner {
	return &Scanner{
		dir:    dir,
		logger: log.Named("inventory"),
	}
}

// Dir returns the directory the scanner lists.
func (s *Scanner) Dir() string {
	return s.dir
}

// Scan lists committed artifacts. A missing directory is an empty inventory.
// Entries that are not artifacts are skipped.
func (s *Scanner) Scan() (Inventory, error) {
	inv := Inventory{Dir: s.dir, Entries: nil}

	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Debug("storage directory does not exist yet", zap.String("dir", s.dir))

			return inv, nil
		}

		return Inventory{}, errors.Wrapf(errors.ErrCodeStorageUnavailable, err, "failed to list storage directory %s", s.dir)
	}

	for _, dirEntry := range dirEntries {
		name := dirEntry.Name()

		if dirEntry.IsDir() || artifact.IsHidden(name) {
			s.logger.Debug("skipping entry", zap.String("name", name))

			continue
		}

		key, err := artifact.Parse(name)
		if err != nil {
			s.logger.Debug("skipping non-artifact file", zap.String("name", name))

			continue
		}

		info, err := dirEntry.Info()
		if err != nil {
			// Removed between listing and stat.
			s.logger.Debug("skipping vanished file", zap.String("name", name), zap.Error(err))

			continue
		}

		inv.Entries = append(inv.Entries, Entry{
			Key:     key,
			Path:    filepath.Join(s.dir, name),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	slices.SortFunc(inv.Entries, func(a, b Entry) int {
		return strings.Compare(a.Path, b.Path)
	})

	s.logger.Debug("scanned storage directory", zap.String("dir", s.dir), zap.Int("artifacts", len(inv.Entries)))

	return inv, nil
}
