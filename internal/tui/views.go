package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/rxtech-lab/argo-harvest/internal/types"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata/inventory"
	"github.com/rxtech-lab/argo-harvest/pkg/utils"
)

// datasetItem implements list.Item for one stored dataset.
type datasetItem struct {
	dataset inventory.Dataset
}

func (i datasetItem) Title() string {
	return fmt.Sprintf("%s / %s", i.dataset.Period, i.dataset.Interval)
}

func (i datasetItem) Description() string {
	return fmt.Sprintf("%d files, %s", i.dataset.Files, utils.FormatBytes(i.dataset.Bytes))
}

func (i datasetItem) FilterValue() string { return i.Title() }

// DatasetItems converts the datasets of an inventory into list items.
func DatasetItems(inv inventory.Inventory) []list.Item {
	datasets := inv.Datasets()

	items := make([]list.Item, 0, len(datasets))
	for _, d := range datasets {
		items = append(items, datasetItem{dataset: d})
	}

	return items
}

// NewDatasetList creates the list of stored datasets.
func NewDatasetList() list.Model {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Select Dataset"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return l
}

// NewSymbolInput creates the universe input, prefilled with symbols.
func NewSymbolInput(symbols []string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "THYAO.IS,GARAN.IS,AKBNK.IS"
	ti.CharLimit = 2000
	ti.Width = 60
	ti.Prompt = "> "
	ti.SetValue(strings.Join(symbols, ","))

	return ti
}

// ParseSymbols parses comma-separated symbols into a slice.
func ParseSymbols(input string) []string {
	parts := strings.Split(input, ",")
	symbols := make([]string, 0, len(parts))

	for _, p := range parts {
		s := strings.TrimSpace(strings.ToUpper(p))
		if s != "" {
			symbols = append(symbols, s)
		}
	}

	return symbols
}

// NewCoverageTable creates the table of per-symbol coverage.
func NewCoverageTable() table.Model {
	columns := []table.Column{
		{Title: "Symbol", Width: 14},
		{Title: "Status", Width: 10},
		{Title: "File", Width: 30},
		{Title: "Size", Width: 10},
		{Title: "Modified", Width: 19},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)

	t.SetStyles(s)

	return t
}

// UpdateTableRows fills the table with one row per universe symbol, in universe order.
func UpdateTableRows(t table.Model, universe types.Universe, progress inventory.ProgressReport) table.Model {
	files := make(map[string]inventory.Entry, len(progress.Files))
	for _, entry := range progress.Files {
		if _, ok := files[entry.Key.Symbol]; !ok {
			files[entry.Key.Symbol] = entry
		}
	}

	rows := make([]table.Row, 0, universe.Len())

	for _, symbol := range universe.Symbols() {
		entry, ok := files[symbol]
		if !ok {
			rows = append(rows, table.Row{symbol, FormatStatus(false), "", "", ""})

			continue
		}

		rows = append(rows, table.Row{
			symbol,
			FormatStatus(true),
			entry.Key.Name(),
			utils.FormatBytes(entry.Size),
			entry.ModTime.Format("2006-01-02 15:04:05"),
		})
	}

	t.SetRows(rows)

	return t
}
