// Package tui is the interactive inventory browser behind `harvest browse`.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rxtech-lab/argo-harvest/internal/types"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata/inventory"
	"github.com/rxtech-lab/argo-harvest/pkg/utils"
)

// Application states.
const (
	StateDatasetSelect = iota
	StateSymbolInput
	StateCoverage
)

// Scanner lists the storage directory.
type Scanner interface {
	Scan() (inventory.Inventory, error)
}

// Model is the main Bubble Tea model of the inventory browser.
type Model struct {
	state         int
	scanner       Scanner
	datasetList   list.Model
	symbolInput   textinput.Model
	coverageTable table.Model
	inventory     inventory.Inventory
	dataset       inventory.Dataset
	universe      types.Universe
	progress      inventory.ProgressReport
	err           error
	width         int
	height        int
}

// NewModel creates a browser over scanner. symbols prefill the universe input.
func NewModel(scanner Scanner, symbols []string) Model {
	return Model{ //nolint:exhaustruct
		state:         StateDatasetSelect,
		scanner:       scanner,
		datasetList:   NewDatasetList(),
		symbolInput:   NewSymbolInput(symbols),
		coverageTable: NewCoverageTable(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.scan()
}

func (m Model) scan() tea.Cmd {
	scanner := m.scanner

	return func() tea.Msg {
		inv, err := scanner.Scan()
		if err != nil {
			return ScanErrorMsg{Err: err}
		}

		return InventoryMsg{Inventory: inv}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			// Only quit on 'q' if not in text input mode
			if m.state != StateSymbolInput {
				return m, tea.Quit
			}
		case "r":
			if m.state != StateSymbolInput {
				return m, m.scan()
			}
		case "esc":
			return m.handleEsc()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.datasetList.SetSize(msg.Width, msg.Height-4)
		m.coverageTable.SetWidth(msg.Width)
		m.coverageTable.SetHeight(msg.Height - 8)

		return m, nil

	case InventoryMsg:
		m.inventory = msg.Inventory
		m.err = nil
		cmd := m.datasetList.SetItems(DatasetItems(msg.Inventory))

		if m.state == StateCoverage {
			m.showCoverage()
		}

		return m, cmd

	case ScanErrorMsg:
		m.err = msg.Err

		return m, nil
	}

	// Delegate to state-specific update
	switch m.state {
	case StateDatasetSelect:
		return m.updateDatasetSelect(msg)
	case StateSymbolInput:
		return m.updateSymbolInput(msg)
	case StateCoverage:
		return m.updateCoverage(msg)
	}

	return m, nil
}

func (m Model) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case StateSymbolInput:
		m.err = nil
		m.symbolInput.Blur()
		m.state = StateDatasetSelect
	case StateCoverage:
		m.state = StateSymbolInput
		m.symbolInput.Focus()

		return m, textinput.Blink
	}

	return m, nil
}

func (m Model) updateDatasetSelect(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		if item, ok := m.datasetList.SelectedItem().(datasetItem); ok {
			m.dataset = item.dataset
			m.state = StateSymbolInput
			m.symbolInput.Focus()

			return m, textinput.Blink
		}
	}

	var cmd tea.Cmd
	m.datasetList, cmd = m.datasetList.Update(msg)

	return m, cmd
}

func (m Model) updateSymbolInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		universe, err := types.NewUniverse(ParseSymbols(m.symbolInput.Value()))
		if err != nil {
			m.err = err

			return m, nil
		}

		m.err = nil
		m.universe = universe
		m.symbolInput.Blur()
		m.showCoverage()
		m.state = StateCoverage

		return m, nil
	}

	var cmd tea.Cmd
	m.symbolInput, cmd = m.symbolInput.Update(msg)

	return m, cmd
}

func (m Model) updateCoverage(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.coverageTable, cmd = m.coverageTable.Update(msg)

	return m, cmd
}

func (m *Model) showCoverage() {
	m.progress = inventory.Progress(m.universe, m.inventory, m.dataset.Period, m.dataset.Interval)
	m.coverageTable = UpdateTableRows(m.coverageTable, m.universe, m.progress)
}

// View implements tea.Model.
func (m Model) View() string {
	var s strings.Builder

	switch m.state {
	case StateDatasetSelect:
		s.WriteString(TitleStyle.Render(fmt.Sprintf("Harvest - Inventory of %s", m.inventory.Dir)))
		s.WriteString("\n\n")

		if m.err != nil {
			s.WriteString(ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			s.WriteString("\n\n")
		}

		if len(m.datasetList.Items()) == 0 {
			s.WriteString("No datasets stored yet.\n")
		} else {
			s.WriteString(m.datasetList.View())
		}

		s.WriteString("\n")
		s.WriteString(HelpStyle.Render("Press Enter to select, r to rescan, q to quit"))

	case StateSymbolInput:
		s.WriteString(TitleStyle.Render(fmt.Sprintf("Universe for %s / %s", m.dataset.Period, m.dataset.Interval)))
		s.WriteString("\n\n")
		s.WriteString("Enter comma-separated symbols (e.g., THYAO.IS,GARAN.IS):\n\n")
		s.WriteString(m.symbolInput.View())
		s.WriteString("\n\n")

		if m.err != nil {
			s.WriteString(ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			s.WriteString("\n\n")
		}

		s.WriteString(HelpStyle.Render("Press Enter to confirm, Esc to go back"))

	case StateCoverage:
		s.WriteString(TitleStyle.Render(fmt.Sprintf("Coverage - %s / %s", m.dataset.Period, m.dataset.Interval)))
		s.WriteString("\n\n")
		s.WriteString(fmt.Sprintf("Downloaded %d/%d (%.1f%%), %d missing, %s on disk\n\n",
			m.progress.Downloaded, m.progress.Total, m.progress.Percent, len(m.progress.Missing),
			utils.FormatBytes(m.progress.TotalBytes)))
		s.WriteString(m.coverageTable.View())
		s.WriteString("\n")
		s.WriteString(HelpStyle.Render("q: quit | Esc: back | r: rescan"))
	}

	return s.String()
}
