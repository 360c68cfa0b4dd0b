package main

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/olekukonko/tablewriter"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata/inventory"
	"github.com/rxtech-lab/argo-harvest/pkg/utils"
	"github.com/schollz/progressbar/v3"
)

// progressBar draws download progress. The bar is created on the first update
// because the number of missing symbols is only known once the run started.
type progressBar struct {
	mu  sync.Mutex
	w   io.Writer
	bar *progressbar.ProgressBar
}

func newProgressBar(w io.Writer) *progressBar {
	return &progressBar{mu: sync.Mutex{}, w: w, bar: nil}
}

// Update matches acquisition.OnProgress.
func (p *progressBar) Update(done, total int, symbol string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.w),
			progressbar.OptionSetDescription("Downloading"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(true),
		)
	}

	p.bar.Describe(symbol)
	_ = p.bar.Set(done)
}

// Finish completes the bar, if one was drawn.
func (p *progressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar != nil {
		_ = p.bar.Finish()
		fmt.Fprintln(p.w)
	}
}

func renderProgress(w io.Writer, progress inventory.ProgressReport) {
	fmt.Fprintf(w, "Downloaded %d/%d symbols (%.1f%%), %s on disk\n",
		progress.Downloaded, progress.Total, progress.Percent, utils.FormatBytes(progress.TotalBytes))

	if len(progress.Files) > 0 {
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Symbol", "File", "Size", "Modified"})
		table.SetAutoWrapText(false)

		for _, entry := range progress.Files {
			table.Append([]string{
				entry.Key.Symbol,
				entry.Key.Name(),
				utils.FormatBytes(entry.Size),
				entry.ModTime.Format("2006-01-02 15:04:05"),
			})
		}

		table.Render()
	}

	if progress.IsComplete() {
		fmt.Fprintln(w, "Universe complete.")

		return
	}

	fmt.Fprintf(w, "Missing (%d): %v\n", len(progress.Missing), progress.Missing)
}

func renderCheck(w io.Writer, check marketdata.ArtifactCheck) {
	fmt.Fprintf(w, "%s: %s\n", check.Path, verdict(check.Validation.Passed))
	fmt.Fprintf(w, "  records: %d\n", check.Stats.Records)

	if check.Stats.Records > 0 {
		fmt.Fprintf(w, "  range:   %s to %s\n",
			check.Stats.Start.Format("2006-01-02 15:04:05"), check.Stats.End.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(w, "  close:   %s to %s\n",
			strconv.FormatFloat(check.Stats.MinClose, 'f', 4, 64), strconv.FormatFloat(check.Stats.MaxClose, 'f', 4, 64))
	}

	if len(check.Validation.MissingColumns) > 0 {
		fmt.Fprintf(w, "  missing columns: %v\n", check.Validation.MissingColumns)
	}

	if check.Validation.NonPositiveCloseCount > 0 {
		fmt.Fprintf(w, "  non-positive closes: %d\n", check.Validation.NonPositiveCloseCount)
	}

	if check.Validation.MissingValueCount > 0 {
		fmt.Fprintf(w, "  missing values: %d\n", check.Validation.MissingValueCount)
	}

	switch {
	case check.SidecarErr != nil:
		fmt.Fprintf(w, "  metadata: %v\n", check.SidecarErr)
	case check.Sidecar == nil:
		fmt.Fprintln(w, "  metadata: none")
	default:
		fmt.Fprintf(w, "  metadata: format %s, %s, written %s, stored verdict %s\n",
			check.Sidecar.FormatVersion,
			check.Sidecar.WrittenBy,
			check.Sidecar.WrittenAt.Format("2006-01-02 15:04:05"),
			verdict(check.Sidecar.Validation.Passed),
		)

		if check.ValidationChanged() {
			fmt.Fprintln(w, "  verdict changed since the artifact was written")
		}
	}
}

func verdict(passed bool) string {
	if passed {
		return "OK"
	}

	return "FAILED"
}

func renderProviders(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "Provider", "Auth", "Description"})
	table.SetAutoWrapText(false)

	for _, name := range marketdata.GetSupportedProviders() {
		info, err := marketdata.GetProviderInfo(name)
		if err != nil {
			continue
		}

		auth := "no"
		if info.RequiresAuth {
			auth = "api key"
		}

		table.Append([]string{info.Name, info.DisplayName, auth, info.Description})
	}

	table.Render()
}
