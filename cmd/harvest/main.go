package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rxtech-lab/argo-harvest/internal/config"
	"github.com/rxtech-lab/argo-harvest/internal/version"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata"
	"github.com/urfave/cli/v3"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "harvest",
		Usage:   "Incrementally download historical OHLCV data for a universe of symbols",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the config file. Missing files are ignored unless the flag is given.",
				Value:   config.DefaultPath,
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override the configured log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "download",
				Usage:  "Download every symbol that is not stored yet and write the summary report",
				Flags:  append(downloadFlags(), &cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Hide the progress bar"}),
				Action: downloadAction,
			},
			{
				Name:   "progress",
				Usage:  "Show how much of the universe is already stored",
				Flags:  downloadFlags(),
				Action: progressAction,
			},
			{
				Name:      "validate",
				Usage:     "Re-run the quality checks on stored artifacts",
				ArgsUsage: "<artifact> [artifact...]",
				Action:    validateAction,
			},
			{
				Name:  "schedule",
				Usage: "Run downloads on the configured cron schedule until interrupted",
				Flags: append(downloadFlags(),
					&cli.StringFlag{Name: "cron", Usage: "Cron spec, overrides schedule.cron"},
					&cli.BoolFlag{Name: "run-on-start", Usage: "Run once before waiting for the first trigger"},
				),
				Action: scheduleAction,
			},
			{
				Name:  "schema",
				Usage: "Print the JSON schema of the config file",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "download", Usage: "Print the schema of the download section only"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write the schema to a file instead of stdout"},
				},
				Action: schemaAction,
			},
			{
				Name:   "browse",
				Usage:  "Browse stored datasets and their coverage interactively",
				Flags:  []cli.Flag{&cli.StringSliceFlag{Name: "symbols", Aliases: []string{"s"}, Usage: "Universe to check coverage for"}},
				Action: browseAction,
			},
			{
				Name:   "providers",
				Usage:  "List the supported market data providers",
				Action: providersAction,
			},
		},
	}
}

// downloadFlags override the download section and provider of the config file.
func downloadFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "symbols",
			Aliases: []string{"s"},
			Usage:   "Symbols to download, e.g. THYAO.IS,GARAN.IS",
		},
		&cli.StringFlag{
			Name:    "period",
			Aliases: []string{"p"},
			Usage:   "Lookback window such as 1y, 6mo, ytd or max",
		},
		&cli.StringFlag{
			Name:    "interval",
			Aliases: []string{"i"},
			Usage:   "Bar interval such as 1d, 1h or 1wk",
		},
		&cli.StringFlag{
			Name:  "provider",
			Usage: fmt.Sprintf("Data provider to use (%v)", marketdata.GetSupportedProviders()),
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "Artifact format (csv or parquet)",
		},
		&cli.StringFlag{
			Name:  "json",
			Usage: `Download section as JSON, e.g. '{"symbols":["AAPL"],"period":"1y","interval":"1d"}'`,
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		stop()
		log.Fatal(err)
	}
}
