// Package main provides the unified worker command that fetches a mailbox
// snapshot and normalizes it in one run.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"outlookflat/internal/app"
	"outlookflat/internal/graph"
	"outlookflat/internal/pipeline"
)

const defaultConfig = "configs/outlook.yaml"

var (
	flagConfig   string
	flagLogLevel string
	flagPreview  int
	flagKeep     bool
)

var rootCmd = &cobra.Command{
	Use:   "worker",
	Short: "Fetch the mailbox and write normalized CSV and JSON",
	Long: `Worker runs the fetcher and the normalizer back to back:

  Phase 1: retrieval (inbox, sent, calendar)
  Phase 2: normalization and export

Output paths come from the fetch and normalize sections of the config.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runWorker,
}

func init() {
	rootCmd.Flags().StringVarP(&flagConfig, "config", "c", "", "Path to YAML configuration file")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().IntVar(&flagPreview, "preview", 0, "Print the first N rows as a table")
	rootCmd.Flags().BoolVar(&flagKeep, "keep-snapshot", true, "Save the raw snapshot to fetch.output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func runWorker(cmd *cobra.Command, _ []string) error {
	path := flagConfig
	if path == "" {
		if _, err := os.Stat(defaultConfig); err == nil {
			path = defaultConfig
		}
	}

	cfg, err := app.LoadConfig(path, flagLogLevel)
	if err != nil {
		return err
	}

	log := app.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	startTime := time.Now()

	// Phase 1: Retrieval
	log.Info("Phase 1: Retrieval...")

	fetcher, err := app.NewFetcher(ctx, cfg, log)
	if err != nil {
		return err
	}

	doc, err := fetcher.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	data, err := doc.Encode()
	if err != nil {
		return err
	}

	if flagKeep {
		if err := graph.SaveDocument(doc, cfg.Fetch.Output); err != nil {
			return err
		}

		log.Info("Saved snapshot", "path", cfg.Fetch.Output)
	}

	// Phase 2: Normalization
	log.Info("Phase 2: Normalization...")

	opts := pipeline.OptionsFromConfig(cfg)
	opts.Preview = flagPreview

	res, err := pipeline.New(log).RunBytes(data, opts, startTime)
	if err != nil {
		return fmt.Errorf("normalization failed: %w", err)
	}

	out := cmd.OutOrStdout()

	if res.Preview != "" {
		fmt.Fprint(out, res.Preview)
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, "------------------------------------------------")
	fmt.Fprintf(out, "Fetched items: %d inbox, %d sent, %d events\n",
		doc.TotalItems.InboxEmails, doc.TotalItems.SentEmails, doc.TotalItems.CalendarEvents)
	fmt.Fprintf(out, "Processed rows: %d (%d duplicates dropped)\n", res.Rows(), res.Duplicates)
	fmt.Fprintf(out, "Saved CSV: %s\n", res.CSVPath)
	fmt.Fprintf(out, "Saved JSON: %s\n", res.JSONPath)
	fmt.Fprintf(out, "Total Duration: %v\n", time.Since(startTime).Round(time.Millisecond))
	fmt.Fprintln(out, "------------------------------------------------")

	return nil
}
