// Package main provides the fetcher command-line tool for downloading inbox,
// sent and calendar items into one JSON snapshot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"outlookflat/internal/app"
	"outlookflat/internal/config"
	"outlookflat/internal/graph"
)

const defaultConfig = "configs/outlook.yaml"

var (
	flagConfig   string
	flagLogLevel string
	flagOutput   string
	flagKeyword  string
	flagExpand   bool
)

var rootCmd = &cobra.Command{
	Use:   "fetcher",
	Short: "Download inbox, sent and calendar items from the mailbox API",
	Long: `Fetcher signs in with the configured account, retrieves inbox messages
matching the subject keyword, all sent messages and all calendar events, and
saves them as one JSON snapshot for the normalizer.

Examples:
  fetcher -c configs/outlook.yaml
  fetcher --keyword budget -o data/outlook_data.json`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runFetch,
}

func init() {
	d := config.Default().Fetch

	rootCmd.Flags().StringVarP(&flagConfig, "config", "c", "", "Path to YAML configuration file")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", d.Output, "Output JSON snapshot")
	rootCmd.Flags().StringVar(&flagKeyword, "keyword", d.InboxFilterKeyword, "Inbox subject keyword (empty for all)")
	rootCmd.Flags().BoolVar(&flagExpand, "expand-attachments", false, "Include attachment names with messages")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func runFetch(cmd *cobra.Command, _ []string) error {
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

	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Fetch.Output = flagOutput
	}

	if flags.Changed("keyword") {
		cfg.Fetch.InboxFilterKeyword = flagKeyword
	}

	if flags.Changed("expand-attachments") {
		cfg.Fetch.ExpandAttachments = flagExpand
	}

	log := app.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()

	log.Info("🚀 Starting retrieval", "endpoint", cfg.Graph.Endpoint(), "user", cfg.Auth.Username)

	fetcher, err := app.NewFetcher(ctx, cfg, log)
	if err != nil {
		return err
	}

	doc, err := fetcher.FetchAll(ctx)
	if err != nil {
		return err
	}

	if err := graph.SaveDocument(doc, cfg.Fetch.Output); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Inbox emails: %d\n", doc.TotalItems.InboxEmails)
	fmt.Fprintf(out, "Sent emails: %d\n", doc.TotalItems.SentEmails)
	fmt.Fprintf(out, "Calendar events: %d\n", doc.TotalItems.CalendarEvents)
	fmt.Fprintf(out, "Saved snapshot: %s (%v)\n", cfg.Fetch.Output, time.Since(start).Round(time.Millisecond))

	return nil
}
