// Package main provides the normalizer command-line tool for flattening a
// mailbox snapshot into CSV and JSON records.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"outlookflat/internal/app"
	"outlookflat/internal/config"
	"outlookflat/internal/pipeline"
	"outlookflat/pkg/metadata"
)

// defaultConfig is loaded when present and no --config is given.
const defaultConfig = "configs/outlook.yaml"

var (
	flagConfig         string
	flagLogLevel       string
	flagVerifyManifest string
)

var rootCmd = &cobra.Command{
	Use:   "normalizer",
	Short: "Flatten inbox, sent and calendar items into one record table",
	Long: `Normalizer reads a mailbox snapshot (inbox_emails, sent_emails,
calendar_events) and writes one uniform row per item as CSV and as a JSON array.

Examples:
  normalizer
  normalizer -i outlook_data.json -o rows.csv --output-json rows.json
  normalizer --preview 10 --manifest manifest.yaml`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runNormalize,
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check outputs against a checksum manifest",
	Args:  cobra.NoArgs,
	RunE:  runVerify,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Path to YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	registerNormalizeFlags(rootCmd.Flags())

	verifyCmd.Flags().StringVar(&flagVerifyManifest, "manifest", "", "Manifest to verify")
	_ = verifyCmd.MarkFlagRequired("manifest")

	rootCmd.AddCommand(verifyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	path := flagConfig
	if path == "" {
		if _, err := os.Stat(defaultConfig); err == nil {
			path = defaultConfig
		}
	}

	return app.LoadConfig(path, flagLogLevel)
}

func runNormalize(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := applyFlags(cfg, cmd.Flags()); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	preview, err := cmd.Flags().GetInt("preview")
	if err != nil {
		return err
	}

	log := app.NewLogger(cfg)

	opts := pipeline.OptionsFromConfig(cfg)
	opts.Preview = preview

	res, err := pipeline.New(log).Run(opts)
	if err != nil {
		return err
	}

	printResult(cmd, res)

	return nil
}

// registerNormalizeFlags defines the run flags. Defaults mirror the
// normalize section of config.Default.
func registerNormalizeFlags(fs *pflag.FlagSet) {
	d := config.Default().Normalize

	fs.StringP("input", "i", d.Input, "Input JSON snapshot")
	fs.StringP("output", "o", d.OutputCSV, "Output CSV file")
	fs.String("output-json", d.OutputJSON, "Output JSON file")
	fs.Int("snippet-words", d.SnippetWords, "Body words included in the summary")
	fs.Bool("html-to-markdown", d.HTMLToMarkdown, "Convert HTML bodies to Markdown")
	fs.Int("preview", 0, "Print the first N rows as a table")
	fs.String("manifest", d.Manifest, "Write a checksum manifest to this path")
}

// applyFlags copies explicitly set flags over cfg.Normalize. Unset flags
// leave the config file values alone.
func applyFlags(cfg *config.Config, fs *pflag.FlagSet) error {
	n := &cfg.Normalize

	stringFlags := []struct {
		name   string
		target *string
	}{
		{"input", &n.Input},
		{"output", &n.OutputCSV},
		{"output-json", &n.OutputJSON},
		{"manifest", &n.Manifest},
	}

	for _, f := range stringFlags {
		if !fs.Changed(f.name) {
			continue
		}

		v, err := fs.GetString(f.name)
		if err != nil {
			return err
		}

		*f.target = v
	}

	if fs.Changed("snippet-words") {
		v, err := fs.GetInt("snippet-words")
		if err != nil {
			return err
		}

		n.SnippetWords = v
	}

	if fs.Changed("html-to-markdown") {
		v, err := fs.GetBool("html-to-markdown")
		if err != nil {
			return err
		}

		n.HTMLToMarkdown = v
	}

	return nil
}

func printResult(cmd *cobra.Command, res *pipeline.Result) {
	out := cmd.OutOrStdout()

	if res.Preview != "" {
		fmt.Fprint(out, res.Preview)
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "Processed rows: %d\n", res.Rows())
	fmt.Fprintf(out, "Saved CSV: %s\n", res.CSVPath)
	fmt.Fprintf(out, "Saved JSON: %s\n", res.JSONPath)

	if res.Manifest != "" {
		fmt.Fprintf(out, "Saved manifest: %s\n", res.Manifest)
	}
}

func runVerify(cmd *cobra.Command, _ []string) error {
	m, err := metadata.Load(flagVerifyManifest)
	if err != nil {
		return err
	}

	if err := metadata.Verify(m); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✅ %d artifacts match %s (%d rows)\n", len(m.Artifacts), flagVerifyManifest, m.Rows)

	return nil
}
