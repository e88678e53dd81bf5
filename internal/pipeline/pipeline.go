// Package pipeline runs one normalization pass: read the mailbox snapshot,
// flatten it, and write the CSV and JSON outputs.
package pipeline

import (
	"errors"
	"fmt"
	"os"
	"time"

	"outlookflat/internal/config"
	"outlookflat/internal/exporter"
	"outlookflat/internal/formatter"
	"outlookflat/internal/logger"
	"outlookflat/internal/models"
	"outlookflat/internal/normalizer"
	"outlookflat/pkg/metadata"
)

// ErrInputNotFound is returned when the input snapshot does not exist.
var ErrInputNotFound = errors.New("input file not found")

// Options describe one run.
type Options struct {
	Input      string
	OutputCSV  string
	OutputJSON string
	// Manifest, when set, receives a YAML checksum manifest of both outputs.
	Manifest string
	// Preview renders the first Preview rows as a table in Result.Preview.
	Preview   int
	Normalize normalizer.Options
}

// OptionsFromConfig builds run options from the normalize section.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Input:      cfg.Normalize.Input,
		OutputCSV:  cfg.Normalize.OutputCSV,
		OutputJSON: cfg.Normalize.OutputJSON,
		Manifest:   cfg.Normalize.Manifest,
		Normalize: normalizer.Options{
			SnippetWords:   cfg.Normalize.SnippetWords,
			HTMLToMarkdown: cfg.Normalize.HTMLToMarkdown,
		},
	}
}

// Result reports what a run produced.
type Result struct {
	Records    []models.Record
	InputItems int
	Duplicates int
	CSVPath    string
	JSONPath   string
	Manifest   string
	Preview    string
	Duration   time.Duration
}

// Rows is the number of records written to each output.
func (r *Result) Rows() int {
	return len(r.Records)
}

// Pipeline runs normalization passes.
type Pipeline struct {
	logger *logger.Logger
}

// New creates a pipeline that logs run-level progress to log.
func New(log *logger.Logger) *Pipeline {
	return &Pipeline{logger: log}
}

// Run reads opts.Input and writes both outputs. On any error nothing is
// written.
func (p *Pipeline) Run(opts Options) (*Result, error) {
	start := time.Now()

	data, err := os.ReadFile(opts.Input)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, opts.Input)
		}

		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	p.logger.Debug("Read input", "path", opts.Input, "bytes", len(data))

	return p.RunBytes(data, opts, start)
}

// RunBytes normalizes an in-memory snapshot and writes both outputs.
func (p *Pipeline) RunBytes(data []byte, opts Options, start time.Time) (*Result, error) {
	raw, err := normalizer.DecodeDocument(data)
	if err != nil {
		return nil, err
	}

	norm, err := normalizer.NewProcessorWithOptions(opts.Normalize).Run(raw)
	if err != nil {
		return nil, err
	}

	p.logger.Info("Normalized records",
		"input_items", norm.InputItems,
		"rows", len(norm.Records),
		"duplicates", norm.Duplicates(),
	)

	exp := exporter.NewExporter(opts.OutputCSV, opts.OutputJSON)

	out, err := exp.Export(norm.Records)
	if err != nil {
		return nil, fmt.Errorf("failed to export outputs: %w", err)
	}

	if opts.Manifest != "" {
		manifest := metadata.NewManifest(out.Rows)
		for _, a := range out.Artifacts() {
			manifest.Add(a.Path, a.Data)
		}

		if err := manifest.Write(opts.Manifest); err != nil {
			return nil, err
		}

		p.logger.Info("Wrote manifest", "path", opts.Manifest)
	}

	res := &Result{
		Records:    norm.Records,
		InputItems: norm.InputItems,
		Duplicates: norm.Duplicates(),
		CSVPath:    opts.OutputCSV,
		JSONPath:   opts.OutputJSON,
		Manifest:   opts.Manifest,
		Duration:   time.Since(start),
	}

	if opts.Preview > 0 {
		res.Preview = formatter.Preview(norm.Records, opts.Preview, formatter.DefaultCellWidth)
	}

	p.logger.Info("Saved outputs", "csv", opts.OutputCSV, "json", opts.OutputJSON, "duration", res.Duration)

	return res, nil
}
