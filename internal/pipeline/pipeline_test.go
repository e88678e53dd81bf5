package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"outlookflat/internal/config"
	"outlookflat/internal/logger"
	"outlookflat/internal/models"
	"outlookflat/internal/normalizer"
	"outlookflat/pkg/metadata"
)

const snapshot = `{
  "retrieval_timestamp": "2024-01-02T00:00:00",
  "inbox_emails": [
    {"id": "1", "subject": "Re: wisp update",
     "from": {"emailAddress": {"name": "Alice", "address": "a@x.com"}},
     "toRecipients": [{"emailAddress": {"name": "Bob", "address": "b@x.com"}}],
     "receivedDateTime": "2024-01-01T10:00:00Z", "bodyPreview": "Hello Bob, quick update."},
    {"id": "1", "subject": "duplicate"}
  ],
  "sent_emails": [{"id": "2", "sentDateTime": "2024-01-01T11:00:00Z"}],
  "calendar_events": [{"id": "3", "start": {"dateTime": "2024-01-05T09:00:00"}}]
}`

func writeInput(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, "outlook_data.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write input: %v", err)
	}

	return path
}

func testOptions(dir, input string) Options {
	return Options{
		Input:      input,
		OutputCSV:  filepath.Join(dir, "out.csv"),
		OutputJSON: filepath.Join(dir, "out.json"),
		Normalize:  normalizer.DefaultOptions(),
	}
}

func TestPipeline_Run(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions(dir, writeInput(t, dir, snapshot))
	opts.Manifest = filepath.Join(dir, "manifest.yaml")
	opts.Preview = 2

	res, err := New(logger.Discard()).Run(opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Rows() != 3 || res.InputItems != 4 || res.Duplicates != 1 {
		t.Errorf("rows=%d input=%d duplicates=%d, want 3/4/1", res.Rows(), res.InputItems, res.Duplicates)
	}

	jsonData, err := os.ReadFile(opts.OutputJSON)
	if err != nil {
		t.Fatalf("failed to read JSON output: %v", err)
	}

	var records []models.Record
	if err := json.Unmarshal(jsonData, &records); err != nil {
		t.Fatalf("JSON output is invalid: %v", err)
	}

	if len(records) != 3 || records[0].Summary != "Re: wisp update | Hello Bob, quick update." {
		t.Errorf("unexpected records: %+v", records)
	}

	csvData, err := os.ReadFile(opts.OutputCSV)
	if err != nil {
		t.Fatalf("failed to read CSV output: %v", err)
	}

	if lines := strings.Count(string(csvData), "\n"); lines != 4 {
		t.Errorf("CSV lines = %d, want 4", lines)
	}

	m, err := metadata.Load(opts.Manifest)
	if err != nil {
		t.Fatalf("failed to load manifest: %v", err)
	}

	if m.Rows != 3 || len(m.Artifacts) != 2 {
		t.Errorf("unexpected manifest: %+v", m)
	}

	if err := metadata.Verify(m); err != nil {
		t.Errorf("manifest should verify: %v", err)
	}

	if !strings.Contains(res.Preview, "From: Alice To: Bob") {
		t.Errorf("preview missing first row:\n%s", res.Preview)
	}
}

func TestPipeline_Run_Repeatable(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions(dir, writeInput(t, dir, snapshot))
	p := New(logger.Discard())

	if _, err := p.Run(opts); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	firstCSV, _ := os.ReadFile(opts.OutputCSV)
	firstJSON, _ := os.ReadFile(opts.OutputJSON)

	if _, err := p.Run(opts); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	secondCSV, _ := os.ReadFile(opts.OutputCSV)
	secondJSON, _ := os.ReadFile(opts.OutputJSON)

	if !bytes.Equal(firstCSV, secondCSV) || !bytes.Equal(firstJSON, secondJSON) {
		t.Error("repeated runs should produce byte-identical outputs")
	}
}

func TestPipeline_Run_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		missing bool
		check   func(error) bool
	}{
		{
			name:    "Missing input",
			missing: true,
			check:   func(err error) bool { return errors.Is(err, ErrInputNotFound) },
		},
		{
			name:    "Invalid JSON",
			content: `{"inbox_emails": [`,
			check:   func(err error) bool { return errors.Is(err, normalizer.ErrInvalidJSON) },
		},
		{
			name:    "Wrong shape",
			content: `{"inbox_emails": "nope"}`,
			check: func(err error) bool {
				var shapeErr *normalizer.InputShapeError
				return errors.As(err, &shapeErr)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()

			input := filepath.Join(dir, "absent.json")
			if !tt.missing {
				input = writeInput(t, dir, tt.content)
			}

			opts := testOptions(dir, input)
			opts.Manifest = filepath.Join(dir, "manifest.yaml")

			_, err := New(logger.Discard()).Run(opts)
			if err == nil || !tt.check(err) {
				t.Fatalf("Run() error = %v", err)
			}

			for _, path := range []string{opts.OutputCSV, opts.OutputJSON, opts.Manifest} {
				if _, statErr := os.Stat(path); !errors.Is(statErr, os.ErrNotExist) {
					t.Errorf("%s should not be written on failure", filepath.Base(path))
				}
			}
		})
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Normalize.SnippetWords = 7
	cfg.Normalize.HTMLToMarkdown = true
	cfg.Normalize.Manifest = "m.yaml"

	opts := OptionsFromConfig(cfg)

	if opts.Input != "outlook_data.json" || opts.OutputCSV != "outlook_data_processed.csv" || opts.OutputJSON != "outlook_data_processed.json" {
		t.Errorf("unexpected paths: %+v", opts)
	}

	if opts.Normalize.SnippetWords != 7 || !opts.Normalize.HTMLToMarkdown || opts.Manifest != "m.yaml" {
		t.Errorf("unexpected options: %+v", opts)
	}
}
