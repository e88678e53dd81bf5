// Package exporter serializes normalized records as a CSV table and a JSON array.
package exporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"outlookflat/internal/models"
)

// Artifact is one serialized output, held in memory until written.
type Artifact struct {
	Path string
	Data []byte
}

// Output is the pair of encoded artifacts for one run.
type Output struct {
	Rows int
	CSV  Artifact
	JSON Artifact
}

// Artifacts returns the CSV and JSON artifacts in write order.
func (o *Output) Artifacts() []Artifact {
	return []Artifact{o.CSV, o.JSON}
}

// Exporter writes records to a CSV path and a JSON path.
type Exporter struct {
	csvPath  string
	jsonPath string
}

// NewExporter creates an exporter for the given output paths.
func NewExporter(csvPath, jsonPath string) *Exporter {
	return &Exporter{csvPath: csvPath, jsonPath: jsonPath}
}

// Encode builds both artifacts in memory without touching the filesystem.
func (e *Exporter) Encode(records []models.Record) (*Output, error) {
	csvData, err := EncodeCSV(records)
	if err != nil {
		return nil, err
	}

	jsonData, err := EncodeJSON(records)
	if err != nil {
		return nil, err
	}

	return &Output{
		Rows: len(records),
		CSV:  Artifact{Path: e.csvPath, Data: csvData},
		JSON: Artifact{Path: e.jsonPath, Data: jsonData},
	}, nil
}

// Export encodes records and writes both files. Nothing is written if
// encoding fails.
func (e *Exporter) Export(records []models.Record) (*Output, error) {
	out, err := e.Encode(records)
	if err != nil {
		return nil, err
	}

	if err := Write(out); err != nil {
		return nil, err
	}

	return out, nil
}

// Write stores every artifact of out, creating parent directories as needed.
func Write(out *Output) error {
	for _, a := range out.Artifacts() {
		if dir := filepath.Dir(a.Path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}

		if err := os.WriteFile(a.Path, a.Data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", a.Path, err)
		}
	}

	return nil
}

// EncodeCSV renders records as a CSV table with a header row.
func EncodeCSV(records []models.Record) ([]byte, error) {
	var buf bytes.Buffer

	w := csv.NewWriter(&buf)

	if err := w.Write(models.Fields); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i := range records {
		cells, err := csvRow(&records[i])
		if err != nil {
			return nil, err
		}

		if err := w.Write(cells); err != nil {
			return nil, fmt.Errorf("failed to write CSV row %d: %w", i, err)
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}

	return buf.Bytes(), nil
}

func csvRow(r *models.Record) ([]string, error) {
	names, err := compactJSON(r.AttachmentNames)
	if err != nil {
		return nil, fmt.Errorf("failed to encode attachment names for %q: %w", r.ID, err)
	}

	return []string{
		r.ID,
		string(r.RecordType),
		r.SenderName,
		r.SenderAddress,
		r.RecipientName,
		r.RecipientAddress,
		r.Subject,
		r.Date,
		r.BodyContent,
		strconv.FormatBool(r.HasAttachment),
		names,
		strconv.FormatBool(r.IsFlagged),
		r.CommunicationFlow,
		r.Summary,
	}, nil
}

// compactJSON encodes names as a single-line JSON array. A nil slice is [].
func compactJSON(names []string) (string, error) {
	if names == nil {
		names = []string{}
	}

	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(names); err != nil {
		return "", err
	}

	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// EncodeJSON renders records as an indented JSON array ending in a newline.
// Non-ASCII text is written verbatim.
func EncodeJSON(records []models.Record) ([]byte, error) {
	if records == nil {
		records = []models.Record{}
	}

	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}

	return buf.Bytes(), nil
}
