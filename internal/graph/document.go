package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Encode renders doc as indented JSON with a trailing newline. Empty
// collections are written as [].
func (d *Document) Encode() ([]byte, error) {
	out := *d
	for _, list := range []*[]json.RawMessage{&out.InboxEmails, &out.SentEmails, &out.CalendarEvents} {
		if *list == nil {
			*list = []json.RawMessage{}
		}
	}

	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(&out); err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}

	return buf.Bytes(), nil
}

// SaveDocument writes doc to path, creating parent directories.
func SaveDocument(doc *Document, path string) error {
	data, err := doc.Encode()
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}
