// Package normalizer flattens inbox messages, sent messages and calendar
// events into one uniform record table.
package normalizer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"outlookflat/internal/models"
)

// ErrInvalidJSON is returned when the input document cannot be decoded.
var ErrInvalidJSON = errors.New("input is not valid JSON")

// Result is the outcome of one normalization run.
type Result struct {
	Records []models.Record
	// InputItems counts items across all collections before deduplication.
	InputItems int
}

// Duplicates is the number of items dropped by id deduplication.
func (r *Result) Duplicates() int {
	return r.InputItems - len(r.Records)
}

// Processor validates the document shape and derives the record table.
type Processor struct {
	validator   *Validator
	transformer *Transformer
}

// NewProcessor creates a processor with default options.
func NewProcessor() *Processor {
	return NewProcessorWithOptions(DefaultOptions())
}

// NewProcessorWithOptions creates a processor with custom options.
func NewProcessorWithOptions(opts Options) *Processor {
	return &Processor{
		validator:   NewValidator(),
		transformer: NewTransformer(opts),
	}
}

// Run normalizes a decoded document. The only error is *InputShapeError.
func (p *Processor) Run(raw any) (*Result, error) {
	items, err := p.validator.Validate(raw)
	if err != nil {
		return nil, err
	}

	rows := make([]row, 0, len(items))
	for _, item := range items {
		rows = append(rows, p.transformer.Transform(item))
	}

	return &Result{
		Records:    postProcess(rows),
		InputItems: len(items),
	}, nil
}

// Normalize runs a default processor over raw and returns only the records.
func Normalize(raw any) ([]models.Record, error) {
	res, err := NewProcessor().Run(raw)
	if err != nil {
		return nil, err
	}

	return res.Records, nil
}

// DecodeDocument parses a complete JSON document. Numbers are kept as
// json.Number so numeric ids keep their exact text.
func DecodeDocument(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after document", ErrInvalidJSON)
	}

	return doc, nil
}
