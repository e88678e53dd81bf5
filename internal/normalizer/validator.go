package normalizer

import (
	"encoding/json"
	"fmt"

	"outlookflat/internal/models"
)

// InputShapeError reports a document whose top level is not an object, or
// whose collection key holds something other than an array.
type InputShapeError struct {
	// Key is the offending collection key, or "" for the document itself.
	Key string
	// Got is the JSON kind that was found.
	Got string
}

func (e *InputShapeError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("invalid input shape: document must be a JSON object, got %s", e.Got)
	}

	return fmt.Sprintf("invalid input shape: %q must be an array, got %s", e.Key, e.Got)
}

// Validator checks the top-level document shape.
type Validator struct{}

// NewValidator creates a new validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks raw and flattens its collections into one tagged sequence,
// inbox first, then sent, then events. Missing or null collections are empty.
// An element that is not an object becomes an empty item.
func (v *Validator) Validate(raw any) ([]models.TaggedItem, error) {
	doc, ok := raw.(map[string]any)
	if !ok {
		return nil, &InputShapeError{Got: jsonKind(raw)}
	}

	var items []models.TaggedItem

	for _, c := range models.Collections {
		value, present := doc[c.Key]
		if !present || value == nil {
			continue
		}

		list, ok := value.([]any)
		if !ok {
			return nil, &InputShapeError{Key: c.Key, Got: jsonKind(value)}
		}

		for _, entry := range list {
			item, ok := entry.(map[string]any)
			if !ok {
				item = models.RawItem{}
			}

			items = append(items, models.TaggedItem{Item: item, Type: c.Type})
		}
	}

	return items, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}

	return fmt.Sprintf("%T", v)
}
