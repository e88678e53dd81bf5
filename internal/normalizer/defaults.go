package normalizer

import (
	"strings"

	"outlookflat/internal/models"
)

// NoSubject replaces blank subjects.
const NoSubject = "(no subject)"

// fieldDefaults is the defaulting policy for every field the cleanup passes
// may fill. Fields not listed default to their zero value.
var fieldDefaults = map[string]any{
	models.FieldSubject:         NoSubject,
	models.FieldHasAttachment:   false,
	models.FieldIsFlagged:       false,
	models.FieldAttachmentNames: []string{},
}

func defaultString(field string) string {
	s, _ := fieldDefaults[field].(string)
	return s
}

func defaultBool(field string) bool {
	b, _ := fieldDefaults[field].(bool)
	return b
}

// defaultList returns a fresh copy so rows never share a backing array.
func defaultList(field string) []string {
	l, _ := fieldDefaults[field].([]string)
	return append([]string{}, l...)
}

// row is a record under construction. Values that may be absent in the raw
// item stay optional until coerceFlags and coerceAttachmentNames resolve them.
type row struct {
	record          models.Record
	hasAttachment   optional[bool]
	isFlagged       optional[bool]
	attachmentNames []string
}

// cleanupPasses run once over the whole table, in this order.
var cleanupPasses = []func([]row) []row{
	fillSubject,
	dedupeByID,
	coerceFlags,
	coerceAttachmentNames,
}

func postProcess(rows []row) []models.Record {
	for _, pass := range cleanupPasses {
		rows = pass(rows)
	}

	records := make([]models.Record, len(rows))
	for i := range rows {
		records[i] = rows[i].record
	}

	return records
}

// fillSubject substitutes the placeholder for blank subjects.
func fillSubject(rows []row) []row {
	for i := range rows {
		if strings.TrimSpace(rows[i].record.Subject) == "" {
			rows[i].record.Subject = defaultString(models.FieldSubject)
		}
	}

	return rows
}

// dedupeByID keeps the first row for each id in input order.
func dedupeByID(rows []row) []row {
	seen := make(map[string]struct{}, len(rows))
	kept := rows[:0]

	for _, r := range rows {
		if _, dup := seen[r.record.ID]; dup {
			continue
		}

		seen[r.record.ID] = struct{}{}
		kept = append(kept, r)
	}

	return kept
}

func coerceFlags(rows []row) []row {
	for i := range rows {
		rows[i].record.HasAttachment = rows[i].hasAttachment.or(defaultBool(models.FieldHasAttachment))
		rows[i].record.IsFlagged = rows[i].isFlagged.or(defaultBool(models.FieldIsFlagged))
	}

	return rows
}

// coerceAttachmentNames guarantees a non-nil list so it encodes as [].
func coerceAttachmentNames(rows []row) []row {
	for i := range rows {
		names := rows[i].attachmentNames
		if names == nil {
			names = defaultList(models.FieldAttachmentNames)
		}

		rows[i].record.AttachmentNames = names
	}

	return rows
}
