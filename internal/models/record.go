// Package models defines the raw and normalized mailbox records.
package models

// RecordType identifies which source collection a record was drawn from.
type RecordType string

// Record types, one per source collection.
const (
	RecordTypeInbox RecordType = "inbox"
	RecordTypeSent  RecordType = "sent"
	RecordTypeEvent RecordType = "event"
)

// Field names of a Record, in output column order.
const (
	FieldID                = "id"
	FieldRecordType        = "record_type"
	FieldSenderName        = "sender_name"
	FieldSenderAddress     = "sender_address"
	FieldRecipientName     = "recipient_name"
	FieldRecipientAddress  = "recipient_address"
	FieldSubject           = "subject"
	FieldDate              = "date"
	FieldBodyContent       = "body_content"
	FieldHasAttachment     = "has_attachment"
	FieldAttachmentNames   = "attachment_names"
	FieldIsFlagged         = "is_flagged"
	FieldCommunicationFlow = "communication_flow"
	FieldSummary           = "summary"
)

// Fields lists every Record column in output order.
var Fields = []string{
	FieldID,
	FieldRecordType,
	FieldSenderName,
	FieldSenderAddress,
	FieldRecipientName,
	FieldRecipientAddress,
	FieldSubject,
	FieldDate,
	FieldBodyContent,
	FieldHasAttachment,
	FieldAttachmentNames,
	FieldIsFlagged,
	FieldCommunicationFlow,
	FieldSummary,
}

// Record is one flattened row: an inbox message, a sent message or a calendar event.
// Struct field order matches Fields so JSON keys come out in column order.
type Record struct {
	ID                string     `json:"id"`
	RecordType        RecordType `json:"record_type"`
	SenderName        string     `json:"sender_name"`
	SenderAddress     string     `json:"sender_address"`
	RecipientName     string     `json:"recipient_name"`
	RecipientAddress  string     `json:"recipient_address"`
	Subject           string     `json:"subject"`
	Date              string     `json:"date"`
	BodyContent       string     `json:"body_content"`
	HasAttachment     bool       `json:"has_attachment"`
	AttachmentNames   []string   `json:"attachment_names"`
	IsFlagged         bool       `json:"is_flagged"`
	CommunicationFlow string     `json:"communication_flow"`
	Summary           string     `json:"summary"`
}
