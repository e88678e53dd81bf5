package models

// RawItem is one untyped object from the mailbox API. Any key may be missing
// or hold an unexpected type.
type RawItem = map[string]any

// Top-level keys of the combined mailbox document.
const (
	KeyInboxEmails    = "inbox_emails"
	KeySentEmails     = "sent_emails"
	KeyCalendarEvents = "calendar_events"
)

// Collection ties a top-level document key to the record type of its items.
type Collection struct {
	Key  string
	Type RecordType
}

// Collections lists the source arrays in the order they are concatenated.
var Collections = []Collection{
	{Key: KeyInboxEmails, Type: RecordTypeInbox},
	{Key: KeySentEmails, Type: RecordTypeSent},
	{Key: KeyCalendarEvents, Type: RecordTypeEvent},
}

// TaggedItem is a RawItem together with the collection it came from.
type TaggedItem struct {
	Item RawItem
	Type RecordType
}
