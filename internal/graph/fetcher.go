package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"outlookflat/internal/logger"
	"outlookflat/internal/models"
)

// Collection paths.
const (
	InboxPath  = "/me/messages"
	SentPath   = "/me/mailFolders('sentitems')/messages"
	EventsPath = "/me/events"
)

// DefaultPageSize is the $top value when none is configured.
const DefaultPageSize = 100

var (
	inboxFields = []string{
		"id", "subject", "from", "toRecipients", "receivedDateTime", "bodyPreview",
		"importance", "isRead", "hasAttachments", "flag",
	}
	sentFields = []string{
		"id", "subject", "from", "toRecipients", "sentDateTime", "bodyPreview",
		"importance", "hasAttachments", "flag",
	}
	eventFields = []string{
		"id", "subject", "start", "end", "location", "bodyPreview", "importance",
		"isAllDay", "recurrence", "organizer", "attendees",
	}
)

// attachmentsExpand pulls attachment names inline with each message.
const attachmentsExpand = "attachments($select=name)"

// Source fetches every item of a collection.
type Source interface {
	GetAll(ctx context.Context, path string, query url.Values) ([]json.RawMessage, error)
}

// Ensure Client implements Source.
var _ Source = (*Client)(nil)

// FetchOptions control which items are retrieved.
type FetchOptions struct {
	// InboxFilterKeyword restricts inbox messages to subjects containing it.
	// Empty means no filter.
	InboxFilterKeyword string
	// ExpandAttachments requests attachment names with each message.
	ExpandAttachments bool
	// PageSize is the $top value. Non-positive means DefaultPageSize.
	PageSize int
}

// Totals counts the items of each collection.
type Totals struct {
	InboxEmails    int `json:"inbox_emails"`
	SentEmails     int `json:"sent_emails"`
	CalendarEvents int `json:"calendar_events"`
}

// Document is the combined mailbox snapshot consumed by the normalizer.
type Document struct {
	RetrievalTimestamp string            `json:"retrieval_timestamp"`
	TotalItems         Totals            `json:"total_items"`
	InboxEmails        []json.RawMessage `json:"inbox_emails"`
	SentEmails         []json.RawMessage `json:"sent_emails"`
	CalendarEvents     []json.RawMessage `json:"calendar_events"`
}

// Fetcher retrieves the three mailbox collections.
type Fetcher struct {
	source Source
	opts   FetchOptions
	logger *logger.Logger
	now    func() time.Time
}

// NewFetcher creates a fetcher over source.
func NewFetcher(source Source, opts FetchOptions, log *logger.Logger) *Fetcher {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}

	return &Fetcher{
		source: source,
		opts:   opts,
		logger: log,
		now:    time.Now,
	}
}

// FetchInbox retrieves inbox messages, newest first.
func (f *Fetcher) FetchInbox(ctx context.Context) ([]json.RawMessage, error) {
	q := f.messageQuery(inboxFields, "receivedDateTime desc")
	if f.opts.InboxFilterKeyword != "" {
		q.Set("$filter", SubjectContains(f.opts.InboxFilterKeyword))
	}

	return f.fetch(ctx, models.KeyInboxEmails, InboxPath, q)
}

// FetchSent retrieves messages from Sent Items, newest first.
func (f *Fetcher) FetchSent(ctx context.Context) ([]json.RawMessage, error) {
	return f.fetch(ctx, models.KeySentEmails, SentPath, f.messageQuery(sentFields, "sentDateTime desc"))
}

// FetchEvents retrieves calendar events, latest start first.
func (f *Fetcher) FetchEvents(ctx context.Context) ([]json.RawMessage, error) {
	q := f.baseQuery(eventFields, "start/dateTime desc")

	return f.fetch(ctx, models.KeyCalendarEvents, EventsPath, q)
}

// FetchAll retrieves inbox, sent and events in that order. Any failure
// aborts the run; no partial document is returned.
func (f *Fetcher) FetchAll(ctx context.Context) (*Document, error) {
	inbox, err := f.FetchInbox(ctx)
	if err != nil {
		return nil, err
	}

	sent, err := f.FetchSent(ctx)
	if err != nil {
		return nil, err
	}

	events, err := f.FetchEvents(ctx)
	if err != nil {
		return nil, err
	}

	return &Document{
		RetrievalTimestamp: f.now().Format(time.RFC3339),
		TotalItems: Totals{
			InboxEmails:    len(inbox),
			SentEmails:     len(sent),
			CalendarEvents: len(events),
		},
		InboxEmails:    inbox,
		SentEmails:     sent,
		CalendarEvents: events,
	}, nil
}

func (f *Fetcher) fetch(ctx context.Context, key, path string, q url.Values) ([]json.RawMessage, error) {
	f.logger.Info("Fetching collection", "collection", key)

	items, err := f.source.GetAll(ctx, path, q)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", key, err)
	}

	f.logger.Info("Fetched collection", "collection", key, "items", len(items))

	return items, nil
}

func (f *Fetcher) baseQuery(fields []string, orderBy string) url.Values {
	q := url.Values{}
	q.Set("$select", strings.Join(fields, ","))
	q.Set("$orderby", orderBy)
	q.Set("$top", strconv.Itoa(f.opts.PageSize))

	return q
}

func (f *Fetcher) messageQuery(fields []string, orderBy string) url.Values {
	q := f.baseQuery(fields, orderBy)
	if f.opts.ExpandAttachments {
		q.Set("$expand", attachmentsExpand)
	}

	return q
}

// SubjectContains builds an OData filter matching subjects that contain
// keyword. Single quotes are doubled per OData string literal rules.
func SubjectContains(keyword string) string {
	return "contains(subject, '" + strings.ReplaceAll(keyword, "'", "''") + "')"
}
