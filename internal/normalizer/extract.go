package normalizer

import (
	"strings"

	"golang.org/x/text/cases"
)

const (
	recipientSeparator = "; "
	flaggedStatus      = "flagged"
)

// dateKeys are the top-level timestamp keys in priority order. Events fall
// back to start.dateTime.
var dateKeys = []string{"receivedDateTime", "sentDateTime"}

// extractSenderIdentity resolves the sender from "from" (messages) or
// "organizer" (events). A set "from" wins even if it unwraps to nothing.
func extractSenderIdentity(item map[string]any) (string, string) {
	for _, key := range []string{"from", "organizer"} {
		if v, ok := item[key]; ok && truthy(v) {
			id := unwrapIdentity(v)
			return id.Name, id.Address
		}
	}

	return "", ""
}

// extractRecipients joins recipient names and addresses from "toRecipients"
// (messages) or "attendees" (events), keeping list order and skipping blanks.
func extractRecipients(item map[string]any) (string, string) {
	list := getList(item, "toRecipients")
	if !list.ok {
		list = getList(item, "attendees")
	}

	if len(list.value) == 0 {
		return "", ""
	}

	var names, addresses []string

	for _, entry := range list.value {
		id := unwrapIdentity(entry)
		if id.Name != "" {
			names = append(names, id.Name)
		}

		if id.Address != "" {
			addresses = append(addresses, id.Address)
		}
	}

	return strings.Join(names, recipientSeparator), strings.Join(addresses, recipientSeparator)
}

// extractDate picks receivedDateTime, then sentDateTime, then start.dateTime.
func extractDate(item map[string]any) string {
	for _, key := range dateKeys {
		if s := getNonEmptyString(item, key); s.ok {
			return s.value
		}
	}

	if start := getMap(item, "start"); start.ok {
		return getNonEmptyString(start.value, "dateTime").or("")
	}

	return ""
}

// bodyText is the chosen body and whether it is HTML taken from body.content.
type bodyText struct {
	content string
	html    bool
}

// extractBody picks bodyPreview, then body.content.
func extractBody(item map[string]any) bodyText {
	if s := getNonEmptyString(item, "bodyPreview"); s.ok {
		return bodyText{content: s.value}
	}

	body := getMap(item, "body")
	if !body.ok {
		return bodyText{}
	}

	content := getNonEmptyString(body.value, "content")
	if !content.ok {
		return bodyText{}
	}

	contentType := getString(body.value, "contentType").or("")

	return bodyText{
		content: content.value,
		html:    strings.EqualFold(contentType, "html"),
	}
}

// extractHasAttachments reads hasAttachments only when it is a real boolean.
func extractHasAttachments(item map[string]any) optional[bool] {
	return getBool(item, "hasAttachments")
}

// extractAttachmentNames returns the non-empty names of attachment objects.
// The result is nil when the item has no attachments array.
func extractAttachmentNames(item map[string]any) []string {
	list := getList(item, "attachments")
	if !list.ok {
		return nil
	}

	names := make([]string, 0, len(list.value))

	for _, entry := range list.value {
		att, ok := entry.(map[string]any)
		if !ok {
			continue
		}

		if name := getNonEmptyString(att, "name"); name.ok {
			names = append(names, name.value)
		}
	}

	return names
}

// extractFlagged reports whether flag.status is "flagged", ignoring case.
// A missing flag object yields an absent value.
func extractFlagged(item map[string]any) optional[bool] {
	flag := getMap(item, "flag")
	if !flag.ok {
		return none[bool]()
	}

	status := getString(flag.value, "status").or("")

	return some(cases.Fold().String(status) == flaggedStatus)
}

// firstNWords returns the first n whitespace-delimited words of text joined
// by single spaces.
func firstNWords(text string, n int) string {
	if text == "" || n <= 0 {
		return ""
	}

	words := strings.Fields(text)
	if len(words) > n {
		words = words[:n]
	}

	return strings.Join(words, " ")
}
