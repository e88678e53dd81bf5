package normalizer

import (
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"outlookflat/internal/models"
)

// DefaultSnippetWords is the number of body words appended to the summary.
const DefaultSnippetWords = 50

// Options tune record derivation.
type Options struct {
	// SnippetWords bounds the body snippet in the summary.
	SnippetWords int
	// HTMLToMarkdown converts HTML taken from body.content to Markdown text.
	HTMLToMarkdown bool
}

// DefaultOptions returns the standard derivation settings.
func DefaultOptions() Options {
	return Options{SnippetWords: DefaultSnippetWords}
}

// Transformer builds one row per raw item.
type Transformer struct {
	opts Options
}

// NewTransformer creates a transformer with the given options.
func NewTransformer(opts Options) *Transformer {
	if opts.SnippetWords <= 0 {
		opts.SnippetWords = DefaultSnippetWords
	}

	return &Transformer{opts: opts}
}

// Transform derives every field of a single item. It never fails.
func (t *Transformer) Transform(tagged models.TaggedItem) row {
	item := tagged.Item

	senderName, senderAddress := extractSenderIdentity(item)
	recipientName, recipientAddress := extractRecipients(item)
	subject := getString(item, "subject").or("")
	body := t.bodyContent(extractBody(item))

	rec := models.Record{
		ID:               getID(item).or(""),
		RecordType:       tagged.Type,
		SenderName:       senderName,
		SenderAddress:    senderAddress,
		RecipientName:    recipientName,
		RecipientAddress: recipientAddress,
		Subject:          subject,
		Date:             extractDate(item),
		BodyContent:      body,
	}

	rec.CommunicationFlow = strings.TrimSpace(fmt.Sprintf("From: %s To: %s",
		firstNonEmpty(senderName, senderAddress),
		firstNonEmpty(recipientName, recipientAddress),
	))

	rec.Summary = strings.TrimSpace(subject)
	if snippet := firstNWords(body, t.opts.SnippetWords); snippet != "" {
		rec.Summary = strings.TrimSpace(rec.Summary + " | " + snippet)
	}

	return row{
		record:          rec,
		hasAttachment:   extractHasAttachments(item),
		isFlagged:       extractFlagged(item),
		attachmentNames: extractAttachmentNames(item),
	}
}

// bodyContent applies the optional HTML conversion. A failed conversion keeps
// the original content.
func (t *Transformer) bodyContent(body bodyText) string {
	if !t.opts.HTMLToMarkdown || !body.html {
		return body.content
	}

	markdown, err := htmltomarkdown.ConvertString(body.content)
	if err != nil {
		return body.content
	}

	return strings.TrimSpace(markdown)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
