package integration

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"outlookflat/internal/logger"
	"outlookflat/internal/models"
	"outlookflat/internal/normalizer"
	"outlookflat/internal/pipeline"
)

func TestNormalizer_Fixture(t *testing.T) {
	// Path to fixture
	fixturePath := filepath.Join("..", "fixtures", "outlook_data.json")

	dir := t.TempDir()
	opts := pipeline.Options{
		Input:      fixturePath,
		OutputCSV:  filepath.Join(dir, "outlook_data_processed.csv"),
		OutputJSON: filepath.Join(dir, "outlook_data_processed.json"),
		Normalize:  normalizer.Options{HTMLToMarkdown: true},
	}

	res, err := pipeline.New(logger.Discard()).Run(opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// 8 input items, one duplicate id.
	if res.InputItems != 8 || res.Rows() != 7 {
		t.Fatalf("input=%d rows=%d, want 8/7", res.InputItems, res.Rows())
	}

	byID := map[string]models.Record{}
	for _, r := range res.Records {
		byID[r.ID] = r
	}

	first := byID["AAMkInbox1"]
	if first.Subject != "Re: wisp update" || !first.IsFlagged || !first.HasAttachment {
		t.Errorf("first inbox record = %+v", first)
	}

	if first.RecipientName != "Bob" || first.RecipientAddress != "bob@contoso.com; team@contoso.com" {
		t.Errorf("recipients = %q / %q", first.RecipientName, first.RecipientAddress)
	}

	if len(first.AttachmentNames) != 2 || first.AttachmentNames[1] != "metrics.xlsx" {
		t.Errorf("attachment names = %v", first.AttachmentNames)
	}

	html := byID["AAMkInbox2"]
	if html.Subject != normalizer.NoSubject || html.BodyContent != "Your **wisp** report is ready." {
		t.Errorf("html record = %+v", html)
	}

	if html.CommunicationFlow != "From: noreply@contoso.com To: Bob" || html.IsFlagged {
		t.Errorf("html record flow/flag = %q / %v", html.CommunicationFlow, html.IsFlagged)
	}

	flat := byID["AAMkInbox3"]
	if flat.SenderName != "Yuki" || flat.RecipientName != "" || flat.Summary != "wisp 日本語の件名 | こんにちは" {
		t.Errorf("flat identity record = %+v", flat)
	}

	if byID["42"].RecordType != models.RecordTypeSent {
		t.Errorf("numeric id record = %+v", byID["42"])
	}

	event := byID["AAMkEvent1"]
	if event.Date != "2024-03-05T09:00:00.0000000" || event.CommunicationFlow != "From: Carol To: Alice; Bob" {
		t.Errorf("event record = %+v", event)
	}

	corrupt := byID[""]
	if corrupt.RecordType != models.RecordTypeEvent || corrupt.Subject != normalizer.NoSubject {
		t.Errorf("corrupt entry record = %+v", corrupt)
	}

	// Both outputs carry the same rows.
	csvFile, err := os.Open(opts.OutputCSV)
	if err != nil {
		t.Fatalf("failed to open CSV: %v", err)
	}
	defer csvFile.Close()

	rows, err := csv.NewReader(csvFile).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV: %v", err)
	}

	jsonData, err := os.ReadFile(opts.OutputJSON)
	if err != nil {
		t.Fatalf("failed to read JSON: %v", err)
	}

	var records []models.Record
	if err := json.Unmarshal(jsonData, &records); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}

	if len(rows)-1 != len(records) || len(records) != res.Rows() {
		t.Errorf("CSV rows = %d, JSON rows = %d, want %d", len(rows)-1, len(records), res.Rows())
	}
}
