package export

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pavelanni/leadercheck/internal/catalog"
	"github.com/pavelanni/leadercheck/internal/model"
	"github.com/pavelanni/leadercheck/internal/scoring"
)

func sampleRows() []scoring.AdminRow {
	t0 := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	t1 := time.Date(2026, 3, 15, 17, 0, 0, 0, time.UTC)
	pre := model.ResponseSet{1: 4, 2: 4, 3: 3, 4: 5, 5: 4, 6: 4, 7: 2, 8: 2, 9: 1}
	post := model.ResponseSet{1: 5, 2: 5, 3: 5, 4: 5, 5: 5, 6: 5, 7: 3, 8: 3, 9: 3}
	records := []model.UserRecord{
		{User: model.User{Identifier: "1001", DisplayName: "Kim, Minji"}, Assessments: []model.Assessment{
			{Kind: model.KindPre, Responses: pre, TakenAt: t0},
			{Kind: model.KindPost, Responses: post, TakenAt: t1},
		}},
		{User: model.User{Identifier: "1002", DisplayName: "Lee"}, Assessments: []model.Assessment{
			{Kind: model.KindPre, Responses: pre, TakenAt: t0},
		}},
		{User: model.User{Identifier: "1003", DisplayName: "Park"}},
	}
	return scoring.SummarizeRecords(records, catalog.Default())
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleRows(), Options{}); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		"name,identifier,pre_date,pre_plan,pre_do,pre_see,post_date,post_plan,post_do,post_see,state",
		`"Kim, Minji",1001,2026-03-01,3.7,4.3,1.7,2026-03-15,5.0,5.0,3.0,complete`,
		"Lee,1002,2026-03-01,3.7,4.3,1.7,,,,,in_progress",
		"Park,1003,,,,,,,,,not_started",
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d:\n%s", len(want), len(lines), buf.String())
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d:\n got %s\nwant %s", i, lines[i], want[i])
		}
	}
}

func TestWriteCSVBOM(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil, Options{BOM: true}); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte{0xEF, 0xBB, 0xBF}) {
		t.Errorf("expected UTF-8 BOM, got % x", buf.Bytes()[:3])
	}
	if got := strings.Count(buf.String(), "\n"); got != 1 {
		t.Errorf("expected header only, got %d lines", got)
	}
}

func TestWriteJSON(t *testing.T) {
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleRows(), Options{Now: now}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var doc model.SummaryExport
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !doc.GeneratedAt.Equal(now) || doc.NumQuestions != 9 {
		t.Errorf("unexpected header %+v", doc)
	}
	if len(doc.Participants) != 3 {
		t.Fatalf("expected 3 participants, got %d", len(doc.Participants))
	}
	first := doc.Participants[0]
	if first.State != "complete" || first.PostScores["See"] != 3 || first.PreScores["Plan"] != 3.7 {
		t.Errorf("unexpected first participant %+v", first)
	}
	last := doc.Participants[2]
	if last.PreScores != nil || last.PreTakenAt != nil {
		t.Errorf("absent values should be omitted, got %+v", last)
	}
	if strings.Contains(buf.String(), `"pre_scores": null`) {
		t.Error("absent scores should be omitted, not null")
	}
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, sampleRows(), Options{}); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Errorf("output is not a PDF")
	}
}

func TestWritePDFManyRowsPaginates(t *testing.T) {
	var rows []scoring.AdminRow
	for i := 0; i < 80; i++ {
		rows = append(rows, scoring.AdminRow{Identifier: "x", DisplayName: "Participant"})
	}
	var buf bytes.Buffer
	if err := WritePDF(&buf, rows, Options{}); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	if n := bytes.Count(buf.Bytes(), []byte("/Type /Page\n")); n < 2 {
		t.Errorf("expected multiple pages, got %d", n)
	}
}

func TestWritePDFMissingFont(t *testing.T) {
	var buf bytes.Buffer
	err := WritePDF(&buf, sampleRows(), Options{FontPath: filepath.Join(t.TempDir(), "missing.ttf")})
	if err == nil {
		t.Error("expected error for missing font")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"csv", FormatCSV, false},
		{" JSON ", FormatJSON, false},
		{"Pdf", FormatPDF, false},
		{"xlsx", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestFilename(t *testing.T) {
	got := Filename(FormatPDF, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	if got != "leadercheck-2026-03-01.pdf" {
		t.Errorf("Filename = %q", got)
	}
}
