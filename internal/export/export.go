// Package export writes the administrator summary as CSV, JSON or PDF.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pavelanni/leadercheck/internal/catalog"
	"github.com/pavelanni/leadercheck/internal/model"
	"github.com/pavelanni/leadercheck/internal/scoring"
)

// Format names an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatPDF  Format = "pdf"
)

// ParseFormat accepts csv, json or pdf in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatPDF:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q (want csv, json or pdf)", s)
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatJSON:
		return "application/json"
	case FormatPDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

// Options controls the optional parts of an export.
type Options struct {
	// BOM prefixes CSV output with a UTF-8 byte order mark so spreadsheet
	// tools detect the encoding.
	BOM bool
	// FontPath is a UTF-8 TrueType font used by the PDF writer.
	FontPath string
	// Now stamps the document; zero means time.Now.
	Now time.Time
}

func (o Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now().UTC()
	}
	return o.Now
}

// Write dispatches to the writer for f.
func Write(w io.Writer, f Format, rows []scoring.AdminRow, opts Options) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, rows, opts)
	case FormatJSON:
		return WriteJSON(w, rows, opts)
	case FormatPDF:
		return WritePDF(w, rows, opts)
	}
	return fmt.Errorf("unknown export format %q", f)
}

// Filename returns a dated download name such as leadercheck-2026-03-01.csv.
func Filename(f Format, now time.Time) string {
	return fmt.Sprintf("leadercheck-%s.%s", now.Format(dateLayout), f)
}

// Summary converts admin rows into the JSON export document.
func Summary(rows []scoring.AdminRow, now time.Time) model.SummaryExport {
	out := model.SummaryExport{
		GeneratedAt:  now,
		NumQuestions: catalog.Default().Len(),
		Participants: make([]model.ParticipantRow, 0, len(rows)),
	}
	for _, r := range rows {
		p := model.ParticipantRow{
			Identifier:  r.Identifier,
			DisplayName: r.DisplayName,
			State:       r.State().String(),
			PreTakenAt:  r.PreTakenAt,
			PostTakenAt: r.PostTakenAt,
		}
		if r.Pre != nil {
			p.PreScores = r.Pre.Averages()
		}
		if r.Post != nil {
			p.PostScores = r.Post.Averages()
		}
		out.Participants = append(out.Participants, p)
	}
	return out
}

// WriteJSON writes the summary as an indented JSON document.
func WriteJSON(w io.Writer, rows []scoring.AdminRow, opts Options) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Summary(rows, opts.now())); err != nil {
		return fmt.Errorf("encode json export: %w", err)
	}
	return nil
}
