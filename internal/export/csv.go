package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/pavelanni/leadercheck/internal/model"
	"github.com/pavelanni/leadercheck/internal/scoring"
)

const dateLayout = "2006-01-02"

var csvHeader = []string{
	"name", "identifier",
	"pre_date", "pre_plan", "pre_do", "pre_see",
	"post_date", "post_plan", "post_do", "post_see",
	"state",
}

// WriteCSV writes one line per row. Absent dates and scores are empty cells.
func WriteCSV(w io.Writer, rows []scoring.AdminRow, opts Options) error {
	if opts.BOM {
		if _, err := io.WriteString(w, "\ufeff"); err != nil {
			return err
		}
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{r.DisplayName, r.Identifier, formatDate(r.PreTakenAt)}
		record = append(record, scoreCells(r.Pre)...)
		record = append(record, formatDate(r.PostTakenAt))
		record = append(record, scoreCells(r.Post)...)
		record = append(record, r.State().String())
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %s: %w", r.Identifier, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func scoreCells(s *scoring.ScoreSet) []string {
	cells := make([]string, model.NumCategories)
	if s == nil {
		return cells
	}
	for _, c := range model.Categories() {
		cells[c] = formatScore(s.Get(c).Average)
	}
	return cells
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.*f", scoring.SummaryPrecision, v)
}
