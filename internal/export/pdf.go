package export

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"github.com/pavelanni/leadercheck/internal/scoring"
)

var pdfColumns = []struct {
	title string
	width float64
}{
	{"Name", 50}, {"ID", 30},
	{"PRE date", 25}, {"Plan", 18}, {"Do", 18}, {"See", 18},
	{"POST date", 25}, {"Plan", 18}, {"Do", 18}, {"See", 18},
	{"State", 30},
}

// WritePDF renders the summary as an A4 landscape table. Without a UTF-8
// font, text is limited to the cp1252 range of the core fonts.
func WritePDF(w io.Writer, rows []scoring.AdminRow, opts Options) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	family := "Arial"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if opts.FontPath != "" {
		family = "body"
		pdf.AddUTF8Font(family, "", opts.FontPath)
		pdf.AddUTF8Font(family, "B", opts.FontPath)
		tr = func(s string) string { return s }
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("load pdf font: %w", err)
	}

	pdf.AddPage()
	pdf.SetFont(family, "B", 16)
	pdf.Cell(0, 10, "Plan-Do-See leadership assessment")
	pdf.Ln(8)
	pdf.SetFont(family, "", 10)
	pdf.Cell(0, 8, fmt.Sprintf("Generated %s, %d participants", opts.now().Format("2006-01-02 15:04 MST"), len(rows)))
	pdf.Ln(12)

	header := func() {
		pdf.SetFont(family, "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for _, col := range pdfColumns {
			pdf.CellFormat(col.width, 8, col.title, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont(family, "", 10)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, r := range rows {
		if pdf.GetY()+7 > pageHeight-bottom {
			pdf.AddPage()
			header()
		}
		cells := []string{tr(r.DisplayName), tr(r.Identifier), formatDate(r.PreTakenAt)}
		cells = append(cells, scoreCells(r.Pre)...)
		cells = append(cells, formatDate(r.PostTakenAt))
		cells = append(cells, scoreCells(r.Post)...)
		cells = append(cells, r.State().String())
		for i, text := range cells {
			align := "C"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(pdfColumns[i].width, 7, text, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
