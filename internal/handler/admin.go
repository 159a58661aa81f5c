package handler

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pavelanni/leadercheck/internal/export"
	"github.com/pavelanni/leadercheck/internal/handler/views"
	"github.com/pavelanni/leadercheck/internal/scoring"
)

func (h *Handler) adminRows(r *http.Request) ([]scoring.AdminRow, error) {
	records, err := h.store.ListUsersWithAssessments(r.Context())
	if err != nil {
		return nil, err
	}
	return scoring.SummarizeRecords(records, h.catalog), nil
}

func (h *Handler) handleAdminPage(w http.ResponseWriter, r *http.Request) {
	rows, err := h.adminRows(r)
	if err != nil {
		h.serverError(w, r, "list users", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.AdminPage(views.AdminData{Rows: rows, GeneratedAt: time.Now()}).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

// handleExport streams the summary in format f. The body is built in memory
// first so a failed export still yields a proper error status.
func (h *Handler) handleExport(f export.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := h.adminRows(r)
		if err != nil {
			h.serverError(w, r, "list users", err)
			return
		}

		now := time.Now()
		var buf bytes.Buffer
		opts := export.Options{BOM: true, FontPath: h.config.Export.PDFFont, Now: now}
		if err := export.Write(&buf, f, rows, opts); err != nil {
			h.serverError(w, r, "export "+string(f), err)
			return
		}

		w.Header().Set("Content-Type", f.ContentType())
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(f, now)))
		if _, err := w.Write(buf.Bytes()); err != nil {
			slog.Error("write export", "error", err)
		}
		slog.Info("exported summary", "format", f, "rows", len(rows))
	}
}
