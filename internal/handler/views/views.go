// Package views holds the HTML pages as templ components. Text goes through
// templ.EscapeString, links through templ.URL and boolean attributes through
// templ.RenderAttributes; pages are composed with templ children.
package views

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/dustin/go-humanize"

	appI18n "github.com/pavelanni/leadercheck/internal/i18n"
	"github.com/pavelanni/leadercheck/internal/model"
	"github.com/pavelanni/leadercheck/internal/scoring"
)

// writer emits markup for one component. The first write error sticks and
// later writes are skipped.
type writer struct {
	ctx context.Context
	out io.Writer
	err error
}

func (w *writer) raw(parts ...string) {
	for _, p := range parts {
		if w.err != nil {
			return
		}
		_, w.err = io.WriteString(w.out, p)
	}
}

func (w *writer) text(s string) {
	w.raw(templ.EscapeString(s))
}

// t writes the escaped translation of msgID.
func (w *writer) t(msgID string) {
	w.text(appI18n.T(w.ctx, msgID))
}

func (w *writer) attr(name, value string) {
	w.raw(" ", name, `="`, templ.EscapeString(value), `"`)
}

// url writes a sanitized link attribute for a path below the base path.
func (w *writer) url(name, path string) {
	w.attr(name, string(templ.URL(model.BasePathFromContext(w.ctx)+path)))
}

func (w *writer) attrs(a templ.Attributer) {
	if w.err == nil {
		w.err = templ.RenderAttributes(w.ctx, w.out, a)
	}
}

func (w *writer) render(c templ.Component) {
	if w.err == nil {
		w.err = c.Render(w.ctx, w.out)
	}
}

// csrfField writes the hidden token input every form posts back.
func (w *writer) csrfField() {
	w.raw(`<input type="hidden" name="csrf_token"`)
	w.attr("value", model.CSRFTokenFromContext(w.ctx))
	w.raw(">")
}

// component adapts a body function to templ.Component.
func component(body func(w *writer)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{ctx: ctx, out: out}
		body(w)
		return w.err
	})
}

// page renders body inside the layout, the way a templ call with children does.
func page(titleID string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		return layout(titleID).Render(templ.WithChildren(ctx, body), out)
	})
}

const stylesheet = `body { font-family: system-ui, sans-serif; margin: 0; background: #f8fafc; color: #0f172a; }
header { display: flex; justify-content: space-between; align-items: center; padding: 0.75rem 1.5rem; background: #1e3a8a; color: #fff; }
header a, header button { color: #fff; }
main { max-width: 60rem; margin: 1.5rem auto; padding: 0 1rem; }
.card { background: #fff; border: 1px solid #e2e8f0; border-radius: 0.75rem; padding: 1.25rem; margin-bottom: 1rem; }
.error { color: #b91c1c; font-weight: 600; }
.muted { color: #64748b; }
.improved { color: #15803d; }
.declined { color: #b91c1c; }
.btn { display: inline-block; padding: 0.5rem 1rem; border-radius: 0.5rem; border: 0; background: #2563eb; color: #fff; text-decoration: none; cursor: pointer; }
.btn[disabled] { background: #94a3b8; cursor: not-allowed; }
table { width: 100%; border-collapse: collapse; }
th, td { padding: 0.5rem; border-bottom: 1px solid #e2e8f0; text-align: left; }
.likert { display: flex; gap: 0.75rem; flex-wrap: wrap; }
.feedback { white-space: pre-wrap; }
.htmx-indicator { display: none; }
.htmx-request .htmx-indicator { display: inline; }
`

func layout(titleID string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		children := templ.GetChildren(ctx)
		ctx = templ.ClearChildren(ctx)
		w := &writer{ctx: ctx, out: out}

		w.raw("<!DOCTYPE html>\n<html")
		w.attr("lang", appI18n.Lang(ctx))
		w.raw(`><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>`)
		w.t(titleID)
		w.raw(" - ")
		w.t("AppTitle")
		w.raw(`</title><script src="https://unpkg.com/htmx.org@2.0.4" crossorigin="anonymous"></script><style>`)
		w.raw(stylesheet)
		w.raw("</style></head><body><header><strong><a")
		w.url("href", "/")
		w.raw(">")
		w.t("AppTitle")
		w.raw("</a></strong>")
		if u := model.UserFromContext(ctx); u != nil {
			w.raw(`<form method="post"`)
			w.url("action", "/logout")
			w.raw("><span>")
			w.text(u.DisplayName)
			w.raw("</span> ")
			w.csrfField()
			w.raw(`<button type="submit" class="btn">`)
			w.t("Logout")
			w.raw("</button></form>")
		}
		w.raw("</header><main>")
		w.render(children)
		w.raw("</main></body></html>")
		return w.err
	})
}

// when formats a timestamp relative to now in English and as a date otherwise.
func when(ctx context.Context, t time.Time) string {
	if appI18n.Lang(ctx) == "en" {
		return humanize.Time(t)
	}
	return t.Local().Format("2006-01-02 15:04")
}

func date(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}

func score(v float64) string {
	return fmt.Sprintf("%.*f", scoring.DetailPrecision, v)
}

func categoryName(ctx context.Context, c model.Category) string {
	return appI18n.T(ctx, "Category"+c.String())
}

func categoryDesc(ctx context.Context, c model.Category) string {
	return appI18n.T(ctx, "Category"+c.String()+"Desc")
}

// StateMessage returns the message ID of a completion state.
func StateMessage(s scoring.CompletionState) string {
	switch s {
	case scoring.StateComplete:
		return "StateComplete"
	case scoring.StateInProgress:
		return "StateInProgress"
	}
	return "StateNotStarted"
}

// Triple formats a summary score set as "Plan / Do / See".
func Triple(s *scoring.ScoreSet) string {
	if s == nil {
		return "-"
	}
	parts := make([]string, 0, model.NumCategories)
	for _, cs := range s {
		parts = append(parts, fmt.Sprintf("%.*f", scoring.SummaryPrecision, cs.Average))
	}
	return strings.Join(parts, " / ")
}
