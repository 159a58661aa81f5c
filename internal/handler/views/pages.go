package views

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"

	appI18n "github.com/pavelanni/leadercheck/internal/i18n"
	"github.com/pavelanni/leadercheck/internal/model"
	"github.com/pavelanni/leadercheck/internal/scoring"
)

// LoginData fills the login form. Error is a message ID.
type LoginData struct {
	Name        string
	Identifier  string
	Error       string
	AskPassword bool
}

func LoginPage(d LoginData) templ.Component {
	return page("Login", component(func(w *writer) {
		w.raw(`<div class="card"><h1>`)
		w.t("AppTitle")
		w.raw(`</h1><p class="muted">`)
		w.t("AppSubtitle")
		w.raw("</p>")
		if d.Error != "" {
			w.raw(`<p class="error">`)
			w.t(d.Error)
			w.raw("</p>")
		}
		w.raw(`<form method="post"`)
		w.url("action", "/login")
		w.raw(">")
		w.csrfField()

		w.raw(`<p><label for="name">`)
		w.t("Name")
		w.raw(`</label><br><input id="name" name="name"`)
		w.attr("value", d.Name)
		w.attr("placeholder", appI18n.T(w.ctx, "NamePlaceholder"))
		w.raw(" required></p>")

		w.raw(`<p><label for="identifier">`)
		w.t("Identifier")
		w.raw(`</label><br><input id="identifier" name="identifier"`)
		w.attr("value", d.Identifier)
		w.attr("placeholder", appI18n.T(w.ctx, "IdentifierPlaceholder"))
		w.raw(` inputmode="numeric" pattern="[0-9]+" required><br><small class="muted">`)
		w.t("IdentifierHint")
		w.raw("</small></p>")

		if d.AskPassword {
			w.raw(`<p><label for="password">`)
			w.t("AdminPassword")
			w.raw(`</label><br><input id="password" name="password" type="password" autocomplete="current-password"></p>`)
		}
		w.raw(`<button type="submit" class="btn">`)
		w.t("Login")
		w.raw("</button></form></div>")
	}))
}

// DashboardData describes the signed-in user's progress.
type DashboardData struct {
	User *model.User
	Pre  *model.Assessment
	Post *model.Assessment
}

func DashboardPage(d DashboardData) templ.Component {
	return page("DashboardTitle", component(func(w *writer) {
		w.raw("<h1>")
		w.text(appI18n.Td(w.ctx, "Greeting", map[string]any{"Name": d.User.DisplayName}))
		w.raw(`</h1><p class="muted">`)
		w.t("DashboardTitle")
		w.raw("</p>")
		if d.User.IsPrivileged {
			w.raw(`<p><a class="btn"`)
			w.url("href", "/admin")
			w.raw(">")
			w.t("AdminDashboard")
			w.raw("</a></p>")
		}

		w.raw(`<div class="card"><h2>`)
		w.t("PreAssessment")
		w.raw("</h2><p>")
		w.t("PreDescription")
		w.raw("</p>")
		if d.Pre != nil {
			statusDone(w, d.Pre.TakenAt)
			linkButton(w, "/result", "ViewResult")
		} else {
			muted(w, "StatusPending")
			linkButton(w, "/survey/pre", "StartSurvey")
		}
		w.raw("</div>")

		w.raw(`<div class="card"><h2>`)
		w.t("PostAssessment")
		w.raw("</h2><p>")
		w.t("PostDescription")
		w.raw("</p>")
		switch {
		case d.Post != nil:
			statusDone(w, d.Post.TakenAt)
			linkButton(w, "/result", "ViewComparison")
		case d.Pre != nil:
			muted(w, "StatusPending")
			linkButton(w, "/survey/post", "StartSurvey")
		default:
			muted(w, "StatusLocked")
			w.raw(`<button class="btn" disabled>`)
			w.t("StartSurvey")
			w.raw("</button>")
		}
		w.raw("</div>")
	}))
}

func statusDone(w *writer, at time.Time) {
	w.raw(`<p class="improved">`)
	w.text(appI18n.Td(w.ctx, "StatusDone", map[string]any{"When": when(w.ctx, at)}))
	w.raw("</p>")
}

func muted(w *writer, msgID string) {
	w.raw(`<p class="muted">`)
	w.t(msgID)
	w.raw("</p>")
}

func linkButton(w *writer, path, msgID string) {
	w.raw(`<a class="btn"`)
	w.url("href", path)
	w.raw(">")
	w.t(msgID)
	w.raw("</a>")
}

// SurveyQuestion is one question with the currently selected value (0 for none).
type SurveyQuestion struct {
	ID       int
	Category model.Category
	Selected int
}

// SurveyData fills the questionnaire. Error is a message ID.
type SurveyData struct {
	Kind      model.Kind
	Questions []SurveyQuestion
	Error     string
	Count     int
}

func SurveyPage(d SurveyData) templ.Component {
	title := "PreAssessment"
	if d.Kind == model.KindPost {
		title = "PostAssessment"
	}
	return page(title, component(func(w *writer) {
		w.raw("<h1>")
		w.t(title)
		w.raw(`</h1><p class="muted">`)
		w.t("SurveyIntro")
		w.raw("</p>")
		if d.Error != "" {
			w.raw(`<p class="error">`)
			w.text(appI18n.Td(w.ctx, d.Error, map[string]any{"Count": d.Count}))
			w.raw("</p>")
		}
		w.raw(`<form method="post">`)
		w.csrfField()
		for _, q := range d.Questions {
			w.raw(`<fieldset class="card"><legend><strong>`)
			w.text(categoryName(w.ctx, q.Category))
			w.raw("</strong> ")
			w.text(strconv.Itoa(q.ID))
			w.raw(".</legend><p>")
			w.t(fmt.Sprintf("Question%d", q.ID))
			w.raw(`</p><div class="likert">`)
			for v := model.MinScore; v <= model.MaxScore; v++ {
				w.raw(`<label><input type="radio"`)
				w.attrs(templ.OrderedAttributes{
					{Key: "name", Value: fmt.Sprintf("q%d", q.ID)},
					{Key: "value", Value: strconv.Itoa(v)},
					{Key: "checked", Value: v == q.Selected},
					{Key: "required", Value: true},
				})
				w.raw("> ")
				w.text(strconv.Itoa(v))
				w.raw(" ")
				w.t(fmt.Sprintf("Likert%d", v))
				w.raw("</label>")
			}
			w.raw("</div></fieldset>")
		}
		w.raw("<p><a")
		w.url("href", "/")
		w.raw(">")
		w.t("Back")
		w.raw(`</a> <button type="submit" class="btn">`)
		w.t("Submit")
		w.raw("</button></p></form>")
	}))
}

// ResultData is the single-user report.
type ResultData struct {
	HasPre     bool
	Comparison scoring.Comparison
	Chart      Radar
}

func ResultPage(d ResultData) templ.Component {
	title := "ResultTitle"
	if d.Comparison.HasPost {
		title = "CompareTitle"
	}
	return page(title, component(func(w *writer) {
		if !d.HasPre {
			w.raw(`<div class="card"><p>`)
			w.t("NoResults")
			w.raw("</p>")
			linkButton(w, "/survey/pre", "StartSurvey")
			w.raw("</div>")
		} else {
			w.raw("<h1>")
			w.t(title)
			w.raw("</h1>")
			muted(w, "ResultScale")

			w.raw(`<div class="card">`)
			w.render(RadarChart(d.Chart))
			w.raw(`</div><div class="card">`)
			w.render(comparisonTable(d.Comparison))
			w.raw(`</div><div class="card"><h2>`)
			w.t("CoachingTitle")
			w.raw("</h2>")
			if d.Comparison.HasPost {
				muted(w, "CoachingIntroCompare")
			} else {
				muted(w, "CoachingIntro")
			}
			w.raw("<form")
			w.url("hx-post", "/result/feedback")
			w.raw(` hx-target="#feedback" hx-swap="innerHTML">`)
			w.csrfField()
			w.raw(`<button type="submit" class="btn">`)
			w.t("RequestFeedback")
			w.raw(`</button> <span class="htmx-indicator muted">`)
			w.t("FeedbackLoading")
			w.raw(`</span></form><div id="feedback"></div></div>`)
		}
		w.raw("<p><a")
		w.url("href", "/")
		w.raw(">")
		w.t("BackToDashboard")
		w.raw("</a></p>")
	}))
}

func comparisonTable(c scoring.Comparison) templ.Component {
	return component(func(w *writer) {
		w.raw("<table><thead><tr><th></th><th>")
		w.t("Before")
		w.raw("</th>")
		if c.HasPost {
			w.raw("<th>")
			w.t("After")
			w.raw("</th><th>")
			w.t("Change")
			w.raw("</th>")
		}
		w.raw("</tr></thead><tbody>")
		for _, row := range c.Rows {
			w.raw("<tr><th>")
			w.text(categoryName(w.ctx, row.Category))
			w.raw(` <span class="muted">(`)
			w.text(categoryDesc(w.ctx, row.Category))
			w.raw(")</span></th><td>")
			w.text(score(row.Pre))
			w.raw("</td>")
			if row.Post != nil {
				w.raw("<td>")
				w.text(score(row.Current()))
				w.raw("</td><td")
				w.attr("class", row.Trend.String())
				w.raw(">")
				w.text(row.SignedDelta())
				w.raw("</td>")
			}
			w.raw("</tr>")
		}
		w.raw("</tbody></table>")
	})
}

// RadarChart draws the precomputed chart as inline SVG.
func RadarChart(r Radar) templ.Component {
	return component(func(w *writer) {
		size := num(r.Size)
		w.raw("<svg")
		w.attr("viewBox", "0 0 "+size+" "+size)
		w.attr("width", size)
		w.attr("height", size)
		w.raw(` role="img">`)
		for _, ring := range r.Rings {
			w.raw("<polygon")
			w.attr("points", ring)
			w.raw(` fill="none" stroke="#e2e8f0"/>`)
		}
		center := num(r.Center)
		for _, a := range r.Axes {
			w.raw("<line")
			w.attr("x1", center)
			w.attr("y1", center)
			w.attr("x2", num(a.End.X))
			w.attr("y2", num(a.End.Y))
			w.raw(` stroke="#cbd5e1"/><text`)
			w.attr("x", num(a.Label.X))
			w.attr("y", num(a.Label.Y))
			w.raw(` text-anchor="middle" dominant-baseline="middle" font-size="13">`)
			w.text(fmt.Sprintf("%s (%s)", categoryName(w.ctx, a.Category), categoryDesc(w.ctx, a.Category)))
			w.raw("</text>")
		}
		w.raw("<polygon")
		w.attr("points", r.Pre)
		w.raw(` fill="#94a3b8" fill-opacity="0.35" stroke="#64748b" stroke-width="2"/>`)
		if r.Post != "" {
			w.raw("<polygon")
			w.attr("points", r.Post)
			w.raw(` fill="#2563eb" fill-opacity="0.35" stroke="#1d4ed8" stroke-width="2"/>`)
		}
		w.raw("</svg>")
	})
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FeedbackData is the HTMX fragment content. Exactly one of Text and
// Message (a message ID) is set.
type FeedbackData struct {
	Text    string
	Message string
}

func FeedbackFragment(d FeedbackData) templ.Component {
	return component(func(w *writer) {
		if d.Text != "" {
			w.raw(`<div class="feedback">`)
			w.text(d.Text)
			w.raw("</div>")
			return
		}
		w.raw(`<p class="error">`)
		w.t(d.Message)
		w.raw("</p>")
	})
}

// AdminData is the administrator summary page.
type AdminData struct {
	Rows        []scoring.AdminRow
	GeneratedAt time.Time
}

func AdminPage(d AdminData) templ.Component {
	return page("AdminDashboard", component(func(w *writer) {
		w.raw("<h1>")
		w.t("AdminTitle")
		w.raw(`</h1><p class="muted">`)
		w.text(appI18n.Tp(w.ctx, "ParticipantsCount", len(d.Rows)))
		w.raw("</p><p>")
		w.t("Download")
		w.raw(":")
		for i, f := range []string{"csv", "json", "pdf"} {
			if i > 0 {
				w.raw(" |")
			}
			w.raw(" <a")
			w.url("href", "/admin/export."+f)
			w.raw(">")
			w.text(strings.ToUpper(f))
			w.raw("</a>")
		}
		w.raw(`</p><div class="card">`)
		if len(d.Rows) == 0 {
			muted(w, "NoData")
		} else {
			w.raw("<table><thead><tr>")
			for _, col := range []string{"ColName", "ColPreDate", "ColPreScores", "ColPostDate", "ColPostScores", "ColState"} {
				w.raw("<th>")
				w.t(col)
				w.raw("</th>")
			}
			w.raw("</tr></thead><tbody>")
			for i := range d.Rows {
				r := &d.Rows[i]
				w.raw("<tr><td>")
				w.text(r.DisplayName)
				w.raw(` <span class="muted">(`)
				w.text(r.Identifier)
				w.raw(")</span></td>")
				for _, cell := range []string{date(r.PreTakenAt), Triple(r.Pre), date(r.PostTakenAt), Triple(r.Post)} {
					w.raw("<td>")
					w.text(cell)
					w.raw("</td>")
				}
				w.raw("<td>")
				w.t(StateMessage(r.State()))
				w.raw("</td></tr>")
			}
			w.raw("</tbody></table>")
		}
		w.raw("</div>")
	}))
}

// MessageData is a full page showing one translated message and a link back.
type MessageData struct {
	Message string
	Back    string
}

func MessagePage(d MessageData) templ.Component {
	return page("AppTitle", component(func(w *writer) {
		w.raw(`<div class="card"><p class="error">`)
		w.t(d.Message)
		w.raw("</p>")
		linkButton(w, d.Back, "BackToDashboard")
		w.raw("</div>")
	}))
}
