package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/leadercheck/internal/catalog"
	"github.com/pavelanni/leadercheck/internal/config"
	"github.com/pavelanni/leadercheck/internal/export"
	"github.com/pavelanni/leadercheck/internal/feedback"
	"github.com/pavelanni/leadercheck/internal/handler/views"
	"github.com/pavelanni/leadercheck/internal/metrics"
	"github.com/pavelanni/leadercheck/internal/model"
	"github.com/pavelanni/leadercheck/internal/scoring"
	"github.com/pavelanni/leadercheck/internal/session"
	"github.com/pavelanni/leadercheck/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store     store.Store
	catalog   *catalog.Catalog
	feedback  *feedback.Limited
	sessions  *session.Manager
	validate  *validator.Validate
	config    config.Config
	adminHash []byte
}

// New creates a new Handler. gen may be feedback.Unavailable{}.
func New(s store.Store, gen feedback.Generator, sm *session.Manager, cfg config.Config) (*Handler, error) {
	h := &Handler{
		store:    s,
		catalog:  catalog.Default(),
		feedback: feedback.NewLimited(gen, cfg.LLM.Rate, cfg.LLM.Burst),
		sessions: sm,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		config:   cfg,
	}
	if pw := cfg.Server.AdminPassword; pw != "" {
		if strings.HasPrefix(pw, "$2") {
			h.adminHash = []byte(pw)
		} else {
			hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
			if err != nil {
				return nil, fmt.Errorf("hash admin password: %w", err)
			}
			h.adminHash = hash
		}
	}
	return h, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(h.csrfMiddleware)
		r.Get("/login", h.handleLoginPage)
		r.Post("/login", h.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Post("/logout", h.handleLogout)
			r.Get("/", h.handleDashboard)
			r.Get("/survey/{kind}", h.handleSurveyPage)
			r.Post("/survey/{kind}", h.handleSubmitSurvey)
			r.Get("/result", h.handleResult)
			r.Post("/result/feedback", h.handleFeedback)

			r.Group(func(r chi.Router) {
				r.Use(h.requireAdmin)
				r.Get("/admin", h.handleAdminPage)
				r.Get("/admin/export.csv", h.handleExport(export.FormatCSV))
				r.Get("/admin/export.json", h.handleExport(export.FormatJSON))
				r.Get("/admin/export.pdf", h.handleExport(export.FormatPDF))
			})
		})
	})
}

// BasePathMiddleware makes the configured base path available to views.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.Server.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) path(p string) string {
	return h.config.Server.BasePath + p
}

func (h *Handler) cookiePath() string {
	if h.config.Server.BasePath != "" {
		return h.config.Server.BasePath + "/"
	}
	return "/"
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		slog.Error("health check failed", "error", err)
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "ok")
}

// pair loads the signed-in user's PRE/POST assessments.
func (h *Handler) pair(ctx context.Context, identifier string) (scoring.Pair, error) {
	as, err := h.store.ListAssessments(ctx, identifier)
	if err != nil {
		return scoring.Pair{}, err
	}
	return scoring.PairAssessments(as), nil
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	p, err := h.pair(r.Context(), user.Identifier)
	if err != nil {
		h.serverError(w, r, "list assessments", err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.DashboardPage(views.DashboardData{User: user, Pre: p.Pre, Post: p.Post}).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) surveyQuestions(rs model.ResponseSet) []views.SurveyQuestion {
	qs := h.catalog.Questions()
	out := make([]views.SurveyQuestion, 0, len(qs))
	for _, q := range qs {
		out = append(out, views.SurveyQuestion{ID: q.ID, Category: q.Category, Selected: rs[q.ID]})
	}
	return out
}

func (h *Handler) handleSurveyPage(w http.ResponseWriter, r *http.Request) {
	kind, err := model.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	user := model.UserFromContext(r.Context())
	p, err := h.pair(r.Context(), user.Identifier)
	if err != nil {
		h.serverError(w, r, "list assessments", err)
		return
	}
	switch {
	case kind == model.KindPre && p.Pre != nil, kind == model.KindPost && p.Post != nil:
		http.Redirect(w, r, h.path("/result"), http.StatusSeeOther)
		return
	case kind == model.KindPost && p.Pre == nil:
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := views.SurveyData{Kind: kind, Questions: h.surveyQuestions(nil)}
	if err := views.SurveyPage(data).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

// parseResponses reads q<ID> form fields. Values that are not integers are
// kept as 0 so validation reports them as out of range.
func (h *Handler) parseResponses(r *http.Request) model.ResponseSet {
	rs := make(model.ResponseSet)
	for _, q := range h.catalog.Questions() {
		raw := strings.TrimSpace(r.FormValue(fmt.Sprintf("q%d", q.ID)))
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			v = 0
		}
		rs[q.ID] = v
	}
	return rs
}

func (h *Handler) handleSubmitSurvey(w http.ResponseWriter, r *http.Request) {
	kind, err := model.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	user := model.UserFromContext(r.Context())
	rs := h.parseResponses(r)

	if err := h.catalog.Validate(rs); err != nil {
		metrics.Submissions.WithLabelValues(string(kind), metrics.ResultInvalid).Inc()
		slog.Info("incomplete submission", "identifier", user.Identifier, "kind", kind, "error", err)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusUnprocessableEntity)
		data := views.SurveyData{
			Kind:      kind,
			Questions: h.surveyQuestions(rs),
			Error:     "SurveyIncomplete",
			Count:     h.catalog.Len(),
		}
		if err := views.SurveyPage(data).Render(r.Context(), w); err != nil {
			slog.Error("render error", "error", err)
		}
		return
	}

	if kind == model.KindPost {
		p, err := h.pair(r.Context(), user.Identifier)
		if err != nil {
			h.serverError(w, r, "list assessments", err)
			return
		}
		if p.Pre == nil {
			metrics.Submissions.WithLabelValues(string(kind), metrics.ResultInvalid).Inc()
			h.renderMessage(w, r, http.StatusConflict, "SurveyNeedsPre")
			return
		}
	}

	err = h.store.AppendAssessment(r.Context(), user.Identifier, model.Assessment{Kind: kind, Responses: rs})
	switch {
	case errors.Is(err, store.ErrAssessmentExists):
		metrics.Submissions.WithLabelValues(string(kind), metrics.ResultDuplicate).Inc()
		h.renderMessage(w, r, http.StatusConflict, "SurveyDuplicate")
		return
	case err != nil:
		metrics.Submissions.WithLabelValues(string(kind), metrics.ResultError).Inc()
		h.serverError(w, r, "append assessment", err)
		return
	}

	metrics.Submissions.WithLabelValues(string(kind), metrics.ResultOK).Inc()
	slog.Info("assessment submitted", "identifier", user.Identifier, "kind", kind)
	http.Redirect(w, r, h.path("/result"), http.StatusSeeOther)
}

// scores returns the unrounded score sets of a pair. post is nil without a POST.
func (h *Handler) scores(p scoring.Pair) (pre scoring.ScoreSet, post *scoring.ScoreSet) {
	pre = scoring.Score(p.Pre.Responses, h.catalog)
	if p.Post != nil {
		s := scoring.Score(p.Post.Responses, h.catalog)
		post = &s
	}
	return pre, post
}

func (h *Handler) handleResult(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	p, err := h.pair(r.Context(), user.Identifier)
	if err != nil {
		h.serverError(w, r, "list assessments", err)
		return
	}

	var data views.ResultData
	if p.Pre != nil {
		pre, post := h.scores(p)
		cmp := scoring.Compare(pre, post)
		data = views.ResultData{HasPre: true, Comparison: cmp, Chart: views.NewRadar(cmp)}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.ResultPage(data).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleFeedback(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	p, err := h.pair(r.Context(), user.Identifier)
	if err != nil {
		h.serverError(w, r, "list assessments", err)
		return
	}

	var data views.FeedbackData
	if p.Pre == nil {
		data.Message = "NoResults"
	} else {
		pre, post := h.scores(p)
		start := time.Now()
		text, err := h.feedback.GenerateFor(r.Context(), user.Identifier, scoring.FeedbackInput(pre, post))
		switch {
		case errors.Is(err, feedback.ErrRateLimited):
			metrics.FeedbackRequests.WithLabelValues(metrics.ResultLimited).Inc()
			data.Message = "FeedbackRateLimited"
		case err != nil:
			metrics.FeedbackRequests.WithLabelValues(metrics.ResultUnavailable).Inc()
			slog.Warn("feedback unavailable", "identifier", user.Identifier, "error", err)
			data.Message = "FeedbackUnavailable"
		default:
			metrics.FeedbackRequests.WithLabelValues(metrics.ResultOK).Inc()
			metrics.FeedbackDuration.Observe(time.Since(start).Seconds())
			data.Text = text
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.FeedbackFragment(data).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) renderMessage(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := views.MessagePage(views.MessageData{Message: msgID, Back: "/"}).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, op string, err error) {
	slog.Error("request failed", "op", op, "path", r.URL.Path, "error", err)
	h.renderMessage(w, r, http.StatusInternalServerError, "ServerError")
}
