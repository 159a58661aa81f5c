package handler

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/leadercheck/internal/handler/views"
	"github.com/pavelanni/leadercheck/internal/metrics"
	"github.com/pavelanni/leadercheck/internal/model"
	"github.com/pavelanni/leadercheck/internal/session"
)

const csrfCookieName = "csrf_token"

func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func (h *Handler) setCSRFCookie(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	token, err := generateCSRFToken()
	if err != nil {
		slog.Error("failed to generate CSRF token", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return r, false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     h.cookiePath(),
		HttpOnly: false,
		Secure:   h.config.Server.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return r.WithContext(model.ContextWithCSRFToken(r.Context(), token)), true
}

// csrfMiddleware implements the double-submit cookie check for unsafe methods.
// A fresh token is issued only on GET and HEAD.
func (h *Handler) csrfMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			cookie, err := r.Cookie(csrfCookieName)
			if err != nil || cookie.Value == "" {
				slog.Warn("CSRF cookie missing")
				http.Error(w, "csrf token missing", http.StatusForbidden)
				return
			}
			formToken := r.FormValue("csrf_token")
			if formToken == "" {
				formToken = r.Header.Get("X-CSRF-Token")
			}
			if formToken == "" {
				slog.Warn("CSRF form token missing")
				http.Error(w, "csrf token missing", http.StatusForbidden)
				return
			}
			if subtle.ConstantTimeCompare([]byte(formToken), []byte(cookie.Value)) != 1 {
				slog.Warn("CSRF token mismatch")
				http.Error(w, "invalid csrf token", http.StatusForbidden)
				return
			}
			// Keep the token so other forms on the same page stay valid.
			next.ServeHTTP(w, r.WithContext(model.ContextWithCSRFToken(r.Context(), cookie.Value)))
			return
		}

		r, ok := h.setCSRFCookie(w, r)
		if !ok {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth resolves the session cookie to a stored user.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(session.CookieName)
		if err != nil || cookie.Value == "" {
			h.redirectToLogin(w, r)
			return
		}

		identifier, err := h.sessions.Parse(cookie.Value)
		if err != nil {
			slog.Debug("rejected session", "error", err)
			h.redirectToLogin(w, r)
			return
		}

		user, err := h.store.FindUser(r.Context(), identifier)
		if err != nil {
			slog.Error("failed to get user", "identifier", identifier, "error", err)
			h.redirectToLogin(w, r)
			return
		}
		if user == nil {
			h.redirectToLogin(w, r)
			return
		}

		ctx := model.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin lets only privileged users through.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := model.UserFromContext(r.Context())
		if user == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !user.IsPrivileged {
			slog.Warn("admin access denied", "identifier", user.Identifier)
			h.renderMessage(w, r, http.StatusForbidden, "Forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	loginPath := h.path("/login")
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", loginPath)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, r, http.StatusOK, views.LoginData{})
}

// handleLogin signs a participant in by name and identifier. The first
// login creates the account. Privileged accounts additionally need the
// admin password when one is configured.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	form := model.NewParticipant(r.FormValue("name"), r.FormValue("identifier"))
	data := views.LoginData{Name: form.Name, Identifier: form.Identifier}

	if err := h.validate.Struct(form); err != nil {
		metrics.Logins.WithLabelValues(metrics.ResultInvalid).Inc()
		slog.Info("invalid login", "error", err)
		data.Error = "LoginInvalid"
		h.renderLogin(w, r, http.StatusBadRequest, data)
		return
	}

	existing, err := h.store.FindUser(r.Context(), form.Identifier)
	if err != nil {
		metrics.Logins.WithLabelValues(metrics.ResultError).Inc()
		h.serverError(w, r, "find user", err)
		return
	}

	user := model.User{Identifier: form.Identifier, DisplayName: form.Name}
	if existing != nil {
		user.IsPrivileged = existing.IsPrivileged
		user.CreatedAt = existing.CreatedAt
	}

	if user.IsPrivileged && len(h.adminHash) > 0 {
		err := bcrypt.CompareHashAndPassword(h.adminHash, []byte(r.FormValue("password")))
		if err != nil {
			if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
				slog.Error("admin password check failed", "error", err)
			}
			metrics.Logins.WithLabelValues(metrics.ResultDenied).Inc()
			data.Error = "LoginDenied"
			data.AskPassword = true
			h.renderLogin(w, r, http.StatusUnauthorized, data)
			return
		}
	}

	if err := h.store.UpsertUser(r.Context(), user); err != nil {
		metrics.Logins.WithLabelValues(metrics.ResultError).Inc()
		h.serverError(w, r, "upsert user", err)
		return
	}

	token, err := h.sessions.Issue(user.Identifier)
	if err != nil {
		metrics.Logins.WithLabelValues(metrics.ResultError).Inc()
		h.serverError(w, r, "issue session", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     h.cookiePath(),
		MaxAge:   int(h.sessions.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.Server.SecureCookies,
	})
	metrics.Logins.WithLabelValues(metrics.ResultOK).Inc()
	slog.Info("user logged in", "identifier", user.Identifier, "privileged", user.IsPrivileged)

	if user.IsPrivileged {
		http.Redirect(w, r, h.path("/admin"), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     h.cookiePath(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.Server.SecureCookies,
	})
	http.Redirect(w, r, h.path("/login"), http.StatusSeeOther)
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, data views.LoginData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := views.LoginPage(data).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}
