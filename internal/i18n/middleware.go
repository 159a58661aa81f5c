package i18n

import (
	"net/http"
	"strings"
)

// LangCookie remembers a language picked with ?lang=.
const LangCookie = "lang"

// Middleware picks the request language: a supported ?lang= query value
// (remembered in a cookie), then the cookie, then defaultLang.
func Middleware(defaultLang string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := defaultLang
			if q := strings.ToLower(r.URL.Query().Get("lang")); q != "" && IsSupported(q) {
				lang = q
				http.SetCookie(w, &http.Cookie{
					Name:     LangCookie,
					Value:    q,
					Path:     "/",
					MaxAge:   365 * 24 * 3600,
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			} else if c, err := r.Cookie(LangCookie); err == nil && IsSupported(c.Value) {
				lang = strings.ToLower(c.Value)
			}
			next.ServeHTTP(w, r.WithContext(WithLang(r.Context(), lang)))
		})
	}
}
