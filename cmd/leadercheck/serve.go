package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/pavelanni/leadercheck/internal/config"
	"github.com/pavelanni/leadercheck/internal/feedback"
	"github.com/pavelanni/leadercheck/internal/handler"
	appI18n "github.com/pavelanni/leadercheck/internal/i18n"
	"github.com/pavelanni/leadercheck/internal/model"
	"github.com/pavelanni/leadercheck/internal/session"
	"github.com/pavelanni/leadercheck/internal/store"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP assessment server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /ko)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.StringP("lang", "l", "en", "Default UI and feedback language (en, ko)")
	f.String("session-secret", "", "HMAC secret for session tokens (random per start when empty)")
	f.Duration("session-ttl", 24*time.Hour, "Session lifetime")
	f.StringSlice("admin-id", nil, "Identifiers of administrators (repeatable)")
	f.String("admin-password", "", "Password administrators must enter (plain or bcrypt hash)")
	f.String("llm-url", "", "OpenAI-compatible API base URL")
	f.String("llm-key", "", "API key for the LLM")
	f.String("llm-model", "", "LLM model name")
	f.Duration("llm-timeout", 60*time.Second, "Timeout for one feedback request")
	f.Float64("feedback-rate", 0.1, "Feedback requests per second per user (0 disables limiting)")
	f.Int("feedback-burst", 3, "Feedback requests a user may make at once")
	f.String("pdf-font", "", "UTF-8 TrueType font for PDF exports")
	addStoreFlags(cmd)
	addLogFlags(cmd)
	return cmd
}

func printBanner() {
	figure.NewFigure("LEADERCHECK", "", true).Print()
	fmt.Println("Plan - Do - See leadership self-assessment")
	fmt.Println()
}

func runServe(cmd *cobra.Command, _ []string) error {
	_, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	printBanner()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if err := seedAdmins(ctx, st, cfg.Server.AdminIDs); err != nil {
		return fmt.Errorf("seed admins: %w", err)
	}

	lang := cfg.Server.Lang
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	if cfg.Server.SessionSecret == "" {
		slog.Warn("no session secret configured, sessions end on restart")
	}
	sessions, err := session.NewManager(cfg.Server.SessionSecret, cfg.Server.SessionTTL)
	if err != nil {
		return fmt.Errorf("create session manager: %w", err)
	}

	h, err := handler.New(st, newGenerator(ctx, cfg), sessions, cfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	basePath := cfg.Server.BasePath
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown", "error", err)
		}
	}()

	slog.Info("starting server",
		"addr", cfg.Server.Addr,
		"lang", lang,
		"store", cfg.Store.Resolve(),
		"llm_url", cfg.LLM.BaseURL,
		"model", cfg.LLM.Model,
		"admins", len(cfg.Server.AdminIDs),
		"base_path", basePath,
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("server stopped")
	return nil
}

// newGenerator returns the LLM client, or feedback.Unavailable when no
// endpoint is configured. A failing health check is only a warning.
func newGenerator(ctx context.Context, cfg config.Config) feedback.Generator {
	client, err := feedback.New(cfg.LLM, cfg.Server.Lang)
	if errors.Is(err, feedback.ErrNotConfigured) {
		slog.Warn("no LLM endpoint configured, feedback disabled")
		return feedback.Unavailable{}
	}
	if err != nil {
		slog.Error("create LLM client, feedback disabled", "error", err)
		return feedback.Unavailable{}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		slog.Warn("LLM health check failed", "url", cfg.LLM.BaseURL, "error", err)
	} else {
		slog.Info("LLM endpoint OK", "url", cfg.LLM.BaseURL, "model", cfg.LLM.Model)
	}
	return client
}

// seedAdmins makes sure every configured identifier is a privileged user.
// Existing users keep their display name.
func seedAdmins(ctx context.Context, st store.Store, ids []string) error {
	for _, id := range ids {
		existing, err := st.FindUser(ctx, id)
		if err != nil {
			return err
		}
		u := model.User{Identifier: id, DisplayName: "Administrator", IsPrivileged: true}
		if existing != nil {
			if existing.IsPrivileged {
				continue
			}
			u.DisplayName = existing.DisplayName
			u.CreatedAt = existing.CreatedAt
		}
		if err := st.UpsertUser(ctx, u); err != nil {
			return fmt.Errorf("seed admin %s: %w", id, err)
		}
		slog.Info("seeded admin user", "identifier", id)
	}
	return nil
}
