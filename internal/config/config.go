// Package config turns command-line flags, LEADERCHECK_* environment variables
// and an optional leadercheck.yaml file into one validated Config value.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backend names a storage implementation.
type Backend string

const (
	BackendAuto     Backend = ""
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
	BackendBadger   Backend = "badger"
)

// Config is the complete runtime configuration.
type Config struct {
	Server ServerConfig
	Store  StoreConfig
	LLM    LLMConfig
	Log    LogConfig
	Export ExportConfig
}

// ServerConfig holds HTTP and session settings.
type ServerConfig struct {
	Addr          string
	BasePath      string // URL prefix for sub-path deployments (e.g. "/ko")
	SecureCookies bool
	Lang          string
	SessionSecret string
	SessionTTL    time.Duration
	AdminIDs      []string // identifiers seeded as privileged users
	AdminPassword string   // extra password for privileged users; empty disables it
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Backend     Backend
	SQLitePath  string
	PostgresURL string
	BadgerDir   string
}

// Resolve returns the backend to use. An explicit backend wins; otherwise a
// configured Postgres URL selects Postgres and everything else falls back to SQLite.
func (c StoreConfig) Resolve() Backend {
	if c.Backend != BackendAuto {
		return c.Backend
	}
	if c.PostgresURL != "" {
		return BackendPostgres
	}
	return BackendSQLite
}

// LLMConfig configures the feedback generator.
type LLMConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	Rate    float64 // feedback requests per second per user
	Burst   int
}

// Configured reports whether enough is set to call an endpoint.
func (c LLMConfig) Configured() bool {
	return c.APIKey != "" || c.BaseURL != ""
}

// LogConfig configures slog output.
type LogConfig struct {
	Level      string
	Format     string
	File       string // rotated log file; empty logs to stderr only
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// ExportConfig configures file exports.
type ExportConfig struct {
	PDFFont string // optional UTF-8 TTF font for non-Latin names
}

var supportedLangs = map[string]bool{"en": true, "ko": true}

// Load reads a Config from v. Keys follow the flag names of the serve command.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Addr:          v.GetString("addr"),
			BasePath:      NormalizeBasePath(v.GetString("base-path")),
			SecureCookies: v.GetBool("secure-cookies"),
			Lang:          strings.ToLower(strings.TrimSpace(v.GetString("lang"))),
			SessionSecret: v.GetString("session-secret"),
			SessionTTL:    v.GetDuration("session-ttl"),
			AdminIDs:      v.GetStringSlice("admin-id"),
			AdminPassword: v.GetString("admin-password"),
		},
		Store: StoreConfig{
			Backend:     Backend(strings.ToLower(strings.TrimSpace(v.GetString("store-backend")))),
			SQLitePath:  v.GetString("db"),
			PostgresURL: v.GetString("postgres-url"),
			BadgerDir:   v.GetString("badger-dir"),
		},
		LLM: LLMConfig{
			BaseURL: v.GetString("llm-url"),
			APIKey:  v.GetString("llm-key"),
			Model:   v.GetString("llm-model"),
			Timeout: v.GetDuration("llm-timeout"),
			Rate:    v.GetFloat64("feedback-rate"),
			Burst:   v.GetInt("feedback-burst"),
		},
		Log: LogConfig{
			Level:      v.GetString("log-level"),
			Format:     v.GetString("log-format"),
			File:       v.GetString("log-file"),
			MaxSizeMB:  v.GetInt("log-max-size"),
			MaxBackups: v.GetInt("log-max-backups"),
			MaxAgeDays: v.GetInt("log-max-age"),
		},
		Export: ExportConfig{
			PDFFont: v.GetString("pdf-font"),
		},
	}
	if cfg.Server.Lang == "" {
		cfg.Server.Lang = "en"
	}
	if cfg.Server.SessionTTL <= 0 {
		cfg.Server.SessionTTL = 24 * time.Hour
	}
	if cfg.LLM.Timeout <= 0 {
		cfg.LLM.Timeout = 60 * time.Second
	}
	return cfg, cfg.Validate()
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if !supportedLangs[c.Server.Lang] {
		errs = append(errs, fmt.Errorf("unsupported language %q (want en or ko)", c.Server.Lang))
	}
	switch c.Store.Resolve() {
	case BackendSQLite, BackendPostgres, BackendBadger:
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	if c.LLM.Rate < 0 || c.LLM.Burst < 0 {
		errs = append(errs, errors.New("feedback rate and burst must not be negative"))
	}
	for _, id := range c.Server.AdminIDs {
		if strings.TrimSpace(id) == "" {
			errs = append(errs, errors.New("admin-id must not be empty"))
			break
		}
	}
	return errors.Join(errs...)
}

// NormalizeBasePath trims trailing slashes and ensures a leading one.
func NormalizeBasePath(p string) string {
	p = strings.TrimRight(strings.TrimSpace(p), "/")
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
