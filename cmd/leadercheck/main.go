package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/pavelanni/leadercheck/internal/config"
)

func main() {
	// A .env file next to the binary is optional.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "load .env:", err)
	}
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "leadercheck",
		Short:        "Plan-Do-See leadership self-assessment",
		SilenceUsage: true,
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd(), takeCmd(), reportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `leadercheck --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addStoreFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("store-backend", "", "Storage backend (sqlite, postgres, badger); empty picks postgres when --postgres-url is set")
	f.String("db", "leadercheck.db", "SQLite database path")
	f.String("postgres-url", "", "PostgreSQL connection URL")
	f.String("badger-dir", "", "Badger data directory")
}

func addLogFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	f.String("log-file", "", "Also write logs to this file, rotated by size")
	f.Int("log-max-size", 100, "Maximum log file size in megabytes before rotation")
	f.Int("log-max-backups", 3, "Number of rotated log files to keep")
	f.Int("log-max-age", 28, "Days to keep rotated log files")
}

func setupLogging(cfg config.LogConfig) {
	var logLevel slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var out io.Writer = os.Stderr
	if cfg.File != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	}

	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		logHandler = slog.NewJSONHandler(out, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(out, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("LEADERCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("leadercheck")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/leadercheck")
	v.AddConfigPath("/etc/leadercheck")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// loadConfig builds and validates the configuration of cmd and sets up logging.
func loadConfig(cmd *cobra.Command) (*viper.Viper, config.Config, error) {
	v := viperForCmd(cmd)
	cfg, err := config.Load(v)
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("load config: %w", err)
	}
	setupLogging(cfg.Log)
	return v, cfg, nil
}
