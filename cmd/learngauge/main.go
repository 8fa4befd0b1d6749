package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/learngauge/learngauge/internal/sheet"
	"github.com/learngauge/learngauge/internal/store"
)

func main() {
	// a missing .env is fine; real environment variables still apply
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "learngauge",
		Short:        "Exam result ingestion and grading",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("db-driver", string(store.DriverSQLite), "Database driver (sqlite, postgres)")
	pf.String("db", "learngauge.db", "SQLite path or Postgres DSN")
	pf.StringP("lang", "l", "en", "Default message language (en, vi)")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.String("log-format", "text", "Log format (text, json)")

	serve := serveCmd()
	root.AddCommand(serve, ingestCmd(), exportCmd(), catalogCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

// addLimitFlags registers the file parsing bounds shared by serve and ingest.
func addLimitFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int("max-rows", sheet.DefaultMaxRows, "Maximum data rows per uploaded file")
	f.Int("max-columns", sheet.DefaultMaxColumns, "Maximum columns per uploaded file")
	f.Duration("parse-timeout", 0, "Deadline for reading the uploaded files (0 = default)")
}

func setupLogging(v *viper.Viper) {
	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("LEARNGAUGE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("learngauge")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/learngauge")
	v.AddConfigPath("/etc/learngauge")
	err := v.ReadInConfig()

	// logging depends on the config file, so it is configured before reporting on it
	setupLogging(v)
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}
	return v
}

func openStore(ctx context.Context, v *viper.Viper) (*store.Store, error) {
	driver := store.Driver(strings.ToLower(v.GetString("db-driver")))
	db, err := store.Open(ctx, driver, v.GetString("db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func sheetLimits(v *viper.Viper) sheet.Limits {
	return sheet.Limits{MaxRows: v.GetInt("max-rows"), MaxColumns: v.GetInt("max-columns")}
}
