package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"admem/internal/config"
	"admem/internal/embedding"
	"admem/internal/identity"
	"admem/internal/logging"
	"admem/internal/service"
	"admem/internal/storage"
	"admem/internal/version"
)

var (
	logLevelFlag  string
	logFormatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "admem",
	Short: "admem - persistent decision memory for development sessions",
	Long: `admem records the technical decisions made while working on a codebase
and retrieves them in later sessions: by recency, by timeline, or by semantic
similarity to a question. It runs as an MCP stdio server for agent use and as
a plain CLI for humans.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("admem version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, error (default from config)")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "",
		"Log format: human or json (default from config)")
}

// app bundles the wired collaborators a command needs
type app struct {
	home   string
	cfg    *config.Config
	logger *logging.Logger
	engine *storage.Engine
	svc    *service.DecisionService
}

// newApp loads configuration and wires storage, embedding, and the decision
// service. Every command goes through here so flag and env precedence stay
// uniform.
func newApp(ctx context.Context) (*app, error) {
	home, err := config.Home()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(home)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := newLogger(cfg)

	engine, err := storage.Open(ctx, storage.EngineOptions{
		Storage: storage.Options{
			Path:          cfg.DatabasePath(home),
			BusyTimeoutMs: cfg.Storage.BusyTimeoutMs,
			MaxOpenConns:  cfg.Storage.MaxOpenConns,
			MaxIdleConns:  cfg.Storage.MaxIdleConns,
		},
		IndexEnabled: cfg.Index.Enabled,
	}, logger)
	if err != nil {
		return nil, err
	}

	var provider embedding.Provider
	if !cfg.Embedding.Disabled {
		settings, err := embedding.LoadEnvSettings()
		if err != nil {
			return nil, err
		}
		if settings.Model == "" {
			settings.Model = cfg.Embedding.Model
		}
		if settings.TimeoutMs <= 0 {
			settings.TimeoutMs = cfg.Embedding.TimeoutMs
		}
		if p := embedding.NewClaudeProvider(settings); p != nil {
			provider = p
		} else {
			logger.Debug("No embedding API key configured, using offline embeddings", nil)
		}
	}

	generator, err := embedding.NewGenerator(provider, logger)
	if err != nil {
		engine.Close()
		return nil, err
	}

	svc := service.New(engine, identity.NewDetector(logger), generator, logger)
	return &app{home: home, cfg: cfg, logger: logger, engine: engine, svc: svc}, nil
}

func (a *app) close() {
	a.svc.Close()
	if err := a.engine.Close(); err != nil {
		a.logger.Warn("Failed to close storage", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// newLogger applies flag overrides on top of the configured defaults.
// Output always goes to stderr so the MCP stdout stream stays clean.
func newLogger(cfg *config.Config) *logging.Logger {
	format := cfg.Logging.Format
	if logFormatFlag != "" {
		format = logFormatFlag
	}
	level := cfg.Logging.Level
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	return logging.NewLogger(logging.Config{
		Format: logging.Format(format),
		Level:  logging.LogLevel(level),
	})
}

// workingDir resolves the directory commands operate on
func workingDir() string {
	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}
	return "."
}
