package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/edgard/chatbots/internal/config"
	"github.com/edgard/chatbots/internal/logger"
	"github.com/edgard/chatbots/internal/manager"
	"github.com/edgard/chatbots/internal/processor"
	"github.com/edgard/chatbots/internal/tokenizer"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "chatbots",
	Short: "Reply suggestions from local chat bots",
	Long: `chatbots loads bot bundles from disk, tokenizes chat messages concurrently
and serves reply suggestions and a bot store over Telegram.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./config.yaml", "Path to configuration file")
}

// setup loads the configuration and installs the configured logger as default.
// Logs go to logOut, or stdout when it is nil.
func setup(logOut io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", configPath, "error", err)
		return nil, nil, err
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	if logOut != nil {
		log = logger.New(logOut, cfg.Logger.Level, cfg.Logger.JSON)
	}
	slog.SetDefault(log)
	log.Debug("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)
	return cfg, log, nil
}

// newManager builds the processor and loads the bot registry.
func newManager(ctx context.Context, cfg *config.Config, log *slog.Logger) (*manager.Manager, error) {
	tok, err := tokenizer.NewFromString(cfg.Processor.Locale)
	if err != nil {
		return nil, fmt.Errorf("invalid processor locale: %w", err)
	}

	proc := processor.New(
		processor.WithTokenizer(tok),
		processor.WithWorkers(cfg.Processor.Workers),
		processor.WithTimeout(cfg.Processor.Timeout),
		processor.WithLogger(log),
	)

	mgr := manager.New(cfg.Bots.BundleDir, cfg.Bots.InstallDir, proc, log)
	if _, err := mgr.Load(ctx); err != nil {
		return nil, err
	}
	log.Info("Processor ready", "workers", proc.Workers(), "locale", tok.Language().String(), "timeout", cfg.Processor.Timeout)
	return mgr, nil
}
