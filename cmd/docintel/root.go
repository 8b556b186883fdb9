package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"docintel/internal/app"
	"docintel/internal/config"
	"docintel/internal/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "docintel",
	Short: "Document intelligence over a vector knowledge base",
	Long: `docintel summarizes, questions and analyzes uploaded documents and
answers chat queries from a Qdrant-backed knowledge base.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "",
		"path to a YAML or TOML config file (default ./config.yaml, then ~/.config/docintel/config.yaml)")
}

func loadConfig() (*config.AppConfig, error) {
	if cfgPath != "" {
		return config.Load(cfgPath)
	}
	cfg, path, err := config.LoadDefault()
	if err != nil {
		return nil, err
	}
	logger.Debug("Loaded config from %s", path)
	return cfg, nil
}

// buildApp loads the configuration and wires every component. The caller
// closes the returned app.
func buildApp() (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return app.Build(cfg)
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
