package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rapportlabs/rapport/internal/config"
	"github.com/rapportlabs/rapport/internal/extract"
	"github.com/rapportlabs/rapport/internal/merge"
	"github.com/rapportlabs/rapport/internal/pipeline"
	"github.com/rapportlabs/rapport/internal/resolve"
	"github.com/rapportlabs/rapport/internal/store"
)

var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:   "rapport",
		Short: "Rapport: a contact knowledge base built from meeting notes",
		Long:  "Rapport turns free-text meeting notes into layered contact profiles: stable identity, current status, an interaction timeline, and an actionable relationship playbook.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		logCmd(),
		contactsCmd(),
		getCmd(),
		meetingsCmd(),
		exportCmd(),
		deleteCmd(),
		importCmd(),
		statsCmd(),
		healthCmd(),
		serveCmd(),
		mcpCmd(),
	)

	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil && cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg != nil && cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func newStore(logger *slog.Logger) (store.Store, error) {
	if cfg.Storage.Driver == "memory" {
		return store.NewMemStore(), nil
	}
	return store.NewSQLiteStore(cfg.Storage.Path, logger)
}

func newExtractor(logger *slog.Logger) *extract.ClaudeExtractor {
	return extract.NewClaudeExtractor(extract.Options{
		APIKey:      cfg.Claude.APIKey,
		Model:       cfg.Claude.Model,
		Temperature: cfg.Claude.Temperature,
		MaxTokens:   cfg.Claude.MaxTokens,
		MaxRetries:  cfg.Claude.MaxRetries,
		Timeout:     time.Duration(cfg.Claude.TimeoutSeconds) * time.Second,
	}, logger)
}

func newPipeline(st store.Store, logger *slog.Logger) *pipeline.Pipeline {
	return pipeline.New(
		st,
		newExtractor(logger),
		resolve.NewResolver(st, logger),
		merge.NewEngine(cfg.Playbook.EvidenceCap, logger),
		logger,
	)
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen]) + "..."
	}
	return s
}
