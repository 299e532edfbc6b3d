package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/svcaudit/vigil/internal/analysis"
	"github.com/svcaudit/vigil/internal/api"
	"github.com/svcaudit/vigil/internal/config"
	"github.com/svcaudit/vigil/internal/events"
	"github.com/svcaudit/vigil/internal/notify"
	"github.com/svcaudit/vigil/internal/oracle"
	"github.com/svcaudit/vigil/internal/pipeline"
	"github.com/svcaudit/vigil/internal/rules"
	"github.com/svcaudit/vigil/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("vigil starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database connected")

	// LLM provider
	apiKey := cfg.LLMAPIKey
	model := cfg.LLMModel
	if cfg.LLMProvider == "anthropic" {
		apiKey = cfg.AnthropicAPIKey
		model = cfg.AnthropicModel
	}
	if apiKey == "" {
		slog.Error("LLM API key is required", "provider", cfg.LLMProvider)
		os.Exit(1)
	}
	provider, err := oracle.NewProvider(cfg.LLMProvider, cfg.LLMEndpoint, apiKey, model)
	if err != nil {
		slog.Error("failed to build llm provider", "error", err)
		os.Exit(1)
	}
	judge := oracle.NewJudge(provider, slog.Default())
	slog.Info("llm provider ready", "provider", provider.Name(), "model", provider.Model())

	// Screening rules: file feed wins, then the database, then built-ins.
	loadRules := func(ctx context.Context) ([]rules.CategoryRule, error) {
		if cfg.RulesFile != "" {
			return rules.LoadFile(cfg.RulesFile)
		}
		defs, err := db.LoadCategoryRules(ctx)
		if err != nil {
			return nil, err
		}
		if len(defs) > 0 {
			return defs, nil
		}
		return rules.Defaults(), nil
	}
	ruleCache := rules.NewCache(loadRules, cfg.RuleCacheTTL, slog.Default())

	// NATS
	natsClient, err := events.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		slog.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	// Slack notifier is optional, vigil runs without alerts if unset.
	var notifier pipeline.Notifier
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		notifier = notify.New(cfg.SlackBotToken, cfg.SlackChannel, slog.Default())
		slog.Info("slack notifier ready", "channel", cfg.SlackChannel)
	} else {
		slog.Warn("slack not configured, running without high risk alerts")
	}

	var source pipeline.CommentSource
	if cfg.WorkOrderURL != "" {
		source = pipeline.NewHTTPCommentSource(cfg.WorkOrderURL)
	}

	pipe := pipeline.New(db, ruleCache, judge, slog.Default(), pipeline.Options{
		Source:        source,
		Policy:        analysis.PersistencePolicy{KeepAll: cfg.KeepAllResults},
		Events:        natsClient,
		Notifier:      notifier,
		OracleTimeout: cfg.OracleTimeout,
		MaxConcurrent: cfg.MaxConcurrent,
	})

	if err := natsClient.Subscribe(events.SubjectWorkOrderIngested, pipe.HandleWorkOrderIngested); err != nil {
		slog.Error("failed to subscribe to ingest events", "error", err)
		os.Exit(1)
	}

	// HTTP API
	srv := api.NewServer(cfg.Port, db, pipe, ruleCache, cfg.BatchSize, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	// Periodic queue cleanup
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := db.CleanupCompleted(ctx, cfg.CleanupRetention)
				if err != nil {
					slog.Error("queue cleanup failed", "error", err)
					continue
				}
				slog.Info("queue cleanup done", "removed", n)
			}
		}
	}()

	slog.Info("vigil ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("vigil stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
