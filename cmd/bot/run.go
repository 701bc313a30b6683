package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marketplace-card-bot/internal/bot"
	"github.com/marketplace-card-bot/internal/config"
	"github.com/marketplace-card-bot/internal/llm"
	"github.com/marketplace-card-bot/internal/models"
	"github.com/marketplace-card-bot/internal/observability"
	"github.com/marketplace-card-bot/internal/scheduler"
	"github.com/marketplace-card-bot/internal/session"
	"github.com/marketplace-card-bot/internal/storage"
	"github.com/marketplace-card-bot/internal/turn"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 10 * time.Second

func run(parent context.Context, kind models.ProviderKind) error {
	cfg, err := config.Load(kind)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogger(cfg.LogLevel, cfg.Environment)
	logger.Info().
		Str("provider", cfg.Provider.String()).
		Str("environment", cfg.Environment).
		Bool("langfuse_enabled", cfg.LangfuseEnabled()).
		Bool("exchange_log_enabled", cfg.ExchangeLogEnabled()).
		Msg("Starting marketplace card bot")

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	telemetry, err := observability.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer flushCancel()
		if err := telemetry.Shutdown(flushCtx); err != nil {
			logger.Error().Err(err).Msg("Failed to flush traces")
		}
	}()

	recorder, err := setupExchangeLog(ctx, cfg, logger)
	if err != nil {
		return err
	}

	provider, sched, closeProvider, err := setupProvider(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeProvider()

	orchestrator := turn.NewOrchestrator(
		provider,
		session.NewStore(logger),
		telemetry.Sink(),
		recorder,
		logger,
	)

	logger.Info().Msg("Initializing Telegram bot...")
	telegramBot, err := bot.New(cfg, orchestrator, logger)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Info().
		Str("username", telegramBot.GetUsername()).
		Str("model", provider.Model()).
		Msg("Bot initialized successfully")

	if sched != nil {
		go func() {
			if err := sched.Start(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("Scheduler stopped with error")
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	botDone := make(chan error, 1)
	go func() {
		botDone <- telegramBot.Start(ctx)
	}()

	logger.Info().Msg("Bot is running. Press Ctrl+C to stop.")

	botStopped := false
	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("Received termination signal")
	case err := <-botDone:
		botStopped = true
		if err != nil {
			logger.Error().Err(err).Msg("Bot stopped with error")
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("Initiating graceful shutdown...")
	cancel()

	if sched != nil {
		logger.Info().Msg("Stopping scheduler...")
		sched.Stop()
	}

	// Start returns once in-flight turns are done
	if !botStopped {
		select {
		case <-time.After(shutdownTimeout):
			logger.Warn().Msg("Shutdown timeout exceeded, some requests may be lost")
		case <-botDone:
			logger.Info().Msg("Graceful shutdown completed")
		}
	}

	logger.Info().Msg("Bot stopped")
	return nil
}

// setupExchangeLog connects to Supabase when it is configured
func setupExchangeLog(ctx context.Context, cfg *models.BotConfig, logger zerolog.Logger) (turn.ExchangeRecorder, error) {
	if !cfg.ExchangeLogEnabled() {
		logger.Info().Msg("Supabase not configured, exchange log disabled")
		return nil, nil
	}

	logger.Info().Msg("Initializing Supabase client...")
	storageClient, err := storage.NewClient(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseTimeout, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	if err := storageClient.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to Supabase: %w", err)
	}
	logger.Info().Msg("Supabase connection successful")

	return storageClient, nil
}

// setupProvider builds the configured provider. For Gemini it also uploads
// the context file and returns the scheduler that keeps it fresh.
func setupProvider(ctx context.Context, cfg *models.BotConfig, logger zerolog.Logger) (llm.Provider, *scheduler.Scheduler, func(), error) {
	noop := func() {}

	switch cfg.Provider {
	case models.ProviderResponses:
		return llm.NewResponsesProvider(cfg, logger), nil, noop, nil

	case models.ProviderAssistant:
		return llm.NewAssistantProvider(cfg, logger), nil, noop, nil

	case models.ProviderGemini:
		client := llm.NewGeminiClient(cfg.GeminiAPIKey, logger)
		closeClient := func() {
			if err := client.Close(); err != nil {
				logger.Error().Err(err).Msg("Failed to close Gemini client")
			}
		}

		artifacts := llm.NewArtifactStore(client, cfg.ContextFile, logger)
		if err := artifacts.Refresh(ctx); err != nil {
			// Requests still work without the attachment
			logger.Error().Err(err).Msg("Failed to upload context file")
		}

		sched, err := scheduler.NewScheduler(artifacts, cfg.ContextRefreshSchedule, cfg.Timezone, logger)
		if err != nil {
			closeClient()
			return nil, nil, noop, models.NewError(models.KindConfig, "context refresh schedule", err)
		}

		return llm.NewGeminiProvider(client, artifacts, cfg, logger), sched, closeClient, nil

	default:
		return nil, nil, noop, models.NewError(models.KindConfig, "provider", fmt.Errorf("unknown provider %q", cfg.Provider))
	}
}
