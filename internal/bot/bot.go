package bot

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/marketplace-card-bot/internal/delivery"
	"github.com/marketplace-card-bot/internal/models"
	"github.com/rs/zerolog"
)

// TurnRunner executes one user turn against the configured provider
type TurnRunner interface {
	RunTurn(ctx context.Context, turn *models.Turn) models.TurnResult
}

// Bot represents the Telegram bot
type Bot struct {
	api       *tgbotapi.BotAPI
	config    *models.BotConfig
	transport delivery.Transport
	pipeline  *delivery.Pipeline
	turns     TurnRunner
	logger    zerolog.Logger
	wg        sync.WaitGroup // Tracks active handlers for graceful shutdown
}

// New creates a new bot instance
func New(config *models.BotConfig, turns TurnRunner, logger zerolog.Logger) (*Bot, error) {
	// Create Telegram bot API client
	api, err := tgbotapi.NewBotAPI(config.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	// Set debug mode based on log level
	api.Debug = config.LogLevel == "debug"

	logger.Info().
		Str("username", api.Self.UserName).
		Int64("id", api.Self.ID).
		Str("provider", config.Provider.String()).
		Msg("Telegram bot authorized")

	transport := NewTransport(api, logger)

	return &Bot{
		api:       api,
		config:    config,
		transport: transport,
		pipeline:  delivery.NewPipeline(transport, config.MaxChunkSize, logger),
		turns:     turns,
		logger:    logger.With().Str("component", "bot").Logger(),
	}, nil
}

// Start polls for updates until ctx is cancelled, then waits for the
// turns in flight
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info().Msg("Starting bot...")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	b.logger.Info().Msg("Bot started, waiting for messages...")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Shutting down bot...")
			b.api.StopReceivingUpdates()

			b.logger.Info().Msg("Waiting for active turns to complete...")
			b.wg.Wait()
			b.logger.Info().Msg("All turns completed")

			return nil

		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return nil
			}

			// Turns run concurrently; the update loop never waits on a provider
			b.wg.Add(1)
			go func(upd tgbotapi.Update) {
				defer b.wg.Done()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// GetUsername returns bot username
func (b *Bot) GetUsername() string {
	return b.api.Self.UserName
}
