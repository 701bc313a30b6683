package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/marketplace-card-bot/internal/delivery"
	"github.com/marketplace-card-bot/internal/models"
)

const unknownCommandText = "Неизвестная команда. Используйте /help, чтобы узнать, как работает бот."

// handleUpdate processes incoming update
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	b.recoverMiddleware(func() {
		if update.Message != nil {
			b.handleMessage(ctx, update.Message)
		}
	})
}

// handleMessage routes commands and text; everything else is ignored
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.From == nil {
		return
	}

	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	if message.Text == "" {
		b.logger.Debug().
			Int64("user_id", message.From.ID).
			Msg("Ignoring non-text message")
		return
	}

	b.handleText(ctx, message)
}

// handleCommand processes bot commands
func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	command := message.Command()

	b.logger.Info().
		Str("command", command).
		Int64("user_id", message.From.ID).
		Str("username", message.From.UserName).
		Msg("Received command")

	switch command {
	case "start", "help":
		b.sendMessage(ctx, message.Chat.ID, b.greeting())
	default:
		b.sendMessage(ctx, message.Chat.ID, unknownCommandText)
	}
}

func (b *Bot) greeting() string {
	return fmt.Sprintf(
		"Привет! Я помогаю составлять карточки товаров для маркетплейсов.\n\n"+
			"Пришлите описание товара одним сообщением, и я подготовлю название, "+
			"описание и характеристики для карточки.\n\n"+
			"Модель: %s",
		b.providerLabel(),
	)
}

func (b *Bot) providerLabel() string {
	if b.config == nil {
		return "-"
	}
	switch b.config.Provider {
	case models.ProviderGemini:
		return "Gemini " + b.config.GeminiModel
	case models.ProviderAssistant:
		return "OpenAI Assistant"
	default:
		return "OpenAI " + b.config.OpenAIModel
	}
}

// handleText runs one turn: placeholder, provider call, delivery
func (b *Bot) handleText(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	logger := b.logger.With().
		Int64("user_id", message.From.ID).
		Int64("chat_id", chatID).
		Logger()

	status, err := b.transport.Send(ctx, chatID, models.ProcessingText)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to send status message")
		return
	}

	turn := &models.Turn{
		UserID:     message.From.ID,
		Username:   message.From.UserName,
		ChatID:     chatID,
		MessageID:  message.MessageID,
		Text:       message.Text,
		ReceivedAt: time.Now().UTC(),
	}

	result := b.turns.RunTurn(ctx, turn)
	if result.Failed() {
		logger.Error().
			Err(result.Err).
			Str("turn_id", turn.ID).
			Str("error_kind", string(models.KindOf(result.Err))).
			Dur("duration", result.Duration).
			Msg("Turn failed")
		b.deliver(ctx, status, models.Apology, turn.ID)
		return
	}

	logger.Info().
		Str("turn_id", turn.ID).
		Int("response_length", len([]rune(result.Text))).
		Dur("duration", result.Duration).
		Msg("Turn completed")

	b.deliver(ctx, status, result.Text, turn.ID)
}

func (b *Bot) deliver(ctx context.Context, status delivery.MessageRef, text, turnID string) {
	if err := b.pipeline.DeliverText(ctx, status, text); err != nil {
		b.logger.Error().
			Err(err).
			Str("turn_id", turnID).
			Int64("chat_id", status.ChatID).
			Msg("Failed to deliver response")
	}
}
