package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/marketplace-card-bot/internal/delivery"
	"github.com/rs/zerolog"
)

// Telegram rejects an edit whose text equals the current one
const errNotModified = "message is not modified"

// chattableSender is the part of tgbotapi.BotAPI used for outbound messages
type chattableSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Transport sends and edits plain text messages through the Bot API
type Transport struct {
	api    chattableSender
	logger zerolog.Logger
}

// NewTransport wraps a Bot API client as a delivery transport
func NewTransport(api chattableSender, logger zerolog.Logger) *Transport {
	return &Transport{
		api:    api,
		logger: logger.With().Str("component", "telegram_transport").Logger(),
	}
}

var _ delivery.Transport = (*Transport)(nil)

// Send posts a new message to chatID
func (t *Transport) Send(ctx context.Context, chatID int64, text string) (delivery.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return delivery.MessageRef{}, err
	}

	sent, err := t.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return delivery.MessageRef{}, fmt.Errorf("failed to send message: %w", err)
	}

	return delivery.MessageRef{ChatID: chatID, MessageID: sent.MessageID}, nil
}

// Edit replaces the text of an existing message
func (t *Transport) Edit(ctx context.Context, ref delivery.MessageRef, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := t.api.Request(tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, text))
	if err != nil {
		if strings.Contains(err.Error(), errNotModified) {
			t.logger.Debug().
				Int64("chat_id", ref.ChatID).
				Int("message_id", ref.MessageID).
				Msg("Edit skipped, text unchanged")
			return nil
		}
		return fmt.Errorf("failed to edit message: %w", err)
	}

	return nil
}
