package bot

import (
	"context"
	"runtime/debug"
)

// recoverMiddleware handles panics in message handlers
func (b *Bot) recoverMiddleware(handler func()) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Panic recovered in handler")
		}
	}()

	handler()
}

// sendMessage sends a plain message and logs a failure instead of returning it
func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string) {
	if _, err := b.transport.Send(ctx, chatID, text); err != nil {
		b.logger.Error().
			Err(err).
			Int64("chat_id", chatID).
			Msg("Failed to send message")
	}
}
