package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/marketplace-card-bot/internal/models"
)

// LogExchange writes a finished turn to the exchanges table
func (c *Client) LogExchange(ctx context.Context, exchange *models.Exchange) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if exchange.CreatedAt.IsZero() {
		exchange.CreatedAt = time.Now().UTC()
	}

	err := c.withRetry(ctx, "log_exchange", func() error {
		err := c.execute(ctx, func() error {
			_, _, err := c.client.From(exchangesTable).
				Insert(exchangeRow(exchange), false, "", "", "").
				Execute()
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to insert exchange: %w", err)
		}

		return nil
	})

	if err != nil {
		c.logger.Error().
			Err(err).
			Str("turn_id", exchange.TurnID).
			Int64("user_id", exchange.UserID).
			Msg("Failed to log exchange")
		return err
	}

	c.logger.Debug().
		Str("turn_id", exchange.TurnID).
		Int64("user_id", exchange.UserID).
		Str("provider", exchange.Provider).
		Int("response_len", exchange.ResponseLength).
		Int("exec_time_ms", exchange.ExecutionTimeMs).
		Msg("Exchange logged successfully")

	return nil
}

func exchangeRow(e *models.Exchange) map[string]interface{} {
	return map[string]interface{}{
		"turn_id":           e.TurnID,
		"user_id":           e.UserID,
		"username":          e.Username,
		"chat_id":           e.ChatID,
		"provider":          e.Provider,
		"model":             e.Model,
		"request_text":      e.RequestText,
		"response_text":     e.ResponseText,
		"response_length":   e.ResponseLength,
		"execution_time_ms": e.ExecutionTimeMs,
		"error_kind":        e.ErrorKind,
		"error_message":     e.ErrorMessage,
		"created_at":        e.CreatedAt,
	}
}
