package delivery

import (
	"context"
	"fmt"

	"github.com/marketplace-card-bot/internal/models"
	"github.com/rs/zerolog"
)

// MessageRef points at a message already sent to a chat
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Transport is the outbound side of the messenger
type Transport interface {
	Send(ctx context.Context, chatID int64, text string) (MessageRef, error)
	Edit(ctx context.Context, ref MessageRef, text string) error
}

// Pipeline delivers a response by editing the status placeholder and
// appending the remaining chunks as new messages
type Pipeline struct {
	transport Transport
	maxChunk  int
	logger    zerolog.Logger
}

// NewPipeline creates a delivery pipeline
func NewPipeline(transport Transport, maxChunk int, logger zerolog.Logger) *Pipeline {
	if maxChunk <= 0 || maxChunk > models.MaxChunkSize {
		maxChunk = models.MaxChunkSize
	}

	return &Pipeline{
		transport: transport,
		maxChunk:  maxChunk,
		logger:    logger.With().Str("component", "delivery").Logger(),
	}
}

// DeliverText splits text and delivers it in place of status
func (p *Pipeline) DeliverText(ctx context.Context, status MessageRef, text string) error {
	return p.Deliver(ctx, status, Split(text, p.maxChunk))
}

// Deliver puts chunks[0] into the status message and sends the rest in order.
// A failed edit falls back to a new message. A failed send stops delivery of
// the remaining chunks and returns a DeliveryError.
func (p *Pipeline) Deliver(ctx context.Context, status MessageRef, chunks []string) error {
	if len(chunks) == 0 {
		chunks = []string{models.NoAnswer}
	}

	if err := p.replaceStatus(ctx, status, chunks[0]); err != nil {
		return err
	}

	for i, chunk := range chunks[1:] {
		if _, err := p.transport.Send(ctx, status.ChatID, chunk); err != nil {
			p.logger.Error().
				Err(err).
				Int64("chat_id", status.ChatID).
				Int("chunk", i+1).
				Int("total_chunks", len(chunks)).
				Msg("Failed to send chunk, dropping the rest")
			return models.NewError(models.KindDelivery, fmt.Sprintf("send chunk %d/%d", i+2, len(chunks)), err)
		}
	}

	p.logger.Debug().
		Int64("chat_id", status.ChatID).
		Int("chunks", len(chunks)).
		Msg("Response delivered")

	return nil
}

// replaceStatus edits the placeholder, or sends text as a new message when
// the placeholder can no longer be edited
func (p *Pipeline) replaceStatus(ctx context.Context, status MessageRef, text string) error {
	err := p.transport.Edit(ctx, status, text)
	if err == nil {
		return nil
	}

	p.logger.Warn().
		Err(err).
		Int64("chat_id", status.ChatID).
		Int("message_id", status.MessageID).
		Msg("Failed to edit status message, sending a new one")

	if _, err := p.transport.Send(ctx, status.ChatID, text); err != nil {
		p.logger.Error().
			Err(err).
			Int64("chat_id", status.ChatID).
			Msg("Failed to send first chunk")
		return models.NewError(models.KindDelivery, "send first chunk", err)
	}

	return nil
}
