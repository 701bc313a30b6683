package turn

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace-card-bot/internal/llm"
	"github.com/marketplace-card-bot/internal/models"
	"github.com/marketplace-card-bot/internal/observability"
	"github.com/marketplace-card-bot/internal/session"
	"github.com/rs/zerolog"
)

// SessionStore resolves a user's provider session
type SessionStore interface {
	GetOrCreate(ctx context.Context, userID models.UserID, create session.CreateFunc) (string, error)
}

// ExchangeRecorder persists finished turns
type ExchangeRecorder interface {
	LogExchange(ctx context.Context, exchange *models.Exchange) error
}

// Orchestrator maps one inbound message to exactly one provider call
type Orchestrator struct {
	provider llm.Provider
	sessions SessionStore
	sink     observability.Sink
	recorder ExchangeRecorder
	logger   zerolog.Logger
}

// NewOrchestrator creates a turn orchestrator. sink and recorder may be nil.
// sessions may be nil, in which case a fresh in-memory store is used.
func NewOrchestrator(
	provider llm.Provider,
	sessions SessionStore,
	sink observability.Sink,
	recorder ExchangeRecorder,
	logger zerolog.Logger,
) *Orchestrator {
	if sessions == nil {
		sessions = session.NewStore(logger)
	}
	return &Orchestrator{
		provider: provider,
		sessions: sessions,
		sink:     sink,
		recorder: recorder,
		logger:   logger.With().Str("component", "turn").Logger(),
	}
}

// RunTurn resolves the session, calls the provider inside an observation and
// returns the text to deliver or a classified error
func (o *Orchestrator) RunTurn(ctx context.Context, turn *models.Turn) (result models.TurnResult) {
	start := time.Now()
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.ReceivedAt.IsZero() {
		turn.ReceivedAt = start.UTC()
	}

	logger := o.logger.With().
		Str("turn_id", turn.ID).
		Int64("user_id", turn.UserID).
		Str("provider", o.provider.Name()).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Interface("panic", r).
				Msg("Panic recovered in turn")
			result = models.TurnResult{
				Err:      models.NewError(models.KindProvider, "generate", fmt.Errorf("panic: %v", r)),
				Duration: time.Since(start),
			}
		}
		o.record(ctx, turn, result, logger)
	}()

	logger.Info().
		Int("input_length", len([]rune(turn.Text))).
		Msg("Turn started")

	obs := observability.Observation{
		Name:     o.provider.Name(),
		UserID:   strconv.FormatInt(turn.UserID, 10),
		Model:    o.provider.Model(),
		Input:    turn.Text,
		Metadata: o.metadata(turn),
	}

	text, err := observability.Observe(ctx, o.sink, obs, logger, func(ctx context.Context) (string, error) {
		return o.generate(ctx, turn)
	})

	result = models.TurnResult{Text: text, Err: err, Duration: time.Since(start)}

	if err != nil {
		logger.Error().
			Err(err).
			Str("error_kind", string(models.KindOf(err))).
			Dur("duration", result.Duration).
			Msg("Turn failed")
	} else {
		logger.Info().
			Int("response_length", len([]rune(text))).
			Dur("duration", result.Duration).
			Msg("Turn completed")
	}

	return result
}

func (o *Orchestrator) generate(ctx context.Context, turn *models.Turn) (string, error) {
	if sp, ok := o.provider.(llm.SessionProvider); ok {
		token, err := o.sessions.GetOrCreate(ctx, turn.UserID, sp.CreateSession)
		if err != nil {
			return "", err
		}
		turn.Session = token
	}

	text, err := o.provider.Generate(ctx, turn)
	if err != nil {
		if models.KindOf(err) == "" {
			err = models.NewError(models.KindProvider, "generate", err)
		}
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		return models.NoAnswer, nil
	}
	return text, nil
}

func (o *Orchestrator) metadata(turn *models.Turn) map[string]string {
	meta := map[string]string{
		"channel": "telegram",
		"turn_id": turn.ID,
	}
	for k, v := range o.provider.Metadata() {
		meta[k] = v
	}
	return meta
}

// record writes the exchange log; failures are only logged
func (o *Orchestrator) record(ctx context.Context, turn *models.Turn, result models.TurnResult, logger zerolog.Logger) {
	if o.recorder == nil {
		return
	}

	exchange := &models.Exchange{
		TurnID:          turn.ID,
		UserID:          turn.UserID,
		Username:        turn.Username,
		ChatID:          turn.ChatID,
		Provider:        o.provider.Name(),
		Model:           o.provider.Model(),
		RequestText:     turn.Text,
		ResponseText:    result.Text,
		ResponseLength:  len([]rune(result.Text)),
		ExecutionTimeMs: int(result.Duration.Milliseconds()),
		CreatedAt:       time.Now().UTC(),
	}
	if result.Err != nil {
		exchange.ErrorKind = string(models.KindOf(result.Err))
		exchange.ErrorMessage = result.Err.Error()
	}

	if err := o.recorder.LogExchange(ctx, exchange); err != nil {
		logger.Warn().
			Err(err).
			Msg("Failed to record exchange")
	}
}
