package llm

import (
	"context"
	"errors"

	"github.com/marketplace-card-bot/internal/models"
)

// Provider turns a user's request into the model's answer
type Provider interface {
	// Name is used as the observation name
	Name() string
	Model() string
	Metadata() map[string]string
	Generate(ctx context.Context, turn *models.Turn) (string, error)
}

// SessionProvider is a Provider that keeps conversation state server side.
// Generate expects turn.Session to hold a token from CreateSession.
type SessionProvider interface {
	Provider
	CreateSession(ctx context.Context) (string, error)
}

// classify wraps an SDK error into the turn error taxonomy
func classify(op string, err error) error {
	var te *models.TurnError
	if errors.As(err, &te) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.NewError(models.KindTimeout, op, err)
	}
	return models.NewError(models.KindProvider, op, err)
}
