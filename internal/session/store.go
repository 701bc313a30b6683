package session

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/marketplace-card-bot/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// createTimeout bounds a creation that outlives the caller that started it
const createTimeout = time.Minute

// CreateFunc creates a remote provider session and returns its token
type CreateFunc func(ctx context.Context) (string, error)

// Store maps users to provider session tokens for the lifetime of the process.
// Concurrent first turns of one user share a single creation call.
type Store struct {
	mu       sync.RWMutex
	sessions map[models.UserID]string
	flight   singleflight.Group
	logger   zerolog.Logger
}

// NewStore creates an empty session store
func NewStore(logger zerolog.Logger) *Store {
	return &Store{
		sessions: make(map[models.UserID]string),
		logger:   logger.With().Str("component", "session").Logger(),
	}
}

// GetOrCreate returns the user's session token, creating it on first use.
// If create fails nothing is stored and a SessionCreationError is returned.
func (s *Store) GetOrCreate(ctx context.Context, userID models.UserID, create CreateFunc) (string, error) {
	if token, ok := s.lookup(userID); ok {
		return token, nil
	}

	key := strconv.FormatInt(userID, 10)
	ch := s.flight.DoChan(key, func() (interface{}, error) {
		// Another flight may have finished between lookup and DoChan.
		if token, ok := s.lookup(userID); ok {
			return token, nil
		}

		// Callers waiting on the same flight must not fail because the
		// one that started it went away.
		createCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), createTimeout)
		defer cancel()

		token, err := create(createCtx)
		if err != nil {
			return "", err
		}

		s.mu.Lock()
		s.sessions[userID] = token
		s.mu.Unlock()

		s.logger.Info().
			Int64("user_id", userID).
			Str("session", token).
			Msg("Provider session created")

		return token, nil
	})

	select {
	case <-ctx.Done():
		return "", models.NewError(models.KindSessionCreation, "create session", ctx.Err())

	case res := <-ch:
		if res.Err != nil {
			s.logger.Error().
				Err(res.Err).
				Int64("user_id", userID).
				Bool("shared", res.Shared).
				Msg("Failed to create provider session")
			return "", models.NewError(models.KindSessionCreation, "create session", res.Err)
		}
		return res.Val.(string), nil
	}
}

// Len returns the number of stored sessions
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) lookup(userID models.UserID) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.sessions[userID]
	return token, ok
}
