package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTurnError_SessionCreationIsProviderError(t *testing.T) {
	err := NewError(KindSessionCreation, "create thread", errors.New("boom"))

	assert.ErrorIs(t, err, ErrSessionCreation)
	assert.ErrorIs(t, err, ErrProvider)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestTurnError_WrappedKind(t *testing.T) {
	inner := NewError(KindTimeout, "poll run", errors.New("deadline"))
	wrapped := fmt.Errorf("turn failed: %w", inner)

	assert.ErrorIs(t, wrapped, ErrTimeout)
	assert.Equal(t, KindTimeout, KindOf(wrapped))
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
}
