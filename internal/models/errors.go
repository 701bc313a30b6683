package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures at the turn boundary
type ErrorKind string

const (
	KindConfig          ErrorKind = "ConfigError"
	KindProvider        ErrorKind = "ProviderError"
	KindSessionCreation ErrorKind = "SessionCreationError"
	KindTimeout         ErrorKind = "TimeoutError"
	KindDelivery        ErrorKind = "DeliveryError"
)

// Sentinels for errors.Is checks against a *TurnError
var (
	ErrConfig          = errors.New("config error")
	ErrProvider        = errors.New("provider error")
	ErrSessionCreation = errors.New("session creation error")
	ErrTimeout         = errors.New("timeout error")
	ErrDelivery        = errors.New("delivery error")
)

// TurnError is a classified error carrying the operation that failed
type TurnError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// NewError wraps err with a kind and operation name
func NewError(kind ErrorKind, op string, err error) *TurnError {
	return &TurnError{Kind: kind, Op: op, Err: err}
}

func (e *TurnError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind. A session creation failure
// is also a provider failure.
func (e *TurnError) Is(target error) bool {
	switch target {
	case ErrConfig:
		return e.Kind == KindConfig
	case ErrProvider:
		return e.Kind == KindProvider || e.Kind == KindSessionCreation
	case ErrSessionCreation:
		return e.Kind == KindSessionCreation
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrDelivery:
		return e.Kind == KindDelivery
	}
	return false
}

// KindOf returns the kind of the first TurnError in err's chain, or "" if none
func KindOf(err error) ErrorKind {
	var te *TurnError
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}
