package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockHandle struct {
	finishes int
	output   string
	err      error
	panics   bool
}

func (h *mockHandle) Finish(output string, err error) {
	h.finishes++
	h.output = output
	h.err = err
	if h.panics {
		panic("exporter exploded")
	}
}

type mockSink struct {
	handle  *mockHandle
	panics  bool
	started []Observation
}

func (s *mockSink) Start(ctx context.Context, obs Observation) (context.Context, Handle) {
	if s.panics {
		panic("sink misconfigured")
	}
	s.started = append(s.started, obs)
	if s.handle == nil {
		return ctx, nil
	}
	return ctx, s.handle
}

var testObs = Observation{Name: "telegram-openai-responses", UserID: "42", Model: "gpt-4o-mini", Input: "красные кроссовки"}

func TestObserve_NilSinkRunsFn(t *testing.T) {
	out, err := Observe(context.Background(), nil, testObs, zerolog.Nop(), func(ctx context.Context) (string, error) {
		return "card", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "card", out)
}

func TestObserve_RecordsOutput(t *testing.T) {
	h := &mockHandle{}
	sink := &mockSink{handle: h}

	out, err := Observe(context.Background(), sink, testObs, zerolog.Nop(), func(ctx context.Context) (string, error) {
		return "card", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "card", out)
	require.Len(t, sink.started, 1)
	assert.Equal(t, testObs, sink.started[0])
	assert.Equal(t, 1, h.finishes)
	assert.Equal(t, "card", h.output)
	assert.NoError(t, h.err)
}

func TestObserve_RecordsAndPropagatesError(t *testing.T) {
	h := &mockHandle{}
	boom := errors.New("connection refused")

	out, err := Observe(context.Background(), &mockSink{handle: h}, testObs, zerolog.Nop(), func(ctx context.Context) (string, error) {
		return "", boom
	})

	assert.Same(t, boom, err)
	assert.Empty(t, out)
	assert.Equal(t, 1, h.finishes)
	assert.Same(t, boom, h.err)
}

func TestObserve_StartPanicStillRunsFn(t *testing.T) {
	ran := false

	out, err := Observe(context.Background(), &mockSink{panics: true}, testObs, zerolog.Nop(), func(ctx context.Context) (string, error) {
		ran = true
		return "card", nil
	})

	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, "card", out)
}

func TestObserve_NilHandleRunsFn(t *testing.T) {
	out, err := Observe(context.Background(), &mockSink{}, testObs, zerolog.Nop(), func(ctx context.Context) (string, error) {
		return "card", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "card", out)
}

func TestObserve_FinishPanicDoesNotChangeResult(t *testing.T) {
	h := &mockHandle{panics: true}

	out, err := Observe(context.Background(), &mockSink{handle: h}, testObs, zerolog.Nop(), func(ctx context.Context) (string, error) {
		return "card", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "card", out)
	assert.Equal(t, 1, h.finishes)
}

func TestObserve_PanicInFnFinishesOnceAndRepanics(t *testing.T) {
	h := &mockHandle{}

	assert.PanicsWithValue(t, "nil map", func() {
		_, _ = Observe(context.Background(), &mockSink{handle: h}, testObs, zerolog.Nop(), func(ctx context.Context) (string, error) {
			panic("nil map")
		})
	})

	assert.Equal(t, 1, h.finishes)
	require.Error(t, h.err)
	assert.Contains(t, h.err.Error(), "nil map")
}
