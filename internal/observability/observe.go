package observability

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Observation describes one generation to be recorded
type Observation struct {
	Name     string
	UserID   string
	Model    string
	Input    string
	Metadata map[string]string
}

// Handle finalizes a started observation
type Handle interface {
	Finish(output string, err error)
}

// Sink starts observations. A nil Handle means nothing is being recorded.
type Sink interface {
	Start(ctx context.Context, obs Observation) (context.Context, Handle)
}

// Observe runs fn inside an observation. Recording is best effort: a sink
// that fails or panics never changes fn's result, and a started observation
// is finished exactly once on every exit path.
func Observe(
	ctx context.Context,
	sink Sink,
	obs Observation,
	logger zerolog.Logger,
	fn func(ctx context.Context) (string, error),
) (string, error) {
	if sink == nil {
		return fn(ctx)
	}

	ctx, handle := start(ctx, sink, obs, logger)
	if handle == nil {
		return fn(ctx)
	}

	finished := false
	defer func() {
		if r := recover(); r != nil {
			if !finished {
				finish(handle, "", fmt.Errorf("panic: %v", r), logger)
			}
			panic(r)
		}
	}()

	output, err := fn(ctx)
	finished = true
	finish(handle, output, err, logger)

	return output, err
}

func start(ctx context.Context, sink Sink, obs Observation, logger zerolog.Logger) (outCtx context.Context, handle Handle) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Interface("panic", r).
				Str("observation", obs.Name).
				Msg("Failed to start observation")
			outCtx, handle = ctx, nil
		}
	}()

	outCtx, handle = sink.Start(ctx, obs)
	if outCtx == nil {
		outCtx = ctx
	}
	return outCtx, handle
}

func finish(handle Handle, output string, err error, logger zerolog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Interface("panic", r).
				Msg("Failed to finish observation")
		}
	}()

	handle.Finish(output, err)
}
