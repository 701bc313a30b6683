package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/marketplace-card-bot/internal/models"
	"github.com/openai/openai-go"
	"github.com/rs/zerolog"
)

const cancelRunTimeout = 10 * time.Second

// runState is the local view of an assistant run
type runState string

const (
	runQueued     runState = "queued"
	runInProgress runState = "in_progress"
	runCompleted  runState = "completed"
	runFailed     runState = "failed"
	runCancelled  runState = "cancelled"
	runTimedOut   runState = "timed_out"
)

// stateOf maps a remote run status onto the local state machine
func stateOf(status string) runState {
	switch status {
	case "queued":
		return runQueued
	case "in_progress", "cancelling":
		return runInProgress
	case "completed", "incomplete":
		return runCompleted
	case "cancelled":
		return runCancelled
	default:
		// failed, expired, requires_action (no tools are registered)
		return runFailed
	}
}

func (s runState) terminal() bool {
	return s != runQueued && s != runInProgress
}

type runRef struct {
	ID     string
	Status string
}

type threadMessage struct {
	Role  string
	RunID string
	Texts []string
}

// threadsAPI is the subset of the Assistants API the provider needs
type threadsAPI interface {
	CreateThread(ctx context.Context) (string, error)
	AddUserMessage(ctx context.Context, threadID, text string) error
	CreateRun(ctx context.Context, threadID, assistantID string) (runRef, error)
	GetRun(ctx context.Context, threadID, runID string) (runRef, error)
	CancelRun(ctx context.Context, threadID, runID string) error
	// RunMessages lists the messages a run produced, oldest first
	RunMessages(ctx context.Context, threadID, runID string) ([]threadMessage, error)
}

// AssistantProvider talks to an OpenAI assistant through per-user threads
type AssistantProvider struct {
	api          threadsAPI
	assistantID  string
	pollInterval time.Duration
	runTimeout   time.Duration
	logger       zerolog.Logger
}

// NewAssistantProvider creates a provider backed by the OpenAI Assistants API
func NewAssistantProvider(cfg *models.BotConfig, logger zerolog.Logger) *AssistantProvider {
	return newAssistantProvider(
		openAIThreads{client: newOpenAIClient(cfg)},
		cfg.AssistantID,
		time.Duration(cfg.AssistantPollIntervalMs)*time.Millisecond,
		time.Duration(cfg.AssistantRunTimeout)*time.Second,
		logger,
	)
}

func newAssistantProvider(api threadsAPI, assistantID string, pollInterval, runTimeout time.Duration, logger zerolog.Logger) *AssistantProvider {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &AssistantProvider{
		api:          api,
		assistantID:  assistantID,
		pollInterval: pollInterval,
		runTimeout:   runTimeout,
		logger:       logger.With().Str("component", "llm").Str("provider", "assistant").Logger(),
	}
}

func (p *AssistantProvider) Name() string  { return assistantObservation }
func (p *AssistantProvider) Model() string { return assistantModel }

func (p *AssistantProvider) Metadata() map[string]string {
	return map[string]string{"assistant_id": p.assistantID}
}

// CreateSession creates a new thread
func (p *AssistantProvider) CreateSession(ctx context.Context) (string, error) {
	threadID, err := p.api.CreateThread(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create thread: %w", err)
	}
	return threadID, nil
}

// Generate posts the user's message into the thread, runs the assistant and
// collects the assistant messages produced by that run
func (p *AssistantProvider) Generate(ctx context.Context, turn *models.Turn) (string, error) {
	threadID := turn.Session
	if threadID == "" {
		return "", models.NewError(models.KindProvider, "assistant generate", fmt.Errorf("no thread for user %d", turn.UserID))
	}

	if err := p.api.AddUserMessage(ctx, threadID, turn.Text); err != nil {
		return "", classify("add message", err)
	}

	run, err := p.api.CreateRun(ctx, threadID, p.assistantID)
	if err != nil {
		return "", classify("create run", err)
	}

	p.logger.Debug().
		Int64("user_id", turn.UserID).
		Str("thread_id", threadID).
		Str("run_id", run.ID).
		Msg("Run started")

	last, state, err := p.awaitRun(ctx, threadID, run)
	if err != nil || state == runTimedOut || remoteActive(last.Status) {
		p.cancelRun(ctx, threadID, run.ID, last.Status)
	}
	if err != nil {
		return "", classify("poll run", err)
	}

	switch state {
	case runCompleted:
	case runTimedOut:
		return "", models.NewError(models.KindTimeout, "poll run", fmt.Errorf("run %s not finished after %s", run.ID, p.runTimeout))
	default:
		return "", models.NewError(models.KindProvider, "poll run", fmt.Errorf("run %s ended with status %s", run.ID, last.Status))
	}

	messages, err := p.api.RunMessages(ctx, threadID, run.ID)
	if err != nil {
		return "", classify("list messages", err)
	}

	return assistantText(messages, run.ID), nil
}

// awaitRun polls the run until it reaches a terminal state or the run
// timeout elapses. It returns the last status seen.
func (p *AssistantProvider) awaitRun(ctx context.Context, threadID string, run runRef) (runRef, runState, error) {
	last := run
	state := stateOf(run.Status)
	if state.terminal() {
		return last, state, nil
	}

	var deadline <-chan time.Time
	if p.runTimeout > 0 {
		timer := time.NewTimer(p.runTimeout)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for !state.terminal() {
		select {
		case <-ctx.Done():
			return last, state, ctx.Err()

		case <-deadline:
			return last, runTimedOut, nil

		case <-ticker.C:
			current, err := p.api.GetRun(ctx, threadID, run.ID)
			if err != nil {
				return last, state, err
			}
			last = current
			state = stateOf(current.Status)
		}
	}

	return last, state, nil
}

// remoteActive reports whether the server still holds the thread for a run
// in this status. requires_action stays open until the run expires.
func remoteActive(status string) bool {
	switch status {
	case "queued", "in_progress", "requires_action":
		return true
	}
	return false
}

// cancelRun asks the API to stop an abandoned run, so the thread is not
// locked for the user's next message
func (p *AssistantProvider) cancelRun(ctx context.Context, threadID, runID, status string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelRunTimeout)
	defer cancel()

	if err := p.api.CancelRun(ctx, threadID, runID); err != nil {
		p.logger.Warn().
			Err(err).
			Str("thread_id", threadID).
			Str("run_id", runID).
			Str("status", status).
			Msg("Failed to cancel abandoned run")
		return
	}

	p.logger.Debug().
		Str("thread_id", threadID).
		Str("run_id", runID).
		Str("status", status).
		Msg("Run cancelled")
}

// assistantText joins the text of the run's assistant messages in order
func assistantText(messages []threadMessage, runID string) string {
	var texts []string
	for _, msg := range messages {
		if msg.Role != "assistant" || msg.RunID != runID {
			continue
		}
		texts = append(texts, msg.Texts...)
	}
	return strings.Join(texts, "\n")
}

type openAIThreads struct {
	client openai.Client
}

func (a openAIThreads) CreateThread(ctx context.Context) (string, error) {
	thread, err := a.client.Beta.Threads.New(ctx, openai.BetaThreadNewParams{})
	if err != nil {
		return "", err
	}
	return thread.ID, nil
}

func (a openAIThreads) AddUserMessage(ctx context.Context, threadID, text string) error {
	_, err := a.client.Beta.Threads.Messages.New(ctx, threadID, openai.BetaThreadMessageNewParams{
		Role: openai.BetaThreadMessageNewParamsRoleUser,
		Content: openai.BetaThreadMessageNewParamsContentUnion{
			OfString: openai.String(text),
		},
	})
	return err
}

func (a openAIThreads) CreateRun(ctx context.Context, threadID, assistantID string) (runRef, error) {
	run, err := a.client.Beta.Threads.Runs.New(ctx, threadID, openai.BetaThreadRunNewParams{
		AssistantID: assistantID,
	})
	if err != nil {
		return runRef{}, err
	}
	return runRef{ID: run.ID, Status: string(run.Status)}, nil
}

func (a openAIThreads) GetRun(ctx context.Context, threadID, runID string) (runRef, error) {
	run, err := a.client.Beta.Threads.Runs.Get(ctx, threadID, runID)
	if err != nil {
		return runRef{}, err
	}
	return runRef{ID: run.ID, Status: string(run.Status)}, nil
}

func (a openAIThreads) CancelRun(ctx context.Context, threadID, runID string) error {
	_, err := a.client.Beta.Threads.Runs.Cancel(ctx, threadID, runID)
	return err
}

func (a openAIThreads) RunMessages(ctx context.Context, threadID, runID string) ([]threadMessage, error) {
	page, err := a.client.Beta.Threads.Messages.List(ctx, threadID, openai.BetaThreadMessageListParams{
		RunID: openai.String(runID),
		Order: openai.BetaThreadMessageListParamsOrderAsc,
		Limit: openai.Int(100),
	})
	if err != nil {
		return nil, err
	}

	messages := make([]threadMessage, 0, len(page.Data))
	for _, m := range page.Data {
		msg := threadMessage{Role: string(m.Role), RunID: m.RunID}
		for _, block := range m.Content {
			if block.Type == "text" {
				msg.Texts = append(msg.Texts, block.Text.Value)
			}
		}
		messages = append(messages, msg)
	}
	return messages, nil
}
