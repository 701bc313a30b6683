package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/marketplace-card-bot/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockThreads struct {
	mu        sync.Mutex
	statuses  []string // returned by successive GetRun calls; last one repeats
	initial   string
	polls     int
	messages  []threadMessage
	added     []string
	cancelled []string
	createErr error
	addErr    error
	listErr   error
	getErr    error
	threadSeq int
}

func (m *mockThreads) CreateThread(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return "", m.createErr
	}
	m.threadSeq++
	return "thread_" + string(rune('0'+m.threadSeq)), nil
}

func (m *mockThreads) AddUserMessage(ctx context.Context, threadID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	m.added = append(m.added, threadID+":"+text)
	return nil
}

func (m *mockThreads) CreateRun(ctx context.Context, threadID, assistantID string) (runRef, error) {
	status := m.initial
	if status == "" {
		status = "queued"
	}
	return runRef{ID: "run_1", Status: status}, nil
}

func (m *mockThreads) GetRun(ctx context.Context, threadID, runID string) (runRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return runRef{}, m.getErr
	}
	i := m.polls
	if i >= len(m.statuses) {
		i = len(m.statuses) - 1
	}
	m.polls++
	return runRef{ID: runID, Status: m.statuses[i]}, nil
}

func (m *mockThreads) CancelRun(ctx context.Context, threadID, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled = append(m.cancelled, runID)
	return nil
}

func (m *mockThreads) RunMessages(ctx context.Context, threadID, runID string) ([]threadMessage, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.messages, nil
}

func newTestAssistant(api threadsAPI, timeout time.Duration) *AssistantProvider {
	return newAssistantProvider(api, "asst_123", time.Millisecond, timeout, zerolog.Nop())
}

func testTurn(session string) *models.Turn {
	return &models.Turn{ID: "t1", UserID: 42, Text: "красные кроссовки", Session: session}
}

func TestAssistant_CompletedJoinsAssistantMessagesInOrder(t *testing.T) {
	api := &mockThreads{
		statuses: []string{"in_progress", "in_progress", "completed"},
		messages: []threadMessage{
			{Role: "user", RunID: "", Texts: []string{"красные кроссовки"}},
			{Role: "assistant", RunID: "run_1", Texts: []string{"Название: Кроссовки"}},
			{Role: "assistant", RunID: "run_0", Texts: []string{"old answer"}},
			{Role: "assistant", RunID: "run_1", Texts: []string{"Описание: красные"}},
		},
	}
	p := newTestAssistant(api, time.Second)

	text, err := p.Generate(context.Background(), testTurn("thread_1"))

	require.NoError(t, err)
	assert.Equal(t, "Название: Кроссовки\nОписание: красные", text)
	assert.Equal(t, []string{"thread_1:красные кроссовки"}, api.added)
	assert.Equal(t, 3, api.polls)
}

func TestAssistant_CompletedWithoutMessagesReturnsEmpty(t *testing.T) {
	api := &mockThreads{statuses: []string{"completed"}}
	p := newTestAssistant(api, time.Second)

	text, err := p.Generate(context.Background(), testTurn("thread_1"))

	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestAssistant_TerminalFailureIsProviderError(t *testing.T) {
	for _, status := range []string{"failed", "cancelled", "expired", "requires_action"} {
		t.Run(status, func(t *testing.T) {
			api := &mockThreads{
				statuses: []string{"in_progress", status},
				messages: []threadMessage{{Role: "assistant", RunID: "run_1", Texts: []string{"partial"}}},
			}
			p := newTestAssistant(api, time.Second)

			text, err := p.Generate(context.Background(), testTurn("thread_1"))

			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrProvider)
			assert.Empty(t, text)
		})
	}
}

func TestAssistant_RunAlreadyTerminalSkipsPolling(t *testing.T) {
	api := &mockThreads{
		initial:  "completed",
		statuses: []string{"failed"},
		messages: []threadMessage{{Role: "assistant", RunID: "run_1", Texts: []string{"done"}}},
	}
	p := newTestAssistant(api, time.Second)

	text, err := p.Generate(context.Background(), testTurn("thread_1"))

	require.NoError(t, err)
	assert.Equal(t, "done", text)
	assert.Zero(t, api.polls)
}

func TestAssistant_TimeoutCancelsRun(t *testing.T) {
	api := &mockThreads{statuses: []string{"in_progress"}}
	p := newTestAssistant(api, 30*time.Millisecond)

	_, err := p.Generate(context.Background(), testTurn("thread_1"))

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrTimeout)
	assert.Equal(t, []string{"run_1"}, api.cancelled)
}

func TestAssistant_ContextCancelled(t *testing.T) {
	api := &mockThreads{statuses: []string{"queued"}}
	p := newTestAssistant(api, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Generate(ctx, testTurn("thread_1"))

	assert.ErrorIs(t, err, models.ErrTimeout)
	assert.Equal(t, []string{"run_1"}, api.cancelled)
}

func TestAssistant_PollErrorCancelsRun(t *testing.T) {
	api := &mockThreads{statuses: []string{"queued"}, getErr: errors.New("502 bad gateway")}
	p := newTestAssistant(api, time.Second)

	_, err := p.Generate(context.Background(), testTurn("thread_1"))

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrProvider)
	assert.Equal(t, []string{"run_1"}, api.cancelled)
}

func TestAssistant_RequiresActionCancelsRun(t *testing.T) {
	api := &mockThreads{statuses: []string{"in_progress", "requires_action"}}
	p := newTestAssistant(api, time.Second)

	_, err := p.Generate(context.Background(), testTurn("thread_1"))

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrProvider)
	assert.Contains(t, err.Error(), "requires_action")
	assert.Equal(t, []string{"run_1"}, api.cancelled)
}

func TestAssistant_FinishedRunIsNotCancelled(t *testing.T) {
	for _, status := range []string{"completed", "failed", "cancelled", "expired", "cancelling"} {
		t.Run(status, func(t *testing.T) {
			final := status
			if status == "cancelling" {
				final = "cancelled"
			}
			api := &mockThreads{statuses: []string{status, final}}
			p := newTestAssistant(api, time.Second)

			_, _ = p.Generate(context.Background(), testTurn("thread_1"))

			assert.Empty(t, api.cancelled)
		})
	}
}

func TestRemoteActive(t *testing.T) {
	for _, status := range []string{"queued", "in_progress", "requires_action"} {
		assert.True(t, remoteActive(status), status)
	}
	for _, status := range []string{"cancelling", "completed", "incomplete", "failed", "cancelled", "expired"} {
		assert.False(t, remoteActive(status), status)
	}
}

func TestAssistant_APIErrorsAreProviderErrors(t *testing.T) {
	boom := errors.New("500 internal")

	_, err := newTestAssistant(&mockThreads{addErr: boom}, time.Second).Generate(context.Background(), testTurn("thread_1"))
	assert.ErrorIs(t, err, models.ErrProvider)
	assert.ErrorIs(t, err, boom)

	_, err = newTestAssistant(&mockThreads{statuses: []string{"queued"}, getErr: boom}, time.Second).Generate(context.Background(), testTurn("thread_1"))
	assert.ErrorIs(t, err, models.ErrProvider)

	_, err = newTestAssistant(&mockThreads{statuses: []string{"completed"}, listErr: boom}, time.Second).Generate(context.Background(), testTurn("thread_1"))
	assert.ErrorIs(t, err, models.ErrProvider)
}

func TestAssistant_MissingSession(t *testing.T) {
	_, err := newTestAssistant(&mockThreads{}, time.Second).Generate(context.Background(), testTurn(""))

	assert.ErrorIs(t, err, models.ErrProvider)
}

func TestAssistant_CreateSession(t *testing.T) {
	p := newTestAssistant(&mockThreads{}, time.Second)

	id, err := p.CreateSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "thread_1", id)

	_, err = newTestAssistant(&mockThreads{createErr: errors.New("quota")}, time.Second).CreateSession(context.Background())
	assert.Error(t, err)
}

func TestStateOf(t *testing.T) {
	cases := map[string]runState{
		"queued":          runQueued,
		"in_progress":     runInProgress,
		"cancelling":      runInProgress,
		"completed":       runCompleted,
		"incomplete":      runCompleted,
		"cancelled":       runCancelled,
		"failed":          runFailed,
		"expired":         runFailed,
		"requires_action": runFailed,
	}
	for status, want := range cases {
		assert.Equal(t, want, stateOf(status), status)
	}
	assert.False(t, runQueued.terminal())
	assert.False(t, runInProgress.terminal())
	assert.True(t, runTimedOut.terminal())
}
