package bot

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/marketplace-card-bot/internal/delivery"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBotAPI struct {
	sent       []tgbotapi.Chattable
	requested  []tgbotapi.Chattable
	sendErr    error
	requestErr error
}

func (f *fakeBotAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	return tgbotapi.Message{MessageID: 55}, nil
}

func (f *fakeBotAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requested = append(f.requested, c)
	if f.requestErr != nil {
		return nil, f.requestErr
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func TestTransport_Send(t *testing.T) {
	api := &fakeBotAPI{}
	tr := NewTransport(api, zerolog.Nop())

	ref, err := tr.Send(context.Background(), 100, "привет")

	require.NoError(t, err)
	assert.Equal(t, delivery.MessageRef{ChatID: 100, MessageID: 55}, ref)
	require.Len(t, api.sent, 1)
	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, "привет", msg.Text)
	assert.Empty(t, msg.ParseMode)
}

func TestTransport_Edit(t *testing.T) {
	api := &fakeBotAPI{}
	tr := NewTransport(api, zerolog.Nop())

	err := tr.Edit(context.Background(), delivery.MessageRef{ChatID: 100, MessageID: 9}, "готово")

	require.NoError(t, err)
	require.Len(t, api.requested, 1)
	edit, ok := api.requested[0].(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.Equal(t, 9, edit.MessageID)
	assert.Equal(t, "готово", edit.Text)
}

func TestTransport_EditNotModifiedIsSuccess(t *testing.T) {
	api := &fakeBotAPI{requestErr: errors.New("Bad Request: message is not modified")}
	tr := NewTransport(api, zerolog.Nop())

	err := tr.Edit(context.Background(), delivery.MessageRef{ChatID: 1, MessageID: 2}, "same")

	assert.NoError(t, err)
}

func TestTransport_EditFailure(t *testing.T) {
	api := &fakeBotAPI{requestErr: errors.New("Bad Request: message to edit not found")}
	tr := NewTransport(api, zerolog.Nop())

	err := tr.Edit(context.Background(), delivery.MessageRef{ChatID: 1, MessageID: 2}, "text")

	assert.Error(t, err)
}

func TestTransport_CancelledContext(t *testing.T) {
	api := &fakeBotAPI{}
	tr := NewTransport(api, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tr.Send(ctx, 1, "text")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, api.sent)
}
