package llm

import (
	"context"
	"time"

	"github.com/marketplace-card-bot/internal/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog"
)

// responsesAPI sends one system+user exchange and returns the output text
type responsesAPI interface {
	Create(ctx context.Context, model, system, user string) (string, error)
}

// ResponsesProvider is the stateless OpenAI Responses API provider
type ResponsesProvider struct {
	api     responsesAPI
	model   string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewResponsesProvider creates a provider backed by the OpenAI Responses API
func NewResponsesProvider(cfg *models.BotConfig, logger zerolog.Logger) *ResponsesProvider {
	return newResponsesProvider(
		openAIResponses{client: newOpenAIClient(cfg)},
		cfg.OpenAIModel,
		time.Duration(cfg.OpenAITimeout)*time.Second,
		logger,
	)
}

func newResponsesProvider(api responsesAPI, model string, timeout time.Duration, logger zerolog.Logger) *ResponsesProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &ResponsesProvider{
		api:     api,
		model:   model,
		timeout: timeout,
		logger:  logger.With().Str("component", "llm").Str("provider", "responses").Logger(),
	}
}

func (p *ResponsesProvider) Name() string  { return responsesObservation }
func (p *ResponsesProvider) Model() string { return p.model }

func (p *ResponsesProvider) Metadata() map[string]string {
	return map[string]string{"provider": "openai"}
}

// Generate sends the system prompt and the user's text in one request
func (p *ResponsesProvider) Generate(ctx context.Context, turn *models.Turn) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	p.logger.Debug().
		Int64("user_id", turn.UserID).
		Str("model", p.model).
		Msg("Sending request to Responses API")

	text, err := p.api.Create(ctx, p.model, SystemPrompt, turn.Text)
	if err != nil {
		return "", classify("responses create", err)
	}

	return text, nil
}

func newOpenAIClient(cfg *models.BotConfig) openai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.OpenAIAPIKey),
	}
	if cfg.OpenAIBaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.OpenAIBaseURL))
	}
	return openai.NewClient(opts...)
}

type openAIResponses struct {
	client openai.Client
}

func (a openAIResponses) Create(ctx context.Context, model, system, user string) (string, error) {
	resp, err := a.client.Responses.New(ctx, responses.ResponseNewParams{
		Model: shared.ResponsesModel(model),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(system, responses.EasyInputMessageRoleSystem),
				responses.ResponseInputItemParamOfMessage(user, responses.EasyInputMessageRoleUser),
			},
		},
	})
	if err != nil {
		return "", err
	}
	return resp.OutputText(), nil
}
