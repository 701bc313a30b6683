package llm

import (
	"context"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/marketplace-card-bot/internal/models"
	"github.com/rs/zerolog"
)

type contentAPI interface {
	GenerateText(ctx context.Context, model, system string, parts []genai.Part) (string, error)
}

// GeminiProvider sends the system prompt as a system instruction and attaches
// the context file, when one was uploaded, to every request
type GeminiProvider struct {
	api       contentAPI
	artifacts *ArtifactStore
	model     string
	timeout   time.Duration
	logger    zerolog.Logger
}

// NewGeminiProvider creates a Gemini provider. artifacts may be nil.
func NewGeminiProvider(client *GeminiClient, artifacts *ArtifactStore, cfg *models.BotConfig, logger zerolog.Logger) *GeminiProvider {
	return newGeminiProvider(client, artifacts, cfg.GeminiModel, time.Duration(cfg.GeminiTimeout)*time.Second, logger)
}

func newGeminiProvider(api contentAPI, artifacts *ArtifactStore, model string, timeout time.Duration, logger zerolog.Logger) *GeminiProvider {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiProvider{
		api:       api,
		artifacts: artifacts,
		model:     model,
		timeout:   timeout,
		logger:    logger.With().Str("component", "llm").Str("provider", "gemini").Logger(),
	}
}

func (p *GeminiProvider) Name() string  { return geminiObservation }
func (p *GeminiProvider) Model() string { return p.model }

func (p *GeminiProvider) Metadata() map[string]string {
	meta := map[string]string{"provider": "gemini"}
	if a, ok := p.artifacts.Current(); ok {
		meta["context_file"] = a.Name
	}
	return meta
}

// Generate sends the user's text, plus the context file reference when present
func (p *GeminiProvider) Generate(ctx context.Context, turn *models.Turn) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	parts := []genai.Part{genai.Text(turn.Text)}
	if a, ok := p.artifacts.Current(); ok {
		parts = append(parts, genai.FileData{MIMEType: a.MIMEType, URI: a.URI})
		turn.Attachment = a.Name
	}

	p.logger.Debug().
		Int64("user_id", turn.UserID).
		Str("model", p.model).
		Bool("attachment", turn.Attachment != "").
		Msg("Sending request to Gemini")

	text, err := p.api.GenerateText(ctx, p.model, SystemPrompt, parts)
	if err != nil {
		return "", classify("gemini generate", err)
	}

	return text, nil
}
