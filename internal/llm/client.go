package llm

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

const (
	fileProcessingPoll  = 2 * time.Second
	fileProcessingLimit = 30
)

// GeminiClient wraps the Gemini SDK client, creating it on first use
type GeminiClient struct {
	apiKey      string
	logger      zerolog.Logger
	genaiClient *genai.Client
	mu          sync.Mutex
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(apiKey string, logger zerolog.Logger) *GeminiClient {
	return &GeminiClient{
		apiKey: apiKey,
		logger: logger.With().Str("component", "gemini").Logger(),
	}
}

// getClient returns or creates a genai client (thread-safe)
func (c *GeminiClient) getClient(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.genaiClient != nil {
		return c.genaiClient, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	c.genaiClient = client
	c.logger.Info().Msg("Gemini client created and cached")
	return c.genaiClient, nil
}

// Close closes the Gemini client and releases resources
func (c *GeminiClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.genaiClient != nil {
		err := c.genaiClient.Close()
		c.genaiClient = nil
		if err != nil {
			c.logger.Error().Err(err).Msg("Failed to close Gemini client")
			return err
		}
		c.logger.Info().Msg("Gemini client closed")
	}
	return nil
}

// GenerateText runs one generation with a system instruction and returns
// the text parts of the first candidate
func (c *GeminiClient) GenerateText(ctx context.Context, modelName, system string, parts []genai.Part) (string, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return "", err
	}

	model := client.GenerativeModel(modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(system)},
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	// An empty answer is not an error here; the caller substitutes a placeholder.
	if resp == nil || len(resp.Candidates) == 0 {
		return "", nil
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return "", nil
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return text.String(), nil
}

// UploadFile uploads a local file through the File API and waits until it
// can be referenced from prompts
func (c *GeminiClient) UploadFile(ctx context.Context, path string) (Artifact, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return Artifact{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	file, err := client.UploadFile(ctx, "", f, &genai.UploadFileOptions{
		DisplayName: filepath.Base(path),
		MIMEType:    mimeTypeOf(path),
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to upload %s: %w", path, err)
	}

	name := file.Name
	for i := 0; file.State == genai.FileStateProcessing && i < fileProcessingLimit; i++ {
		select {
		case <-ctx.Done():
			return Artifact{}, ctx.Err()
		case <-time.After(fileProcessingPoll):
		}
		if file, err = client.GetFile(ctx, name); err != nil {
			return Artifact{}, fmt.Errorf("failed to get file %s: %w", name, err)
		}
	}
	if file.State != genai.FileStateActive {
		return Artifact{}, fmt.Errorf("file %s is not active: state %v", file.Name, file.State)
	}

	return Artifact{Name: file.Name, URI: file.URI, MIMEType: file.MIMEType}, nil
}

// DeleteFile removes a previously uploaded file
func (c *GeminiClient) DeleteFile(ctx context.Context, name string) error {
	client, err := c.getClient(ctx)
	if err != nil {
		return err
	}
	if err := client.DeleteFile(ctx, name); err != nil {
		return fmt.Errorf("failed to delete file %s: %w", name, err)
	}
	return nil
}

func mimeTypeOf(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		// Drop parameters such as "; charset=utf-8".
		if i := strings.Index(t, ";"); i >= 0 {
			t = t[:i]
		}
		return t
	}
	return "application/pdf"
}
