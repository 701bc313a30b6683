package llm

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Artifact is a file uploaded to the provider and referenced from prompts
type Artifact struct {
	Name     string
	URI      string
	MIMEType string
}

type fileAPI interface {
	UploadFile(ctx context.Context, path string) (Artifact, error)
	DeleteFile(ctx context.Context, name string) error
}

// ArtifactStore holds the reference to the uploaded context file. A missing
// file is not an error: requests go out without an attachment.
type ArtifactStore struct {
	files   fileAPI
	path    string
	mu      sync.RWMutex
	current *Artifact
	logger  zerolog.Logger
}

// NewArtifactStore creates a store for the context file at path
func NewArtifactStore(files fileAPI, path string, logger zerolog.Logger) *ArtifactStore {
	return &ArtifactStore{
		files:  files,
		path:   path,
		logger: logger.With().Str("component", "artifact").Str("path", path).Logger(),
	}
}

// Current returns the uploaded artifact, if any
func (s *ArtifactStore) Current() (Artifact, bool) {
	if s == nil {
		return Artifact{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Artifact{}, false
	}
	return *s.current, true
}

// Refresh uploads the context file and replaces the current reference.
// The previous upload is deleted afterwards.
func (s *ArtifactStore) Refresh(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Info().Msg("Context file not found, continuing without it")
			return nil
		}
		return fmt.Errorf("failed to stat context file: %w", err)
	}

	uploaded, err := s.files.UploadFile(ctx, s.path)
	if err != nil {
		return fmt.Errorf("failed to upload context file: %w", err)
	}

	s.mu.Lock()
	previous := s.current
	s.current = &uploaded
	s.mu.Unlock()

	s.logger.Info().
		Str("file", uploaded.Name).
		Str("mime_type", uploaded.MIMEType).
		Msg("Context file uploaded")

	if previous != nil && previous.Name != uploaded.Name {
		if err := s.files.DeleteFile(ctx, previous.Name); err != nil {
			s.logger.Warn().
				Err(err).
				Str("file", previous.Name).
				Msg("Failed to delete previous context file")
		}
	}

	return nil
}
