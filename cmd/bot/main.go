package main

import (
	"os"
	"time"

	"github.com/marketplace-card-bot/internal/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("Bot exited with error")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "bot",
		Short:         "Telegram bot that drafts marketplace listing cards with an LLM",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newProviderCmd(models.ProviderResponses, "Stateless completion via the OpenAI Responses API"))
	cmd.AddCommand(newProviderCmd(models.ProviderGemini, "Gemini with the context PDF attached to every request"))
	cmd.AddCommand(newProviderCmd(models.ProviderAssistant, "OpenAI Assistants API with one thread per user"))

	return cmd
}

func newProviderCmd(kind models.ProviderKind, short string) *cobra.Command {
	return &cobra.Command{
		Use:   kind.String(),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), kind)
		},
	}
}

// setupLogger configures and returns a zerolog logger
func setupLogger(level, environment string) zerolog.Logger {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	var logger zerolog.Logger
	if environment == "development" {
		// Pretty console output for development
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Caller().Logger()
	} else {
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	return logger
}
