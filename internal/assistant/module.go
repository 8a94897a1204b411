package assistant

import (
	"github.com/j0lvera/pulsai/internal/config"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// Params for creating an Assistant
type Params struct {
	fx.In

	Config *config.Config
	Logger zerolog.Logger
}

// Result of creating an Assistant
type Result struct {
	fx.Out

	Querier   Querier
	Assistant *Assistant
}

// New creates a new Assistant based on configuration
func New(p Params) (Result, error) {
	if err := p.Config.RequireLLM(); err != nil {
		return Result{}, err
	}

	querier, err := NewOpenAIQuerier(
		p.Config.LLMAPIKey,
		p.Config.LLMBaseURL,
		p.Config.LLMModel,
		QuerierOptions{
			MaxTokens:   p.Config.LLMMaxTokens,
			Temperature: p.Config.LLMTemperature,
		},
	)
	if err != nil {
		return Result{}, err
	}

	logger := p.Logger.With().Str("component", "assistant").Logger()

	return Result{
		Querier:   querier,
		Assistant: NewAssistant(querier, p.Config.Prompts, p.Config.HistoryWindow, logger),
	}, nil
}

// Module provides the assistant
func Module() fx.Option {
	return fx.Module(
		"assistant",
		fx.Provide(
			New,
		),
	)
}
