package ai

import (
	"github.com/j0lvera/pulsai/internal/config"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// Params for creating an API client
type Params struct {
	fx.In

	Config *config.Config
	Logger zerolog.Logger
}

// Result of creating an API client
type Result struct {
	fx.Out

	Client *Client
}

// New creates a new API client based on configuration
func New(p Params) (Result, error) {
	client, err := NewClient(
		p.Config.APIURL,
		WithLogger(p.Logger.With().Str("component", "ai-client").Logger()),
	)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Client: client,
	}, nil
}

// Module provides the API client
func Module() fx.Option {
	return fx.Module(
		"ai",
		fx.Provide(
			New,
		),
	)
}
