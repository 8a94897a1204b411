package conversation

import (
	"context"

	"github.com/j0lvera/pulsai/internal/assistant"
	"github.com/j0lvera/pulsai/internal/db"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Params struct {
	fx.In

	DBClient  *db.Client
	Assistant *assistant.Assistant
	Logger    zerolog.Logger
}

type Result struct {
	fx.Out

	Store   Store
	Service *Service
}

// New picks the PostgreSQL store when a database is configured and the
// in-memory store otherwise.
func New(lc fx.Lifecycle, p Params) Result {
	var store Store = NewMemoryStore()

	if p.DBClient.Enabled() {
		pg := NewPostgresStore(p.DBClient.Pool)
		lc.Append(
			fx.Hook{
				OnStart: func(ctx context.Context) error {
					p.Logger.Info().Msg("applying conversation schema")
					return pg.Migrate(ctx)
				},
			},
		)
		store = pg
	}

	logger := p.Logger.With().Str("component", "conversation").Logger()

	return Result{
		Store:   store,
		Service: NewService(store, p.Assistant, logger),
	}
}

func Module() fx.Option {
	return fx.Module(
		"conversation",
		fx.Provide(New),
	)
}
