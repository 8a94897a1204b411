package bot

import (
	"context"

	tbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/j0lvera/pulsai/internal/ai"
	"github.com/j0lvera/pulsai/internal/config"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Params struct {
	fx.In

	Config *config.Config
	Client *ai.Client
}

type Result struct {
	fx.Out

	Bot     *tbot.Bot
	Handler *Handler
}

func New(lc fx.Lifecycle, p Params, log zerolog.Logger) (Result, error) {
	if err := p.Config.RequireBot(); err != nil {
		return Result{}, err
	}

	logger := log.With().Str("component", "telegram-bot").Logger()
	handler := NewHandler(p.Client, ai.Channel(p.Config.BotChannel), p.Config.HistoryWindow, logger)

	opts := []tbot.Option{
		tbot.WithDefaultHandler(
			func(ctx context.Context, tg *tbot.Bot, update *models.Update) {
				handler.Handle(ctx, tg, update)
			},
		),
	}

	tg, err := tbot.New(p.Config.Token, opts...)
	if err != nil {
		return Result{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(
		fx.Hook{
			OnStart: func(context.Context) error {
				logger.Info().
					Str("api_url", p.Client.BaseURL()).
					Str("channel", p.Config.BotChannel).
					Msg("starting telegram bot...")
				go tg.Start(ctx)
				return nil
			},
			OnStop: func(context.Context) error {
				logger.Info().Msg("stopping telegram bot...")
				cancel()
				return nil
			},
		},
	)

	return Result{
		Bot:     tg,
		Handler: handler,
	}, nil
}

func Module() fx.Option {
	return fx.Module(
		"bot",
		fx.Provide(
			New,
		),
		fx.Invoke(
			func(bot *tbot.Bot) {},
		),
	)
}
