package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/j0lvera/pulsai/internal/config"
	"github.com/j0lvera/pulsai/internal/conversation"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Params struct {
	fx.In

	Config  *config.Config
	Service *conversation.Service
	Logger  zerolog.Logger
}

type Result struct {
	fx.Out

	Server     *Server
	HTTPServer *http.Server
}

func New(lc fx.Lifecycle, p Params) Result {
	logger := p.Logger.With().Str("component", "server").Logger()

	srv := NewServer(p.Service, Options{
		AllowedOrigins: p.Config.AllowedOrigins,
		HistoryLimit:   p.Config.HistoryLimit,
		RequestTimeout: 60 * time.Second,
	}, logger)

	httpServer := &http.Server{
		Addr:              ":" + p.Config.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(
		fx.Hook{
			OnStart: func(ctx context.Context) error {
				ln, err := net.Listen("tcp", httpServer.Addr)
				if err != nil {
					return err
				}
				logger.Info().Str("addr", httpServer.Addr).Msg("starting http server...")
				go func() {
					if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error().Err(err).Msg("http server stopped")
					}
				}()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				logger.Info().Msg("stopping http server...")
				return httpServer.Shutdown(ctx)
			},
		},
	)

	return Result{
		Server:     srv,
		HTTPServer: httpServer,
	}
}

func Module() fx.Option {
	return fx.Module(
		"server",
		fx.Provide(
			New,
		),
		fx.Invoke(
			func(*http.Server) {},
		),
	)
}
