package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/j0lvera/pulsai/internal/ai"
	"github.com/rs/zerolog"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// ChatService is what the API needs from the conversation layer.
type ChatService interface {
	Reply(ctx context.Context, req ai.ChatRequest) (ai.Reply, error)
	History(ctx context.Context, userID string, channel ai.Channel, limit int) ([]ai.Message, error)
	Stage(ctx context.Context, userID string, channel ai.Channel) (ai.Stage, error)
}

// Options configures the HTTP API.
type Options struct {
	AllowedOrigins []string
	HistoryLimit   int           // Default limit of the history endpoint
	RequestTimeout time.Duration // Zero disables the timeout middleware
}

// Server is the PulsAI backend HTTP API.
type Server struct {
	service ChatService
	opts    Options
	metrics *Metrics
	logger  zerolog.Logger
	router  chi.Router
}

// NewServer builds the router and its middleware stack.
func NewServer(service ChatService, opts Options, logger zerolog.Logger) *Server {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 50
	}

	s := &Server{
		service: service,
		opts:    opts,
		metrics: NewMetrics(),
		logger:  logger,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Middleware)
	if s.opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.opts.RequestTimeout))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api/ai", func(r chi.Router) {
		r.Post("/message", s.handleMessage)
		r.Get("/messages/{userID}/{channel}", s.handleMessages)
		r.Get("/stage/{userID}/{channel}", s.handleStage)
	})

	r.Route("/api/channels", func(r chi.Router) {
		r.Get("/", s.handleChannels)
		r.Get("/{channel}/status", s.handleChannelStatus)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.respondDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.respondDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	return r
}
