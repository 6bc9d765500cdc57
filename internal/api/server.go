// Package api serves the content workflows over HTTP for the front end.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/contentstudio/server/internal/media"
	"github.com/contentstudio/server/internal/metrics"
	"github.com/contentstudio/server/internal/workflow/graph"
	"github.com/contentstudio/server/internal/workflow/graph/threads"
	"github.com/contentstudio/server/internal/workflow/model"
	logx "github.com/contentstudio/server/pkg/logger"
)

// ImageService renders a prompt on the image server.
type ImageService interface {
	GenerateWith(ctx context.Context, req media.ImageRequest) (*media.Image, error)
}

// SpeechService synthesizes speech and returns the audio URL.
type SpeechService interface {
	Speak(ctx context.Context, req media.SpeechRequest) (string, error)
}

// Config holds the HTTP settings, filled by envconfig.
type Config struct {
	Addr            string        `envconfig:"SERVER_ADDR" default:":8000"`
	CORSOrigins     []string      `envconfig:"CORS_ORIGINS" default:"http://localhost:3000"`
	RateLimitRPS    float64       `envconfig:"RATE_LIMIT_RPS" default:"1"`
	RateLimitBurst  int           `envconfig:"RATE_LIMIT_BURST" default:"5"`
	TrustedProxies  []string      `envconfig:"TRUSTED_PROXIES"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"5m"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
}

// Deps are the services behind the routes. Workflows is required; the
// other routes answer 503 when their service is missing.
type Deps struct {
	Workflows *graph.Workflows
	Images    ImageService
	Speech    SpeechService
	Threads   model.ThreadRepository
}

type Server struct {
	cfg     Config
	deps    Deps
	history *threads.Recorder
	limiter *RateLimiter
}

func NewServer(cfg Config, deps Deps) (*Server, error) {
	if deps.Workflows == nil {
		return nil, errors.New("api: workflows are required")
	}
	limiter := NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	if err := limiter.TrustProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("api: %w", err)
	}
	return &Server{
		cfg:     cfg,
		deps:    deps,
		history: threads.NewRecorder(deps.Threads),
		limiter: limiter,
	}, nil
}

// Handler builds the route table wrapped in the middleware stack.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /ping", s.handlePing)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	generate := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.limiter.Wrap(h))
	}
	generate("POST /generate-blog", s.handleBlog)
	generate("POST /generate-news-article", s.handleNews)
	generate("POST /generate-youtube-script", s.handleScript)
	generate("POST /generate-visual-post", s.handleVisual)
	generate("POST /youtube-blog", s.handleYouTubeBlog)
	generate("POST /repurpose-article", s.handleRepurpose)
	generate("POST /generate-image", s.handleImage)
	generate("POST /text-to-audio", s.handleSpeech)

	mux.HandleFunc("GET /threads", s.handleListThreads)
	mux.HandleFunc("GET /threads/{id}", s.handleGetThread)
	mux.HandleFunc("DELETE /threads/{id}", s.handleDeleteThread)

	return Chain(mux,
		Recover(),
		AccessLog(),
		CORS(CORSConfig{AllowedOrigins: s.cfg.CORSOrigins, AllowCredentials: true}),
	)
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests for up to ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.RequestTimeout + 10*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logx.Info().Str("addr", s.cfg.Addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	logx.Info().Msg("Shutting down HTTP server")
	return srv.Shutdown(shutdownCtx)
}

// requestContext bounds a workflow call by RequestTimeout.
func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.cfg.RequestTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
}
