// Package api serves the triage service over HTTP with gin.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/projecthayat/hayat/pkg/detection"
	"github.com/projecthayat/hayat/pkg/metrics"
	"github.com/projecthayat/hayat/pkg/plan"
	"github.com/projecthayat/hayat/pkg/registry"
	"github.com/projecthayat/hayat/pkg/triage"
)

// Project is reported by the status endpoints.
const Project = "Hayat v1.0"

// DefaultMaxUploadBytes bounds uploads when Options.MaxUploadBytes is zero.
const DefaultMaxUploadBytes = 32 << 20

// Models reports model availability. *registry.Registry implements it.
type Models interface {
	Status() []registry.Status
	Device() string
}

// Detections is the detection log. *detection.Log implements it.
type Detections interface {
	Recent(ctx context.Context, limit int) ([]detection.Detection, error)
	Clear(ctx context.Context) error
	Subscribe() (ch <-chan detection.Detection, cancel func())
}

// Options configures a Server. Dispatcher and Models are required.
type Options struct {
	Dispatcher *triage.Dispatcher
	Models     Models

	// Detections and Planner are optional; their routes answer 503
	// without them.
	Detections Detections
	Planner    plan.Generator

	Metrics *metrics.Metrics
	Logger  *slog.Logger

	MaxUploadBytes int64
}

// Server is the HTTP front end.
type Server struct {
	opts   Options
	logger *slog.Logger
	engine *gin.Engine

	// closing is closed on shutdown; hijacked websocket connections are
	// not tracked by http.Server and watch it instead.
	closing   chan struct{}
	closeOnce sync.Once
}

// New builds the gin engine and registers every route.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	s := &Server{opts: opts, logger: opts.Logger, engine: gin.New(), closing: make(chan struct{})}

	s.engine.Use(
		s.requestID,
		s.accessLog,
		gin.CustomRecovery(s.recovery),
		cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders:    []string{"Origin", "Content-Type", "Accept", requestIDHeader},
			ExposeHeaders:   []string{requestIDHeader},
			MaxAge:          12 * time.Hour,
		}),
	)
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.engine
	r.GET("/", s.status)
	r.GET("/healthz", s.health)

	r.POST("/analyze", s.analyzeImage)
	r.POST("/analyze/image", s.analyzeImage)
	r.POST("/analyze/audio", s.analyzeAudio)

	r.GET("/detections", s.listDetections)
	r.DELETE("/detections", s.clearDetections)
	r.GET("/detections/stream", s.streamDetections)
	r.POST("/plan", s.plan)

	if s.opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.opts.Metrics.Handler()))
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// ServeConfig holds listener settings.
type ServeConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Serve listens on cfg.Addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, cfg ServeConfig) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
	}
	srv.RegisterOnShutdown(s.shutdownStreams)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("api: listening", "addr", cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("api: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) shutdownStreams() {
	s.closeOnce.Do(func() { close(s.closing) })
}
