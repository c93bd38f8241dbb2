// Package status serves a read-only JSON view of the running slideshow.
package status

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"slidewake/internal/core/guard"
	"slidewake/internal/core/rotator"
	"slidewake/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// DefaultAddr keeps the API on loopback.
const DefaultAddr = "127.0.0.1:8787"

// RotatorSource is the narrow rotator contract required by the API.
type RotatorSource interface {
	Snapshot() rotator.Snapshot
}

// GuardSource is the narrow guard contract required by the API.
type GuardSource interface {
	Stats() guard.Stats
}

// Options contains runtime options for Server.
type Options struct {
	Version         string
	CacheGeneration string
	Clock           clockwork.Clock
}

// Server provides the status API. It exposes no control endpoints.
type Server struct {
	addr       string
	rotator    RotatorSource
	guard      GuardSource
	version    string
	generation string
	clock      clockwork.Clock
	log        zerolog.Logger

	server    *http.Server
	listener  net.Listener
	startTime time.Time
}

// NewServer creates a status server. guardSource may be nil when the display
// guard is disabled.
func NewServer(ctx context.Context, addr string, rotatorSource RotatorSource, guardSource GuardSource, options Options) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	if options.Clock == nil {
		options.Clock = clockwork.NewRealClock()
	}
	return &Server{
		addr:       addr,
		rotator:    rotatorSource,
		guard:      guardSource,
		version:    options.Version,
		generation: options.CacheGeneration,
		clock:      options.Clock,
		log:        logging.FromContext(ctx).With().Str("component", "status").Logger(),
		startTime:  options.Clock.Now(),
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/health", s.handleHealth)
	r.GET("/api/status", s.handleStatus)
	return r
}

// Start begins serving HTTP requests.
func (s *Server) Start(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	s.server = &http.Server{
		Handler:           s.Handler(),
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("status listen: %w", err)
	}
	s.listener = listener
	s.startTime = s.clock.Now()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn().Err(err).Msg("status server stopped")
		}
	}()
	s.log.Info().Str("addr", listener.Addr().String()).Msg("status API listening")
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"uptime":  s.clock.Since(s.startTime).String(),
		"version": s.version,
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	body := gin.H{
		"rotator":          s.rotator.Snapshot(),
		"guard":            nil,
		"cache_generation": s.generation,
	}
	if s.guard != nil {
		body["guard"] = s.guard.Stats()
	}
	c.JSON(http.StatusOK, body)
}
