package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/recoverykit/logger"
	"github.com/kbukum/recoverykit/resilience"
	"github.com/kbukum/recoverykit/server/endpoint"
	"github.com/kbukum/recoverykit/server/middleware"
)

// Server is the operator HTTP server: health checks and recovery actions
// on top of a health coordinator.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     Config
	log        *logger.Logger
	listener   net.Listener
}

// New creates the server and registers its routes.
func New(cfg Config, serviceName string, coord endpoint.Coordinator, log *logger.Logger) *Server {
	cfg.ApplyDefaults()
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	log = logger.ForComponent(log, logger.ComponentServer)

	engine := gin.New()
	engine.Use(middleware.Recovery(log))
	engine.Use(middleware.RequestID())
	engine.Use(middleware.RequestLogger(log))
	engine.NoRoute(endpoint.NotFound())

	engine.GET("/alive", endpoint.Liveness(serviceName))
	engine.GET("/health", endpoint.Health(serviceName, coord))
	engine.GET("/health/detailed", endpoint.DetailedHealth(coord))

	throttle := middleware.Throttle(resilience.NewRateLimiter(resilience.RateLimiterConfig{
		Name:  "recovery_actions",
		Rate:  cfg.ActionRate,
		Burst: cfg.ActionBurst,
		OnLimit: func(name string) {
			log.Warn("recovery action throttled", logger.Fields("limiter", name))
		},
	}))
	rec := engine.Group("/recovery")
	rec.GET("/status", endpoint.RecoveryStatus(coord))
	rec.POST("/reset", throttle, endpoint.ResetAll(coord))
	rec.POST("/services/:name/recover", throttle, endpoint.RecoverService(coord))
	rec.DELETE("/errors", throttle, endpoint.ClearErrors(coord))

	// h2c lets HTTP/2 clients talk to the server without TLS.
	handler := h2c.NewHandler(engine, &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          cfg.IdleTimeout,
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
		engine: engine,
		config: cfg,
		log:    log,
	}
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start binds the port and serves in a goroutine. It returns once the
// listener is bound.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}
	s.listener = ln

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			s.log.Error("server error", logger.Fields(logger.FieldError, err.Error()))
		}
	}()

	s.log.Info("HTTP server started", logger.Fields("addr", ln.Addr().String()))
	return nil
}

// Stop shuts the server down, waiting up to the shutdown timeout for
// requests in flight.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.log.Info("HTTP server stopped")
	return nil
}

// Addr returns the bound address once started, the configured one before.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}
