package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"

	apihttp "github.com/GriffinCanCode/midianimator/backend/internal/api/http"
	"github.com/GriffinCanCode/midianimator/backend/internal/api/middleware"
	"github.com/GriffinCanCode/midianimator/backend/internal/api/ws"
	"github.com/GriffinCanCode/midianimator/backend/internal/domain/protocol"
	"github.com/GriffinCanCode/midianimator/backend/internal/domain/state"
	"github.com/GriffinCanCode/midianimator/backend/internal/domain/window"
	"github.com/GriffinCanCode/midianimator/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/midianimator/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/midianimator/backend/internal/infrastructure/monitoring"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	store      *state.Store
	window     *window.Handle
	hub        *ws.Hub
	service    *protocol.Service
	dispatcher *protocol.Dispatcher
	logger     *logging.Logger
	config     *config.Config
	metrics    *monitoring.Metrics

	// fatal handles a broken startup invariant
	fatal func(msg string, fields ...zap.Field)
}

// NewServer creates a new server instance. A nil logger is built from cfg.
func NewServer(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		l, err := logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			Development: cfg.Logging.Development,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		logger = l
	}

	logger.Info("Initializing MIDIAnimator backend",
		zap.String("addr", cfg.Addr()),
		zap.String("event", cfg.Sync.EventName),
		zap.Bool("echo_on_replace", cfg.Sync.EchoOnReplace),
	)

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()

	store := state.NewStore()
	handle := window.NewHandle()
	hub := ws.NewHub(logger, cfg.Sync.WriteTimeout.Std()).WithMetrics(metrics)

	// The hub is the only window surface; bind it before anything can push
	if err := handle.Bind(hub); err != nil {
		return nil, fmt.Errorf("failed to bind window: %w", err)
	}

	service := protocol.NewService(store, handle, logger, protocol.Options{
		EventName:     cfg.Sync.EventName,
		EchoOnReplace: cfg.Sync.EchoOnReplace,
	}).WithMetrics(metrics)
	dispatcher := protocol.NewDispatcher(service)

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(logger.Named("http")))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	// Create handlers
	handlers := apihttp.NewHandlers(service, dispatcher, hub, logger, cfg.Sync.MaxMessageBytes)
	wsHandler := ws.NewHandler(hub, dispatcher, logger, cfg.Sync.MaxMessageBytes)
	stateHandler, err := handlers.StateHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to create state handler: %w", err)
	}

	// Register routes
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Protocol commands
	router.POST("/invoke/:command", handlers.Invoke)
	router.POST("/logs", handlers.StreamLogs)

	// State
	router.GET("/state", gin.WrapH(stateHandler))
	router.POST("/state/push", handlers.PushState)
	router.PUT("/connection", handlers.PutConnection)
	router.DELETE("/connection", handlers.DeleteConnection)

	// WebSocket
	router.GET("/stream", wsHandler.HandleConnection)

	// Metrics
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	logger.Info("Server initialized successfully")

	s := &Server{
		router:     router,
		store:      store,
		window:     handle,
		hub:        hub,
		service:    service,
		dispatcher: dispatcher,
		logger:     logger,
		config:     cfg,
		metrics:    metrics,
	}
	s.fatal = logger.Fatal
	s.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the router, e.g. for httptest
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully. It also
// starts the initial state push, which waits for the UI to signal ready.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	if n := s.config.Server.MaxConnections; n > 0 {
		ln = netutil.LimitListener(ln, n)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.metrics.Run(ctx)
	go s.runInitialPush(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
		return s.Close()
	}
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout.Std())
	defer cancel()

	// Hijacked websocket connections are not tracked by http.Server
	s.hub.Close()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP shutdown failed", zap.Error(err))
		return fmt.Errorf("failed to shut down http server: %w", err)
	}

	// Sync logger before exit
	_ = s.logger.Sync()
	return nil
}

func (s *Server) runInitialPush(ctx context.Context) {
	err := s.service.RunInitialPush(ctx)
	switch {
	case err == nil:
		s.logger.Info("Initial state pushed")
	case errors.Is(err, context.Canceled), errors.Is(err, protocol.ErrInitialPushDone):
		s.logger.Debug("Initial push skipped", zap.Error(err))
	case errors.Is(err, protocol.ErrStartupInvariant):
		s.fatal("Startup invariant violated", zap.Error(err))
	default:
		s.logger.Error("Initial push failed", zap.Error(err))
	}
}
