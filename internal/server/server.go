package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/promptveil/veil/internal/audit"
	"github.com/promptveil/veil/internal/config"
	"github.com/promptveil/veil/internal/llm"
	"github.com/promptveil/veil/internal/logger"
	"github.com/promptveil/veil/internal/masking"
	"github.com/promptveil/veil/internal/ner"
	"github.com/promptveil/veil/internal/session"
	"github.com/promptveil/veil/internal/web"
	"github.com/promptveil/veil/internal/websocket"
)

// Server is the HTTP front of the de-identification service. It owns the
// masker, routes, WebSocket hub and rate limiter; the session store, LLM
// client and audit recorder are injected so the caller controls their
// lifecycle.
type Server struct {
	config   *config.Config
	logger   *logger.Logger
	baseLog  *logger.Logger
	mu       sync.RWMutex
	masker   *masking.Masker
	store    session.Store
	llm      llm.Client
	recorder *audit.Recorder
	router   *mux.Router
	server   *http.Server
	wsHub    *websocket.Hub
	limiter  *ipLimiter

	startTime       time.Time
	totalRequests   atomic.Int64
	totalDetections atomic.Int64
}

// New creates a server wired from the given configuration.
func New(cfg *config.Config, log *logger.Logger, store session.Store, client llm.Client, recorder *audit.Recorder) (*Server, error) {
	masker, err := masking.New(cfg.Masking, log.WithComponent("masking"))
	if err != nil {
		return nil, fmt.Errorf("failed to create masker: %w", err)
	}

	if recognizer := ner.FromConfig(cfg.NER, log.WithComponent("ner")); recognizer != nil {
		masker.SetNameRecognizer(recognizer)
	}

	hubConfig := &websocket.HubConfig{
		BroadcastDetections:  cfg.WebSocket.Events.BroadcastDetections,
		BroadcastRequests:    cfg.WebSocket.Events.BroadcastRequests,
		BroadcastSystem:      cfg.WebSocket.Events.BroadcastSystem,
		BroadcastConnections: cfg.WebSocket.Events.BroadcastConnections,
		Username:             cfg.WebSocket.Username,
		Password:             cfg.WebSocket.Password,
	}
	wsHub := websocket.NewHub(hubConfig, log.WithComponent("websocket").Logger)

	server := &Server{
		config:    cfg,
		logger:    log.WithComponent("server"),
		baseLog:   log,
		masker:    masker,
		store:     store,
		llm:       client,
		recorder:  recorder,
		router:    mux.NewRouter(),
		wsHub:     wsHub,
		limiter:   newIPLimiter(cfg.RateLimit),
		startTime: time.Now(),
	}

	server.setupRoutes()

	server.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return server, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health and info endpoints stay outside the rate limiter so probes
	// never get throttled
	s.router.HandleFunc("/api/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")

	// Chat page
	s.router.HandleFunc("/", web.ServeChat).Methods("GET")

	// WebSocket endpoint for the dashboard
	if s.config.WebSocket.Enabled {
		s.router.HandleFunc(s.wsPath(), s.handleWebSocket).Methods("GET")
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/chat", s.handleChat).Methods("POST")
	api.HandleFunc("/mask", s.handleMask).Methods("POST")
	api.HandleFunc("/unmask", s.handleUnmask).Methods("POST")
}

func (s *Server) wsPath() string {
	if s.config.WebSocket.Path != "" {
		return s.config.WebSocket.Path
	}
	return "/ws"
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting veil server",
		zap.Int("port", s.config.Server.Port),
		zap.Strings("categories", s.getMasker().EnabledCategories()),
		zap.String("llm_mode", s.llm.Name()),
		zap.String("session_store", s.config.Session.Store),
	)

	go s.wsHub.Run()

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping veil server")
	return s.server.Shutdown(ctx)
}

// Handler returns the configured router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// getMasker returns the current masker; Reload may swap it at any time.
func (s *Server) getMasker() *masking.Masker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.masker
}

func (s *Server) getConfig() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Reload applies a changed configuration to the running server. Masking
// categories, rate limits and WebSocket broadcast switches take effect
// immediately; listen address and store/LLM selection need a restart.
func (s *Server) Reload(cfg *config.Config) error {
	masker, err := masking.New(cfg.Masking, s.baseLog.WithComponent("masking"))
	if err != nil {
		return fmt.Errorf("failed to rebuild masker: %w", err)
	}
	if recognizer := ner.FromConfig(cfg.NER, s.baseLog.WithComponent("ner")); recognizer != nil {
		masker.SetNameRecognizer(recognizer)
	}

	s.mu.Lock()
	s.config = cfg
	s.masker = masker
	s.mu.Unlock()

	s.limiter.update(cfg.RateLimit)
	s.wsHub.UpdateConfig(&websocket.HubConfig{
		BroadcastDetections:  cfg.WebSocket.Events.BroadcastDetections,
		BroadcastRequests:    cfg.WebSocket.Events.BroadcastRequests,
		BroadcastSystem:      cfg.WebSocket.Events.BroadcastSystem,
		BroadcastConnections: cfg.WebSocket.Events.BroadcastConnections,
		Username:             cfg.WebSocket.Username,
		Password:             cfg.WebSocket.Password,
	})

	s.logger.Info("Configuration reloaded",
		zap.Strings("categories", masker.EnabledCategories()),
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
	)
	return nil
}

// handleWebSocket handles WebSocket connections for the dashboard
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.wsHub.HandleWebSocket(w, r)
}

// GetWebSocketHub returns the WebSocket hub for broadcasting events
func (s *Server) GetWebSocketHub() *websocket.Hub {
	return s.wsHub
}
