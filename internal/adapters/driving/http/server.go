package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stocklane-labs/stocklane-core/internal/core/domain"
	"github.com/stocklane-labs/stocklane-core/internal/core/ports/driven"
	"github.com/stocklane-labs/stocklane-core/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string

	// Services
	connectService driving.ConnectService
	sweeper        driving.Sweeper

	// Infrastructure
	verifier    driven.TokenVerifier
	db          Pinger // PostgreSQL health check
	redisClient Pinger // Redis health check (optional)

	// appReturnURL is where the browser lands after a callback. The
	// "?connected" and "?error" markers appended to it are a stable
	// front-end contract.
	appReturnURL string

	// maintenanceToken authorizes the sweep endpoint for cron callers
	// that have no dashboard session. Empty disables token access.
	maintenanceToken string

	// diagnostics is the redacted secret inventory built at startup.
	diagnostics []domain.SecretDiagnostic
}

// Config holds server configuration
type Config struct {
	Host             string
	Port             int
	Version          string
	AppReturnURL     string
	MaintenanceToken string
	AllowedOrigins   []string
	Diagnostics      []domain.SecretDiagnostic
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		Version:        "dev",
		AllowedOrigins: []string{"*"},
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	connectService driving.ConnectService,
	sweeper driving.Sweeper,
	verifier driven.TokenVerifier,
	db Pinger,
	redisClient Pinger, // can be nil
) *Server {
	s := &Server{
		router:           http.NewServeMux(),
		version:          cfg.Version,
		connectService:   connectService,
		sweeper:          sweeper,
		verifier:         verifier,
		db:               db,
		redisClient:      redisClient,
		appReturnURL:     cfg.AppReturnURL,
		maintenanceToken: cfg.MaintenanceToken,
		diagnostics:      cfg.Diagnostics,
	}

	logging := NewLoggingMiddleware()
	recovery := NewRecoveryMiddleware()
	cors := NewCORSMiddleware(cfg.AllowedOrigins)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      recovery.Handler(logging.Handler(cors.Handler(s.router))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.verifier)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// OAuth flow endpoints (admin-only for initiation)
	s.router.Handle("POST /api/v1/oauth/{marketplace}/authorize",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleOAuthAuthorize))))
	s.router.Handle("GET /api/v1/oauth/{marketplace}/connect",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleOAuthConnect))))

	// Callback is public - receives redirects from the OAuth provider
	s.router.HandleFunc("GET /api/v1/oauth/callback", s.handleOAuthCallback)

	// Credential endpoints (admin-only)
	s.router.Handle("GET /api/v1/credentials",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleListCredentials))))
	s.router.Handle("PUT /api/v1/credentials/{marketplace}",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleConfigureCredential))))

	// Diagnostics (admin-only)
	s.router.Handle("GET /api/v1/diagnostics/config",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleConfigDiagnostics))))

	// Maintenance sweep: authorized by maintenance token or an admin
	// session, checked inside the handler.
	s.router.HandleFunc("POST /api/v1/maintenance/sweep", s.handleSweep)
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
