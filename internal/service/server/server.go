package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vertextoedge/secure-file-share/internal/port"
	"github.com/vertextoedge/secure-file-share/internal/service/share"
)

// Config contains HTTP server configuration
type Config struct {
	BindAddr      string
	AdminUsername string
	AdminPassword string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		BindAddr:     "0.0.0.0:8080",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Server represents the HTTP API server
type Server struct {
	config          *Config
	store           port.Store
	logger          *zap.Logger
	server          *http.Server
	shareHandler    *ShareHandler
	downloadHandler *DownloadHandler
	debugHandler    *DebugHandler

	// Management endpoint throttles, per caller
	modifyLimiter *CallerRateLimiter
	revokeLimiter *CallerRateLimiter
	listLimiter   *CallerRateLimiter
}

// New creates a new HTTP server
func New(cfg *Config, store port.Store, service *share.Service, filesystem port.FileSystem, logger *zap.Logger) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	s := &Server{
		config:        cfg,
		store:         store,
		logger:        logger,
		modifyLimiter: NewCallerRateLimiter(10),
		revokeLimiter: NewCallerRateLimiter(10),
		listLimiter:   NewCallerRateLimiter(30),
	}

	s.shareHandler = NewShareHandler(service, logger)
	s.downloadHandler = NewDownloadHandler(service, filesystem, logger)
	s.debugHandler = NewDebugHandler(store, logger)

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// Share management and access endpoints
	mux.HandleFunc("/shares", s.handleShares)
	mux.HandleFunc("/shares/", s.handleShareByID)

	// Debug endpoints
	mux.HandleFunc("/debug/stats", s.adminAuth(s.debugHandler.HandleStats))

	s.server = &http.Server{
		Addr:         cfg.BindAddr,
		Handler:      LoggingMiddleware(logger)(mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}

// Handler returns the root handler, for tests
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// adminAuth protects management routes with basic auth when credentials are
// configured
func (s *Server) adminAuth(next http.HandlerFunc) http.HandlerFunc {
	if s.config.AdminUsername == "" {
		return next
	}
	return BasicAuthMiddleware(s.config.AdminUsername, s.config.AdminPassword, s.logger)(next)
}

// handleShares dispatches the collection routes: POST creates, GET lists
func (s *Server) handleShares(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.adminAuth(s.shareHandler.HandleCreate)(w, r)
	case http.MethodGet:
		s.adminAuth(s.listLimiter.Wrap(s.shareHandler.HandleList))(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleShareByID dispatches /shares/{id} and its subroutes. Access and
// download are link-holder endpoints; everything else is management.
func (s *Server) handleShareByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/shares/")
	shareID, action, _ := strings.Cut(rest, "/")
	if shareID == "" {
		http.Error(w, "Share id required", http.StatusBadRequest)
		return
	}

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			s.adminAuth(func(w http.ResponseWriter, r *http.Request) {
				s.shareHandler.HandleGet(w, r, shareID)
			})(w, r)
		case http.MethodPut:
			s.adminAuth(s.modifyLimiter.Wrap(func(w http.ResponseWriter, r *http.Request) {
				s.shareHandler.HandleModify(w, r, shareID)
			}))(w, r)
		case http.MethodDelete:
			s.adminAuth(s.revokeLimiter.Wrap(func(w http.ResponseWriter, r *http.Request) {
				s.shareHandler.HandleRevoke(w, r, shareID)
			}))(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case "access":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.shareHandler.HandleAccess(w, r, shareID)
	case "download":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.downloadHandler.HandleDownload(w, r, shareID)
	case "logs":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.adminAuth(func(w http.ResponseWriter, r *http.Request) {
			s.shareHandler.HandleLogs(w, r, shareID)
		})(w, r)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.store.Ping(); err != nil {
		s.logger.Error("health check failed", zap.Error(err))
		http.Error(w, "Database connection failed", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"healthy","time":"` + time.Now().Format(time.RFC3339) + `"}`))
}
