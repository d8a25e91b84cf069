// Package server is the dashboard: a JSON API over the account store and a
// websocket that pushes updates for the account a viewer subscribes to.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/gravitas-games/sekaiscout/internal/catalog"
	"github.com/gravitas-games/sekaiscout/internal/config"
	"github.com/gravitas-games/sekaiscout/internal/gamemap"
	"github.com/gravitas-games/sekaiscout/internal/harvest"
	"github.com/gravitas-games/sekaiscout/internal/journal"
	"github.com/gravitas-games/sekaiscout/internal/logbuf"
	"github.com/gravitas-games/sekaiscout/internal/notify"
	"github.com/gravitas-games/sekaiscout/internal/relay"
	"github.com/gravitas-games/sekaiscout/pkg/models"
)

// AccountReader is the read side of the account store.
type AccountReader interface {
	Status(accountID string) (models.AccountStatus, bool)
	HarvestMap(accountID string) (gamemap.HarvestMap, bool)
	Accounts() []models.AccountSummary
}

type Subscriber interface {
	Subscribe(accountID string, handler notify.Handler) (cancel func())
}

// NameCatalog is the read side of the name catalog.
type NameCatalog interface {
	harvest.Names
	Resolve(cat catalog.Category, id int) string
	All(cat catalog.Category) map[int]string
	Missing(seen map[catalog.Category][]int) map[catalog.Category][]int
}

type History interface {
	Recent(ctx context.Context, accountID string, limit int) ([]journal.Entry, error)
}

type RelayState interface {
	State() relay.State
}

// Deps are the components the dashboard reads from. Store, Hub and Catalog
// are required.
type Deps struct {
	Store   AccountReader
	Hub     Subscriber
	Catalog NameCatalog
	History History
	Logs    *logbuf.Buffer
	Relay   RelayState
	Logger  *log.Logger
}

// filter selects the resource shown in the resources view
type filter struct {
	category   catalog.Category
	resourceID int
}

// Server represents the dashboard server
type Server struct {
	config    *config.Config
	deps      Deps
	logger    *log.Logger
	extractor *harvest.Extractor
	tokens    *TokenValidator // nil when auth is disabled
	session   *Session
	upgrader  websocket.Upgrader
	httpSrv   *http.Server

	defaultFilter filter

	// Shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new server instance
func New(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Store == nil || deps.Hub == nil || deps.Catalog == nil {
		return nil, errors.New("server: store, hub and catalog are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv := &Server{
		config:    cfg,
		deps:      deps,
		logger:    logger,
		extractor: harvest.NewExtractor(deps.Catalog),
		session:   NewSession(),
		defaultFilter: filter{
			category:   cfg.TargetCategory(),
			resourceID: cfg.Harvest.TargetID,
		},
		ctx:    ctx,
		cancel: cancel,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			Subprotocols:    []string{accessTokenProtocol},
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	if cfg.Auth.JWTSecret != "" {
		tokens, err := NewTokenValidator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to initialize token validator: %w", err)
		}
		srv.tokens = tokens
	} else {
		logger.Warn("dashboard auth disabled")
	}

	return srv, nil
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	mux.HandleFunc("GET /api/accounts", s.authorized(s.handleAccounts))
	mux.HandleFunc("GET /api/accounts/{id}/status", s.authorized(s.handleStatus))
	mux.HandleFunc("GET /api/accounts/{id}/resources", s.authorized(s.handleResources))
	mux.HandleFunc("GET /api/accounts/{id}/ids", s.authorized(s.handleIDs))
	mux.HandleFunc("GET /api/accounts/{id}/history", s.authorized(s.handleHistory))
	mux.HandleFunc("GET /api/catalog/{category}", s.authorized(s.handleCatalog))
	mux.HandleFunc("GET /api/logs", s.unrestricted(s.handleLogs))
	mux.HandleFunc("POST /api/logs/clear", s.unrestricted(s.handleClearLogs))
	return mux
}

// Start begins listening for connections
func (s *Server) Start(addr string) error {
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("dashboard listening", "api", "http://"+addr+"/api", "ws", "ws://"+addr+"/ws")
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	if s.httpSrv != nil {
		err = s.httpSrv.Shutdown(ctx)
	}
	for _, conn := range s.session.Connections() {
		conn.Close()
	}
	return err
}

// handleWebSocket handles WebSocket connection requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	conn := NewConnection(ws, s, claims)
	s.session.Join(conn)
	s.logger.Info("viewer connected", "remote", r.RemoteAddr)

	conn.Handle()

	s.session.Leave(conn)
	s.logger.Info("viewer disconnected", "remote", r.RemoteAddr)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.session.Status()
	status.Accounts = len(s.deps.Store.Accounts())
	if s.deps.Relay != nil {
		status.Relay = s.deps.Relay.State().String()
	}
	writeJSON(w, http.StatusOK, status)
}
