package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/openmonopoly/monopoly-server-go/internal/config"
	"github.com/openmonopoly/monopoly-server-go/internal/game"
)

// Server accepts websocket connections and bridges them to game tables.
// Each connection maps to one seat at one table; the server never touches
// game state directly, it only submits commands and relays events.
type Server struct {
	log      *zap.Logger
	cfg      *config.Config
	engine   *game.Engine
	results  *ResultsSink
	upgrader websocket.Upgrader
	httpSrv  *http.Server

	// lobby is the table new connections land on when they name no game.
	lobby *game.Table
}

// New builds a server around an engine and opens the lobby table. The
// results sink may be nil when persistence is disabled.
func New(cfg *config.Config, engine *game.Engine, results *ResultsSink, logger *zap.Logger) *Server {
	s := &Server{
		log:     logger,
		cfg:     cfg,
		engine:  engine,
		results: results,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.lobby = engine.CreateTable()
	s.results.Watch(s.lobby)
	return s
}

// LobbyID returns the default table's game id.
func (s *Server) LobbyID() string {
	return s.lobby.ID()
}

// Start listens on the configured address until Shutdown or a fatal error.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	s.httpSrv = &http.Server{
		Addr:    s.cfg.Server.Address,
		Handler: mux,
	}
	s.log.Info("server listening", zap.String("address", s.cfg.Server.Address))
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen on %s: %w", s.cfg.Server.Address, err)
	}
	return nil
}

// Shutdown stops the listener and every table.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpSrv != nil {
		err = s.httpSrv.Shutdown(ctx)
	}
	s.engine.Shutdown()
	return err
}

// serveWS upgrades the connection and starts the client pumps. A ?game=<id>
// query joins an existing table; otherwise the connection lands on the
// lobby. A ?player=<id> query resumes a previous seat after a disconnect.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	table := s.lobby
	if id := r.URL.Query().Get("game"); id != "" {
		table = s.engine.Table(id)
		if table == nil {
			http.Error(w, fmt.Sprintf("no such game %q", id), http.StatusNotFound)
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(s, table, conn, r.URL.Query().Get("player"))
	s.log.Info("client connected",
		zap.String("session_id", client.sessionID),
		zap.String("game_id", table.ID()),
		zap.String("remote", r.RemoteAddr),
	)
	client.start()
}

// checkPassword verifies a Hello password against the configured bcrypt
// hash. No hash configured means an open table.
func (s *Server) checkPassword(password string) error {
	hash := s.cfg.Server.PasswordHash
	if hash == "" {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return game.ErrWrongPassword
	}
	return nil
}

func marshalEvent(v any) ([]byte, error) {
	return json.Marshal(v)
}
