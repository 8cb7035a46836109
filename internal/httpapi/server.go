package httpapi

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/BrandonDHaskell/visitrack/internal/visitrack/service"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/store"
)

type Dependencies struct {
	Logger   *log.Logger
	Addr     string
	Logs     store.LogStore
	Profiles store.ProfileStore
	Pipeline *service.Pipeline
	Session  *service.Session
	Presence *service.PresenceService

	// InferenceAvailable is reported by /healthz.
	InferenceAvailable bool

	// UI, when set, serves every path the API does not claim.
	UI http.Handler
}

type Server struct {
	httpServer *http.Server
	logger     *log.Logger
	mux        *http.ServeMux

	logs      store.LogStore
	profiles  store.ProfileStore
	pipeline  *service.Pipeline
	session   *service.Session
	presence  *service.PresenceService
	inference bool
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger:    d.Logger,
		mux:       mux,
		logs:      d.Logs,
		profiles:  d.Profiles,
		pipeline:  d.Pipeline,
		session:   d.Session,
		presence:  d.Presence,
		inference: d.InferenceAvailable,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("GET /v1/logs", s.handleListLogs)
	mux.HandleFunc("GET /v1/logs/export.csv", s.handleExportLogs)
	mux.HandleFunc("GET /v1/stats", s.handleStats)
	mux.HandleFunc("GET /v1/profiles", s.handleProfiles)
	mux.HandleFunc("POST /v1/analyze", s.handleAnalyze)

	mux.HandleFunc("POST /v1/scanner/session", s.handleOpenSession)
	mux.HandleFunc("GET /v1/scanner/session", s.handleGetSession)
	mux.HandleFunc("DELETE /v1/scanner/session", s.handleCloseSession)
	mux.HandleFunc("POST /v1/scanner/capture", s.handleCapture)
	mux.HandleFunc("POST /v1/scanner/reset", s.handleReset)
	mux.HandleFunc("POST /v1/scanner/heartbeat", s.handleHeartbeat)
	mux.HandleFunc("GET /v1/scanner/frame", s.handleFrame)

	if d.UI != nil {
		mux.Handle("/", d.UI)
	}

	handler := loggingMiddleware(d.Logger, mux)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"inference": s.inference,
	})
}
