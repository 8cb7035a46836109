// Package webui renders the dashboard views and streams live updates to them.
package webui

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BrandonDHaskell/visitrack/internal/visitrack/hub"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/store"
)

//go:embed all:web
var webFS embed.FS

type Dependencies struct {
	Logger   *log.Logger
	Logs     store.LogStore
	Profiles store.ProfileStore
	Hub      *hub.Hub

	// InferenceAvailable hides the scanner's missing-key notice.
	InferenceAvailable bool
	// Now defaults to time.Now.
	Now func() time.Time
}

// Server is an http.Handler serving the navigation shell and its views.
type Server struct {
	engine *gin.Engine
	logger *log.Logger

	logs      store.LogStore
	profiles  store.ProfileStore
	hub       *hub.Hub
	inference bool
}

// New builds the view server. The gin mode is left to the caller.
func New(d Dependencies) (*Server, error) {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	tmpl, err := template.New("").Funcs(funcMap(now)).ParseFS(webFS, "web/templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	static, err := fs.Sub(webFS, "web/static")
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false
	engine.SetHTMLTemplate(tmpl)

	s := &Server{
		engine:    engine,
		logger:    d.Logger,
		logs:      d.Logs,
		profiles:  d.Profiles,
		hub:       d.Hub,
		inference: d.InferenceAvailable,
	}

	engine.StaticFS("/static", http.FS(static))
	engine.GET("/", s.handleDashboard)
	engine.GET("/scanner", s.handleScanner)
	engine.GET("/logs", s.handleLogs)
	engine.GET("/database", s.handleDatabase)
	engine.GET("/ws", s.handleWebSocket)
	engine.NoRoute(s.handleNotFound)

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}
