// Package demosite serves a small fake BI application for manual testing
// and end-to-end runs: a login form backed by a session cookie, dashboards
// whose loading indicators clear after configurable delays, a three page
// dashboard with a page-navigation control and a live dashboard that never
// settles.
package demosite

import (
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"katari/internal/interfaces"
)

const sessionCookie = "katari_demo_session"

// Default indicator delays, overridable per request with ?delay=<ms>.
const (
	defaultSalesDelayMS = 1500
	defaultOpsDelayMS   = 800
	opsSwitchDelayMS    = 600
	maxDelayMS          = 30000
)

// Server is the demo site's HTTP surface.
type Server struct {
	router   chi.Router
	upgrader websocket.Upgrader
	logger   interfaces.Logger
}

// New builds the demo site around the given logger.
func New(logger interfaces.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		logger: logger.With(interfaces.Field{Key: "component", Value: "demosite"}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Get("/login", s.handleLoginPage)
	r.Post("/login", s.handleLogin)
	r.Get("/logout", s.handleLogout)
	r.Get("/ws/ticker", s.handleTicker)

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)
		r.Get("/", s.handleIndex)
		r.Get("/dashboards/sales", s.handleSales)
		r.Get("/dashboards/ops", s.handleOps)
		r.Get("/dashboards/live", s.handleLive)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("http request",
		interfaces.Field{Key: "method", Value: r.Method},
		interfaces.Field{Key: "path", Value: r.URL.Path},
	)
	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // the ticker websocket streams indefinitely
	}
}

// requireSession redirects requests without a session cookie to the login
// page, the invalidation signal the capture pipeline watches for.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(sessionCookie); err != nil || c.Value == "" {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, loginTmpl, map[string]string{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	user := r.FormValue("username")
	if user == "" {
		w.WriteHeader(http.StatusBadRequest)
		s.render(w, loginTmpl, map[string]string{"Error": "username is required"})
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    uuid.NewString(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     "katari_demo_user",
		Value:    user,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})
	s.logger.Info("demo login", interfaces.Field{Key: "user", Value: user})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	user := "guest"
	if c, err := r.Cookie("katari_demo_user"); err == nil && c.Value != "" {
		user = c.Value
	}
	s.render(w, indexTmpl, map[string]string{"User": user})
}

func (s *Server) handleSales(w http.ResponseWriter, r *http.Request) {
	s.render(w, salesTmpl, map[string]int{
		"DelayMS": delayParam(r, defaultSalesDelayMS),
	})
}

func (s *Server) handleOps(w http.ResponseWriter, r *http.Request) {
	s.render(w, opsTmpl, map[string]int{
		"DelayMS":       delayParam(r, defaultOpsDelayMS),
		"SwitchDelayMS": opsSwitchDelayMS,
	})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	s.render(w, liveTmpl, nil)
}

func (s *Server) render(w http.ResponseWriter, tmpl *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		s.logger.Error("rendering page", interfaces.Field{Key: "error", Value: err.Error()})
	}
}

// delayParam reads ?delay=<ms>, clamped to something a demo can sit through.
func delayParam(r *http.Request, def int) int {
	v := r.URL.Query().Get("delay")
	if v == "" {
		return def
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms < 0 {
		return def
	}
	if ms > maxDelayMS {
		return maxDelayMS
	}
	return ms
}
