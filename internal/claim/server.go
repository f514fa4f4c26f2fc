package claim

import (
	"log/slog"
	"net/http"
)

// Server handles HTTP requests for the claim form
type Server struct {
	service        *Service
	auth           *Auth
	maxUploadBytes int64
	mux            *http.ServeMux
}

// NewServer creates a new Server with default mux
func NewServer(service *Service, auth *Auth, maxUploadBytes int64) *Server {
	return NewServerWithMux(service, auth, maxUploadBytes, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *Service, auth *Auth, maxUploadBytes int64, mux *http.ServeMux) *Server {
	s := &Server{
		service:        service,
		auth:           auth,
		maxUploadBytes: maxUploadBytes,
		mux:            mux,
	}
	s.registerRoutes()
	return s
}

// requireLogin middleware redirects anonymous requests to the login page
func (s *Server) requireLogin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.auth.CurrentUser(r); !ok {
			s.auth.Flash(w, r, "Please log in first.")
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

// registerRoutes registers all routes on the server's mux
// Routes must be registered from most specific to least specific to avoid conflicts
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /static/app.css", s.handleStaticCSS)

	s.mux.HandleFunc("GET /login", s.handleLoginPage)
	s.mux.HandleFunc("POST /login", s.handleLogin)
	s.mux.HandleFunc("GET /auth/google", s.handleGoogleLogin)
	s.mux.HandleFunc("GET /auth/google/callback", s.handleGoogleCallback)
	s.mux.HandleFunc("GET /logout", s.handleLogout)

	s.mux.HandleFunc("GET /uploads/{filename}", s.requireLogin(s.handleDownload))

	// Claim form (register last as it's the catch-all)
	s.mux.HandleFunc("GET /", s.requireLogin(s.handleIndex))
	s.mux.HandleFunc("POST /", s.requireLogin(s.handleSubmit))
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, s.mux)
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
