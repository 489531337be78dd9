// Package server wires the HTTP surface: route registration, middleware
// chain and the error-to-status mapping.
package server

import (
	"log/slog"
	"net/http"

	"github.com/minorlabs/colorizer/pkg/api"
	"github.com/minorlabs/colorizer/pkg/auth"
	"github.com/minorlabs/colorizer/pkg/history"
	"github.com/minorlabs/colorizer/pkg/identity"
)

// Server holds the handler dependencies.
type Server struct {
	tokens  *identity.TokenManager
	users   *identity.Users
	service *history.Service
	gate    *auth.Middleware
	revoker auth.Revoker
	logger  *slog.Logger

	// SecureCookies marks issued cookies Secure; enable behind TLS.
	SecureCookies bool
}

func New(tokens *identity.TokenManager, users *identity.Users, service *history.Service, revoker auth.Revoker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		tokens:  tokens,
		users:   users,
		service: service,
		gate:    auth.NewMiddleware(tokens, revoker),
		revoker: revoker,
		logger:  logger,
	}
}

// Handler builds the full middleware chain around the route mux.
func (s *Server) Handler(corsOrigins []string) http.Handler {
	mux := http.NewServeMux()

	// Auth routes (public)
	mux.HandleFunc("/api/v1/auth/signup", s.handleSignup)
	mux.HandleFunc("/api/v1/auth/login", s.handleLogin)

	// Auth routes (gated)
	mux.Handle("/api/v1/auth/logout", s.gate.Require(http.HandlerFunc(s.handleLogout)))
	mux.Handle("/api/v1/auth/go-home", s.gate.Require(http.HandlerFunc(s.handleWhoAmI)))

	// History routes (gated)
	mux.Handle("/color-image", s.gate.Require(http.HandlerFunc(s.handleColorImage)))
	mux.Handle("/search-history", s.gate.Require(http.HandlerFunc(s.handleSearchHistory)))
	mux.Handle("/search-one/", s.gate.Require(http.HandlerFunc(s.handleSearchOne)))
	mux.Handle("/update-label/", s.gate.Require(http.HandlerFunc(s.handleUpdateLabel)))
	mux.Handle("/delete-image/", s.gate.Require(http.HandlerFunc(s.handleDeleteImage)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	var h http.Handler = mux
	h = auth.CORSMiddleware(corsOrigins)(h)
	h = auth.RequestIDMiddleware(h)
	return h
}
