package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/minorlabs/colorizer/pkg/api"
	"github.com/minorlabs/colorizer/pkg/auth"
	"github.com/minorlabs/colorizer/pkg/identity"
)

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullname"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.WriteMethodNotAllowed(w)
		return
	}

	var body credentialsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		api.WriteBadRequest(w, "All fields are required")
		return
	}
	if body.Email == "" || body.Password == "" || body.FullName == "" {
		api.WriteBadRequest(w, "All fields are required")
		return
	}

	user, err := s.users.Signup(r.Context(), body.Email, body.Password, body.FullName)
	if err != nil {
		if errors.Is(err, identity.ErrEmailTaken) {
			api.WriteBadRequest(w, "User already exists")
			return
		}
		if errors.Is(err, identity.ErrInvalidCredentials) {
			api.WriteBadRequest(w, "All fields are required")
			return
		}
		api.WriteInternal(w, err)
		return
	}

	if err := s.issueSession(w, user); err != nil {
		api.WriteInternal(w, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, map[string]string{"message": "User created successfully"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.WriteMethodNotAllowed(w)
		return
	}

	var body credentialsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		api.WriteBadRequest(w, "All fields are required")
		return
	}
	if body.Email == "" || body.Password == "" {
		api.WriteBadRequest(w, "All fields are required")
		return
	}

	user, err := s.users.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			api.WriteBadRequest(w, "Invalid credentials")
			return
		}
		api.WriteInternal(w, err)
		return
	}

	if err := s.issueSession(w, user); err != nil {
		api.WriteInternal(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"message": "Login successful"})
}

// handleLogout revokes the current token and clears the cookie. With a
// revocation registry the token dies server-side; without one the cookie
// clear is all the invalidation there is.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	// The browser client logs out with a GET; POST is allowed for direct
	// API callers.
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		api.WriteMethodNotAllowed(w)
		return
	}

	claims, err := auth.GetClaims(r.Context())
	if err != nil {
		api.WriteUnauthorized(w, "")
		return
	}

	if s.revoker != nil && claims.ExpiresAt != nil {
		ttl := time.Until(claims.ExpiresAt.Time)
		if err := s.revoker.Revoke(r.Context(), claims.ID, ttl); err != nil {
			api.WriteInternal(w, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.SecureCookies,
	})
	api.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// handleWhoAmI confirms the session and echoes the verified identity, used
// by the client's route guard.
func (s *Server) handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.WriteMethodNotAllowed(w)
		return
	}

	claims, err := auth.GetClaims(r.Context())
	if err != nil {
		api.WriteUnauthorized(w, "")
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"user": map[string]string{
			"userId":   claims.SubjectID(),
			"email":    claims.Email,
			"fullname": claims.DisplayName,
		},
	})
}

// issueSession signs a token for the user and sets the session cookie with
// the token's own lifetime.
func (s *Server) issueSession(w http.ResponseWriter, user *identity.User) error {
	token, err := s.tokens.Issue(user.ID, user.Email, user.DisplayName)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(identity.TokenTTL / time.Second),
		HttpOnly: true,
		Secure:   s.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
