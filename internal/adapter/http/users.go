package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/couchcryptid/match-forecast-service/internal/auth"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "request body must be JSON with email and password")
		return
	}

	_, err := s.accounts.Register(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, map[string]string{"result": "registered"})
	case errors.Is(err, auth.ErrEmailTaken):
		writeJSON(w, http.StatusConflict, map[string]string{"result": "email already registered"})
	case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrInvalidPassword):
		writeDetail(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("register failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, "internal error")
	}
}

// handleLogin reads credentials from the query string, falling back to a
// JSON body.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req := credentials{
		Email:    r.URL.Query().Get("email"),
		Password: r.URL.Query().Get("password"),
	}
	if req.Email == "" && req.Password == "" {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			writeDetail(w, http.StatusBadRequest, auth.ErrInvalidCredentials.Error())
			return
		}
	}

	token, err := s.accounts.Login(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, token)
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeDetail(w, http.StatusBadRequest, auth.ErrInvalidCredentials.Error())
	default:
		s.logger.Error("login failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, "internal error")
	}
}
