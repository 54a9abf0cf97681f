package http

import (
	"errors"
	"log/slog"
	"net/http"

	"fintrack/internal/auth"
	"fintrack/internal/store"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func sessionFor(u store.User, token string) sessionResponse {
	var resp sessionResponse
	resp.Token = token
	resp.User.ID = u.ID
	resp.User.Email = u.Email
	return resp
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !readJSON(w, r, &req) {
		return
	}

	u, token, err := s.auth.Register(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case errors.Is(err, store.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email already registered")
		return
	case err != nil:
		slog.ErrorContext(r.Context(), "Registration failed", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	writeJSON(w, http.StatusCreated, sessionFor(u, token))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !readJSON(w, r, &req) {
		return
	}

	u, token, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, sessionFor(u, token))
}
