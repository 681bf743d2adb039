package http

import (
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"expensed/internal/core"
	"expensed/internal/log"
	"expensed/internal/storage"
)

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = sanitizeInput(req.Email)
	req.Username = sanitizeInput(req.Username)

	if err := core.ValidateEmail(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := core.ValidateUsername(req.Username); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := core.ValidatePassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	id, err := s.storage.CreateUser(r.Context(), req.Email, req.Username, string(hash))
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			writeError(w, http.StatusBadRequest, "email or username already registered")
			return
		}
		s.logger.ErrorContext(r.Context(), "Failed to create user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.logger.InfoContext(r.Context(), "User registered",
		log.FieldUserID, id,
		"username", req.Username)

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":       id,
		"email":    req.Email,
		"username": req.Username,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.storage.GetUserByEmail(r.Context(), sanitizeInput(req.Email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Same response as a wrong password; no account probing.
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.logger.ErrorContext(r.Context(), "Failed to look up user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.gate.IssueToken(user.ID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to issue token",
			log.FieldUserID, user.ID,
			"error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.logger.InfoContext(r.Context(), "User logged in", log.FieldUserID, user.ID)
	writeJSON(w, http.StatusOK, map[string]string{"access_token": token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())

	if err := s.gate.Revoke(r.Context(), identity.TokenID); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to revoke token",
			log.FieldUserID, identity.UserID,
			log.FieldTokenID, identity.TokenID,
			"error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.logger.InfoContext(r.Context(), "Token revoked",
		log.FieldUserID, identity.UserID,
		log.FieldTokenID, identity.TokenID)

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}
