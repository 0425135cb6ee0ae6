package handler

import (
	"errors"
	"net/http"

	"central-illustration/internal/logger"
	"central-illustration/internal/middleware"
	"central-illustration/internal/models"
	"central-illustration/internal/service"
)

type AuthHandler struct {
	Auth *service.AuthService
	Log  *logger.Logger
}

// Login takes the OAuth2 password form (username, password).
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid form")
		return
	}
	username, password := r.PostForm.Get("username"), r.PostForm.Get("password")
	if username == "" || password == "" {
		writeError(w, http.StatusUnprocessableEntity, "username and password are required")
		return
	}

	tok, err := h.Auth.Login(r.Context(), username, password)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	case errors.Is(err, service.ErrInactiveUser):
		writeError(w, http.StatusBadRequest, "Inactive user")
		return
	case err != nil:
		h.Log.Error("login", "username", username, "error", err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.UserFrom(r.Context())
	writeJSON(w, http.StatusOK, models.CurrentUser{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
	})
}
