package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/chorebridge/internal/auth"
	"github.com/dukerupert/chorebridge/internal/store"
)

type AuthHandler struct {
	userStore *store.UserStore
	issuer    *auth.Issuer
	logger    *slog.Logger
}

func NewAuthHandler(us *store.UserStore, issuer *auth.Issuer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{userStore: us, issuer: issuer, logger: logger}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token  string `json:"token"`
	Expire string `json:"expire"`
}

// Login exchanges a username and password for a session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	user, err := h.userStore.Authenticate(req.Username, req.Password)
	if errors.Is(err, store.ErrInvalidCredentials) {
		h.logger.Warn("login failed", "username", req.Username)
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}
	if err != nil {
		h.logger.Error("login", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	token, expire, err := h.issuer.Issue(user.ID, user.Username)
	if err != nil {
		h.logger.Error("issue token", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}
	h.logger.Info("login", "user_id", user.ID)
	writeJSON(w, http.StatusOK, loginResponse{Token: token, Expire: expire.UTC().Format(time.RFC3339)})
}
