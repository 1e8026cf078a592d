package handlers

import (
	"net/http"
	"time"

	"github.com/BorisDmv/multiblog-api/internal/blog"
)

type AuthHandler struct {
	svc *blog.Service
}

func NewAuthHandler(svc *blog.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"userId"`
}

type LoginResponse struct {
	Message  string `json:"message"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    int64     `json:"userId"`
	Username  string    `json:"username"`
}

// Register creates an account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := h.svc.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		respondServiceError(w, "register", err)
		return
	}
	respondJSON(w, http.StatusCreated, RegisterResponse{Message: "user registered", UserID: id})
}

// Login exchanges credentials for a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondServiceError(w, "login", err)
		return
	}
	respondJSON(w, http.StatusOK, LoginResponse{
		Message:   "login successful",
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt.UTC(),
		UserID:    sess.UserID,
		Username:  sess.Username,
	})
}
