package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"dashgg/internal/api/dto"
	"dashgg/internal/kv"
	"dashgg/internal/user"
	"dashgg/internal/user/service"
	"dashgg/pkg/jwt"
	"dashgg/pkg/middleware"
)

const sessionTTL = 30 * 24 * time.Hour

type Handler struct {
	UserService *service.UserService
	Store       kv.Store
	JWTSecret   string
}

func NewHandler(us *service.UserService, store kv.Store, jwtSecret string) *Handler {
	return &Handler{
		UserService: us,
		Store:       store,
		JWTSecret:   jwtSecret,
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrorResponse{Error: "invalid request"})
		return
	}
	if err := dto.Validate.Struct(req); err != nil {
		middleware.HandleValidationError(w, err)
		return
	}

	u, err := h.UserService.Register(r.Context(), req.Email, req.Password, req.PanelUserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserExists), errors.Is(err, service.ErrPanelUserTaken):
			middleware.WriteError(w, http.StatusConflict, middleware.ErrorResponse{Error: err.Error()})
			return
		case errors.Is(err, service.ErrPanelUserMismatch):
			middleware.WriteError(w, http.StatusForbidden, middleware.ErrorResponse{Error: err.Error(), Field: "panel_user_id"})
			return
		}
		log.Printf("UserHandler: register failed: %v", err)
		middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrorResponse{Error: "failed to register"})
		return
	}

	writeJSON(w, http.StatusCreated, dto.AuthResponse{ID: u.ID, Email: u.Email, PanelUserID: u.PanelUserID})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrorResponse{Error: "invalid request"})
		return
	}
	if err := dto.Validate.Struct(req); err != nil {
		middleware.HandleValidationError(w, err)
		return
	}

	u, err := h.UserService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if !errors.Is(err, service.ErrInvalidCreds) {
			log.Printf("UserHandler: login failed: %v", err)
		}
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := jwt.GenerateToken(h.JWTSecret, u.ID, u.PanelUserID, u.Email, sessionTTL)
	if err != nil {
		http.Error(w, "token error", http.StatusInternalServerError)
		return
	}

	// Browser navigations (/renew, /linkpays/*) carry the session as a cookie.
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(sessionTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})

	writeJSON(w, http.StatusOK, dto.AuthResponse{ID: u.ID, Email: u.Email, PanelUserID: u.PanelUserID, Token: token})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	u, err := h.UserService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load user", http.StatusInternalServerError)
		return
	}

	coins, _, err := kv.GetInt64(r.Context(), h.Store, kv.CoinsKey(u.ID))
	if err != nil {
		log.Printf("UserHandler: reading coins of user %d failed: %v", u.ID, err)
		http.Error(w, "failed to load balance", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, dto.MeResponse{ID: u.ID, Email: u.Email, PanelUserID: u.PanelUserID, Coins: coins})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
