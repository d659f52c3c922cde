package authhandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"lessonmanager/internal/domain/auth"
	"lessonmanager/internal/platform/identity"
	"lessonmanager/internal/platform/recordstore"
	"lessonmanager/internal/transport/http/api"
	"lessonmanager/internal/transport/http/middleware"
)

const tokenTTL = 24 * time.Hour

type Handler struct {
	Identity          identity.Provider
	Store             recordstore.Store
	JWTSecret         string
	AllowRegistration bool
}

func NewHandler(provider identity.Provider, store recordstore.Store, jwtSecret string, allowRegistration bool) *Handler {
	return &Handler{
		Identity:          provider,
		Store:             store,
		JWTSecret:         jwtSecret,
		AllowRegistration: allowRegistration,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/register", h.HandleRegister)
	r.Post("/auth/login", h.HandleLogin)
	r.Post("/auth/logout", h.HandleLogout)
}

type credentialsPayload struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type sessionResponse struct {
	Token       string `json:"token"`
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	if !h.AllowRegistration {
		api.Fail(w, http.StatusForbidden, "registration_disabled", "registration is disabled", requestID)
		return
	}

	var payload credentialsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	payload.Email = strings.TrimSpace(payload.Email)
	if payload.Email == "" || !strings.Contains(payload.Email, "@") {
		api.Fail(w, http.StatusBadRequest, "invalid_email", "a valid email is required", requestID)
		return
	}
	if len(payload.Password) < 8 {
		api.Fail(w, http.StatusBadRequest, "weak_password", "password must be at least 8 characters", requestID)
		return
	}

	principal, err := h.Identity.Create(r.Context(), payload.Email, payload.DisplayName, payload.Password)
	if errors.Is(err, identity.ErrEmailTaken) {
		api.Fail(w, http.StatusConflict, "email_taken", "email already registered", requestID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "registration_failed", "failed to register", requestID)
		return
	}

	if err := h.Store.Put(r.Context(), "users", principal.ID, recordstore.Fields{
		"email":       principal.Email,
		"displayName": principal.DisplayName,
		"createdAt":   principal.CreatedAt.Format(time.RFC3339),
	}); err != nil {
		api.Fail(w, http.StatusInternalServerError, "registration_failed", "failed to create user record", requestID)
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, auth.Claims{
		UserID: principal.ID,
		Email:  principal.Email,
		Role:   auth.RoleUser,
	}, tokenTTL)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "registration_failed", "failed to issue token", requestID)
		return
	}

	api.Created(w, sessionResponse{
		Token:       token,
		UserID:      principal.ID,
		Email:       principal.Email,
		DisplayName: principal.DisplayName,
	}, requestID)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var payload credentialsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}

	ok, err := h.Identity.Reverify(r.Context(), payload.Email, payload.Password)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "login_failed", "failed to verify credentials", requestID)
		return
	}
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "email or password incorrect", requestID)
		return
	}

	principal, err := h.Identity.PrincipalByEmail(r.Context(), payload.Email)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "login_failed", "failed to load principal", requestID)
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, auth.Claims{
		UserID: principal.ID,
		Email:  principal.Email,
		Role:   auth.RoleUser,
	}, tokenTTL)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "login_failed", "failed to issue token", requestID)
		return
	}

	api.Success(w, sessionResponse{
		Token:       token,
		UserID:      principal.ID,
		Email:       principal.Email,
		DisplayName: principal.DisplayName,
	}, requestID)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	// tokens are stateless; the client discards its copy
	api.Success(w, map[string]any{"loggedOut": true}, middleware.GetRequestID(r.Context()))
}
