package handler

import (
	"net/http"

	"go-bookshelf/internal/middleware"
	"go-bookshelf/internal/model"
	"go-bookshelf/internal/service"
	"go-bookshelf/pkg/apierror"
)

type AuthHandler struct {
	service   *service.AuthService
	clientKey func(*http.Request) string
}

// NewAuthHandler wires the auth routes. clientKey derives the rate limit key
// of a request, usually middleware.ClientIP.
func NewAuthHandler(service *service.AuthService, clientKey func(*http.Request) string) *AuthHandler {
	if clientKey == nil {
		clientKey = middleware.ClientIP(false)
	}
	return &AuthHandler{service: service, clientKey: clientKey}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload model.CredentialsRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	user, decision, err := h.service.Register(r.Context(), h.clientKey(r), payload)
	setRateLimitHeaders(w, decision)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.CredentialsRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	resp, decision, err := h.service.Login(r.Context(), h.clientKey(r), payload)
	setRateLimitHeaders(w, decision)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, resp)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"username":   claims.Username,
		"expires_at": claims.ExpiresAt,
	})
}

func currentUsername(r *http.Request) (string, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return "", false
	}
	return claims.Username, true
}
