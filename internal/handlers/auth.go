package handlers

import (
	"encoding/json"
	"net/http"

	"storyloom-backend/internal/middleware"
	"storyloom-backend/internal/models"
	"storyloom-backend/internal/session"
	"storyloom-backend/internal/upstream"
)

// AuthHandler proxies identity to the Account Service. The upstream JWT
// lands in an HTTP-only cookie and is mirrored into the session so
// background work can act for the user.
type AuthHandler struct {
	sessions *session.Manager
	account  *upstream.AccountClient
	jwtAuth  *middleware.JWTAuth
}

func NewAuthHandler(sessions *session.Manager, account *upstream.AccountClient, jwtAuth *middleware.JWTAuth) *AuthHandler {
	return &AuthHandler{sessions: sessions, account: account, jwtAuth: jwtAuth}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	user, token, err := h.account.Register(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.jwtAuth.SetCookie(w, token)
	sess := currentSession(h.sessions, r)
	sess.SetUser(user, token)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"user": user})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	user, token, err := h.account.Login(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.jwtAuth.SetCookie(w, token)
	sess := currentSession(h.sessions, r)
	sess.SetUser(user, token)
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(h.sessions, r)

	if cookie, err := r.Cookie(middleware.AuthCookieName); err == nil && cookie.Value != "" {
		// Best effort: a dead upstream must not stop a local logout.
		h.account.Logout(r.Context(), cookie.Value)
	}

	h.jwtAuth.ClearCookie(w)
	sess.ClearUser()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Signed out"})
}

// Me reports the signed-in user. After a server restart the in-memory
// session has forgotten the user while the cookie survived, so a valid
// cookie re-populates it from the Account Service.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(h.sessions, r)

	if user := sess.User(); user != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
		return
	}

	cookie, err := r.Cookie(middleware.AuthCookieName)
	if err != nil || cookie.Value == "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{"user": nil})
		return
	}

	user, err := h.account.CurrentUser(r.Context(), cookie.Value)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if user != nil {
		sess.SetUser(user, cookie.Value)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}
