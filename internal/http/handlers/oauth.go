package handlers

import (
	"errors"
	"net/http"

	"github.com/ogevents/server/internal/auth"
	"go.uber.org/zap"
)

// HandleGoogleLogin handles GET /auth/google
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.authService.GoogleEnabled() {
		http.NotFound(w, r)
		return
	}
	if err := h.authService.OAuth().Begin(w, r); err != nil {
		h.logger.Error("failed to start google login", zap.Error(err))
		respondInternalError(w)
	}
}

// HandleGoogleCallback handles GET /auth/google/callback
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if !h.authService.GoogleEnabled() {
		http.NotFound(w, r)
		return
	}

	var stateCookie string
	if c, err := r.Cookie(auth.StateCookieName); err == nil {
		stateCookie = c.Value
	}
	h.authService.OAuth().ClearState(w)

	q := r.URL.Query()
	params := auth.CallbackParams{
		State: q.Get("state"),
		Code:  q.Get("code"),
		Error: q.Get("error"),
	}

	_, session, err := h.authService.CompleteGoogleAndIssueSession(r.Context(), params, stateCookie)
	if err != nil {
		if errors.Is(err, auth.ErrOAuthFailed) {
			respondWithError(w, http.StatusUnauthorized, "Google authentication failed")
			return
		}
		h.logger.Error("google login failed", zap.Error(err))
		respondInternalError(w)
		return
	}

	h.sessions.SetCookie(w, session.Token, session.ExpiresAt)
	http.Redirect(w, r, h.clientURL, http.StatusFound)
}
