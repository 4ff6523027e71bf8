package handlers

import (
	"errors"
	"net/http"

	"github.com/ogevents/server/internal/auth"
	"github.com/ogevents/server/internal/middleware"
	"github.com/ogevents/server/internal/model"
	"github.com/ogevents/server/internal/profile"
	"github.com/ogevents/server/internal/repo"
	"go.uber.org/zap"
)

// ProfileHandler handles the authenticated user's own profile
type ProfileHandler struct {
	profiles *profile.Service
	sessions *auth.SessionIssuer
	logger   *zap.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profiles *profile.Service, sessions *auth.SessionIssuer, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, sessions: sessions, logger: logger}
}

// updateProfileRequest is the request body for PUT /users/me
type updateProfileRequest struct {
	Username       string `json:"username" validate:"max=50"`
	Email          string `json:"email" validate:"omitempty,email"`
	FirstName      string `json:"firstname" validate:"max=100"`
	LastName       string `json:"lastname" validate:"max=100"`
	ProfilePicture string `json:"profile_picture" validate:"omitempty,url"`
	Bio            string `json:"bio" validate:"max=1000"`
}

// HandleGetMe handles GET /users/me
func (h *ProfileHandler) HandleGetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized: No session token")
		return
	}

	user, err := h.profiles.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			h.sessions.ClearCookie(w)
			respondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error("failed to load user", zap.Stringer("user_id", userID), zap.Error(err))
		respondInternalError(w)
		return
	}

	respondJSON(w, http.StatusOK, messageResponse{Message: "User found", Data: user})
}

// HandleUpdateMe handles PUT /users/me
func (h *ProfileHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized: No session token")
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	err := h.profiles.UpdateProfile(r.Context(), userID, model.ProfileFields{
		Username:       req.Username,
		Email:          req.Email,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		ProfilePicture: req.ProfilePicture,
		Bio:            req.Bio,
	})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error("failed to update profile", zap.Stringer("user_id", userID), zap.Error(err))
		respondInternalError(w)
		return
	}

	respondJSON(w, http.StatusOK, messageResponse{Message: "User details updated successfully"})
}
