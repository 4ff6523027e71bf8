package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ogevents/server/internal/auth"
	"github.com/ogevents/server/internal/logging"
	"go.uber.org/zap"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *auth.AuthService
	sessions    *auth.SessionIssuer
	logger      *zap.Logger
	echoCode    bool
	clientURL   string
}

// AuthHandlerOptions holds the response-shaping settings of AuthHandler
type AuthHandlerOptions struct {
	// EchoCode returns the plaintext OTP in the send-otp response
	EchoCode  bool
	ClientURL string
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.AuthService, sessions *auth.SessionIssuer, logger *zap.Logger, opts AuthHandlerOptions) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessions:    sessions,
		logger:      logger,
		echoCode:    opts.EchoCode,
		clientURL:   opts.ClientURL,
	}
}

// sendOTPRequest is the request body for POST /auth/send-otp
type sendOTPRequest struct {
	Mobile      string `json:"mobile" validate:"required,number,min=4,max=15"`
	CountryCode string `json:"country_code" validate:"required,startswith=+,max=5"`
}

// verifyOTPRequest is the request body for POST /auth/verify-otp
type verifyOTPRequest struct {
	Mobile string `json:"mobile" validate:"required,number,min=4,max=15"`
	OTP    string `json:"otp" validate:"required,len=6,number"`
}

// HandleSendOTP handles POST /auth/send-otp
func (h *AuthHandler) HandleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req sendOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Mobile = strings.TrimSpace(req.Mobile)
	req.CountryCode = strings.TrimSpace(req.CountryCode)
	if err := validate.Struct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	meta := auth.RequestMeta{IP: getClientIP(r), UserAgent: r.UserAgent()}
	issue, err := h.authService.RequestOTP(r.Context(), req.Mobile, req.CountryCode, meta)
	if err != nil {
		if errors.Is(err, auth.ErrRateLimited) {
			h.logger.Info("otp request throttled", logging.Mobile(req.Mobile))
			respondWithError(w, http.StatusTooManyRequests, "Too many OTP requests, try again later")
			return
		}
		h.logger.Error("failed to request otp", logging.Mobile(req.Mobile), zap.Error(err))
		respondInternalError(w)
		return
	}

	if !h.echoCode {
		issue.OTP = ""
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: "OTP sent successfully", Data: issue})
}

// HandleVerifyOTP handles POST /auth/verify-otp
func (h *AuthHandler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Mobile = strings.TrimSpace(req.Mobile)
	req.OTP = strings.TrimSpace(req.OTP)
	if err := validate.Struct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	user, session, err := h.authService.VerifyOTPAndIssueSession(r.Context(), req.Mobile, req.OTP)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrOTPNotFound):
			respondWithError(w, http.StatusNotFound, "OTP not found")
		case errors.Is(err, auth.ErrOTPMismatch):
			respondWithError(w, http.StatusUnauthorized, "Invalid OTP")
		case errors.Is(err, auth.ErrOTPExpired):
			respondWithError(w, http.StatusUnauthorized, "OTP expired")
		default:
			h.logger.Error("otp verification failed", logging.Mobile(req.Mobile), zap.Error(err))
			respondInternalError(w)
		}
		return
	}

	h.sessions.SetCookie(w, session.Token, session.ExpiresAt)
	respondJSON(w, http.StatusOK, messageResponse{Message: "OTP verified successfully", Data: user})
}

// HandleLogout handles POST /auth/logout. The cookie only has to be present.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.sessions.TokenFromRequest(r); !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized: No session token")
		return
	}
	h.sessions.ClearCookie(w)
	respondJSON(w, http.StatusOK, messageResponse{Message: "logged out"})
}
