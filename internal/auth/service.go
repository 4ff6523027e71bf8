package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/ogevents/server/internal/model"
)

// Session is a signed session token and its expiry
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// AuthService orchestrates login flows that end in a session
type AuthService struct {
	otpProvider OtpProvider
	sessions    *SessionIssuer
	oauth       *OAuthBridge
}

// NewAuthService creates a new auth service. oauth may be nil when Google login is disabled.
func NewAuthService(otpProvider OtpProvider, sessions *SessionIssuer, oauth *OAuthBridge) *AuthService {
	return &AuthService{
		otpProvider: otpProvider,
		sessions:    sessions,
		oauth:       oauth,
	}
}

// RequestOTP delegates to the OTP provider
func (s *AuthService) RequestOTP(ctx context.Context, mobile, countryCode string, meta RequestMeta) (OtpIssue, error) {
	return s.otpProvider.RequestOTP(ctx, mobile, countryCode, meta)
}

// VerifyOTPAndIssueSession verifies the code, gets or creates the user and signs a session.
func (s *AuthService) VerifyOTPAndIssueSession(ctx context.Context, mobile, code string) (model.User, Session, error) {
	user, err := s.otpProvider.VerifyOTP(ctx, mobile, code)
	if err != nil {
		return model.User{}, Session{}, fmt.Errorf("OTP verification failed: %w", err)
	}
	return s.issue(user)
}

// GoogleEnabled reports whether a provider is configured
func (s *AuthService) GoogleEnabled() bool {
	return s.oauth != nil
}

// OAuth returns the configured bridge, or nil
func (s *AuthService) OAuth() *OAuthBridge {
	return s.oauth
}

// CompleteGoogleAndIssueSession finishes the provider callback and signs a session.
func (s *AuthService) CompleteGoogleAndIssueSession(ctx context.Context, params CallbackParams, stateCookie string) (model.User, Session, error) {
	if s.oauth == nil {
		return model.User{}, Session{}, ErrOAuthFailed
	}
	user, err := s.oauth.Complete(ctx, params, stateCookie)
	if err != nil {
		return model.User{}, Session{}, err
	}
	return s.issue(user)
}

func (s *AuthService) issue(user model.User) (model.User, Session, error) {
	token, expiresAt, err := s.sessions.Issue(user.ID)
	if err != nil {
		return model.User{}, Session{}, fmt.Errorf("failed to generate token: %w", err)
	}
	return user, Session{Token: token, ExpiresAt: expiresAt}, nil
}
