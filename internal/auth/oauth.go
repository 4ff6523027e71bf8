package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"github.com/ogevents/server/internal/model"
	"github.com/ogevents/server/internal/repo"
	"go.uber.org/zap"
)

const (
	StateCookieName = "OG-OAUTH-STATE"
	stateTTL        = 10 * time.Minute
)

// IdentityProvider is a third-party login provider speaking the authorization code flow.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (model.ExternalIdentity, error)
}

// CallbackParams are the query parameters the provider redirects back with.
type CallbackParams struct {
	State string
	Code  string
	Error string
}

// OAuthBridge maps a provider login onto a local user.
type OAuthBridge struct {
	provider IdentityProvider
	userRepo repo.UserRepo
	secure   bool
	logger   *zap.Logger
}

// NewOAuthBridge creates a new bridge for the given provider
func NewOAuthBridge(provider IdentityProvider, userRepo repo.UserRepo, secure bool, logger *zap.Logger) *OAuthBridge {
	return &OAuthBridge{
		provider: provider,
		userRepo: userRepo,
		secure:   secure,
		logger:   logger,
	}
}

// Begin stores a fresh state in a short-lived cookie and redirects to the provider.
func (b *OAuthBridge) Begin(w http.ResponseWriter, r *http.Request) error {
	state, err := GenerateState()
	if err != nil {
		return fmt.Errorf("generate state: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   b.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, b.provider.AuthCodeURL(state), http.StatusTemporaryRedirect)
	return nil
}

// ClearState expires the state cookie set by Begin
func (b *OAuthBridge) ClearState(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    "",
		Path:     "/auth/google",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   b.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Complete validates the callback, exchanges the code and resolves the local user.
// Every provider-side failure is reported as ErrOAuthFailed.
func (b *OAuthBridge) Complete(ctx context.Context, params CallbackParams, stateCookie string) (model.User, error) {
	if params.Error != "" {
		b.logger.Info("oauth provider returned error", zap.String("error", params.Error))
		return model.User{}, ErrOAuthFailed
	}
	if params.State == "" || subtle.ConstantTimeCompare([]byte(params.State), []byte(stateCookie)) != 1 {
		return model.User{}, fmt.Errorf("%w: state mismatch", ErrOAuthFailed)
	}
	if params.Code == "" {
		return model.User{}, fmt.Errorf("%w: missing code", ErrOAuthFailed)
	}

	identity, err := b.provider.Exchange(ctx, params.Code)
	if err != nil {
		b.logger.Warn("oauth exchange failed", zap.Error(err))
		return model.User{}, fmt.Errorf("%w: %v", ErrOAuthFailed, err)
	}
	if identity.ExternalID == "" {
		return model.User{}, fmt.Errorf("%w: empty external id", ErrOAuthFailed)
	}

	user, err := b.userRepo.GetOrCreateByGoogle(ctx, identity)
	if err != nil {
		return model.User{}, fmt.Errorf("resolve google user: %w", err)
	}
	return user, nil
}
