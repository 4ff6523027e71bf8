package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/ogevents/server/internal/logging"
	"github.com/ogevents/server/internal/model"
	"github.com/ogevents/server/internal/repo/repotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	identity model.ExternalIdentity
	err      error
	codes    []string
}

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + url.QueryEscape(state)
}

func (p *fakeProvider) Exchange(_ context.Context, code string) (model.ExternalIdentity, error) {
	p.codes = append(p.codes, code)
	return p.identity, p.err
}

func TestOAuthBridge_Begin(t *testing.T) {
	b := NewOAuthBridge(&fakeProvider{}, repotest.NewMemoryUserRepo(), false, logging.Nop())

	rec := httptest.NewRecorder()
	require.NoError(t, b.Begin(rec, httptest.NewRequest(http.MethodGet, "/auth/google", nil)))

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, StateCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Len(t, cookies[0].Value, 43)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, cookies[0].Value, loc.Query().Get("state"))
}

func TestOAuthBridge_Complete(t *testing.T) {
	users := repotest.NewMemoryUserRepo()
	provider := &fakeProvider{identity: model.ExternalIdentity{
		ExternalID: "google-123",
		Email:      "ana@example.com",
		Name:       "Ana",
		GivenName:  "Ana",
		FamilyName: "Lopez",
	}}
	b := NewOAuthBridge(provider, users, false, logging.Nop())
	ctx := context.Background()

	user, err := b.Complete(ctx, CallbackParams{State: "s1", Code: "code-1"}, "s1")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.Equal(t, "Ana", user.FirstName)
	assert.Equal(t, []string{"code-1"}, provider.codes)

	again, err := b.Complete(ctx, CallbackParams{State: "s2", Code: "code-2"}, "s2")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
	assert.Equal(t, 1, users.Len())
}

func TestOAuthBridge_CompleteIgnoresUnverifiedProfileEmail(t *testing.T) {
	users := repotest.NewMemoryUserRepo()
	ctx := context.Background()

	phoneUser, err := users.GetOrCreateByMobile(ctx, "5551234", "+1")
	require.NoError(t, err)
	require.NoError(t, users.UpdateProfile(ctx, phoneUser.ID, model.ProfileFields{Email: "ana@gmail.com"}))

	provider := &fakeProvider{identity: model.ExternalIdentity{
		ExternalID:    "google-ana",
		Email:         "ana@gmail.com",
		EmailVerified: true,
	}}
	b := NewOAuthBridge(provider, users, false, logging.Nop())

	user, err := b.Complete(ctx, CallbackParams{State: "s1", Code: "code-1"}, "s1")
	require.NoError(t, err)
	assert.NotEqual(t, phoneUser.ID, user.ID, "google login must not resolve to an account with an unverified email")
	assert.True(t, user.IsEmailVerified)
	assert.Equal(t, 2, users.Len())

	stored, err := users.GetByID(ctx, phoneUser.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.GoogleID)
}

func TestOAuthBridge_CompleteLinksVerifiedEmail(t *testing.T) {
	users := repotest.NewMemoryUserRepo()
	ctx := context.Background()

	existing, err := users.GetOrCreateByMobile(ctx, "5551234", "+1")
	require.NoError(t, err)
	existing.Email = "ana@gmail.com"
	existing.IsEmailVerified = true
	users.Put(existing)

	provider := &fakeProvider{identity: model.ExternalIdentity{
		ExternalID:    "google-ana",
		Email:         "ana@gmail.com",
		EmailVerified: true,
	}}
	b := NewOAuthBridge(provider, users, false, logging.Nop())

	user, err := b.Complete(ctx, CallbackParams{State: "s1", Code: "code-1"}, "s1")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, user.ID)
	assert.Equal(t, 1, users.Len())
}

func TestOAuthBridge_CompleteFailures(t *testing.T) {
	tests := []struct {
		name     string
		provider *fakeProvider
		params   CallbackParams
		cookie   string
	}{
		{"provider error", &fakeProvider{}, CallbackParams{Error: "access_denied"}, ""},
		{"state mismatch", &fakeProvider{}, CallbackParams{State: "a", Code: "c"}, "b"},
		{"missing state", &fakeProvider{}, CallbackParams{Code: "c"}, ""},
		{"missing code", &fakeProvider{}, CallbackParams{State: "a"}, "a"},
		{"exchange error", &fakeProvider{err: errors.New("bad code")}, CallbackParams{State: "a", Code: "c"}, "a"},
		{"empty identity", &fakeProvider{}, CallbackParams{State: "a", Code: "c"}, "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := repotest.NewMemoryUserRepo()
			b := NewOAuthBridge(tt.provider, users, false, logging.Nop())
			_, err := b.Complete(context.Background(), tt.params, tt.cookie)
			assert.ErrorIs(t, err, ErrOAuthFailed)
			assert.Equal(t, 0, users.Len())
		})
	}
}

func TestGenerateState_Unique(t *testing.T) {
	a, err := GenerateState()
	require.NoError(t, err)
	b, err := GenerateState()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 43)
}
