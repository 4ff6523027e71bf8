// Package repotest provides in-memory repositories with the same semantics as the
// Postgres ones, for service and handler tests.
package repotest

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ogevents/server/internal/model"
	"github.com/ogevents/server/internal/repo"
)

// MemoryOtpRepo is an in-memory repo.OtpRepo. Now drives created_at and expiry checks.
type MemoryOtpRepo struct {
	mu      sync.Mutex
	records []model.OtpRecord
	Now     func() time.Time
}

// NewMemoryOtpRepo builds an in-memory OTP store
func NewMemoryOtpRepo() *MemoryOtpRepo {
	return &MemoryOtpRepo{Now: time.Now}
}

func (r *MemoryOtpRepo) CreateAndSupersede(_ context.Context, rec model.OtpRecord) (model.OtpRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.Now()
	for i := range r.records {
		old := &r.records[i]
		if old.Mobile == rec.Mobile && !old.IsVerified && old.SupersededAt == nil {
			t := now
			old.SupersededAt = &t
		}
	}
	rec.ID = uuid.New()
	rec.CreatedAt = now
	rec.IsVerified = false
	rec.VerifiedAt = nil
	rec.SupersededAt = nil
	r.records = append(r.records, rec)
	return rec, nil
}

func (r *MemoryOtpRepo) FindByMobileAndHash(_ context.Context, mobile, otpHashHex string) (model.OtpRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.records) - 1; i >= 0; i-- {
		rec := r.records[i]
		if rec.Mobile == mobile && hex.EncodeToString(rec.OTPHash) == otpHashHex {
			return rec, nil
		}
	}
	return model.OtpRecord{}, fmt.Errorf("otp: %w", repo.ErrNotFound)
}

func (r *MemoryOtpRepo) MarkVerified(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.Now()
	for i := range r.records {
		rec := &r.records[i]
		if rec.ID != id {
			continue
		}
		if rec.IsVerified || rec.SupersededAt != nil || !now.Before(rec.ExpiresAt) {
			return false, nil
		}
		rec.IsVerified = true
		rec.VerifiedAt = &now
		return true, nil
	}
	return false, nil
}

func (r *MemoryOtpRepo) CountRecentRequests(_ context.Context, mobile string, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, rec := range r.records {
		if rec.Mobile == mobile && !rec.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// Records returns a copy of every stored record in insertion order
func (r *MemoryOtpRepo) Records() []model.OtpRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.OtpRecord, len(r.records))
	copy(out, r.records)
	return out
}

// MemoryUserRepo is an in-memory repo.UserRepo
type MemoryUserRepo struct {
	mu    sync.RWMutex
	users map[uuid.UUID]model.User
	Now   func() time.Time
}

// NewMemoryUserRepo builds an in-memory user store
func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{users: make(map[uuid.UUID]model.User), Now: time.Now}
}

func (r *MemoryUserRepo) GetByID(_ context.Context, id uuid.UUID) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("user: %w", repo.ErrNotFound)
	}
	return user, nil
}

func (r *MemoryUserRepo) GetByMobile(_ context.Context, mobile string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if user, ok := r.findLocked(func(u model.User) bool { return u.Mobile != nil && *u.Mobile == mobile }); ok {
		return user, nil
	}
	return model.User{}, fmt.Errorf("user: %w", repo.ErrNotFound)
}

func (r *MemoryUserRepo) GetOrCreateByMobile(_ context.Context, mobile, countryCode string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.findLocked(func(u model.User) bool { return u.Mobile != nil && *u.Mobile == mobile }); ok {
		return user, nil
	}
	now := r.Now()
	user := model.User{
		ID:          uuid.New(),
		Mobile:      &mobile,
		CountryCode: &countryCode,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.users[user.ID] = user
	return user, nil
}

func (r *MemoryUserRepo) GetOrCreateByGoogle(_ context.Context, identity model.ExternalIdentity) (model.User, error) {
	if identity.ExternalID == "" {
		return model.User{}, fmt.Errorf("external identity has no id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	googleID := identity.ExternalID
	if user, ok := r.findLocked(func(u model.User) bool { return u.GoogleID != nil && *u.GoogleID == googleID }); ok {
		return user, nil
	}
	if identity.Email != "" && identity.EmailVerified {
		if user, ok := r.findLocked(func(u model.User) bool {
			return u.GoogleID == nil && u.IsEmailVerified && strings.EqualFold(u.Email, identity.Email)
		}); ok {
			user.GoogleID = &googleID
			user.UpdatedAt = r.Now()
			r.users[user.ID] = user
			return user, nil
		}
	}
	now := r.Now()
	user := model.User{
		ID:              uuid.New(),
		GoogleID:        &googleID,
		Email:           identity.Email,
		IsEmailVerified: identity.Email != "" && identity.EmailVerified,
		Username:        identity.Name,
		FirstName:       identity.GivenName,
		LastName:        identity.FamilyName,
		ProfilePicture:  identity.Picture,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	r.users[user.ID] = user
	return user, nil
}

func (r *MemoryUserRepo) UpdateProfile(_ context.Context, id uuid.UUID, fields model.ProfileFields) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, repo.ErrNotFound)
	}
	user.Username = fields.Username
	user.Email = fields.Email
	user.FirstName = fields.FirstName
	user.LastName = fields.LastName
	user.ProfilePicture = fields.ProfilePicture
	user.Bio = fields.Bio
	user.IsEmailVerified = false
	user.IsProfileCompleted = true
	user.UpdatedAt = r.Now()
	r.users[id] = user
	return nil
}

// Put stores user as-is, replacing any user with the same id
func (r *MemoryUserRepo) Put(user model.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
}

// Delete removes the user with the given id
func (r *MemoryUserRepo) Delete(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
}

// Len returns the number of stored users
func (r *MemoryUserRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

func (r *MemoryUserRepo) findLocked(match func(model.User) bool) (model.User, bool) {
	for _, u := range r.users {
		if match(u) {
			return u, true
		}
	}
	return model.User{}, false
}
