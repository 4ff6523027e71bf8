package profile

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/ogevents/server/internal/model"
	"github.com/ogevents/server/internal/repo"
)

// Service reads and updates the authenticated user's profile
type Service struct {
	userRepo repo.UserRepo
}

// NewService creates a new profile service
func NewService(userRepo repo.UserRepo) *Service {
	return &Service{userRepo: userRepo}
}

// Get returns the user with the given ID. Missing users wrap repo.ErrNotFound.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (model.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateProfile overwrites every editable field. The email is marked unverified and the
// profile completed regardless of which fields actually changed.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, fields model.ProfileFields) error {
	fields = model.ProfileFields{
		Username:       strings.TrimSpace(fields.Username),
		Email:          strings.TrimSpace(fields.Email),
		FirstName:      strings.TrimSpace(fields.FirstName),
		LastName:       strings.TrimSpace(fields.LastName),
		ProfilePicture: strings.TrimSpace(fields.ProfilePicture),
		Bio:            fields.Bio,
	}
	if err := s.userRepo.UpdateProfile(ctx, userID, fields); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}
