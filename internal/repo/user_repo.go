package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/ogevents/server/internal/model"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// UserRepo defines the interface for user repository operations
type UserRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (model.User, error)
	GetByMobile(ctx context.Context, mobile string) (model.User, error)
	GetOrCreateByMobile(ctx context.Context, mobile, countryCode string) (model.User, error)
	GetOrCreateByGoogle(ctx context.Context, identity model.ExternalIdentity) (model.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, fields model.ProfileFields) error
}

type userRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new UserRepo instance
func NewUserRepo(db *sql.DB) UserRepo {
	return &userRepo{db: db}
}

const userColumns = `userid, mobile, country_code, google_id, username, email, firstname, lastname,
	profile_picture, bio, is_email_verified, is_profile_completed, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var user model.User
	var idStr string
	err := row.Scan(
		&idStr,
		&user.Mobile,
		&user.CountryCode,
		&user.GoogleID,
		&user.Username,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.ProfilePicture,
		&user.Bio,
		&user.IsEmailVerified,
		&user.IsProfileCompleted,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, fmt.Errorf("user: %w", ErrNotFound)
		}
		return model.User{}, fmt.Errorf("failed to query user: %w", err)
	}
	user.ID, err = uuid.Parse(idStr)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to parse user ID: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by ID
func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE userid = $1`, id)
	return scanUser(row)
}

// GetByMobile retrieves a user by mobile number
func (r *userRepo) GetByMobile(ctx context.Context, mobile string) (model.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE mobile = $1`, mobile)
	return scanUser(row)
}

// GetOrCreateByMobile retrieves a user by mobile number or creates one if it doesn't exist
func (r *userRepo) GetOrCreateByMobile(ctx context.Context, mobile, countryCode string) (model.User, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (mobile, country_code)
		VALUES ($1, $2)
		ON CONFLICT (mobile) DO NOTHING
	`, mobile, countryCode)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to insert user: %w", err)
	}

	// Select the user whether it was just created or already existed
	return r.GetByMobile(ctx, mobile)
}

// GetOrCreateByGoogle resolves an external identity to a user: by google_id first,
// then by linking an existing account with the same email, else by creating one.
// Linking requires the email to be verified on both sides; profile emails are
// free text until verified.
func (r *userRepo) GetOrCreateByGoogle(ctx context.Context, identity model.ExternalIdentity) (model.User, error) {
	if identity.ExternalID == "" {
		return model.User{}, fmt.Errorf("external identity has no id")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.User{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(2, hashtext($1))`, identity.ExternalID)
	if err != nil {
		return model.User{}, fmt.Errorf("advisory lock: %w", err)
	}

	user, err := scanUser(tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE google_id = $1`, identity.ExternalID))
	if err == nil {
		return user, tx.Commit()
	}
	if !errors.Is(err, ErrNotFound) {
		return model.User{}, err
	}

	email := strings.TrimSpace(identity.Email)
	if email != "" && identity.EmailVerified {
		user, err = scanUser(tx.QueryRowContext(ctx, `
			UPDATE users
			SET google_id = $1, updated_at = now()
			WHERE userid = (
				SELECT userid FROM users
				WHERE lower(email) = lower($2) AND google_id IS NULL AND is_email_verified = TRUE
				ORDER BY created_at
				LIMIT 1
			)
			RETURNING `+userColumns, identity.ExternalID, email))
		if err == nil {
			return user, tx.Commit()
		}
		if !errors.Is(err, ErrNotFound) {
			return model.User{}, fmt.Errorf("link by email: %w", err)
		}
	}

	user, err = scanUser(tx.QueryRowContext(ctx, `
		INSERT INTO users (google_id, email, is_email_verified, username, firstname, lastname, profile_picture)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+userColumns,
		identity.ExternalID, email, email != "" && identity.EmailVerified,
		identity.Name, identity.GivenName, identity.FamilyName, identity.Picture))
	if err != nil {
		return model.User{}, fmt.Errorf("insert google user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.User{}, fmt.Errorf("commit: %w", err)
	}
	return user, nil
}

// UpdateProfile overwrites the editable profile fields and marks the profile completed.
// The email is treated as unverified after every update.
func (r *userRepo) UpdateProfile(ctx context.Context, id uuid.UUID, fields model.ProfileFields) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET username = $2,
		    email = $3,
		    firstname = $4,
		    lastname = $5,
		    profile_picture = $6,
		    bio = $7,
		    is_email_verified = FALSE,
		    is_profile_completed = TRUE,
		    updated_at = now()
		WHERE userid = $1
	`, id, fields.Username, fields.Email, fields.FirstName, fields.LastName, fields.ProfilePicture, fields.Bio)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update profile rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}
