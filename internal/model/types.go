package model

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account, created on first OTP verification or first OAuth login
type User struct {
	ID                 uuid.UUID `json:"userid"`
	Mobile             *string   `json:"mobile"`
	CountryCode        *string   `json:"country_code"`
	GoogleID           *string   `json:"-"`
	Username           string    `json:"username"`
	Email              string    `json:"email"`
	FirstName          string    `json:"firstname"`
	LastName           string    `json:"lastname"`
	ProfilePicture     string    `json:"profile_picture"`
	Bio                string    `json:"bio"`
	IsEmailVerified    bool      `json:"is_email_verified"`
	IsProfileCompleted bool      `json:"is_profile_completed"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ProfileFields are the user-editable profile columns
type ProfileFields struct {
	Username       string
	Email          string
	FirstName      string
	LastName       string
	ProfilePicture string
	Bio            string
}

// OtpState is the lifecycle state of an OTP record. Only Verified and
// Superseded are stored; Expired is implied by the clock.
type OtpState string

const (
	OtpActive     OtpState = "active"
	OtpSuperseded OtpState = "superseded"
	OtpVerified   OtpState = "verified"
	OtpExpired    OtpState = "expired"
)

// OtpRecord represents a one-time passcode issued to a mobile number
type OtpRecord struct {
	ID           uuid.UUID
	Mobile       string
	CountryCode  string
	OTPHash      []byte
	ExpiresAt    time.Time
	IsVerified   bool
	VerifiedAt   *time.Time
	SupersededAt *time.Time
	RequestIP    *string
	UserAgent    *string
	CreatedAt    time.Time
}

// State derives the record state at now.
func (o OtpRecord) State(now time.Time) OtpState {
	switch {
	case o.IsVerified:
		return OtpVerified
	case o.SupersededAt != nil:
		return OtpSuperseded
	case !now.Before(o.ExpiresAt):
		return OtpExpired
	default:
		return OtpActive
	}
}

// ExternalIdentity is the profile returned by a third-party identity provider
type ExternalIdentity struct {
	ExternalID    string
	Email         string
	EmailVerified bool
	Name          string
	GivenName     string
	FamilyName    string
	Picture       string
}
