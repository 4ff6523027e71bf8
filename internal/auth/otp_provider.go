package auth

import (
	"context"
	"time"

	"github.com/ogevents/server/internal/model"
)

// RequestMeta is request metadata stored alongside an OTP record
type RequestMeta struct {
	IP        string
	UserAgent string
}

// OtpIssue is the result of a successful OTP request
type OtpIssue struct {
	OTP         string    `json:"otp,omitempty"`
	Mobile      string    `json:"mobile"`
	CountryCode string    `json:"country_code"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// OtpProvider defines the interface for OTP operations
type OtpProvider interface {
	RequestOTP(ctx context.Context, mobile, countryCode string, meta RequestMeta) (OtpIssue, error)
	VerifyOTP(ctx context.Context, mobile, code string) (model.User, error)
}
