package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ogevents/server/internal/logging"
	"github.com/ogevents/server/internal/model"
	"github.com/ogevents/server/internal/notify"
	"github.com/ogevents/server/internal/repo"
	"go.uber.org/zap"
)

const (
	otpMin = 100000
	otpMax = 999999
)

// OtpAuthenticator implements OtpProvider with PostgreSQL-backed records
type OtpAuthenticator struct {
	otpRepo    repo.OtpRepo
	userRepo   repo.UserRepo
	limiter    RequestLimiter
	dispatcher notify.Dispatcher
	logger     *zap.Logger
	salt       string
	ttl        time.Duration
	now        func() time.Time
}

// NewOtpAuthenticator creates a new OTP authenticator. limiter may be nil to disable throttling.
func NewOtpAuthenticator(
	otpRepo repo.OtpRepo,
	userRepo repo.UserRepo,
	limiter RequestLimiter,
	dispatcher notify.Dispatcher,
	logger *zap.Logger,
	salt string,
	ttl time.Duration,
) *OtpAuthenticator {
	return &OtpAuthenticator{
		otpRepo:    otpRepo,
		userRepo:   userRepo,
		limiter:    limiter,
		dispatcher: dispatcher,
		logger:     logger,
		salt:       salt,
		ttl:        ttl,
		now:        time.Now,
	}
}

// RequestOTP issues a new 6-digit code for the mobile, superseding any earlier active one.
// Only the salted hash is stored; the plaintext goes to the caller and the dispatcher.
func (a *OtpAuthenticator) RequestOTP(ctx context.Context, mobile, countryCode string, meta RequestMeta) (OtpIssue, error) {
	if a.limiter != nil {
		ok, err := a.limiter.Allow(ctx, mobile)
		if err != nil {
			return OtpIssue{}, fmt.Errorf("rate limit check: %w", err)
		}
		if !ok {
			return OtpIssue{}, ErrRateLimited
		}
	}

	code, err := generateOTPCode()
	if err != nil {
		return OtpIssue{}, fmt.Errorf("generate otp: %w", err)
	}

	rec := model.OtpRecord{
		Mobile:      mobile,
		CountryCode: countryCode,
		OTPHash:     hashOTPBytes(mobile, code, a.salt),
		ExpiresAt:   a.now().Add(a.ttl),
		RequestIP:   optional(meta.IP),
		UserAgent:   optional(meta.UserAgent),
	}
	created, err := a.otpRepo.CreateAndSupersede(ctx, rec)
	if err != nil {
		return OtpIssue{}, fmt.Errorf("store otp: %w", err)
	}

	err = a.dispatcher.Dispatch(ctx, notify.OTPMessage{
		Mobile:      mobile,
		CountryCode: countryCode,
		OTP:         code,
		ExpiresAt:   created.ExpiresAt,
	})
	if err != nil {
		a.logger.Warn("otp dispatch failed", logging.Mobile(mobile), zap.Error(err))
	}

	return OtpIssue{
		OTP:         code,
		Mobile:      created.Mobile,
		CountryCode: created.CountryCode,
		ExpiresAt:   created.ExpiresAt,
	}, nil
}

// VerifyOTP accepts an active code exactly once and returns the user for the mobile,
// creating it on first login. A failed verification leaves every record untouched.
func (a *OtpAuthenticator) VerifyOTP(ctx context.Context, mobile, code string) (model.User, error) {
	providedHash := hashOTPBytes(mobile, code, a.salt)

	rec, err := a.otpRepo.FindByMobileAndHash(ctx, mobile, hex.EncodeToString(providedHash))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.User{}, ErrOTPNotFound
		}
		return model.User{}, fmt.Errorf("find otp: %w", err)
	}

	if !constantTimeCompare(providedHash, rec.OTPHash) {
		return model.User{}, ErrOTPMismatch
	}

	if rec.State(a.now()) != model.OtpActive {
		return model.User{}, ErrOTPExpired
	}

	ok, err := a.otpRepo.MarkVerified(ctx, rec.ID)
	if err != nil {
		return model.User{}, fmt.Errorf("mark verified: %w", err)
	}
	if !ok {
		// lost a race with a concurrent verify or a newer request
		return model.User{}, ErrOTPExpired
	}

	user, err := a.userRepo.GetOrCreateByMobile(ctx, mobile, rec.CountryCode)
	if err != nil {
		return model.User{}, fmt.Errorf("get or create user: %w", err)
	}
	return user, nil
}

// generateOTPCode returns a uniformly random code in [100000, 999999].
func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}

// hashOTPHex returns SHA-256(mobile:code:salt) as hex for DB storage
func hashOTPHex(mobile, code, salt string) string {
	return hex.EncodeToString(hashOTPBytes(mobile, code, salt))
}

func hashOTPBytes(mobile, code, salt string) []byte {
	data := fmt.Sprintf("%s:%s:%s", mobile, code, salt)
	hash := sha256.Sum256([]byte(data))
	return hash[:]
}

func constantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
