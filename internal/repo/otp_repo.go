package repo

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ogevents/server/internal/model"
)

// OtpRepo defines the interface for OTP record repository operations
type OtpRepo interface {
	CreateAndSupersede(ctx context.Context, rec model.OtpRecord) (model.OtpRecord, error)
	FindByMobileAndHash(ctx context.Context, mobile, otpHashHex string) (model.OtpRecord, error)
	MarkVerified(ctx context.Context, id uuid.UUID) (bool, error)
	CountRecentRequests(ctx context.Context, mobile string, since time.Time) (int, error)
}

type otpRepo struct {
	db *sql.DB
}

// NewOtpRepo creates a new OtpRepo instance
func NewOtpRepo(db *sql.DB) OtpRepo {
	return &otpRepo{db: db}
}

const otpColumns = `id, mobile, country_code, otp_hash, expires_at, is_verified, verified_at,
	superseded_at, request_ip, user_agent, created_at`

func scanOtp(row rowScanner) (model.OtpRecord, error) {
	var rec model.OtpRecord
	var idStr, hashHex string
	err := row.Scan(
		&idStr,
		&rec.Mobile,
		&rec.CountryCode,
		&hashHex,
		&rec.ExpiresAt,
		&rec.IsVerified,
		&rec.VerifiedAt,
		&rec.SupersededAt,
		&rec.RequestIP,
		&rec.UserAgent,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.OtpRecord{}, fmt.Errorf("otp: %w", ErrNotFound)
		}
		return model.OtpRecord{}, fmt.Errorf("query otp: %w", err)
	}
	rec.ID, err = uuid.Parse(idStr)
	if err != nil {
		return model.OtpRecord{}, fmt.Errorf("parse otp ID: %w", err)
	}
	rec.OTPHash, err = hex.DecodeString(hashHex)
	if err != nil {
		return model.OtpRecord{}, fmt.Errorf("decode otp_hash: %w", err)
	}
	return rec, nil
}

// CreateAndSupersede inserts a new record and supersedes every still-active record for the
// same mobile, so at most one record per mobile is active. Uses an advisory lock for race safety.
func (r *otpRepo) CreateAndSupersede(ctx context.Context, rec model.OtpRecord) (model.OtpRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.OtpRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Serialize issuance per mobile; released on COMMIT/ROLLBACK.
	_, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(1, hashtext($1))`, rec.Mobile)
	if err != nil {
		return model.OtpRecord{}, fmt.Errorf("advisory lock: %w", err)
	}

	// Expired records are superseded too; the partial unique index covers them.
	_, err = tx.ExecContext(ctx, `
		UPDATE otps
		SET superseded_at = now()
		WHERE mobile = $1 AND is_verified = FALSE AND superseded_at IS NULL
	`, rec.Mobile)
	if err != nil {
		return model.OtpRecord{}, fmt.Errorf("supersede existing otps: %w", err)
	}

	created, err := scanOtp(tx.QueryRowContext(ctx, `
		INSERT INTO otps (mobile, country_code, otp_hash, expires_at, request_ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+otpColumns,
		rec.Mobile, rec.CountryCode, hex.EncodeToString(rec.OTPHash), rec.ExpiresAt, rec.RequestIP, rec.UserAgent))
	if err != nil {
		return model.OtpRecord{}, fmt.Errorf("insert otp: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.OtpRecord{}, fmt.Errorf("commit: %w", err)
	}
	return created, nil
}

// FindByMobileAndHash returns the most recent record for the mobile with the given hash,
// regardless of state.
func (r *otpRepo) FindByMobileAndHash(ctx context.Context, mobile, otpHashHex string) (model.OtpRecord, error) {
	return scanOtp(r.db.QueryRowContext(ctx, `
		SELECT `+otpColumns+`
		FROM otps
		WHERE mobile = $1 AND otp_hash = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, mobile, otpHashHex))
}

// MarkVerified flips an active record to verified. Returns false when the record was
// already verified, superseded or expired by the time the update ran.
func (r *otpRepo) MarkVerified(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE otps
		SET is_verified = TRUE, verified_at = now()
		WHERE id = $1
		  AND is_verified = FALSE
		  AND superseded_at IS NULL
		  AND expires_at > now()
	`, id)
	if err != nil {
		return false, fmt.Errorf("mark verified: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark verified rows: %w", err)
	}
	return n == 1, nil
}

// CountRecentRequests returns the number of records created for the mobile since the given time.
func (r *otpRepo) CountRecentRequests(ctx context.Context, mobile string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM otps
		WHERE mobile = $1 AND created_at >= $2
	`, mobile, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count recent requests: %w", err)
	}
	return count, nil
}
