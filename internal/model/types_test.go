package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOtpRecordState(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	superseded := now.Add(-time.Minute)

	tests := []struct {
		name string
		rec  OtpRecord
		want OtpState
	}{
		{"active", OtpRecord{ExpiresAt: now.Add(time.Minute)}, OtpActive},
		{"expired at boundary", OtpRecord{ExpiresAt: now}, OtpExpired},
		{"expired", OtpRecord{ExpiresAt: now.Add(-time.Second)}, OtpExpired},
		{"verified beats expired", OtpRecord{ExpiresAt: now.Add(-time.Hour), IsVerified: true}, OtpVerified},
		{"superseded", OtpRecord{ExpiresAt: now.Add(time.Minute), SupersededAt: &superseded}, OtpSuperseded},
		{"verified beats superseded", OtpRecord{ExpiresAt: now.Add(time.Minute), SupersededAt: &superseded, IsVerified: true}, OtpVerified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rec.State(now))
		})
	}
}
