package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap logger. Production uses the JSON encoder, everything else
// the console encoder. An unknown level falls back to info.
func New(env, level string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}

// Nop returns a logger that drops all output. Useful for tests.
func Nop() *zap.Logger {
	return zap.NewNop()
}

// MaskMobile masks a mobile number for logging (e.g. 55***34).
func MaskMobile(mobile string) string {
	if len(mobile) <= 4 {
		return "****"
	}
	return mobile[:2] + strings.Repeat("*", len(mobile)-4) + mobile[len(mobile)-2:]
}

// Mobile is a zap field carrying a masked mobile number.
func Mobile(mobile string) zap.Field {
	return zap.String("mobile", MaskMobile(mobile))
}
