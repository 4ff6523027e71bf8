package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort             = "8080"
	defaultAppEnv           = "development"
	defaultLogLevel         = "info"
	defaultClientURL        = "http://localhost:3000"
	defaultCookieName       = "OG-AUTH"
	defaultSessionTTL       = 30 * 24 * time.Hour
	defaultOTPTTL           = 10 * time.Minute
	defaultOTPMaxRequests   = 5
	defaultOTPRequestWindow = 10 * time.Minute
	defaultShutdownTimeout  = 10 * time.Second
)

// Config holds the application configuration
type Config struct {
	DatabaseURL string
	Port        string
	AppEnv      string
	LogLevel    string

	JWTSecret         string
	SessionCookieName string
	SessionTTL        time.Duration

	OTPSalt          string
	OTPTTL           time.Duration
	OTPMaxRequests   int
	OTPRequestWindow time.Duration
	OTPEchoCode      bool

	RedisURL string
	AMQPURL  string

	ClientURL  string
	CORSOrigin string
	// TrustProxy honours X-Forwarded-For / X-Real-IP. Only set it behind a proxy that overwrites them.
	TrustProxy bool

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", defaultPort),
		AppEnv:             strings.ToLower(getEnv("APP_ENV", defaultAppEnv)),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		SessionCookieName:  getEnv("SESSION_COOKIE_NAME", defaultCookieName),
		RedisURL:           os.Getenv("REDIS_URL"),
		AMQPURL:            os.Getenv("AMQP_URL"),
		ClientURL:          getEnv("CLIENT_URL", defaultClientURL),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
	}
	cfg.CORSOrigin = getEnv("CORS_ORIGIN", cfg.ClientURL)

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if _, err := url.Parse(cfg.DatabaseURL); err != nil {
		return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	cfg.OTPSalt = os.Getenv("OTP_SALT")
	if cfg.OTPSalt == "" {
		return nil, fmt.Errorf("OTP_SALT environment variable is required")
	}

	var err error
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", defaultSessionTTL); err != nil {
		return nil, err
	}
	if cfg.OTPTTL, err = getDuration("OTP_TTL", defaultOTPTTL); err != nil {
		return nil, err
	}
	if cfg.OTPRequestWindow, err = getDuration("OTP_REQUEST_WINDOW", defaultOTPRequestWindow); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", defaultShutdownTimeout); err != nil {
		return nil, err
	}

	cfg.OTPMaxRequests = defaultOTPMaxRequests
	if v := os.Getenv("OTP_MAX_REQUESTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid OTP_MAX_REQUESTS: %q", v)
		}
		cfg.OTPMaxRequests = n
	}

	cfg.OTPEchoCode = true
	if v := os.Getenv("OTP_ECHO_CODE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid OTP_ECHO_CODE: %w", err)
		}
		cfg.OTPEchoCode = b
	}

	if v := os.Getenv("TRUST_PROXY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TRUST_PROXY: %w", err)
		}
		cfg.TrustProxy = b
	}

	if cfg.GoogleClientID != "" && (cfg.GoogleClientSecret == "" || cfg.GoogleRedirectURL == "") {
		return nil, fmt.Errorf("GOOGLE_CLIENT_SECRET and GOOGLE_REDIRECT_URL are required when GOOGLE_CLIENT_ID is set")
	}

	return cfg, nil
}

// IsProduction reports whether cookies must carry the Secure flag.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GoogleEnabled reports whether the Google login routes are mounted.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != ""
}

// Addr returns the listen address for http.Server.
func (c *Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getDuration accepts Go duration strings ("10m") or plain seconds ("600").
func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		if seconds <= 0 {
			return 0, fmt.Errorf("invalid %s: must be positive", key)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}
