package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/ogevents/server/internal/auth"
	"github.com/ogevents/server/internal/http/handlers"
	"github.com/ogevents/server/internal/middleware"
	"go.uber.org/zap"
)

// RouterDeps carries everything NewRouter wires into routes
type RouterDeps struct {
	AuthHandler     *handlers.AuthHandler
	ProfileHandler  *handlers.ProfileHandler
	HealthHandler   *handlers.HealthHandler
	Sessions        *auth.SessionIssuer
	SendIPLimiter   *middleware.RateLimiter
	VerifyIPLimiter *middleware.RateLimiter
	CORSOrigins     []string
	// TrustProxy enables chi's RealIP. Without it the per-IP limits key on the socket address.
	TrustProxy      bool
	Logger          *zap.Logger
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	if deps.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(deps.CORSOrigins))

	r.Method(http.MethodGet, "/health", deps.HealthHandler)

	r.Route("/auth", func(r chi.Router) {
		r.With(middleware.RateLimitMiddleware(deps.SendIPLimiter, middleware.GetIPKey)).
			Post("/send-otp", deps.AuthHandler.HandleSendOTP)
		r.With(middleware.RateLimitMiddleware(deps.VerifyIPLimiter, middleware.GetIPKey)).
			Post("/verify-otp", deps.AuthHandler.HandleVerifyOTP)
		r.Get("/google", deps.AuthHandler.HandleGoogleLogin)
		r.Get("/google/callback", deps.AuthHandler.HandleGoogleCallback)
		r.Post("/logout", deps.AuthHandler.HandleLogout)
	})

	// Protected routes (require a valid session cookie)
	r.Route("/users/me", func(r chi.Router) {
		r.Use(middleware.SessionAuth(deps.Sessions))
		r.Get("/", deps.ProfileHandler.HandleGetMe)
		r.Put("/", deps.ProfileHandler.HandleUpdateMe)
	})

	return r
}
