package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/playtube/user-service/internal/auth"
	"github.com/playtube/user-service/pkg/health"
	"github.com/playtube/user-service/pkg/middleware"
)

const serviceName = "user-service"

// RouterConfig bundles the dependencies for building the HTTP router.
type RouterConfig struct {
	AuthHandler   *AuthHandler
	UserHandler   *UserHandler
	HealthHandler *health.Handler
	Codec         *auth.TokenCodec
	CORS          CORSConfig
	Logger        *slog.Logger
}

// NewRouter builds the chi router with the full middleware chain and all
// user-service routes.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(CORS(cfg.CORS))

	// Operational endpoints stay outside the API prefix.
	r.Get("/health/live", cfg.HealthHandler.LivenessHandler())
	r.Get("/health/ready", cfg.HealthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	requireAuth := middleware.Auth(accessTokenValidator(cfg.Codec))

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/register", cfg.AuthHandler.Register)
		r.Post("/login", cfg.AuthHandler.Login)
		r.Post("/refresh-token", cfg.AuthHandler.RefreshToken)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Post("/logout", cfg.AuthHandler.Logout)
			r.Post("/change-password", cfg.AuthHandler.ChangePassword)
			r.Get("/current-user", cfg.UserHandler.GetCurrentUser)
			r.Patch("/update-account", cfg.UserHandler.UpdateAccount)
		})
	})

	return r
}

// accessTokenValidator bridges the token codec into the auth middleware's
// validator shape.
func accessTokenValidator(codec *auth.TokenCodec) middleware.TokenValidator {
	return func(token string) (*middleware.Claims, error) {
		claims, err := codec.VerifyAccessToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID:   claims.UserID,
			Username: claims.Username,
			Email:    claims.Email,
		}, nil
	}
}
