package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/apiecommerce/identity-service/internal/api/handler"
	"github.com/apiecommerce/identity-service/internal/api/middleware"
	"github.com/apiecommerce/identity-service/internal/core/domain"
	"github.com/apiecommerce/identity-service/internal/core/ports"

	_ "github.com/apiecommerce/identity-service/docs"
)

// RouterDeps carries everything the HTTP surface needs.
type RouterDeps struct {
	Auth     ports.AuthService
	Users    ports.UserService
	Tokens   ports.TokenIssuer
	TokenTTL time.Duration

	// OpenRoleRegistration lets anonymous callers pick any role at registration.
	OpenRoleRegistration bool

	// Health lists the dependencies checked by /health/ready.
	Health      map[string]handler.Pinger
	CORSOrigins []string
	Log         zerolog.Logger

	// MetricsRegisterer receives the HTTP request metrics. Defaults to the
	// global Prometheus registerer.
	MetricsRegisterer prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps RouterDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echomiddleware.CORSWithConfig(corsConfig(deps.CORSOrigins)))

	reg := deps.MetricsRegisterer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: reg,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(deps.Auth, deps.TokenTTL, deps.OpenRoleRegistration)
	userHandler := handler.NewUserHandler(deps.Users)
	healthHandler := handler.NewHealthHandler(deps.Health, deps.Log)
	authMW := middleware.Auth(deps.Tokens)
	adminMW := middleware.RBAC(domain.RoleAdmin)

	// --- Identity routes ---
	v1 := e.Group("/api/v1")
	v1.POST("/users", authHandler.Register, middleware.OptionalAuth(deps.Tokens))
	v1.POST("/users/login", authHandler.Login)
	v1.GET("/users", userHandler.List, authMW)
	v1.GET("/users/:id", userHandler.Get, authMW)
	v1.POST("/users/:id/roles", userHandler.AssignRole, authMW, adminMW)
	v1.GET("/roles", userHandler.ListRoles, authMW, adminMW)

	// --- Health probes (no auth required) ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)

	// --- Operations ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func corsConfig(origins []string) echomiddleware.CORSConfig {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return echomiddleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}
}

// requestLogger writes one structured line per request through zerolog.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
