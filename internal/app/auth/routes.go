package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/http/handlers/admin/userlist"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/http/handlers/auth/forgotpassword"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/http/handlers/auth/login"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/http/handlers/auth/me"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/http/handlers/auth/register"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/http/handlers/auth/resendverification"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/http/handlers/auth/resetpassword"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/http/handlers/auth/verify"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/http/handlers/health"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/http/middlewarectx"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/models"
)

// Deps зависимости обработчиков.
type Deps struct {
	Registration register.Service
	Verification interface {
		verify.Service
		resendverification.Service
	}
	Reset interface {
		forgotpassword.Service
		resetpassword.Service
	}
	Session interface {
		login.Service
		me.Service
	}
	Directory   userlist.Service
	Tokens      middlewarectx.TokenParser
	DB          health.Pinger
	Cache       health.Pinger
	Metrics     func(http.Handler) http.Handler
	MetricsHTTP http.Handler
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, d Deps) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)
	if d.Metrics != nil {
		r.Use(d.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", register.New(logger, d.Registration).ServeHTTP)
			r.Get("/verify", verify.New(logger, d.Verification).ServeHTTP)
			r.Post("/resend-verification", resendverification.New(logger, d.Verification).ServeHTTP)
			r.Post("/login", login.New(logger, d.Session).ServeHTTP)
			r.Post("/forgot-password", forgotpassword.New(logger, d.Reset).ServeHTTP)
			r.Post("/reset-password", resetpassword.New(logger, d.Reset).ServeHTTP)

			r.With(middlewarectx.JWTMiddleware(d.Tokens, logger)).
				Get("/me", me.New(logger, d.Session).ServeHTTP)
		})

		// Только администраторы
		r.Route("/admin", func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(d.Tokens, logger))
			r.Use(middlewarectx.RequireRole(models.RoleAdmin, logger))
			r.Get("/users", userlist.New(logger, d.Directory).ServeHTTP)
		})
	})

	r.Get("/healthz", health.New(logger, d.DB, d.Cache).ServeHTTP)
	if d.MetricsHTTP != nil {
		r.Handle("/metrics", d.MetricsHTTP)
	}
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
