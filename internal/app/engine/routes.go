package engine

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	// регистрирует swagger-описание для /docs
	_ "github.com/magabrotheeeer/progress-engine/docs"
	"github.com/magabrotheeeer/progress-engine/internal/http/handlers/health"
	"github.com/magabrotheeeer/progress-engine/internal/http/handlers/payment/paymentcancel"
	"github.com/magabrotheeeer/progress-engine/internal/http/handlers/payment/paymentcheck"
	"github.com/magabrotheeeer/progress-engine/internal/http/handlers/payment/paymentcreate"
	"github.com/magabrotheeeer/progress-engine/internal/http/handlers/progress/get"
	"github.com/magabrotheeeer/progress-engine/internal/http/handlers/progress/taskcomplete"
	"github.com/magabrotheeeer/progress-engine/internal/http/handlers/subscription/read"
	"github.com/magabrotheeeer/progress-engine/internal/http/handlers/user/save"
	"github.com/magabrotheeeer/progress-engine/internal/http/middlewarectx"
)

// PaymentService операции платежей, доступные через API.
type PaymentService interface {
	paymentcreate.Service
	paymentcheck.Service
	paymentcancel.Service
}

// ProgressService операции прогресса, доступные через API.
type ProgressService interface {
	get.Service
	taskcomplete.Service
}

// Deps зависимости маршрутов.
type Deps struct {
	Users         save.Service
	Subscriptions read.Service
	Payments      PaymentService
	Progress      ProgressService
	Store         health.Pinger
	Tokens        middlewarectx.TokenParser
	Limiter       *rate.Limiter
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, d Deps) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewarectx.ServiceAuth(d.Tokens, logger))
		r.Use(middlewarectx.RateLimitMiddleware(logger, d.Limiter))

		r.Post("/users", save.New(logger, d.Users).ServeHTTP)
		r.Get("/users/{id}/subscription", read.New(logger, d.Subscriptions).ServeHTTP)
		r.Get("/users/{id}/progress", get.New(logger, d.Progress).ServeHTTP)
		r.Post("/users/{id}/tasks/complete", taskcomplete.New(logger, d.Progress).ServeHTTP)

		r.Post("/payments", paymentcreate.New(logger, d.Payments).ServeHTTP)
		r.Post("/payments/{id}/check", paymentcheck.New(logger, d.Payments).ServeHTTP)
		r.Post("/payments/{id}/cancel", paymentcancel.New(logger, d.Payments).ServeHTTP)
	})

	r.Get("/health", health.New(logger, d.Store).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
