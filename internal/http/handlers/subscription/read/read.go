// Package read реализует HTTP-обработчик чтения действующей подписки пользователя.
package read

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/progress-engine/internal/http/response"
	"github.com/magabrotheeeer/progress-engine/internal/lib/sl"
	"github.com/magabrotheeeer/progress-engine/internal/models"
)

// Service описывает интерфейс чтения подписки.
type Service interface {
	GetActiveSubscription(ctx context.Context, userID int64) (*models.Subscription, error)
}

// Entitlement действующий доступ пользователя.
type Entitlement struct {
	UserID            int64     `json:"user_id"`
	SubscriptionLevel int       `json:"subscription_level"`
	Months            int       `json:"months"`
	StartDate         time.Time `json:"start_date"`
	EndDate           time.Time `json:"end_date"`
	PaymentID         *int64    `json:"payment_id,omitempty"`
}

// Handler обрабатывает GET /users/{id}/subscription.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Действующая подписка
// @Description Уровень и дата окончания последнего действующего блока доступа.
// @Tags Subscriptions
// @Produce  json
// @Param id path int true "ID пользователя"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response "Действующей подписки нет"
// @Security BearerAuth
// @Router /users/{id}/subscription [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.read"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || userID <= 0 {
		log.Warn("failed to decode id from url", slog.String("id", chi.URLParam(r, "id")))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode id from url"))
		return
	}

	sub, err := h.service.GetActiveSubscription(r.Context(), userID)
	if err != nil {
		log.Info("failed to get active subscription", sl.Err(err), sl.UserID(userID))
		code, msg := response.StatusFor(err)
		render.Status(r, code)
		render.JSON(w, r, response.Error(msg))
		return
	}

	render.JSON(w, r, response.OKWithData(Entitlement{
		UserID:            sub.UserID,
		SubscriptionLevel: sub.SubscriptionLevel,
		Months:            sub.Months,
		StartDate:         sub.StartDate,
		EndDate:           sub.EndDate,
		PaymentID:         sub.PaymentID,
	}))
}
