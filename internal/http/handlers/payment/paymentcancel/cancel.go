// Package paymentcancel реализует HTTP-обработчик отмены платежа пользователем.
package paymentcancel

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/progress-engine/internal/http/response"
	"github.com/magabrotheeeer/progress-engine/internal/lib/sl"
	"github.com/magabrotheeeer/progress-engine/internal/services/payment"
)

type Service interface {
	Cancel(ctx context.Context, id int64) (*payment.Result, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Отменить платёж
// @Description Отменяет ожидающий платёж. Если оплата уже прошла, платёж подтверждается.
// @Tags Payments
// @Produce  json
// @Param id path int true "ID платежа"
// @Success 200 {object} response.Response "cancelled или confirmed"
// @Failure 409 {object} response.Response "Платёж уже завершён"
// @Failure 503 {object} response.Response "Шлюз недоступен"
// @Security BearerAuth
// @Router /payments/{id}/cancel [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.cancel"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		log.Warn("failed to decode id from url", slog.String("id", chi.URLParam(r, "id")))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode id from url"))
		return
	}

	res, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		log.Error("failed to cancel payment", sl.Err(err), sl.PaymentID(id))
		code, msg := response.StatusFor(err)
		render.Status(r, code)
		render.JSON(w, r, response.Error(msg))
		return
	}

	log.Info("payment cancel handled", sl.PaymentID(id), slog.String("outcome", string(res.Outcome)))
	data := map[string]any{
		"payment_id": id,
		"outcome":    res.Outcome,
	}
	if res.Subscription != nil {
		data["subscription_end"] = res.Subscription.EndDate
	}
	render.JSON(w, r, response.OKWithData(data))
}
