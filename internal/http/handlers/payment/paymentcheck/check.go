// Package paymentcheck реализует HTTP-обработчик кнопки "проверить оплату".
//
// Подтверждение идёт через тот же путь, что и фоновый опрос, поэтому повторное
// нажатие для обработанного платежа отвечает already_processed.
package paymentcheck

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

// Service описывает интерфейс подтверждения платежа.
type Service interface {
	Confirm(ctx context.Context, id int64, source payment.Source) (*payment.Result, error)
}

// Handler обрабатывает POST /payments/{id}/check.
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
// @Summary Проверить оплату
// @Tags Payments
// @Produce  json
// @Param id path int true "ID платежа"
// @Success 200 {object} response.Response "confirmed, already_processed или not_yet_paid"
// @Failure 202 {object} response.Response "Оплата получена, активация завершится позже"
// @Failure 404 {object} response.Response
// @Failure 503 {object} response.Response "Шлюз недоступен"
// @Security BearerAuth
// @Router /payments/{id}/check [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.check"
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

	res, err := h.service.Confirm(r.Context(), id, payment.SourceUser)
	if err != nil {
		log.Error("failed to confirm payment", sl.Err(err), sl.PaymentID(id))
		code, msg := response.StatusFor(err)
		render.Status(r, code)
		render.JSON(w, r, response.Error(msg))
		return
	}

	log.Info("payment checked", sl.PaymentID(id), slog.String("outcome", string(res.Outcome)))
	render.JSON(w, r, response.OKWithData(ResultData(res)))
}

// ResultData представление итога подтверждения или отмены для клиента.
func ResultData(res *payment.Result) map[string]any {
	data := map[string]any{
		"outcome": res.Outcome,
	}
	if res.Payment != nil {
		data["payment_id"] = res.Payment.ID
		data["status"] = res.Payment.Status
	}
	if res.Subscription != nil {
		data["subscription_end"] = res.Subscription.EndDate
	}
	return data
}
