// Package paymentcreate реализует HTTP-обработчик покупки подписки.
//
// Handler принимает id пользователя и срок тарифа, создаёт платёж в статусе pending
// и возвращает ссылку на оплату. При отказе шлюза клиент получает 503 и предложение повторить.
package paymentcreate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/progress-engine/internal/http/response"
	"github.com/magabrotheeeer/progress-engine/internal/lib/sl"
	"github.com/magabrotheeeer/progress-engine/internal/models"
)

// Request тело запроса на покупку.
type Request struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
	Months int   `json:"months" validate:"required,gt=0,lte=12"`
}

// Service описывает интерфейс создания платежа.
type Service interface {
	Create(ctx context.Context, userID int64, months int) (*models.Payment, error)
}

// Handler обрабатывает POST /payments.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать платёж
// @Description Создаёт ссылку на оплату тарифа на months месяцев.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body Request true "Пользователь и срок"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response "Пользователь не найден"
// @Failure 422 {object} response.Response "Ошибка валидации или неизвестный тариф"
// @Failure 503 {object} response.Response "Шлюз недоступен"
// @Security BearerAuth
// @Router /payments [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	p, err := h.service.Create(r.Context(), req.UserID, req.Months)
	if err != nil {
		log.Error("failed to create payment", sl.Err(err), sl.UserID(req.UserID))
		code, msg := response.StatusFor(err)
		render.Status(r, code)
		render.JSON(w, r, response.Error(msg))
		return
	}

	log.Info("payment created", sl.PaymentID(p.ID), sl.UserID(p.UserID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"payment_id": p.ID,
		"url":        p.PaymentURL,
		"amount":     p.Amount,
		"currency":   p.Currency,
	}))
}
