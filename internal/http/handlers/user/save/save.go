// Package save реализует HTTP-обработчик регистрации и обновления анкеты пользователя.
//
// Повторная регистрация перезаписывает поля анкеты, история и поля подписки сохраняются.
package save

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/progress-engine/internal/http/response"
	"github.com/magabrotheeeer/progress-engine/internal/lib/sl"
	"github.com/magabrotheeeer/progress-engine/internal/models"
)

const dateLayout = "2006-01-02"

// Request анкета пользователя от бота.
type Request struct {
	UserID       int64   `json:"user_id" validate:"required,gt=0"`
	Language     string  `json:"language" validate:"omitempty,oneof=ru en"`
	Name         string  `json:"name" validate:"max=128"`
	BirthDate    string  `json:"birth_date" validate:"omitempty,date"`
	Height       float64 `json:"height" validate:"gte=0,lte=300"`
	Weight       float64 `json:"weight" validate:"gte=0,lte=500"`
	City         string  `json:"city" validate:"max=128"`
	Goal         string  `json:"goal" validate:"max=256"`
	ReferralCode string  `json:"referral_code" validate:"max=64"`
}

// Service сохраняет пользователя.
type Service interface {
	SaveUser(ctx context.Context, u *models.User) error
}

// Handler обрабатывает POST /users.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	v := validator.New()
	// ошибка возможна только при пустом имени тега
	_ = v.RegisterValidation("date", validDate)
	return &Handler{
		log:      log,
		service:  service,
		validate: v,
	}
}

// validDate проверяет строку на формат dateLayout.
func validDate(fl validator.FieldLevel) bool {
	_, err := time.Parse(dateLayout, fl.Field().String())
	return err == nil
}

// ServeHTTP godoc
// @Summary Сохранить анкету пользователя
// @Tags Users
// @Accept  json
// @Produce  json
// @Param request body Request true "Анкета"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response "Некорректный JSON"
// @Failure 422 {object} response.Response "Ошибка валидации"
// @Failure 500 {object} response.Response
// @Security BearerAuth
// @Router /users [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.save"
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

	u := &models.User{
		ID:           req.UserID,
		Language:     req.Language,
		Name:         req.Name,
		Height:       req.Height,
		Weight:       req.Weight,
		City:         req.City,
		Goal:         req.Goal,
		ReferralCode: req.ReferralCode,
	}
	if u.Language == "" {
		u.Language = "ru"
	}
	if req.BirthDate != "" {
		// формат уже проверен валидатором
		bd, _ := time.Parse(dateLayout, req.BirthDate)
		u.BirthDate = &bd
	}

	if err := h.service.SaveUser(r.Context(), u); err != nil {
		log.Error("failed to save user", sl.Err(err), sl.UserID(u.ID))
		code, msg := response.StatusFor(err)
		render.Status(r, code)
		render.JSON(w, r, response.Error(msg))
		return
	}

	log.Info("user saved", sl.UserID(u.ID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"user_id": u.ID,
	}))
}
