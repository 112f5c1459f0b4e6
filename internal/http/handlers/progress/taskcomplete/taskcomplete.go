// Package taskcomplete реализует HTTP-обработчик начисления опыта за одобренное задание.
package taskcomplete

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/progress-engine/internal/http/response"
	"github.com/magabrotheeeer/progress-engine/internal/lib/sl"
	"github.com/magabrotheeeer/progress-engine/internal/services/progression"
)

// Request награда за задание. CompletedAt по умолчанию текущее время.
type Request struct {
	Experience  int        `json:"experience" validate:"required,gt=0,lte=10000"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type Service interface {
	RecordTaskCompletion(ctx context.Context, userID int64, reward int, at time.Time) (*progression.Progress, error)
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
	now      func() time.Time
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
		now:      time.Now,
	}
}

// ServeHTTP godoc
// @Summary Засчитать задание
// @Tags Progress
// @Accept  json
// @Produce  json
// @Param id path int true "ID пользователя"
// @Param request body Request true "Награда"
// @Success 200 {object} response.Response "Новый прогресс"
// @Failure 404 {object} response.Response "Пользователь не найден"
// @Failure 422 {object} response.Response "Ошибка валидации"
// @Security BearerAuth
// @Router /users/{id}/tasks/complete [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.progress.taskcomplete"
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

	at := h.now()
	if req.CompletedAt != nil {
		at = *req.CompletedAt
	}

	p, err := h.service.RecordTaskCompletion(r.Context(), userID, req.Experience, at)
	if err != nil {
		log.Error("failed to record task completion", sl.Err(err), sl.UserID(userID))
		if errors.Is(err, progression.ErrInvalidReward) {
			render.Status(r, http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error("experience must be positive"))
			return
		}
		code, msg := response.StatusFor(err)
		render.Status(r, code)
		render.JSON(w, r, response.Error(msg))
		return
	}

	render.JSON(w, r, response.OKWithData(p))
}
