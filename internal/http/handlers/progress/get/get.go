// Package get реализует HTTP-обработчик получения ранга и прогресса игрока.
package get

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
	"github.com/magabrotheeeer/progress-engine/internal/services/progression"
)

// Service описывает интерфейс чтения прогресса.
type Service interface {
	GetProgress(ctx context.Context, userID int64) (*progression.Progress, error)
}

// Handler обрабатывает GET /users/{id}/progress.
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
// @Summary Прогресс игрока
// @Description Ранг, уровень, опыт внутри ранга и до следующего ранга.
// @Tags Progress
// @Produce  json
// @Param id path int true "ID пользователя"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response "Статистика не найдена"
// @Security BearerAuth
// @Router /users/{id}/progress [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.progress.get"
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

	p, err := h.service.GetProgress(r.Context(), userID)
	if err != nil {
		log.Error("failed to get progress", sl.Err(err), sl.UserID(userID))
		code, msg := response.StatusFor(err)
		render.Status(r, code)
		render.JSON(w, r, response.Error(msg))
		return
	}

	log.Debug("progress read", sl.UserID(userID), slog.String("rank", string(p.Rank)))
	render.JSON(w, r, response.OKWithData(p))
}
