// Package middlewarectx содержит HTTP middleware внутреннего API:
// проверку сервисного JWT и ограничение частоты запросов.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/progress-engine/internal/http/response"
	"github.com/magabrotheeeer/progress-engine/internal/lib/jwt"
	"github.com/magabrotheeeer/progress-engine/internal/lib/sl"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// Service ключ имени клиента API в контексте.
const Service Key = "service"

// TokenParser проверяет сервисный токен.
type TokenParser interface {
	ParseToken(tokenStr string) (*jwt.ServiceClaims, error)
}

// ServiceAuth пропускает запрос только с валидным Bearer-токеном и кладёт
// имя клиента в контекст. Иначе отвечает 401.
func ServiceAuth(parser TokenParser, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.ServiceAuth"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Warn("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}

			claims, err := parser.ParseToken(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				log.Warn("invalid or expired token", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), Service, claims.Service)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
