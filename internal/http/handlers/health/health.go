// Package health отвечает на проверки живости сервиса.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/http/response"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/lib/sl"
)

const pingTimeout = 2 * time.Second

// Pinger проверяет доступность зависимости.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler обрабатывает GET /healthz.
type Handler struct {
	log   *slog.Logger
	db    Pinger
	cache Pinger
}

// New создает новый экземпляр Handler. cache может быть nil, если Redis
// не настроен.
func New(log *slog.Logger, db Pinger, cache Pinger) *Handler {
	return &Handler{
		log:   log,
		db:    db,
		cache: cache,
	}
}

// ServeHTTP godoc
// @Summary Проверка состояния
// @Tags Health
// @Produce  json
// @Description Недоступная база дает 503. Кэш необязателен, его сбой отражается в data.cache.
// @Success 200 {object} response.Response
// @Failure 503 {object} response.ErrorResponse "База данных недоступна"
// @Router /healthz [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"

	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.log.Error("database ping failed", slog.String("op", op), sl.Err(err))
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("database unavailable"))
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"database": "ok",
		"cache":    h.cacheState(ctx, op),
	}))
}

func (h *Handler) cacheState(ctx context.Context, op string) string {
	if h.cache == nil {
		return "disabled"
	}
	if err := h.cache.Ping(ctx); err != nil {
		h.log.Warn("cache ping failed", slog.String("op", op), sl.Err(err))
		return "unavailable"
	}
	return "ok"
}
