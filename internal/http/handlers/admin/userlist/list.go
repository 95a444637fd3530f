// Package userlist реализует административный просмотр учетных записей.
// Доступ ограничивается middleware RequireRole на уровне роутера.
package userlist

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/http/response"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/services/users"
)

// Response страница пользователей.
type Response struct {
	Status string        `json:"status" example:"OK"`
	Users  []users.Entry `json:"users"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// Service возвращает страницу пользователей.
type Service interface {
	List(ctx context.Context, limit, offset int) ([]users.Entry, error)
}

// Handler обрабатывает GET /admin/users.
type Handler struct {
	log *slog.Logger
	svc Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, svc Service) *Handler {
	return &Handler{
		log: log,
		svc: svc,
	}
}

// ServeHTTP godoc
// @Summary Список пользователей
// @Description Возвращает учетные записи в порядке регистрации. Только для администраторов.
// @Tags Admin
// @Produce  json
// @Security BearerAuth
// @Param limit query int false "Размер страницы (по умолчанию 50, максимум 200)"
// @Param offset query int false "Смещение"
// @Success 200 {object} Response
// @Failure 400 {object} response.ErrorResponse "Некорректные параметры страницы"
// @Failure 401 {object} response.ErrorResponse "Нет или неверный токен"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /admin/users [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.userlist"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit, err := intParam(r, "limit")
	if err != nil {
		log.Warn("invalid limit", slog.String("limit", r.URL.Query().Get("limit")))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("limit must be an integer"))
		return
	}
	offset, err := intParam(r, "offset")
	if err != nil {
		log.Warn("invalid offset", slog.String("offset", r.URL.Query().Get("offset")))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("offset must be an integer"))
		return
	}
	limit, offset = users.ClampPage(limit, offset)

	list, err := h.svc.List(r.Context(), limit, offset)
	if err != nil {
		response.WriteError(w, r, log, "failed to list users", err)
		return
	}

	render.JSON(w, r, Response{
		Status: response.StatusOK,
		Users:  list,
		Limit:  limit,
		Offset: offset,
	})
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
