// Package me отдает профиль текущего пользователя по токену сессии.
package me

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/http/middlewarectx"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/http/response"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/models"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/services/auth"
)

// Response профиль пользователя.
type Response struct {
	Status string         `json:"status" example:"OK"`
	User   models.Profile `json:"user"`
}

// Service возвращает профиль по идентификатору.
type Service interface {
	Profile(ctx context.Context, userUID string) (*models.Profile, error)
}

// Handler обрабатывает GET /auth/me.
type Handler struct {
	log *slog.Logger
	svc Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, svc Service) *Handler {
	return &Handler{log: log, svc: svc}
}

// ServeHTTP godoc
// @Summary Текущий пользователь
// @Tags Auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} Response
// @Failure 401 {object} response.ErrorResponse "Нет или неверный токен"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/me [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.me"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := middlewarectx.UserUIDFrom(r.Context())
	if !ok {
		response.WriteError(w, r, log, "user identification missing", auth.ErrUnauthorized)
		return
	}

	profile, err := h.svc.Profile(r.Context(), userUID)
	if err != nil {
		response.WriteError(w, r, log, "failed to load profile", err)
		return
	}

	render.JSON(w, r, Response{Status: response.StatusOK, User: *profile})
}
