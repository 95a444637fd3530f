// Package verify реализует HTTP-обработчик перехода по ссылке подтверждения почты.
package verify

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/http/response"
)

// Service описывает бизнес-логику подтверждения почты.
type Service interface {
	Verify(ctx context.Context, token string) error
}

// Handler обрабатывает GET /auth/verify?token=.
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
// @Summary Подтверждение почты
// @Description Потребляет одноразовый токен подтверждения из ссылки в письме.
// @Tags Auth
// @Produce  json
// @Param token query string true "Токен подтверждения"
// @Success 200 {object} response.MessageResponse
// @Failure 400 {object} response.ErrorResponse "Токен отсутствует, неверен или уже использован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/verify [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.verify"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	token := r.URL.Query().Get("token")
	if err := h.svc.Verify(r.Context(), token); err != nil {
		response.WriteError(w, r, log, "verification failed", err)
		return
	}

	log.Info("email verified")
	render.JSON(w, r, response.Message("email verified successfully"))
}
