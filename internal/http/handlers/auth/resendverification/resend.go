// Package resendverification реализует повторную отправку письма подтверждения.
package resendverification

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/http/response"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/lib/sl"
)

// SentMessage текст ответа, не раскрывающий состояние учетной записи.
const SentMessage = "if an unverified account with that email exists, a verification link has been sent"

// Request входные данные запроса.
type Request struct {
	Email string `json:"email" validate:"required,email"`
}

// Service описывает повторную отправку ссылки подтверждения.
type Service interface {
	ResendVerification(ctx context.Context, email string) error
}

// Handler обрабатывает POST /auth/resend-verification.
type Handler struct {
	log      *slog.Logger
	svc      Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, svc Service) *Handler {
	return &Handler{
		log:      log,
		svc:      svc,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Повторная отправка письма подтверждения
// @Description Повторно отправляет действующую ссылку подтверждения. Ответ не зависит от существования адреса.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Адрес учетной записи"
// @Success 200 {object} response.MessageResponse
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или адрес"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/resend-verification [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.resendverification"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	if err := h.svc.ResendVerification(r.Context(), req.Email); err != nil {
		response.WriteError(w, r, log, "resend verification failed", err)
		return
	}

	render.JSON(w, r, response.Message(SentMessage))
}
