// Package forgotpassword реализует HTTP-обработчик запроса на сброс пароля.
//
// Ответ одинаков для существующего и неизвестного адреса, чтобы по нему
// нельзя было узнать, зарегистрирован ли email.
package forgotpassword

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

// SentMessage текст ответа для любого корректного запроса.
const SentMessage = "if an account with that email exists, a password reset link has been sent"

// Request входные данные запроса.
type Request struct {
	Email string `json:"email" validate:"required,email"`
}

// Service описывает бизнес-логику выдачи токена сброса.
type Service interface {
	RequestReset(ctx context.Context, email string) error
}

// Handler обрабатывает POST /auth/forgot-password.
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
// @Summary Запрос на сброс пароля
// @Description Отправляет ссылку для сброса пароля, если адрес зарегистрирован. Ответ не зависит от существования адреса.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Адрес учетной записи"
// @Success 200 {object} response.MessageResponse
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или адрес"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/forgot-password [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.forgotpassword"

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

	if err := h.svc.RequestReset(r.Context(), req.Email); err != nil {
		response.WriteError(w, r, log, "password reset request failed", err)
		return
	}

	render.JSON(w, r, response.Message(SentMessage))
}
