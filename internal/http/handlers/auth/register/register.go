// Package register реализует HTTP-обработчик регистрации пользователя.
//
// Обработчик декодирует JSON, валидирует поля и делегирует создание учетной
// записи сервису. В ответ возвращается профиль без хэша пароля и токенов,
// ссылка подтверждения уходит на почту.
package register

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
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/models"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/services/auth"
)

// Request входные данные для регистрации.
type Request struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// Response ответ на успешную регистрацию.
type Response struct {
	Status  string         `json:"status" example:"OK"`
	Message string         `json:"message"`
	User    models.Profile `json:"user"`
}

// Service описывает бизнес-логику регистрации.
type Service interface {
	Register(ctx context.Context, in auth.RegisterInput) (*models.User, error)
}

// Handler обрабатывает HTTP-запросы регистрации.
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
// @Summary Регистрация пользователя
// @Description Создает учетную запись и отправляет письмо со ссылкой подтверждения.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные нового пользователя"
// @Success 201 {object} Response
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или ошибка валидации"
// @Failure 409 {object} response.ErrorResponse "Адрес уже зарегистрирован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"

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
	log.Info("request body decoded", sl.Email(req.Email))

	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	user, err := h.svc.Register(r.Context(), auth.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.WriteError(w, r, log, "registration failed", err)
		return
	}

	log.Info("user registered", slog.String("user_uid", user.UUID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, Response{
		Status:  response.StatusOK,
		Message: "registration successful, check your email to verify the account",
		User:    user.Profile(),
	})
}
