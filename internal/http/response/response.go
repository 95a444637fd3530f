// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков. Пакет упрощает возврат
// успешных ответов, ошибок и сообщений валидации в едином формате,
// а также единственное место перевода доменных ошибок в HTTP статусы.
package response

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/lib/sl"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/services/auth"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status статус запроса ("OK" или "Error").
// Поле Error текст ошибки (опционально, при неуспехе).
// Поле Data данные ответа (опционально, при успехе).
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse структура ошибки для Swagger-документации.
// Используется в аннотациях @Failure как возвращаемый тип ошибки.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
}

// MessageResponse успешный ответ с текстом для пользователя.
type MessageResponse struct {
	Status  string `json:"status" example:"OK"`
	Message string `json:"message"`
}

const (
	// StatusOK значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// MsgInternal текст для любой ошибки, не имеющей доменного смысла.
const MsgInternal = "internal error"

// StatusOKWithData возвращает успешный Response с переданными данными.
func StatusOKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Message возвращает успешный ответ с сообщением.
func Message(msg string) MessageResponse {
	return MessageResponse{
		Status:  StatusOK,
		Message: msg,
	}
}

// Error возвращает Response с ошибкой и переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// FromError переводит ошибку сервисного слоя в HTTP статус и тело ответа.
// В тело попадает только текст доменной ошибки, внутренние детали
// остаются в логах обработчика.
func FromError(err error) (int, ErrorResponse) {
	for _, m := range errorStatuses {
		if errors.Is(err, m.err) {
			return m.status, Error(m.err.Error())
		}
	}
	return http.StatusInternalServerError, Error(MsgInternal)
}

// WriteError логирует ошибку и отвечает статусом из FromError.
// Клиентские ошибки пишутся в лог уровнем Warn, внутренние уровнем Error.
func WriteError(w http.ResponseWriter, r *http.Request, log *slog.Logger, msg string, err error) int {
	status, body := FromError(err)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	log.Log(r.Context(), level, msg, sl.Err(err), slog.Int("status", status))
	render.Status(r, status)
	render.JSON(w, r, body)
	return status
}

var errorStatuses = []struct {
	err    error
	status int
}{
	{auth.ErrValidation, http.StatusBadRequest},
	{auth.ErrMissingCredentials, http.StatusBadRequest},
	{auth.ErrInvalidOrUsedToken, http.StatusBadRequest},
	{auth.ErrExpiredOrInvalidToken, http.StatusBadRequest},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized},
	{auth.ErrUnauthorized, http.StatusUnauthorized},
	{auth.ErrAccountNotVerified, http.StatusForbidden},
	{auth.ErrForbidden, http.StatusForbidden},
	{auth.ErrDuplicateEmail, http.StatusConflict},
}

// ValidationError формирует Response со статусом Error на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) Response {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email address", err.Field()))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at least %s characters long", err.Field(), err.Param()))
		case "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at most %s characters long", err.Field(), err.Param()))
		case "alphanum":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s can contain only numbers and letters", err.Field()))
		case "numeric":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s can contain only numbers", err.Field()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return Response{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
	}
}
