package auth

import "errors"

// Доменные ошибки. HTTP слой переводит их в коды ответа в response.FromError,
// все остальные ошибки считаются внутренними.
var (
	ErrValidation            = errors.New("validation failed")
	ErrMissingCredentials    = errors.New("email and password are required")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrAccountNotVerified    = errors.New("account is not verified")
	ErrInvalidOrUsedToken    = errors.New("invalid or already used verification token")
	ErrExpiredOrInvalidToken = errors.New("invalid or expired reset token")
	ErrDuplicateEmail        = errors.New("email already registered")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrForbidden             = errors.New("forbidden")
)
