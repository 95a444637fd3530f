package login

import (
	"context"

	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/services/auth"
)

// Service описывает интерфейс бизнес-логики аутентификации.
//
// Включает метод Login для входа пользователя по email и паролю.
type Service interface {
	Login(ctx context.Context, email, password string) (*auth.LoginResult, error)
}
