// Package auth содержит жизненный цикл учетной записи: регистрацию,
// подтверждение почты, вход с выдачей JWT и сброс пароля.
//
// Все переходы, зависящие от одноразового токена, выполняются одним условным
// обновлением в хранилище, поэтому два конкурентных запроса с одним токеном
// не могут оба завершиться успехом.
package auth

import (
	"context"
	"time"

	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/lib/jwt"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/models"
)

// UserStore хранилище учетных записей.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, userUID string) (*models.User, error)
	GetUserByVerificationToken(ctx context.Context, token string) (*models.User, error)
	GetUserByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error)
	MarkVerified(ctx context.Context, userUID, token string) error
	SetPassword(ctx context.Context, userUID, resetToken, passwordHash string, now time.Time) error
	SetResetToken(ctx context.Context, userUID, token string, expiry time.Time) error
}

// PasswordHasher хэширует и сверяет пароли.
type PasswordHasher interface {
	GetHash(ctx context.Context, password string) (string, error)
	CompareHash(ctx context.Context, originalHash, externalPassword string) error
}

// Notifier отправляет письма со ссылками, содержащими токены.
type Notifier interface {
	SendVerification(ctx context.Context, user models.User, token string) error
	SendPasswordReset(ctx context.Context, user models.User, token string, expiresAt time.Time) error
}

// ListingInvalidator сбрасывает закэшированный список пользователей.
type ListingInvalidator interface {
	Invalidate(ctx context.Context) error
}

// EventRecorder учитывает исходы операций в метриках.
type EventRecorder interface {
	AuthEvent(event, outcome string)
}

// TokenMaker подписывает и проверяет JWT сессии.
type TokenMaker = jwt.Maker

// Названия операций для метрик.
const (
	EventRegister           = "register"
	EventVerify             = "verify"
	EventResendVerification = "resend_verification"
	EventLogin              = "login"
	EventForgotPassword     = "forgot_password"
	EventResetPassword      = "reset_password"
)

type noopRecorder struct{}

func (noopRecorder) AuthEvent(string, string) {}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context) error { return nil }
