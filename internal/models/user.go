// Package models содержит доменную модель пользователя системы,
// включающую данные учётной записи, хэш пароля, роль и состояние
// токенов подтверждения почты и сброса пароля.
// Структура используется в бизнес‑логике и при работе с хранилищем.
package models

import "time"

// Роли пользователей. Набор закрыт.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ValidRole сообщает, входит ли роль в закрытый набор.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// User представляет зарегистрированного пользователя системы.
type User struct {
	UUID              string     // Уникальный идентификатор пользователя
	Email             string     // Электронная почта (уникальна без учета регистра)
	Name              string     // Отображаемое имя
	PasswordHash      string     // Хэш пароля пользователя
	Role              string     // Роль пользователя, admin или user
	IsVerified        bool       // Почта подтверждена
	VerificationToken *string    // Токен подтверждения, пока почта не подтверждена
	ResetToken        *string    // Токен сброса пароля, пока запрос активен
	ResetTokenExpiry  *time.Time // Срок действия токена сброса
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Profile возвращает публичную часть учетной записи, без хэша и токенов.
func (u *User) Profile() Profile {
	return Profile{
		ID:    u.UUID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}

// Profile минимальный профиль пользователя для ответов API.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// MailEvent событие для mailer: письмо со ссылкой подтверждения или сброса.
type MailEvent struct {
	Type      string     `json:"type"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Link      string     `json:"link"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Типы почтовых событий.
const (
	MailVerification  = "verification"
	MailPasswordReset = "password_reset"
)
