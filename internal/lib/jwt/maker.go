// Package jwt реализует генерацию и парсинг JWT токенов сессии с пользовательскими claim полями.
//
// Maker определяет интерфейс для создания и проверки JWT токенов с user_id и role.
// MakerImpl конкретная реализация с использованием секретного ключа и срока жизни.
package jwt

import (
	"time"
)

// DefaultTTL время жизни токена сессии, если в конфиге не задано иное.
const DefaultTTL = 24 * time.Hour

// Maker описывает интерфейс для генерации и парсинга JWT токенов.
//
// Методы позволяют создавать токен с указанием идентификатора пользователя и роли,
// а также разбирать токен и извлекать из него кастомные данные.
type Maker interface {
	// GenerateToken подписывает токен с user_id и role
	GenerateToken(userID, role string) (string, error)
	// ParseToken возвращает *CustomClaims с user_id и role
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl реализует интерфейс Maker с использованием секретного ключа
// и времени жизни токена (TTL).
type MakerImpl struct {
	secretKey []byte           // Секретный ключ для подписи токенов.
	tokenTTL  time.Duration    // Время жизни токена.
	now       func() time.Time // Источник времени, подменяется в тестах.
}

// NewJWTMaker создаёт новый экземпляр MakerImpl на основе секретного ключа и TTL.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &MakerImpl{
		secretKey: []byte(secretKey),
		tokenTTL:  ttl,
		now:       time.Now,
	}
}
