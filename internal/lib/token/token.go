// Package token генерирует непрозрачные одноразовые токены для ссылок
// подтверждения почты и сброса пароля.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// Size количество случайных байт в токене (256 бит).
const Size = 32

// New возвращает случайную URL-безопасную строку без паддинга.
// Уникальность дополнительно гарантируется ограничением UNIQUE в базе.
func New() (string, error) {
	const op = "token.New"
	buf := make([]byte, Size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
