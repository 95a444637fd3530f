// Package password реализует функции для безопасного хеширования и проверки паролей.
//
// Hasher создает bcrypt-хеш пароля с настраиваемой стоимостью и ограничивает
// число одновременных вычислений, чтобы тяжелое хеширование не забирало все
// ядра у параллельных запросов.
package password

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
)

// ErrMismatch возвращается, если пароль не соответствует хэшу.
var ErrMismatch = bcrypt.ErrMismatchedHashAndPassword

// Hasher хэширует и сверяет пароли через bcrypt.
type Hasher struct {
	cost int
	sem  chan struct{}
}

// NewHasher создает Hasher. Некорректная стоимость заменяется на bcrypt.DefaultCost,
// maxConcurrent <= 0 означает runtime.NumCPU().
func NewHasher(cost, maxConcurrent int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	if maxConcurrent <= 0 {
		maxConcurrent = runtime.NumCPU()
	}
	return &Hasher{
		cost: cost,
		sem:  make(chan struct{}, maxConcurrent),
	}
}

// GetHash принимает пароль пользователя и возвращает его bcrypt‑хэш.
//
// Ожидание свободного слота прерывается отменой контекста.
func (h *Hasher) GetHash(ctx context.Context, password string) (string, error) {
	const op = "password.GetHash"
	if err := h.acquire(ctx); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer h.release()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashedPassword), nil
}

// CompareHash сравнивает bcrypt‑хэш с введённым паролем.
//
// Возвращает nil, если пароль соответствует хэшу, ошибку, обернутую вокруг
// ErrMismatch, если не соответствует, иначе прочую ошибку.
func (h *Hasher) CompareHash(ctx context.Context, originalHash, externalPassword string) error {
	const op = "password.CompareHash"
	if err := h.acquire(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer h.release()

	if err := bcrypt.CompareHashAndPassword([]byte(originalHash), []byte(externalPassword)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// IsMismatch сообщает, что ошибка означает неверный пароль, а не сбой.
func IsMismatch(err error) bool {
	return errors.Is(err, ErrMismatch)
}

func (h *Hasher) acquire(ctx context.Context) error {
	select {
	case h.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hasher) release() {
	<-h.sem
}
