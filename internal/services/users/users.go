// Package users отдает администраторам список учетных записей.
// Страницы кэшируются в Redis и сбрасываются при регистрации и подтверждении почты.
package users

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/lib/sl"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/models"
)

const (
	cachePrefix = "users:list:"
	// DefaultLimit размер страницы по умолчанию.
	DefaultLimit = 50
	// MaxLimit максимальный размер страницы.
	MaxLimit = 200
)

// Store источник учетных записей.
type Store interface {
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
}

// Cache кэш страниц списка.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	InvalidatePrefix(ctx context.Context, prefix string) error
}

// Entry запись списка пользователей без хэша пароля и токенов.
type Entry struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// Directory список пользователей с кэшем.
type Directory struct {
	log   *slog.Logger
	store Store
	cache Cache
	ttl   time.Duration
}

// NewDirectory создает Directory. cache может быть nil, тогда чтение идет в хранилище.
func NewDirectory(log *slog.Logger, store Store, cache Cache, ttl time.Duration) *Directory {
	return &Directory{log: log, store: store, cache: cache, ttl: ttl}
}

// ClampPage приводит параметры страницы к допустимым значениям.
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// List возвращает страницу пользователей в порядке регистрации.
// Ошибки кэша не прерывают запрос.
func (d *Directory) List(ctx context.Context, limit, offset int) ([]Entry, error) {
	const op = "users.List"
	limit, offset = ClampPage(limit, offset)
	log := d.log.With(slog.String("op", op))
	key := fmt.Sprintf("%s%d:%d", cachePrefix, limit, offset)

	if d.cache != nil {
		var cached []Entry
		found, err := d.cache.Get(ctx, key, &cached)
		if err != nil {
			log.Warn("cache read failed", sl.Err(err))
		}
		if found {
			return cached, nil
		}
	}

	list, err := d.store.ListUsers(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	entries := make([]Entry, 0, len(list))
	for _, u := range list {
		entries = append(entries, Entry{
			ID:         u.UUID,
			Name:       u.Name,
			Email:      u.Email,
			Role:       u.Role,
			IsVerified: u.IsVerified,
			CreatedAt:  u.CreatedAt,
		})
	}

	if d.cache != nil {
		if err := d.cache.Set(ctx, key, entries, d.ttl); err != nil {
			log.Warn("cache write failed", sl.Err(err))
		}
	}
	return entries, nil
}

// Invalidate сбрасывает все закэшированные страницы.
func (d *Directory) Invalidate(ctx context.Context) error {
	const op = "users.Invalidate"
	if d.cache == nil {
		return nil
	}
	if err := d.cache.InvalidatePrefix(ctx, cachePrefix); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
