package auth

import (
	"time"

	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/lib/token"
)

type options struct {
	now         func() time.Time
	newToken    func() (string, error)
	recorder    EventRecorder
	invalidator ListingInvalidator
	resetTTL    time.Duration
}

// Option настраивает сервисы пакета.
type Option func(*options)

// DefaultResetTTL время жизни токена сброса пароля.
const DefaultResetTTL = time.Hour

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithTokenSource подменяет генератор одноразовых токенов.
func WithTokenSource(newToken func() (string, error)) Option {
	return func(o *options) { o.newToken = newToken }
}

// WithRecorder включает учет исходов операций.
func WithRecorder(r EventRecorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithListingInvalidator задает кэш списка пользователей, который
// сбрасывается при регистрации и подтверждении почты.
func WithListingInvalidator(inv ListingInvalidator) Option {
	return func(o *options) { o.invalidator = inv }
}

// WithResetTTL задает время жизни токена сброса пароля.
func WithResetTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.resetTTL = ttl
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		now:         time.Now,
		newToken:    token.New,
		recorder:    noopRecorder{},
		invalidator: noopInvalidator{},
		resetTTL:    DefaultResetTTL,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
