package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/lib/metrics"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/lib/sl"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/models"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/storage"
)

// deliveryTimeout ограничивает отправку письма со ссылкой сброса.
const deliveryTimeout = 30 * time.Second

// PasswordResetService выдает и потребляет токены сброса пароля.
//
// Письмо со ссылкой отправляется в фоне, поэтому запрос для существующего
// адреса не ждет брокер. Close дожидается незавершенных отправок.
type PasswordResetService struct {
	log        *slog.Logger
	users      UserStore
	hasher     PasswordHasher
	notifier   Notifier
	opts       options
	deliveries sync.WaitGroup
}

// NewPasswordResetService создает новый экземпляр PasswordResetService.
func NewPasswordResetService(log *slog.Logger, users UserStore, hasher PasswordHasher, notifier Notifier, opts ...Option) *PasswordResetService {
	return &PasswordResetService{
		log:      log,
		users:    users,
		hasher:   hasher,
		notifier: notifier,
		opts:     buildOptions(opts),
	}
}

// RequestReset выдает новый токен сброса, заменяя предыдущий, и ставит
// письмо со ссылкой на отправку. Для неизвестного адреса хранилище не
// изменяется. Вызывающий получает одинаковый результат в обоих случаях.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	const op = "auth.RequestReset"
	email = NormalizeEmail(email)
	if email == "" {
		s.opts.recorder.AuthEvent(EventForgotPassword, metrics.OutcomeFailure)
		return fmt.Errorf("%s: %w", op, ErrValidation)
	}
	log := s.log.With(slog.String("op", op), sl.Email(email))

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Debug("reset requested for unknown email")
			s.opts.recorder.AuthEvent(EventForgotPassword, metrics.OutcomeSuccess)
			return nil
		}
		s.opts.recorder.AuthEvent(EventForgotPassword, metrics.OutcomeError)
		return fmt.Errorf("%s: %w", op, err)
	}

	resetToken, err := s.opts.newToken()
	if err != nil {
		s.opts.recorder.AuthEvent(EventForgotPassword, metrics.OutcomeError)
		return fmt.Errorf("%s: %w", op, err)
	}
	expiresAt := s.opts.now().Add(s.opts.resetTTL)
	if err := s.users.SetResetToken(ctx, user.UUID, resetToken, expiresAt); err != nil {
		s.opts.recorder.AuthEvent(EventForgotPassword, metrics.OutcomeError)
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("password reset issued", slog.String("user_id", user.UUID))
	s.deliver(context.WithoutCancel(ctx), log, *user, resetToken, expiresAt)
	return nil
}

func (s *PasswordResetService) deliver(ctx context.Context, log *slog.Logger, user models.User, resetToken string, expiresAt time.Time) {
	s.deliveries.Add(1)
	go func() {
		defer s.deliveries.Done()
		ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
		defer cancel()

		if err := s.notifier.SendPasswordReset(ctx, user, resetToken, expiresAt); err != nil {
			log.Error("failed to send password reset mail", sl.Err(err))
			s.opts.recorder.AuthEvent(EventForgotPassword, metrics.OutcomeError)
			return
		}
		s.opts.recorder.AuthEvent(EventForgotPassword, metrics.OutcomeSuccess)
	}()
}

// Wait блокируется до завершения всех начатых отправок писем.
func (s *PasswordResetService) Wait() {
	s.deliveries.Wait()
}

// Close дожидается отправки писем, поставленных в очередь до остановки сервера.
func (s *PasswordResetService) Close() error {
	s.Wait()
	return nil
}

// Reset меняет пароль по токену сброса. Истекший, уже использованный или
// неизвестный токен дает ErrExpiredOrInvalidToken. Хэш пароля заменяется
// целиком вместе с очисткой токена одним условным обновлением.
func (s *PasswordResetService) Reset(ctx context.Context, resetToken, newPassword string) error {
	const op = "auth.Reset"
	if resetToken == "" || newPassword == "" {
		s.opts.recorder.AuthEvent(EventResetPassword, metrics.OutcomeFailure)
		return fmt.Errorf("%s: %w", op, ErrValidation)
	}

	user, err := s.users.GetUserByResetToken(ctx, resetToken, s.opts.now())
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			s.opts.recorder.AuthEvent(EventResetPassword, metrics.OutcomeFailure)
			return fmt.Errorf("%s: %w", op, ErrExpiredOrInvalidToken)
		}
		s.opts.recorder.AuthEvent(EventResetPassword, metrics.OutcomeError)
		return fmt.Errorf("%s: %w", op, err)
	}

	hash, err := s.hasher.GetHash(ctx, newPassword)
	if err != nil {
		s.opts.recorder.AuthEvent(EventResetPassword, metrics.OutcomeError)
		return fmt.Errorf("%s: %w", op, err)
	}

	// время берется заново: хэширование могло занять заметную долю срока
	if err := s.users.SetPassword(ctx, user.UUID, resetToken, hash, s.opts.now()); err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			s.opts.recorder.AuthEvent(EventResetPassword, metrics.OutcomeFailure)
			return fmt.Errorf("%s: %w", op, ErrExpiredOrInvalidToken)
		}
		s.opts.recorder.AuthEvent(EventResetPassword, metrics.OutcomeError)
		return fmt.Errorf("%s: %w", op, err)
	}

	s.opts.recorder.AuthEvent(EventResetPassword, metrics.OutcomeSuccess)
	s.log.Info("password reset", slog.String("op", op), slog.String("user_id", user.UUID))
	return nil
}
