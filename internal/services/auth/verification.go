package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/lib/metrics"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/lib/sl"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/storage"
)

// VerificationService подтверждает почту по одноразовому токену.
type VerificationService struct {
	log      *slog.Logger
	users    UserStore
	notifier Notifier
	opts     options
}

// NewVerificationService создает новый экземпляр VerificationService.
func NewVerificationService(log *slog.Logger, users UserStore, notifier Notifier, opts ...Option) *VerificationService {
	return &VerificationService{
		log:      log,
		users:    users,
		notifier: notifier,
		opts:     buildOptions(opts),
	}
}

// Verify потребляет токен подтверждения. Поиск и переход выполняются так,
// что из двух конкурентных вызовов с одним токеном успешен ровно один,
// второй получает ErrInvalidOrUsedToken.
func (s *VerificationService) Verify(ctx context.Context, token string) error {
	const op = "auth.Verify"
	if token == "" {
		s.opts.recorder.AuthEvent(EventVerify, metrics.OutcomeFailure)
		return fmt.Errorf("%s: %w", op, ErrValidation)
	}

	user, err := s.users.GetUserByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			s.opts.recorder.AuthEvent(EventVerify, metrics.OutcomeFailure)
			return fmt.Errorf("%s: %w", op, ErrInvalidOrUsedToken)
		}
		s.opts.recorder.AuthEvent(EventVerify, metrics.OutcomeError)
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.users.MarkVerified(ctx, user.UUID, token); err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			s.opts.recorder.AuthEvent(EventVerify, metrics.OutcomeFailure)
			return fmt.Errorf("%s: %w", op, ErrInvalidOrUsedToken)
		}
		s.opts.recorder.AuthEvent(EventVerify, metrics.OutcomeError)
		return fmt.Errorf("%s: %w", op, err)
	}

	log := s.log.With(slog.String("op", op), slog.String("user_id", user.UUID))
	if err := s.opts.invalidator.Invalidate(ctx); err != nil {
		log.Warn("failed to invalidate users cache", sl.Err(err))
	}
	s.opts.recorder.AuthEvent(EventVerify, metrics.OutcomeSuccess)
	log.Info("email verified")
	return nil
}

// ResendVerification повторно отправляет ссылку с текущим токеном, если
// учетная запись существует и еще не подтверждена. Для вызывающего результат
// одинаков при любом адресе, ошибка возвращается только при сбое чтения из хранилища.
func (s *VerificationService) ResendVerification(ctx context.Context, email string) error {
	const op = "auth.ResendVerification"
	email = NormalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%s: %w", op, ErrValidation)
	}
	log := s.log.With(slog.String("op", op), sl.Email(email))

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Debug("resend requested for unknown email")
			s.opts.recorder.AuthEvent(EventResendVerification, metrics.OutcomeSuccess)
			return nil
		}
		s.opts.recorder.AuthEvent(EventResendVerification, metrics.OutcomeError)
		return fmt.Errorf("%s: %w", op, err)
	}
	if user.IsVerified || user.VerificationToken == nil {
		log.Debug("resend requested for verified account")
		s.opts.recorder.AuthEvent(EventResendVerification, metrics.OutcomeSuccess)
		return nil
	}

	// сбой отправки не должен отличать существующий адрес от несуществующего
	if err := s.notifier.SendVerification(ctx, *user, *user.VerificationToken); err != nil {
		log.Error("failed to send verification mail", sl.Err(err))
		s.opts.recorder.AuthEvent(EventResendVerification, metrics.OutcomeError)
		return nil
	}
	s.opts.recorder.AuthEvent(EventResendVerification, metrics.OutcomeSuccess)
	return nil
}
