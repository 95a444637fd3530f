package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/lib/metrics"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/lib/sl"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/models"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/storage"
)

// RegisterInput данные для создания учетной записи.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// RegistrationService создает учетные записи и рассылает ссылки подтверждения.
type RegistrationService struct {
	log      *slog.Logger
	users    UserStore
	hasher   PasswordHasher
	notifier Notifier
	opts     options
}

// NewRegistrationService создает новый экземпляр RegistrationService.
func NewRegistrationService(log *slog.Logger, users UserStore, hasher PasswordHasher, notifier Notifier, opts ...Option) *RegistrationService {
	return &RegistrationService{
		log:      log,
		users:    users,
		hasher:   hasher,
		notifier: notifier,
		opts:     buildOptions(opts),
	}
}

// NormalizeEmail приводит адрес к виду, в котором он хранится.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register создает неподтвержденного пользователя с ролью user и токеном
// подтверждения, затем отправляет письмо со ссылкой. Ошибка отправки письма
// не отменяет регистрацию: ссылку можно запросить повторно.
func (s *RegistrationService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	const op = "auth.Register"
	email := NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		s.opts.recorder.AuthEvent(EventRegister, metrics.OutcomeFailure)
		return nil, fmt.Errorf("%s: %w", op, ErrValidation)
	}

	hash, err := s.hasher.GetHash(ctx, in.Password)
	if err != nil {
		s.opts.recorder.AuthEvent(EventRegister, metrics.OutcomeError)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	verificationToken, err := s.opts.newToken()
	if err != nil {
		s.opts.recorder.AuthEvent(EventRegister, metrics.OutcomeError)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.users.CreateUser(ctx, models.User{
		UUID:              uuid.NewString(),
		Email:             email,
		Name:              strings.TrimSpace(in.Name),
		PasswordHash:      hash,
		Role:              models.RoleUser,
		IsVerified:        false,
		VerificationToken: &verificationToken,
	})
	if err != nil {
		if errors.Is(err, storage.ErrEmailExists) {
			s.opts.recorder.AuthEvent(EventRegister, metrics.OutcomeFailure)
			return nil, fmt.Errorf("%s: %w", op, ErrDuplicateEmail)
		}
		s.opts.recorder.AuthEvent(EventRegister, metrics.OutcomeError)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log := s.log.With(slog.String("op", op), slog.String("user_id", user.UUID))
	if err := s.notifier.SendVerification(ctx, *user, verificationToken); err != nil {
		log.Error("failed to send verification mail", sl.Err(err))
	}
	if err := s.opts.invalidator.Invalidate(ctx); err != nil {
		log.Warn("failed to invalidate users cache", sl.Err(err))
	}

	s.opts.recorder.AuthEvent(EventRegister, metrics.OutcomeSuccess)
	log.Info("user registered", sl.Email(user.Email))
	return user, nil
}
