package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/lib/metrics"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/lib/password"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/lib/sl"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/models"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/storage"
)

// LoginResult токен сессии и профиль вошедшего пользователя.
type LoginResult struct {
	Token   string
	Profile models.Profile
}

// SessionService проверяет учетные данные и выдает JWT.
type SessionService struct {
	log      *slog.Logger
	users    UserStore
	hasher   PasswordHasher
	jwtMaker TokenMaker
	opts     options

	// хэш-заглушка той же стоимости, что и настоящие, для неизвестных адресов
	decoyMu   sync.Mutex
	decoyHash string
}

// decoyPassword пароль хэша-заглушки.
const decoyPassword = "decoy-password-for-unknown-accounts"

// NewSessionService создает новый экземпляр SessionService.
//
// Хэш-заглушка считается сразу, чтобы первый вход с неизвестным адресом
// не был медленнее остальных. При сбое он будет посчитан при первом входе.
func NewSessionService(log *slog.Logger, users UserStore, hasher PasswordHasher, jwtMaker TokenMaker, opts ...Option) *SessionService {
	s := &SessionService{
		log:      log,
		users:    users,
		hasher:   hasher,
		jwtMaker: jwtMaker,
		opts:     buildOptions(opts),
	}
	if _, err := s.decoy(context.Background()); err != nil {
		log.Warn("failed to prepare decoy hash", sl.Err(err))
	}
	return s
}

// Login проверяет учетные данные. Неизвестный адрес и неверный пароль дают
// одинаковую ErrInvalidCredentials. Неподтвержденная учетная запись
// отклоняется с ErrAccountNotVerified до сравнения пароля.
func (s *SessionService) Login(ctx context.Context, email, rawPassword string) (*LoginResult, error) {
	const op = "auth.Login"
	email = NormalizeEmail(email)
	if email == "" || rawPassword == "" {
		s.opts.recorder.AuthEvent(EventLogin, metrics.OutcomeFailure)
		return nil, fmt.Errorf("%s: %w", op, ErrMissingCredentials)
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			s.compareDecoy(ctx, rawPassword)
			s.opts.recorder.AuthEvent(EventLogin, metrics.OutcomeFailure)
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		s.opts.recorder.AuthEvent(EventLogin, metrics.OutcomeError)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !user.IsVerified {
		s.opts.recorder.AuthEvent(EventLogin, metrics.OutcomeFailure)
		return nil, fmt.Errorf("%s: %w", op, ErrAccountNotVerified)
	}

	if err := s.hasher.CompareHash(ctx, user.PasswordHash, rawPassword); err != nil {
		if password.IsMismatch(err) {
			s.opts.recorder.AuthEvent(EventLogin, metrics.OutcomeFailure)
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		s.opts.recorder.AuthEvent(EventLogin, metrics.OutcomeError)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sessionToken, err := s.jwtMaker.GenerateToken(user.UUID, user.Role)
	if err != nil {
		s.opts.recorder.AuthEvent(EventLogin, metrics.OutcomeError)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.opts.recorder.AuthEvent(EventLogin, metrics.OutcomeSuccess)
	s.log.Info("user logged in", slog.String("op", op), slog.String("user_id", user.UUID))
	return &LoginResult{
		Token:   sessionToken,
		Profile: user.Profile(),
	}, nil
}

// compareDecoy выполняет такое же сравнение bcrypt, как для существующей
// учетной записи, чтобы время ответа не выдавало наличие адреса.
func (s *SessionService) compareDecoy(ctx context.Context, rawPassword string) {
	hash, err := s.decoy(ctx)
	if err != nil {
		s.log.Warn("decoy hash unavailable", slog.String("op", "auth.Login"), sl.Err(err))
		return
	}
	_ = s.hasher.CompareHash(ctx, hash, rawPassword)
}

func (s *SessionService) decoy(ctx context.Context) (string, error) {
	s.decoyMu.Lock()
	defer s.decoyMu.Unlock()
	if s.decoyHash != "" {
		return s.decoyHash, nil
	}
	hash, err := s.hasher.GetHash(ctx, decoyPassword)
	if err != nil {
		return "", err
	}
	s.decoyHash = hash
	return hash, nil
}

// Profile возвращает профиль владельца сессии. Учетная запись, удаленная
// после выдачи токена, дает ErrUnauthorized.
func (s *SessionService) Profile(ctx context.Context, userUID string) (*models.Profile, error) {
	const op = "auth.Profile"
	if userUID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}
	user, err := s.users.GetUserByID(ctx, userUID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	profile := user.Profile()
	return &profile, nil
}
