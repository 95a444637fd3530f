// Package storage реализует хранилище учетных записей на основе PostgreSQL.
// Предоставляет методы создания и поиска пользователей, а также атомарные
// условные обновления для одноразовых токенов подтверждения почты и сброса пароля.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/models"
)

var (
	// ErrUserNotFound пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailExists адрес уже занят другой учетной записью.
	ErrEmailExists = errors.New("email already registered")
	// ErrInvalidRole роль не входит в закрытый набор models.RoleUser, models.RoleAdmin.
	ErrInvalidRole = errors.New("invalid role")
	// ErrTokenNotFound условное обновление не нашло строку с ожидаемым токеном:
	// токен уже использован, истек или никогда не существовал.
	ErrTokenNotFound = errors.New("token not found")
)

// emailIndex имя уникального индекса по lower(email), см. migrations/.
const emailIndex = "users_email_lower_idx"

const userColumns = `uid, email, name, password_hash, role, is_verified,
			      verification_token, reset_token, reset_token_expiry, created_at, updated_at`

// Storage инкапсулирует соединение с базой данных PostgreSQL
// и реализует методы работы с пользователями.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL и проверяет его.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// Ping проверяет доступность базы данных.
func (s *Storage) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

// Close закрывает пул соединений.
func (s *Storage) Close() error {
	return s.DB.Close()
}

// CreateUser сохраняет нового пользователя и возвращает его с метками времени.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}
	if !models.ValidRole(user.Role) {
		return nil, fmt.Errorf("%s: %q: %w", op, user.Role, ErrInvalidRole)
	}

	query := `INSERT INTO users (uid, email, name, password_hash, role, is_verified, verification_token)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING created_at, updated_at;`
	err := s.DB.QueryRowContext(ctx, query,
		user.UUID, user.Email, user.Name, user.PasswordHash, user.Role, user.IsVerified,
		user.VerificationToken).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == emailIndex {
			return nil, fmt.Errorf("%s: %w", op, ErrEmailExists)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

// GetUserByEmail возвращает пользователя по email без учета регистра.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE lower(email) = lower($1)`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByID возвращает пользователя по его UID.
func (s *Storage) GetUserByID(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUserByID"
	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE uid = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, userUID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByVerificationToken возвращает пользователя, которому выдан токен подтверждения.
func (s *Storage) GetUserByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	const op = "storage.GetUserByVerificationToken"
	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE verification_token = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, token))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByResetToken возвращает пользователя по токену сброса пароля.
// Истекший на момент now токен считается отсутствующим.
func (s *Storage) GetUserByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	const op = "storage.GetUserByResetToken"
	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE reset_token = $1 AND reset_token_expiry > $2`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, token, now))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// MarkVerified подтверждает почту и стирает токен одним условным UPDATE.
// Если токен у пользователя уже не равен ожидаемому, возвращает ErrTokenNotFound.
func (s *Storage) MarkVerified(ctx context.Context, userUID, token string) error {
	const op = "storage.MarkVerified"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET is_verified = TRUE,
			      verification_token = NULL,
			      updated_at = NOW()
			  WHERE uid = $1 AND verification_token = $2 AND is_verified = FALSE`
	res, err := s.DB.ExecContext(ctx, query, userUID, token)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return expectOneRow(op, res, ErrTokenNotFound)
}

// SetPassword заменяет хэш пароля целиком и стирает пару токена сброса.
// Обновление выполняется только пока токен совпадает и не истек на момент now.
func (s *Storage) SetPassword(ctx context.Context, userUID, resetToken, passwordHash string, now time.Time) error {
	const op = "storage.SetPassword"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET password_hash = $3,
			      reset_token = NULL,
			      reset_token_expiry = NULL,
			      updated_at = NOW()
			  WHERE uid = $1 AND reset_token = $2 AND reset_token_expiry > $4`
	res, err := s.DB.ExecContext(ctx, query, userUID, resetToken, passwordHash, now)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return expectOneRow(op, res, ErrTokenNotFound)
}

// SetResetToken записывает новую пару токен/срок, затирая предыдущую.
func (s *Storage) SetResetToken(ctx context.Context, userUID, token string, expiry time.Time) error {
	const op = "storage.SetResetToken"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET reset_token = $2,
			      reset_token_expiry = $3,
			      updated_at = NOW()
			  WHERE uid = $1`
	res, err := s.DB.ExecContext(ctx, query, userUID, token, expiry)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return expectOneRow(op, res, ErrUserNotFound)
}

// ListUsers возвращает пользователей с пагинацией в порядке регистрации.
func (s *Storage) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	const op = "storage.ListUsers"
	query := `SELECT ` + userColumns + `
			  FROM users
			  ORDER BY created_at, uid
			  LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var verificationToken, resetToken sql.NullString
	var resetTokenExpiry sql.NullTime
	err := row.Scan(&u.UUID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.IsVerified,
		&verificationToken, &resetToken, &resetTokenExpiry, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if verificationToken.Valid {
		u.VerificationToken = &verificationToken.String
	}
	if resetToken.Valid {
		u.ResetToken = &resetToken.String
	}
	if resetTokenExpiry.Valid {
		u.ResetTokenExpiry = &resetTokenExpiry.Time
	}
	return u, nil
}

func expectOneRow(op string, res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, notFound)
	}
	return nil
}
