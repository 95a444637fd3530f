package auth_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/models"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/storage"
)

// memStore хранилище в памяти с теми же условными обновлениями, что и PostgreSQL.
type memStore struct {
	mu    sync.Mutex
	users map[string]*models.User
	err   error
}

func newMemStore() *memStore {
	return &memStore{users: map[string]*models.User{}}
}

func clone(u *models.User) *models.User {
	c := *u
	if u.VerificationToken != nil {
		t := *u.VerificationToken
		c.VerificationToken = &t
	}
	if u.ResetToken != nil {
		t := *u.ResetToken
		c.ResetToken = &t
	}
	if u.ResetTokenExpiry != nil {
		e := *u.ResetTokenExpiry
		c.ResetTokenExpiry = &e
	}
	return &c
}

func (s *memStore) find(match func(u *models.User) bool) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, u := range s.users {
		if match(u) {
			return clone(u), nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (s *memStore) CreateUser(_ context.Context, user models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return nil, storage.ErrEmailExists
		}
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	s.users[user.UUID] = clone(&user)
	return clone(&user), nil
}

func (s *memStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *memStore) GetUserByID(_ context.Context, userUID string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.UUID == userUID })
}

func (s *memStore) GetUserByVerificationToken(_ context.Context, token string) (*models.User, error) {
	return s.find(func(u *models.User) bool {
		return u.VerificationToken != nil && *u.VerificationToken == token
	})
}

func (s *memStore) GetUserByResetToken(_ context.Context, token string, now time.Time) (*models.User, error) {
	return s.find(func(u *models.User) bool {
		return u.ResetToken != nil && *u.ResetToken == token && u.ResetTokenExpiry.After(now)
	})
}

func (s *memStore) MarkVerified(_ context.Context, userUID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userUID]
	if !ok || u.IsVerified || u.VerificationToken == nil || *u.VerificationToken != token {
		return storage.ErrTokenNotFound
	}
	u.IsVerified = true
	u.VerificationToken = nil
	u.UpdatedAt = time.Now()
	return nil
}

func (s *memStore) SetPassword(_ context.Context, userUID, resetToken, passwordHash string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userUID]
	if !ok || u.ResetToken == nil || *u.ResetToken != resetToken || !u.ResetTokenExpiry.After(now) {
		return storage.ErrTokenNotFound
	}
	u.PasswordHash = passwordHash
	u.ResetToken = nil
	u.ResetTokenExpiry = nil
	u.UpdatedAt = time.Now()
	return nil
}

func (s *memStore) SetResetToken(_ context.Context, userUID, token string, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userUID]
	if !ok {
		return storage.ErrUserNotFound
	}
	u.ResetToken = &token
	u.ResetTokenExpiry = &expiry
	u.UpdatedAt = time.Now()
	return nil
}

func (s *memStore) get(userUID string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.users[userUID])
}

type sentMail struct {
	kind      string
	user      models.User
	token     string
	expiresAt time.Time
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (n *fakeNotifier) SendVerification(_ context.Context, user models.User, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMail{kind: models.MailVerification, user: user, token: token})
	return nil
}

func (n *fakeNotifier) SendPasswordReset(_ context.Context, user models.User, token string, expiresAt time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMail{kind: models.MailPasswordReset, user: user, token: token, expiresAt: expiresAt})
	return nil
}

func (n *fakeNotifier) last() sentMail {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent[len(n.sent)-1]
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type countingInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (c *countingInvalidator) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
