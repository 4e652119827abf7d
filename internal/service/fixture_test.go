package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"forum-auth/internal/domain"
	"forum-auth/internal/repository"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type mockUserRepo struct {
	mu       sync.Mutex
	users    map[string]domain.User
	byEmail  map[string]string
	getErr   error
	resetLog []string

	// afterResetLookup corre una vez, tras GetByResetToken y antes de devolver.
	afterResetLookup func()

	// ignoreResetExpiry imita un store que no filtra por vencimiento.
	ignoreResetExpiry bool
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		users:   make(map[string]domain.User),
		byEmail: make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[user.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	m.users[user.ID] = user
	m.byEmail[user.Email] = user.ID
	return nil
}

func (m *mockUserRepo) project(user domain.User, opts repository.LookupOptions) domain.User {
	if !opts.IncludePassword {
		user.PasswordHash = ""
	}
	return user
}

func (m *mockUserRepo) GetByID(_ context.Context, id string, opts repository.LookupOptions) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return domain.User{}, m.getErr
	}
	user, ok := m.users[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return m.project(user, opts), nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string, opts repository.LookupOptions) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return domain.User{}, m.getErr
	}
	id, ok := m.byEmail[email]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return m.project(m.users[id], opts), nil
}

func (m *mockUserRepo) GetByResetToken(_ context.Context, tokenHash string, now time.Time) (domain.User, error) {
	m.mu.Lock()
	found, err := domain.User{}, repository.ErrNotFound
	for _, user := range m.users {
		if user.PasswordResetTokenHash == tokenHash && user.PasswordResetExpires != nil && (m.ignoreResetExpiry || user.PasswordResetExpires.After(now)) {
			found, err = m.project(user, repository.LookupOptions{}), nil
			break
		}
	}
	hook := m.afterResetLookup
	m.afterResetLookup = nil
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	return found, err
}

func (m *mockUserRepo) Save(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) ConsumeReset(_ context.Context, user domain.User, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.users[user.ID]
	if !ok || stored.PasswordResetTokenHash == "" || stored.PasswordResetTokenHash != tokenHash {
		return repository.ErrNotFound
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) UpdateResetFields(_ context.Context, id, tokenHash string, expiresAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordResetTokenHash = tokenHash
	user.PasswordResetExpires = expiresAt
	if tokenHash == "" {
		user.PasswordResetExpires = nil
	}
	m.users[id] = user
	m.resetLog = append(m.resetLog, tokenHash)
	return nil
}

func (m *mockUserRepo) stored(id string) domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id]
}

type resetMail struct {
	to       string
	url      string
	validFor time.Duration
}

type mockSender struct {
	sent []resetMail
	err  error
}

func (m *mockSender) SendPasswordReset(_ context.Context, toEmail, resetURL string, validFor time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, resetMail{to: toEmail, url: resetURL, validFor: validFor})
	return nil
}

type fixture struct {
	clock     *fakeClock
	repo      *mockUserRepo
	sender    *mockSender
	tokens    *TokenCodec
	resets    *ResetTokenGenerator
	verifier  *CredentialVerifier
	accounts  *AccountStore
	sessions  *SessionIssuer
	guard     *AccessGuard
	passwords *PasswordService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := newFakeClock()
	repo := newMockUserRepo()
	sender := &mockSender{}
	tokens := NewTokenCodec("test-secret", 72*time.Hour, clock.Now)
	resets := NewResetTokenGenerator(10*time.Minute, clock.Now)
	verifier := NewCredentialVerifier()
	accounts := NewAccountStore(repo, NewBcryptHasher(bcrypt.MinCost), clock.Now)
	sessions := NewSessionIssuer(zap.NewNop(), accounts, repo, tokens, verifier, SessionConfig{CookieTTL: 90 * 24 * time.Hour}, clock.Now)
	return &fixture{
		clock:     clock,
		repo:      repo,
		sender:    sender,
		tokens:    tokens,
		resets:    resets,
		verifier:  verifier,
		accounts:  accounts,
		sessions:  sessions,
		guard:     NewAccessGuard(tokens, repo),
		passwords: NewPasswordService(zap.NewNop(), repo, accounts, resets, sender, sessions, verifier, clock.Now),
	}
}

func (f *fixture) signup(t *testing.T, name, email, password string) Session {
	t.Helper()
	session, err := f.sessions.Signup(context.Background(), SignupInput{
		Name:            name,
		Email:           email,
		Password:        password,
		PasswordConfirm: password,
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	return session
}

func assertKind(t *testing.T, err error, want Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := KindOf(err); got != want {
		t.Fatalf("expected kind %s, got %s (%v)", want, got, err)
	}
}

var errBoom = errors.New("boom")
