package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"forum-auth/internal/domain"
	"forum-auth/internal/repository"
)

const SessionCookieName = "jwt"

// CookieDirective describe la cookie que el transporte debe fijar.
type CookieDirective struct {
	Name     string
	Value    string
	Expires  time.Time
	HTTPOnly bool
	Secure   bool
}

// Session es el resultado de un login, signup o cambio de contraseña.
type Session struct {
	Token  string
	Cookie CookieDirective
	User   domain.UserView
}

type SessionConfig struct {
	CookieTTL    time.Duration
	SecureCookie bool
}

// SessionIssuer orquesta signup y login y emite el token con su cookie.
type SessionIssuer struct {
	logger    *zap.Logger
	accounts  *AccountStore
	users     repository.UserRepository
	tokens    *TokenCodec
	verifier  *CredentialVerifier
	cookieTTL time.Duration
	secure    bool
	now       func() time.Time

	decoyOnce sync.Once
	decoyHash string
}

func NewSessionIssuer(
	logger *zap.Logger,
	accounts *AccountStore,
	users repository.UserRepository,
	tokens *TokenCodec,
	verifier *CredentialVerifier,
	cfg SessionConfig,
	now func() time.Time,
) *SessionIssuer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CookieTTL <= 0 {
		cfg.CookieTTL = 90 * 24 * time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &SessionIssuer{
		logger:    logger,
		accounts:  accounts,
		users:     users,
		tokens:    tokens,
		verifier:  verifier,
		cookieTTL: cfg.CookieTTL,
		secure:    cfg.SecureCookie,
		now:       now,
	}
}

func (s *SessionIssuer) Signup(ctx context.Context, input SignupInput) (Session, error) {
	user, err := s.accounts.Create(ctx, input)
	if err != nil {
		return Session{}, err
	}
	s.logger.Info("user signed up", zap.String("user_id", user.ID))
	return s.Issue(user)
}

// Login responde igual ante email desconocido y contraseña incorrecta.
func (s *SessionIssuer) Login(ctx context.Context, emailAddr, password string) (Session, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return Session{}, ErrMissingCredentials
	}

	user, err := s.users.GetByEmail(ctx, emailAddr, repository.WithPassword)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.verifier.Matches(password, s.decoy())
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, internalError("lookup user by email", err)
	}
	if !s.verifier.Matches(password, user.PasswordHash) {
		return Session{}, ErrInvalidCredentials
	}
	return s.Issue(user)
}

// Issue firma un token para user y arma la directiva de cookie.
func (s *SessionIssuer) Issue(user domain.User) (Session, error) {
	token, _, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return Session{}, internalError("issue token", err)
	}
	return Session{
		Token: token,
		Cookie: CookieDirective{
			Name:     SessionCookieName,
			Value:    token,
			Expires:  s.now().UTC().Add(s.cookieTTL),
			HTTPOnly: true,
			Secure:   s.secure,
		},
		User: user.View(),
	}, nil
}

// decoy es un hash real contra el que se compara cuando el email no existe,
// para que ambos caminos de login tarden lo mismo.
func (s *SessionIssuer) decoy() string {
	s.decoyOnce.Do(func() {
		hash, err := s.accounts.hasher.Hash(strings.Repeat("x", 16))
		if err != nil {
			s.logger.Warn("decoy hash failed", zap.Error(err))
			return
		}
		s.decoyHash = hash
	})
	return s.decoyHash
}
