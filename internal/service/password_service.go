package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"forum-auth/internal/email"
	"forum-auth/internal/repository"
)

const resetPathPrefix = "/auth/resetPassword/"

// PasswordService cubre olvido, reseteo y cambio de contraseña.
type PasswordService struct {
	logger   *zap.Logger
	users    repository.UserRepository
	accounts *AccountStore
	resets   *ResetTokenGenerator
	sender   email.Sender
	sessions *SessionIssuer
	verifier *CredentialVerifier
	now      func() time.Time
}

func NewPasswordService(
	logger *zap.Logger,
	users repository.UserRepository,
	accounts *AccountStore,
	resets *ResetTokenGenerator,
	sender email.Sender,
	sessions *SessionIssuer,
	verifier *CredentialVerifier,
	now func() time.Time,
) *PasswordService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &PasswordService{
		logger:   logger,
		users:    users,
		accounts: accounts,
		resets:   resets,
		sender:   sender,
		sessions: sessions,
		verifier: verifier,
		now:      now,
	}
}

// Forgot genera un secreto de reseteo y lo envía por email. Si el envío
// falla, los campos de reseteo se limpian antes de devolver el error.
func (s *PasswordService) Forgot(ctx context.Context, emailAddr, baseURL string) error {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return validationError("Please provide your email")
	}

	user, err := s.users.GetByEmail(ctx, emailAddr, repository.LookupOptions{})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoSuchUser
		}
		return internalError("lookup user by email", err)
	}

	raw, hash, expiresAt, err := s.resets.Generate()
	if err != nil {
		return internalError("generate reset token", err)
	}
	if err := s.users.UpdateResetFields(ctx, user.ID, hash, &expiresAt); err != nil {
		return internalError("store reset token", err)
	}

	resetURL := strings.TrimRight(baseURL, "/") + resetPathPrefix + raw
	sendErr := errors.New("email sender not configured")
	if s.sender != nil {
		sendErr = s.sender.SendPasswordReset(ctx, user.Email, resetURL, s.resets.Window())
	}
	if sendErr == nil {
		s.logger.Info("password reset requested", zap.String("user_id", user.ID))
		return nil
	}

	s.logger.Warn("send password reset failed", zap.Error(sendErr), zap.String("user_id", user.ID))
	if err := s.users.UpdateResetFields(context.WithoutCancel(ctx), user.ID, "", nil); err != nil {
		s.logger.Error("rollback reset token failed", zap.Error(err), zap.String("user_id", user.ID))
	}
	return withCause(ErrEmailDelivery, sendErr)
}

// Reset canjea un secreto vigente por una contraseña nueva y una sesión.
func (s *PasswordService) Reset(ctx context.Context, rawToken, password, passwordConfirm string) (Session, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return Session{}, ErrInvalidOrExpiredToken
	}

	now := s.now().UTC()
	tokenHash := s.resets.HashOf(rawToken)
	user, err := s.users.GetByResetToken(ctx, tokenHash, now)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, ErrInvalidOrExpiredToken
		}
		return Session{}, internalError("lookup user by reset token", err)
	}
	if !user.HasPendingReset(now) {
		return Session{}, ErrInvalidOrExpiredToken
	}

	updated, err := s.accounts.ResetPassword(ctx, user, tokenHash, password, passwordConfirm)
	if err != nil {
		return Session{}, err
	}
	s.logger.Info("password reset", zap.String("user_id", updated.ID))
	return s.sessions.Issue(updated)
}

// Update exige la contraseña actual antes de aceptar la nueva.
func (s *PasswordService) Update(ctx context.Context, userID, currentPassword, password, passwordConfirm string) (Session, error) {
	user, err := s.users.GetByID(ctx, userID, repository.WithPassword)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, withCause(ErrUserGone, err)
		}
		return Session{}, internalError("lookup user by id", err)
	}

	if !s.verifier.Matches(currentPassword, user.PasswordHash) {
		return Session{}, ErrWrongCurrentPassword
	}

	updated, err := s.accounts.SetPassword(ctx, user, password, passwordConfirm)
	if err != nil {
		return Session{}, err
	}
	s.logger.Info("password updated", zap.String("user_id", updated.ID))
	return s.sessions.Issue(updated)
}
