package service

import (
	"context"
	"errors"
	"strings"

	"forum-auth/internal/domain"
	"forum-auth/internal/repository"
)

// AccessGuard resuelve el usuario actual a partir de un bearer token.
type AccessGuard struct {
	tokens *TokenCodec
	users  repository.UserRepository
}

func NewAccessGuard(tokens *TokenCodec, users repository.UserRepository) *AccessGuard {
	return &AccessGuard{tokens: tokens, users: users}
}

// Authenticate rechaza tokens ausentes, inválidos, expirados, de usuarios
// borrados o emitidos antes del último cambio de contraseña.
func (g *AccessGuard) Authenticate(ctx context.Context, rawToken string) (domain.User, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return domain.User{}, ErrNotLoggedIn
	}

	claims, err := g.tokens.Verify(rawToken)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return domain.User{}, withCause(ErrTokenHasExpired, err)
		}
		return domain.User{}, withCause(ErrBadToken, err)
	}

	user, err := g.users.GetByID(ctx, claims.UserID, repository.LookupOptions{})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, withCause(ErrUserGone, err)
		}
		return domain.User{}, internalError("lookup token user", err)
	}

	if user.ChangedPasswordAfter(claims.IssuedAtTime()) {
		return domain.User{}, ErrPasswordChanged
	}
	return user, nil
}
