package repository

import (
	"context"
	"errors"
	"time"

	"forum-auth/internal/domain"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("duplicate email")
)

// LookupOptions controla la proyección de una lectura. El hash de la contraseña
// solo se devuelve cuando se pide explícitamente para verificarla.
type LookupOptions struct {
	IncludePassword bool
}

// WithPassword es la proyección usada por login y cambio de contraseña.
var WithPassword = LookupOptions{IncludePassword: true}

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string, opts LookupOptions) (domain.User, error)
	GetByEmail(ctx context.Context, email string, opts LookupOptions) (domain.User, error)
	// GetByResetToken busca un usuario cuyo hash de reseteo coincide y sigue vigente en now.
	GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (domain.User, error)
	// Save persiste todos los campos mutables del usuario.
	Save(ctx context.Context, user domain.User) error
	// ConsumeReset persiste user como Save, pero solo si el hash de reseteo
	// guardado sigue siendo tokenHash. Si otro request ya lo canjeó devuelve ErrNotFound.
	ConsumeReset(ctx context.Context, user domain.User, tokenHash string) error
	// UpdateResetFields escribe solo los campos de reseteo, sin pasar por validación.
	// Un hash vacío limpia ambos campos.
	UpdateResetFields(ctx context.Context, id, tokenHash string, expiresAt *time.Time) error
}
