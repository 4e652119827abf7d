package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"forum-auth/internal/domain"
	"forum-auth/internal/repository"
)

// SignupInput son los datos de registro tal como llegan del cliente.
type SignupInput struct {
	Name            string `json:"name" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email,max=255"`
	Password        string `json:"password" validate:"required,min=8,max=128"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

type passwordInput struct {
	Password        string `validate:"required,min=8,max=128"`
	PasswordConfirm string `validate:"required,eqfield=Password"`
}

var fieldMessages = map[string]string{
	"Name.required":            "Please tell us your name!",
	"Name.max":                 "A name must have at most 100 characters",
	"Email.required":           "Please provide your email",
	"Email.email":              "Please provide a valid email",
	"Email.max":                "Please provide a valid email",
	"Password.required":        "Please provide a password",
	"Password.min":             "A password must have at least 8 characters",
	"Password.max":             "A password must have at most 128 characters",
	"PasswordConfirm.required": "Please confirm your password",
	"PasswordConfirm.eqfield":  "Passwords are not the same!",
}

// AccountStore aplica las reglas de validación y hashing al crear usuarios
// o cambiar su contraseña; delega la persistencia en UserRepository.
type AccountStore struct {
	users    repository.UserRepository
	hasher   PasswordHasher
	validate *validator.Validate
	now      func() time.Time
}

func NewAccountStore(users repository.UserRepository, hasher PasswordHasher, now func() time.Time) *AccountStore {
	if now == nil {
		now = time.Now
	}
	return &AccountStore{
		users:    users,
		hasher:   hasher,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      now,
	}
}

func (s *AccountStore) Create(ctx context.Context, input SignupInput) (domain.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = normalizeEmail(input.Email)
	if err := s.check(input); err != nil {
		return domain.User{}, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return domain.User{}, internalError("hash password", err)
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return domain.User{}, withCause(ErrDuplicateEmail, err)
		}
		return domain.User{}, internalError("create user", err)
	}
	return user, nil
}

// SetPassword reemplaza la contraseña, limpia cualquier reseteo pendiente y
// marca el cambio un segundo en el pasado para que el token emitido a
// continuación no quede invalidado por su propio cambio.
func (s *AccountStore) SetPassword(ctx context.Context, user domain.User, password, passwordConfirm string) (domain.User, error) {
	return s.setPassword(ctx, user, password, passwordConfirm, s.users.Save, ErrUserGone)
}

// ResetPassword es SetPassword condicionado a que el secreto tokenHash siga
// guardado: de dos canjes concurrentes solo uno persiste.
func (s *AccountStore) ResetPassword(ctx context.Context, user domain.User, tokenHash, password, passwordConfirm string) (domain.User, error) {
	consume := func(ctx context.Context, u domain.User) error {
		return s.users.ConsumeReset(ctx, u, tokenHash)
	}
	return s.setPassword(ctx, user, password, passwordConfirm, consume, ErrInvalidOrExpiredToken)
}

func (s *AccountStore) setPassword(
	ctx context.Context,
	user domain.User,
	password, passwordConfirm string,
	persist func(context.Context, domain.User) error,
	notFound *Error,
) (domain.User, error) {
	if err := s.check(passwordInput{Password: password, PasswordConfirm: passwordConfirm}); err != nil {
		return domain.User{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return domain.User{}, internalError("hash password", err)
	}

	changedAt := s.now().UTC().Add(-time.Second)
	user.PasswordHash = hash
	user.PasswordChangedAt = &changedAt
	user.PasswordResetTokenHash = ""
	user.PasswordResetExpires = nil

	if err := persist(ctx, user); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, withCause(notFound, err)
		}
		return domain.User{}, internalError("save user", err)
	}
	return user, nil
}

func (s *AccountStore) check(input any) error {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return internalError("validate input", err)
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = fe.Field() + " is invalid"
		}
		messages = append(messages, msg)
	}
	return validationError("Invalid input data. " + strings.Join(messages, ". "))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
