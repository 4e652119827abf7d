package service

import (
	"errors"

	"github.com/samber/oops"
)

// Kind clasifica los fallos de autenticación; el borde HTTP lo traduce a status.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindDuplicateEmail
	KindMissingCredentials
	KindInvalidCredentials
	KindUnauthenticated
	KindUserNotFound
	KindInvalidOrExpiredToken
	KindWrongCurrentPassword
	KindEmailDeliveryFailure
)

var kindNames = map[Kind]string{
	KindInternal:              "internal",
	KindValidation:            "validation",
	KindDuplicateEmail:        "duplicate_email",
	KindMissingCredentials:    "missing_credentials",
	KindInvalidCredentials:    "invalid_credentials",
	KindUnauthenticated:       "unauthenticated",
	KindUserNotFound:          "user_not_found",
	KindInvalidOrExpiredToken: "invalid_or_expired_token",
	KindWrongCurrentPassword:  "wrong_current_password",
	KindEmailDeliveryFailure:  "email_delivery_failure",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Error es el fallo tipado que devuelven las operaciones del servicio.
// Message es seguro para mostrar al cliente; Err queda solo para logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is compara por Kind y, si el objetivo lo fija, por Message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

var (
	ErrMissingCredentials = &Error{Kind: KindMissingCredentials, Message: "Please provide email and password"}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: "Incorrect email or password"}
	ErrDuplicateEmail     = &Error{Kind: KindDuplicateEmail, Message: "Duplicate email. Please use another value!"}
	ErrMalformedBody      = &Error{Kind: KindValidation, Message: "Invalid request body"}

	ErrNotLoggedIn     = &Error{Kind: KindUnauthenticated, Message: "You are not logged in! Please log in to get access."}
	ErrBadToken        = &Error{Kind: KindUnauthenticated, Message: "Invalid token. Please log in again!"}
	ErrTokenHasExpired = &Error{Kind: KindUnauthenticated, Message: "Your token has expired! Please log in again."}
	ErrUserGone        = &Error{Kind: KindUnauthenticated, Message: "The user belonging to this token does no longer exist."}
	ErrPasswordChanged = &Error{Kind: KindUnauthenticated, Message: "User recently changed password! Please log in again."}

	ErrNoSuchUser            = &Error{Kind: KindUserNotFound, Message: "There is no user with email address."}
	ErrInvalidOrExpiredToken = &Error{Kind: KindInvalidOrExpiredToken, Message: "Token is invalid or has expired"}
	ErrWrongCurrentPassword  = &Error{Kind: KindWrongCurrentPassword, Message: "Your current password is wrong."}
	ErrEmailDelivery         = &Error{Kind: KindEmailDeliveryFailure, Message: "There was an error sending the email. Try again later."}
)

func validationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func withCause(base *Error, err error) *Error {
	return &Error{Kind: base.Kind, Message: base.Message, Err: err}
}

// internalError envuelve fallos de infraestructura conservando el contexto de oops.
func internalError(operation string, err error) *Error {
	return &Error{
		Kind:    KindInternal,
		Message: "Something went wrong!",
		Err:     oops.With("operation", operation).Wrap(err),
	}
}

// KindOf devuelve el Kind de err, o KindInternal si no es un *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage devuelve el mensaje apto para el cliente.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "Something went wrong!"
}
