package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims es el payload del bearer token: {id, email, iat, exp}.
type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

func (c Claims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// TokenCodec firma y valida tokens HS256 sin estado en servidor.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewTokenCodec(secret string, ttl time.Duration, now func() time.Time) *TokenCodec {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &TokenCodec{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: "forum-auth",
		now:    now,
	}
}

// Issue firma un token para el usuario y devuelve también su expiración.
func (c *TokenCodec) Issue(userID, email string) (string, time.Time, error) {
	if len(c.secret) == 0 || strings.TrimSpace(userID) == "" {
		return "", time.Time{}, ErrTokenInvalid
	}
	now := c.now().UTC()
	expiresAt := now.Add(c.ttl)
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify no toca ningún store: solo firma, estructura, emisor y expiración.
func (c *TokenCodec) Verify(tokenString string) (Claims, error) {
	if len(c.secret) == 0 || strings.TrimSpace(tokenString) == "" {
		return Claims{}, ErrTokenInvalid
	}
	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	if strings.TrimSpace(claims.UserID) == "" || claims.Subject != claims.UserID || claims.IssuedAt == nil {
		return Claims{}, ErrTokenInvalid
	}
	return claims, nil
}
