package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/samber/oops"
)

// 32 bytes = 64 caracteres hex.
const resetSecretBytes = 32

// ResetTokenGenerator emite secretos de un solo uso para restablecer contraseña.
// Solo el hash sha256 se persiste; el secreto crudo viaja por email.
type ResetTokenGenerator struct {
	window time.Duration
	now    func() time.Time
}

func NewResetTokenGenerator(window time.Duration, now func() time.Time) *ResetTokenGenerator {
	if window <= 0 {
		window = 10 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &ResetTokenGenerator{window: window, now: now}
}

func (g *ResetTokenGenerator) Window() time.Duration { return g.window }

func (g *ResetTokenGenerator) Generate() (raw, hash string, expiresAt time.Time, err error) {
	buf := make([]byte, resetSecretBytes)
	if _, err = rand.Read(buf); err != nil {
		return "", "", time.Time{}, oops.Code("RESET_TOKEN_GENERATE_FAILED").Wrap(err)
	}
	raw = hex.EncodeToString(buf)
	return raw, g.HashOf(raw), g.now().UTC().Add(g.window), nil
}

// HashOf es determinista: el mismo secreto siempre produce el mismo hash de búsqueda.
func (g *ResetTokenGenerator) HashOf(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}
