package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestUserChangedPasswordAfter(t *testing.T) {
	changed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	user := User{ID: "u1", PasswordChangedAt: &changed}

	if !user.ChangedPasswordAfter(changed.Add(-time.Minute)) {
		t.Fatalf("token issued before the change must be stale")
	}
	if !user.ChangedPasswordAfter(changed.Add(300 * time.Millisecond)) {
		t.Fatalf("token issued in the same second must be stale")
	}
	if user.ChangedPasswordAfter(changed.Add(time.Second)) {
		t.Fatalf("token issued after the change must be fresh")
	}
}

func TestUserChangedPasswordAfter_NeverChanged(t *testing.T) {
	user := User{ID: "u1"}
	if user.ChangedPasswordAfter(time.Now()) {
		t.Fatalf("user without password change must never be stale")
	}
}

func TestUserJSONHidesCredentials(t *testing.T) {
	expires := time.Now().Add(time.Minute)
	user := User{
		ID:                     "u1",
		Email:                  "a@x.com",
		PasswordHash:           "hash",
		PasswordResetTokenHash: "reset",
		PasswordResetExpires:   &expires,
	}
	raw, err := json.Marshal(user)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(raw)
	for _, leaked := range []string{"hash", "reset", "password_reset"} {
		if strings.Contains(body, leaked) {
			t.Fatalf("json leaked %q: %s", leaked, body)
		}
	}
}

func TestUserHasPendingReset(t *testing.T) {
	now := time.Now().UTC()
	future := now.Add(5 * time.Minute)
	past := now.Add(-time.Second)

	if (User{PasswordResetTokenHash: "h", PasswordResetExpires: &future}).HasPendingReset(now) != true {
		t.Fatalf("expected pending reset")
	}
	if (User{PasswordResetTokenHash: "h", PasswordResetExpires: &past}).HasPendingReset(now) {
		t.Fatalf("expired reset must not be pending")
	}
	if (User{PasswordResetExpires: &future}).HasPendingReset(now) {
		t.Fatalf("reset without hash must not be pending")
	}
}
