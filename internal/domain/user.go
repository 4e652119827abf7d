package domain

import "time"

// User es el registro persistido por el store de usuarios.
type User struct {
	ID                     string     `json:"id" bson:"_id"`
	Name                   string     `json:"name" bson:"name"`
	Email                  string     `json:"email" bson:"email"`
	PasswordHash           string     `json:"-" bson:"password_hash,omitempty"`
	PasswordChangedAt      *time.Time `json:"password_changed_at,omitempty" bson:"password_changed_at,omitempty"`
	PasswordResetTokenHash string     `json:"-" bson:"password_reset_token,omitempty"`
	PasswordResetExpires   *time.Time `json:"-" bson:"password_reset_expires,omitempty"`
	CreatedAt              time.Time  `json:"created_at" bson:"created_at"`
}

// UserView es la representación pública: nunca lleva credenciales.
type UserView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (u User) View() UserView {
	return UserView{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// ChangedPasswordAfter reports whether a token issued at issuedAt predates the
// last password change. Comparison uses whole seconds, the precision of a JWT iat.
func (u User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.Unix() <= u.PasswordChangedAt.Unix()
}

// HasPendingReset indica si hay un secreto de reseteo vigente en now.
func (u User) HasPendingReset(now time.Time) bool {
	return u.PasswordResetTokenHash != "" &&
		u.PasswordResetExpires != nil &&
		u.PasswordResetExpires.After(now)
}
