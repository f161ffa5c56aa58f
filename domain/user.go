package domain

import (
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
)

type User struct {
	Id          uint       `gorm:"primaryKey" json:"id"`
	Pid         string     `gorm:"size:64;not null;unique" json:"pid"`
	Email       string     `gorm:"size:100;not null" json:"email"`
	DisplayName string     `gorm:"size:100" json:"display_name"`
	CreatedAt   *time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   *time.Time `gorm:"default:null" json:"updated_at"`
	Passkeys    []Passkey  `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user_passkeys"`
}

// WebAuthnID returns the user handle stored on the authenticator. The pid is
// the stable external identifier, never the database row id.
func (u User) WebAuthnID() []byte {
	return []byte(u.Pid)
}

func (u User) WebAuthnName() string {
	return u.Email
}

func (u User) WebAuthnDisplayName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}

func (u User) WebAuthnCredentials() []webauthn.Credential {
	creds := make([]webauthn.Credential, 0, len(u.Passkeys))
	for _, p := range u.Passkeys {
		creds = append(creds, p.ToWebAuthnCredential())
	}
	return creds
}
