package domain

import (
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

type Passkey struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UserID          uint       `gorm:"not null;index" json:"user_id"` // foreign key
	CredentialID    []byte     `gorm:"not null;unique" json:"credential_id"`
	PublicKey       []byte     `gorm:"not null" json:"public_key"`
	SignCount       uint32     `gorm:"not null" json:"sign_count"`
	AAGUID          []byte     `gorm:"not null" json:"aa_guid"`
	AttestationType string     `json:"attestation_type"`
	DeviceType      string     `gorm:"size:50" json:"device_type"`
	DisplayName     *string    `gorm:"size:100" json:"display_name"`
	UserVerified    bool       `gorm:"not null;default:false" json:"user_verified"`
	BackupEligible  bool       `gorm:"not null;default:false" json:"backup_eligible"`
	BackupState     bool       `gorm:"not null;default:false" json:"backup_state"`
	CreatedAt       *time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       *time.Time `gorm:"default:null" json:"updated_at"`
}

func (Passkey) TableName() string {
	return "user_passkeys"
}

// ToWebAuthnCredential rebuilds the library-level credential used for
// exclusion lists and assertion verification.
func (p Passkey) ToWebAuthnCredential() webauthn.Credential {
	return webauthn.Credential{
		ID:              p.CredentialID,
		PublicKey:       p.PublicKey,
		AttestationType: p.AttestationType,
		Flags: webauthn.CredentialFlags{
			UserVerified:   p.UserVerified,
			BackupEligible: p.BackupEligible,
			BackupState:    p.BackupState,
		},
		Authenticator: webauthn.Authenticator{
			AAGUID:    p.AAGUID,
			SignCount: p.SignCount,
		},
	}
}

// NewPasskeyFromCredential builds the stored row from a credential the
// ceremony engine just verified. A zero sign count is kept as-is: it means
// the authenticator does not implement counters.
func NewPasskeyFromCredential(userID uint, cred *webauthn.Credential, displayName *string) *Passkey {
	return &Passkey{
		UserID:          userID,
		CredentialID:    cred.ID,
		PublicKey:       cred.PublicKey,
		SignCount:       cred.Authenticator.SignCount,
		AAGUID:          cred.Authenticator.AAGUID,
		AttestationType: cred.AttestationType,
		DeviceType:      deviceType(cred.Authenticator.Attachment),
		DisplayName:     displayName,
		UserVerified:    cred.Flags.UserVerified,
		BackupEligible:  cred.Flags.BackupEligible,
		BackupState:     cred.Flags.BackupState,
	}
}

func deviceType(attachment protocol.AuthenticatorAttachment) string {
	if attachment == "" {
		return "unknown"
	}
	return string(attachment)
}
