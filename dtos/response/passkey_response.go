package response

import (
	"encoding/base64"
	"passkey_auth_ms/domain"
	"time"
)

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// CeremonyStart is the reply to both begin calls: the opaque session handle
// plus the browser-facing creation/request options (which carry the challenge
// and the exclude/allow credential lists).
type CeremonyStart struct {
	SessionID string      `json:"session_id"`
	Options   interface{} `json:"options"`
}

type PasskeySummary struct {
	ID             uint       `json:"id"`
	CredentialID   string     `json:"credential_id"`
	DisplayName    *string    `json:"display_name"`
	DeviceType     string     `json:"device_type"`
	BackupEligible bool       `json:"backup_eligible"`
	CreatedAt      *time.Time `json:"created_at"`
	LastUsedAt     *time.Time `json:"last_used_at"`
}

func NewPasskeySummary(p *domain.Passkey) PasskeySummary {
	return PasskeySummary{
		ID:             p.ID,
		CredentialID:   base64.RawURLEncoding.EncodeToString(p.CredentialID),
		DisplayName:    p.DisplayName,
		DeviceType:     p.DeviceType,
		BackupEligible: p.BackupEligible,
		CreatedAt:      p.CreatedAt,
		LastUsedAt:     p.UpdatedAt,
	}
}

func NewPasskeySummaries(passkeys []domain.Passkey) []PasskeySummary {
	summaries := make([]PasskeySummary, 0, len(passkeys))
	for i := range passkeys {
		summaries = append(summaries, NewPasskeySummary(&passkeys[i]))
	}
	return summaries
}
