package request

import "time"

// Security events published to kafka for the notification/audit consumers.
// Credential IDs are base64url encoded before leaving the process.

type PasskeyRegisteredEvent struct {
	UserPid      string    `json:"user_pid"`
	CredentialID string    `json:"credential_id"`
	DeviceType   string    `json:"device_type"`
	At           time.Time `json:"at"`
}

type PasskeyAuthenticatedEvent struct {
	UserPid      string    `json:"user_pid"`
	CredentialID string    `json:"credential_id"`
	At           time.Time `json:"at"`
}

type ReplayDetectedEvent struct {
	UserPid       string    `json:"user_pid"`
	CredentialID  string    `json:"credential_id"`
	StoredCount   uint32    `json:"stored_count"`
	ReportedCount uint32    `json:"reported_count"`
	At            time.Time `json:"at"`
}
