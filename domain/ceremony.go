package domain

// CeremonyKind distinguishes the two WebAuthn ceremonies sharing one session
// table shape.
type CeremonyKind string

const (
	CeremonyRegistration   CeremonyKind = "registration"
	CeremonyAuthentication CeremonyKind = "authentication"
)
