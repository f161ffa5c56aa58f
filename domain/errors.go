package domain

import "errors"

// Ceremony error taxonomy. Every failure is terminal for the current attempt;
// the caller has to begin a new ceremony. UnknownUser and UnknownCredential
// must never reach the caller verbatim, they exist for logging only.
var (
	ErrUnknownUser             = errors.New("unknown user")
	ErrDuplicateCredential     = errors.New("credential already registered")
	ErrSessionExpiredOrUnknown = errors.New("ceremony session expired or unknown")
	ErrInvalidAttestation      = errors.New("invalid attestation response")
	ErrUnknownCredential       = errors.New("unknown credential")
	ErrInvalidAssertion        = errors.New("invalid assertion response")
	ErrReplayDetected          = errors.New("sign counter replay detected")
	ErrRateLimited             = errors.New("too many requests")
)
