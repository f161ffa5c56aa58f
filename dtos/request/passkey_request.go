package request

type StartPasskeyRegistrationRequest struct {
	UserPid     string `json:"user_id" validate:"required,uuid4"`
	DisplayName string `json:"display_name" validate:"omitempty,max=100"`
}

// StartPasskeyLoginRequest with an empty user id begins a discoverable
// credential flow: the authenticator names the credential itself.
type StartPasskeyLoginRequest struct {
	UserPid string `json:"user_id" validate:"omitempty,uuid4"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}
