package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"passkey_auth_ms/domain"
	"passkey_auth_ms/dtos/request"
	"passkey_auth_ms/dtos/response"
	"passkey_auth_ms/repository"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type IPasskeyService interface {
	RegisterStart(ctx context.Context, req *request.StartPasskeyRegistrationRequest) (*response.CeremonyStart, error)
	RegisterFinish(ctx context.Context, sessionID string, body []byte) (*domain.Passkey, error)
	LoginStart(ctx context.Context, req *request.StartPasskeyLoginRequest) (*response.CeremonyStart, error)
	LoginFinish(ctx context.Context, sessionID string, body []byte) (*domain.Passkey, *response.Tokens, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*response.Tokens, error)
	ListPasskeys(userPid string) ([]response.PasskeySummary, error)
	DeletePasskey(userPid string, credentialID []byte) error
	DeleteAllPasskeys(userPid string) error
}

// webauthnProvider is the slice of *webauthn.WebAuthn the ceremony engine
// uses, narrowed so tests can stub the cryptographic verification.
type webauthnProvider interface {
	BeginRegistration(user webauthn.User, opts ...webauthn.RegistrationOption) (*protocol.CredentialCreation, *webauthn.SessionData, error)
	CreateCredential(user webauthn.User, session webauthn.SessionData, response *protocol.ParsedCredentialCreationData) (*webauthn.Credential, error)
	BeginLogin(user webauthn.User, opts ...webauthn.LoginOption) (*protocol.CredentialAssertion, *webauthn.SessionData, error)
	BeginDiscoverableLogin(opts ...webauthn.LoginOption) (*protocol.CredentialAssertion, *webauthn.SessionData, error)
	ValidateLogin(user webauthn.User, session webauthn.SessionData, response *protocol.ParsedCredentialAssertionData) (*webauthn.Credential, error)
	ValidateDiscoverableLogin(handler webauthn.DiscoverableUserHandler, session webauthn.SessionData, response *protocol.ParsedCredentialAssertionData) (*webauthn.Credential, error)
}

// credentialParser narrows the wire-format parsing entry points, mirroring
// webauthnProvider.
type credentialParser interface {
	ParseCredentialCreationResponseBytes(data []byte) (*protocol.ParsedCredentialCreationData, error)
	ParseCredentialRequestResponseBytes(data []byte) (*protocol.ParsedCredentialAssertionData, error)
}

type defaultCredentialParser struct{}

func (defaultCredentialParser) ParseCredentialCreationResponseBytes(data []byte) (*protocol.ParsedCredentialCreationData, error) {
	return protocol.ParseCredentialCreationResponseBytes(data)
}

func (defaultCredentialParser) ParseCredentialRequestResponseBytes(data []byte) (*protocol.ParsedCredentialAssertionData, error) {
	return protocol.ParseCredentialRequestResponseBytes(data)
}

type PasskeyServiceConfig struct {
	SessionTTL time.Duration
	RefreshTTL time.Duration
}

// PasskeyService orchestrates the two WebAuthn ceremonies. Each ceremony is
// bounded by one single-use session: Take consumes it before any
// verification happens, so a failed finish can never be retried with the
// same challenge.
type PasskeyService struct {
	wa          webauthnProvider
	parser      credentialParser
	db          *gorm.DB
	userRepo    repository.IUserRepository
	passkeyRepo repository.IPasskeyRepository
	sessions    ISessionStore
	jwtService  IJWTService
	redis       IRedisService
	events      IEventProducer
	logger      *zap.Logger
	cfg         PasskeyServiceConfig
}

func NewPasskeyService(
	wa *webauthn.WebAuthn,
	db *gorm.DB,
	userRepo repository.IUserRepository,
	passkeyRepo repository.IPasskeyRepository,
	sessions ISessionStore,
	jwtService IJWTService,
	redis IRedisService,
	events IEventProducer,
	logger *zap.Logger,
	cfg PasskeyServiceConfig,
) IPasskeyService {
	return &PasskeyService{
		wa:          wa,
		parser:      defaultCredentialParser{},
		db:          db,
		userRepo:    userRepo,
		passkeyRepo: passkeyRepo,
		sessions:    sessions,
		jwtService:  jwtService,
		redis:       redis,
		events:      events,
		logger:      logger,
		cfg:         cfg,
	}
}

// RegisterStart begins a registration ceremony for a known user. The
// exclusion list carries all credentials the user already owns so the
// authenticator refuses to re-register the same physical key.
func (ps *PasskeyService) RegisterStart(ctx context.Context, req *request.StartPasskeyRegistrationRequest) (*response.CeremonyStart, error) {
	user, err := ps.userRepo.GetByPidWithPasskeys(ps.db, req.UserPid)
	if err != nil {
		return nil, err
	}

	var opts []webauthn.RegistrationOption
	if len(user.Passkeys) > 0 {
		opts = append(opts, webauthn.WithExclusions(exclusionList(user.Passkeys)))
	}

	creation, sessionData, err := ps.wa.BeginRegistration(user, opts...)
	if err != nil {
		return nil, fmt.Errorf("begin registration: %w", err)
	}

	sessionID, err := ps.sessions.Create(ctx, domain.CeremonyRegistration, user.Pid, req.DisplayName, sessionData, ps.cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("store ceremony session: %w", err)
	}

	return &response.CeremonyStart{SessionID: sessionID, Options: creation}, nil
}

// RegisterFinish consumes the ceremony session, verifies the attestation
// against its challenge and persists the new credential. No store mutation
// happens on any failure path.
func (ps *PasskeyService) RegisterFinish(ctx context.Context, sessionID string, body []byte) (*domain.Passkey, error) {
	session, err := ps.takeSession(ctx, sessionID, domain.CeremonyRegistration)
	if err != nil {
		return nil, err
	}

	user, err := ps.userRepo.GetByPidWithPasskeys(ps.db, session.UserPid)
	if err != nil {
		return nil, err
	}

	parsed, err := ps.parser.ParseCredentialCreationResponseBytes(body)
	if err != nil {
		ps.logger.Warn("attestation response did not parse", zap.String("user_pid", user.Pid), zap.Error(err))
		return nil, domain.ErrInvalidAttestation
	}
	cred, err := ps.wa.CreateCredential(user, session.Data, parsed)
	if err != nil {
		ps.logger.Warn("attestation verification failed", zap.String("user_pid", user.Pid), zap.Error(err))
		return nil, domain.ErrInvalidAttestation
	}

	var displayName *string
	if session.DeviceName != "" {
		displayName = &session.DeviceName
	}
	passkey := domain.NewPasskeyFromCredential(user.Id, cred, displayName)
	if err := ps.passkeyRepo.Create(ps.db, passkey); err != nil {
		return nil, err
	}

	ps.publishRegistered(user.Pid, passkey)
	return passkey, nil
}

// LoginStart begins an authentication ceremony. With a user id the allow
// list names that user's credentials; without one a discoverable-credential
// session is created and the authenticator picks the credential itself.
func (ps *PasskeyService) LoginStart(ctx context.Context, req *request.StartPasskeyLoginRequest) (*response.CeremonyStart, error) {
	var (
		assertion   *protocol.CredentialAssertion
		sessionData *webauthn.SessionData
	)

	if req.UserPid != "" {
		user, err := ps.userRepo.GetByPidWithPasskeys(ps.db, req.UserPid)
		if err != nil {
			return nil, err
		}
		assertion, sessionData, err = ps.wa.BeginLogin(user)
		if err != nil {
			return nil, fmt.Errorf("begin login: %w", err)
		}
	} else {
		var err error
		assertion, sessionData, err = ps.wa.BeginDiscoverableLogin()
		if err != nil {
			return nil, fmt.Errorf("begin discoverable login: %w", err)
		}
	}

	sessionID, err := ps.sessions.Create(ctx, domain.CeremonyAuthentication, req.UserPid, "", sessionData, ps.cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("store ceremony session: %w", err)
	}

	return &response.CeremonyStart{SessionID: sessionID, Options: assertion}, nil
}

// LoginFinish consumes the session, verifies the assertion signature against
// the stored public key and the session challenge, applies the replay
// policy, then issues a token pair.
//
// Replay policy: a stored and reported counter of 0/0 means the
// authenticator does not implement counters and is accepted unconditionally
// (replay is not detectable for that class of device). Otherwise the
// reported counter must strictly exceed the stored one.
func (ps *PasskeyService) LoginFinish(ctx context.Context, sessionID string, body []byte) (*domain.Passkey, *response.Tokens, error) {
	session, err := ps.takeSession(ctx, sessionID, domain.CeremonyAuthentication)
	if err != nil {
		return nil, nil, err
	}

	parsed, err := ps.parser.ParseCredentialRequestResponseBytes(body)
	if err != nil {
		ps.logger.Warn("assertion response did not parse", zap.Error(err))
		return nil, nil, domain.ErrInvalidAssertion
	}

	stored, err := ps.passkeyRepo.GetByCredentialID(ps.db, parsed.RawID)
	if err != nil {
		return nil, nil, err
	}
	user, err := ps.userRepo.GetByIDWithPasskeys(ps.db, stored.UserID)
	if err != nil {
		return nil, nil, err
	}

	if session.UserPid == "" {
		_, err = ps.wa.ValidateDiscoverableLogin(func(rawID, userHandle []byte) (webauthn.User, error) {
			return user, nil
		}, session.Data, parsed)
	} else {
		if session.UserPid != user.Pid {
			// session was begun for a different user than the asserting credential
			return nil, nil, domain.ErrSessionExpiredOrUnknown
		}
		_, err = ps.wa.ValidateLogin(user, session.Data, parsed)
	}
	if err != nil {
		ps.logger.Warn("assertion verification failed",
			zap.String("user_pid", user.Pid),
			zap.Error(err))
		return nil, nil, domain.ErrInvalidAssertion
	}

	reported := parsed.Response.AuthenticatorData.Counter
	switch {
	case stored.SignCount == 0 && reported == 0:
		// counter-less authenticator, accepted by policy
	case reported > stored.SignCount:
		if err := ps.passkeyRepo.UpdateSignCount(ps.db, stored.CredentialID, reported); err != nil {
			if errors.Is(err, domain.ErrReplayDetected) {
				ps.reportReplay(user.Pid, stored, reported)
			}
			return nil, nil, err
		}
		stored.SignCount = reported
	default:
		ps.reportReplay(user.Pid, stored, reported)
		return nil, nil, domain.ErrReplayDetected
	}

	tokens, err := ps.jwtService.GenerateTokens(user)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}
	if err := ps.redis.SetRefreshToken(ctx, user.Pid, tokens.RefreshToken, ps.cfg.RefreshTTL); err != nil {
		return nil, nil, fmt.Errorf("store refresh token: %w", err)
	}

	ps.publishAuthenticated(user.Pid, stored)
	return stored, tokens, nil
}

// RefreshTokens rotates a token pair. The presented refresh token has to
// match the one held in redis for the user.
func (ps *PasskeyService) RefreshTokens(ctx context.Context, refreshToken string) (*response.Tokens, error) {
	token, err := ps.jwtService.ParseJWT(refreshToken)
	if err != nil {
		return nil, domain.ErrInvalidAssertion
	}
	claims, err := ps.jwtService.GetClaims(token)
	if err != nil {
		return nil, domain.ErrInvalidAssertion
	}
	pid, ok := claims["sub"].(string)
	if !ok || pid == "" {
		return nil, domain.ErrInvalidAssertion
	}

	current, err := ps.redis.GetRefreshToken(ctx, pid)
	if err != nil || current != refreshToken {
		return nil, domain.ErrInvalidAssertion
	}

	user, err := ps.userRepo.GetByPid(ps.db, pid)
	if err != nil {
		return nil, err
	}
	tokens, err := ps.jwtService.GenerateTokens(user)
	if err != nil {
		return nil, err
	}
	if err := ps.redis.SetRefreshToken(ctx, user.Pid, tokens.RefreshToken, ps.cfg.RefreshTTL); err != nil {
		return nil, err
	}
	return tokens, nil
}

func (ps *PasskeyService) ListPasskeys(userPid string) ([]response.PasskeySummary, error) {
	user, err := ps.userRepo.GetByPid(ps.db, userPid)
	if err != nil {
		return nil, err
	}
	passkeys, err := ps.passkeyRepo.GetByUserID(ps.db, user.Id)
	if err != nil {
		return nil, err
	}
	return response.NewPasskeySummaries(passkeys), nil
}

// DeletePasskey removes one credential, refusing to touch credentials owned
// by someone else.
func (ps *PasskeyService) DeletePasskey(userPid string, credentialID []byte) error {
	user, err := ps.userRepo.GetByPid(ps.db, userPid)
	if err != nil {
		return err
	}
	passkey, err := ps.passkeyRepo.GetByCredentialID(ps.db, credentialID)
	if err != nil {
		return err
	}
	if passkey.UserID != user.Id {
		return domain.ErrUnknownCredential
	}
	return ps.passkeyRepo.Delete(ps.db, credentialID)
}

func (ps *PasskeyService) DeleteAllPasskeys(userPid string) error {
	user, err := ps.userRepo.GetByPid(ps.db, userPid)
	if err != nil {
		return err
	}
	return ps.passkeyRepo.DeleteAllForUser(ps.db, user.Id)
}

func (ps *PasskeyService) takeSession(ctx context.Context, sessionID string, kind domain.CeremonyKind) (*CeremonySession, error) {
	session, err := ps.sessions.Take(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("take ceremony session: %w", err)
	}
	if session == nil || session.Kind != kind {
		return nil, domain.ErrSessionExpiredOrUnknown
	}
	return session, nil
}

func (ps *PasskeyService) reportReplay(userPid string, stored *domain.Passkey, reported uint32) {
	credID := base64.RawURLEncoding.EncodeToString(stored.CredentialID)
	ps.logger.Error("sign counter replay detected, credential may be cloned",
		zap.String("user_pid", userPid),
		zap.String("credential_id", credID),
		zap.Uint32("stored_count", stored.SignCount),
		zap.Uint32("reported_count", reported),
	)
	if ps.events == nil {
		return
	}
	err := ps.events.ReplayDetected(&request.ReplayDetectedEvent{
		UserPid:       userPid,
		CredentialID:  credID,
		StoredCount:   stored.SignCount,
		ReportedCount: reported,
		At:            time.Now(),
	})
	if err != nil {
		ps.logger.Warn("failed to publish replay event", zap.Error(err))
	}
}

func (ps *PasskeyService) publishRegistered(userPid string, passkey *domain.Passkey) {
	if ps.events == nil {
		return
	}
	err := ps.events.PasskeyRegistered(&request.PasskeyRegisteredEvent{
		UserPid:      userPid,
		CredentialID: base64.RawURLEncoding.EncodeToString(passkey.CredentialID),
		DeviceType:   passkey.DeviceType,
		At:           time.Now(),
	})
	if err != nil {
		ps.logger.Warn("failed to publish registration event", zap.Error(err))
	}
}

func (ps *PasskeyService) publishAuthenticated(userPid string, passkey *domain.Passkey) {
	if ps.events == nil {
		return
	}
	err := ps.events.PasskeyAuthenticated(&request.PasskeyAuthenticatedEvent{
		UserPid:      userPid,
		CredentialID: base64.RawURLEncoding.EncodeToString(passkey.CredentialID),
		At:           time.Now(),
	})
	if err != nil {
		ps.logger.Warn("failed to publish authentication event", zap.Error(err))
	}
}

func exclusionList(passkeys []domain.Passkey) []protocol.CredentialDescriptor {
	descriptors := make([]protocol.CredentialDescriptor, 0, len(passkeys))
	for _, p := range passkeys {
		descriptors = append(descriptors, p.ToWebAuthnCredential().Descriptor())
	}
	return descriptors
}
