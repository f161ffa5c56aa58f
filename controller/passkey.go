package controller

import (
	"encoding/base64"
	"errors"
	"passkey_auth_ms/domain"
	"passkey_auth_ms/dtos/request"
	"passkey_auth_ms/dtos/response"
	"passkey_auth_ms/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type IPasskeyController interface {
	RegisterStart(c *fiber.Ctx) error
	RegisterFinish(c *fiber.Ctx) error
	LoginStart(c *fiber.Ctx) error
	LoginFinish(c *fiber.Ctx) error
	RefreshToken(c *fiber.Ctx) error
	ListPasskeys(c *fiber.Ctx) error
	DeletePasskey(c *fiber.Ctx) error
	DeleteAllPasskeys(c *fiber.Ctx) error
}

type PasskeyController struct {
	service services.IPasskeyService
	logger  *zap.Logger
}

func NewPasskeyController(service services.IPasskeyService, logger *zap.Logger) IPasskeyController {
	return &PasskeyController{service: service, logger: logger}
}

func (pc *PasskeyController) RegisterStart(c *fiber.Ctx) error {
	body := c.Locals("body").(*request.StartPasskeyRegistrationRequest)

	start, err := pc.service.RegisterStart(c.Context(), body)
	if err != nil {
		return pc.errorResponse(c, err)
	}
	return c.JSON(start)
}

func (pc *PasskeyController) RegisterFinish(c *fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing session id"})
	}

	passkey, err := pc.service.RegisterFinish(c.Context(), sessionID, c.Body())
	if err != nil {
		return pc.errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"credential": response.NewPasskeySummary(passkey),
	})
}

func (pc *PasskeyController) LoginStart(c *fiber.Ctx) error {
	body := c.Locals("body").(*request.StartPasskeyLoginRequest)

	start, err := pc.service.LoginStart(c.Context(), body)
	if err != nil {
		return pc.errorResponse(c, err)
	}
	return c.JSON(start)
}

func (pc *PasskeyController) LoginFinish(c *fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing session id"})
	}

	passkey, tokens, err := pc.service.LoginFinish(c.Context(), sessionID, c.Body())
	if err != nil {
		return pc.errorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"credential": response.NewPasskeySummary(passkey),
		"tokens":     tokens,
	})
}

func (pc *PasskeyController) RefreshToken(c *fiber.Ctx) error {
	body := c.Locals("body").(*request.RefreshTokenRequest)

	tokens, err := pc.service.RefreshTokens(c.Context(), body.RefreshToken)
	if err != nil {
		return pc.errorResponse(c, err)
	}
	return c.JSON(tokens)
}

func (pc *PasskeyController) ListPasskeys(c *fiber.Ctx) error {
	userPid, _ := c.Locals("userPid").(string)
	if userPid == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication failed"})
	}

	summaries, err := pc.service.ListPasskeys(userPid)
	if err != nil {
		return pc.errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"passkeys": summaries})
}

func (pc *PasskeyController) DeletePasskey(c *fiber.Ctx) error {
	userPid, _ := c.Locals("userPid").(string)
	if userPid == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication failed"})
	}
	credentialID, err := base64.RawURLEncoding.DecodeString(c.Params("credentialId"))
	if err != nil || len(credentialID) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid credential id"})
	}

	if err := pc.service.DeletePasskey(userPid, credentialID); err != nil {
		return pc.errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (pc *PasskeyController) DeleteAllPasskeys(c *fiber.Ctx) error {
	userPid, _ := c.Locals("userPid").(string)
	if userPid == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication failed"})
	}

	if err := pc.service.DeleteAllPasskeys(userPid); err != nil {
		return pc.errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// errorResponse maps the ceremony error taxonomy to HTTP. UnknownUser and
// UnknownCredential are collapsed into the same generic message as a failed
// assertion so callers cannot enumerate users or credentials; the precise
// cause stays in the server log.
func (pc *PasskeyController) errorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrSessionExpiredOrUnknown):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "session expired or unknown"})
	case errors.Is(err, domain.ErrDuplicateCredential):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "credential already registered"})
	case errors.Is(err, domain.ErrInvalidAttestation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid attestation"})
	case errors.Is(err, domain.ErrUnknownUser),
		errors.Is(err, domain.ErrUnknownCredential),
		errors.Is(err, domain.ErrInvalidAssertion),
		errors.Is(err, domain.ErrReplayDetected):
		pc.logger.Warn("authentication failure", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication failed"})
	default:
		pc.logger.Error("unexpected ceremony error", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
