package main

import (
	"passkey_auth_ms/config"
	"passkey_auth_ms/controller"
	"passkey_auth_ms/dtos/request"
	"passkey_auth_ms/middleware"
	"passkey_auth_ms/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Server struct {
	PasskeyController controller.IPasskeyController
	JwtService        services.IJWTService
	Limiter           *middleware.SlidingWindowLimiter
	Logger            *zap.Logger
}

// NOTE: Server Constructor
func NewServer(
	passkeyController controller.IPasskeyController,
	jwtService services.IJWTService,
	limiter *middleware.SlidingWindowLimiter,
	logger *zap.Logger,
) *Server {
	return &Server{
		PasskeyController: passkeyController,
		JwtService:        jwtService,
		Limiter:           limiter,
		Logger:            logger,
	}
}

// NOTE: Start Fiber Server
func (s *Server) Start() *fiber.App {
	app := fiber.New()

	app.Use(middleware.RecoveryMiddleware(s.Logger))
	app.Use(middleware.SecurityHeaders())
	app.Use(middleware.LoggingMiddleware(s.Logger))

	// NOTE: Define API paths (context path and grouping by version)
	contextPath := app.Group(config.Conf.Application.Server.ContextPath)
	apiVersion := contextPath.Group(config.Conf.Application.Server.ApiVersion)

	// Every authentication-sensitive route sits behind the rate limiter.
	authGroup := apiVersion.Group("/auth", middleware.RateLimiter(s.Limiter))
	authGroup.Post("/passkeys/register/start", middleware.ValidateBody[request.StartPasskeyRegistrationRequest](), s.PasskeyController.RegisterStart)
	authGroup.Post("/passkeys/register/finish/:sessionId", s.PasskeyController.RegisterFinish)
	authGroup.Post("/passkeys/login/start", middleware.ValidateBody[request.StartPasskeyLoginRequest](), s.PasskeyController.LoginStart)
	authGroup.Post("/passkeys/login/finish/:sessionId", s.PasskeyController.LoginFinish)
	authGroup.Post("/refresh-token", middleware.ValidateBody[request.RefreshTokenRequest](), s.PasskeyController.RefreshToken)

	passkeyGroup := apiVersion.Group("/passkeys", middleware.RateLimiter(s.Limiter), middleware.AuthMiddleware(s.JwtService))
	passkeyGroup.Get("/", s.PasskeyController.ListPasskeys)
	passkeyGroup.Delete("/", s.PasskeyController.DeleteAllPasskeys)
	passkeyGroup.Delete("/:credentialId", s.PasskeyController.DeletePasskey)

	return app
}
