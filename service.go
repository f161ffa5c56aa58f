package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"passkey_auth_ms/config"
	"passkey_auth_ms/controller"
	"passkey_auth_ms/middleware"
	"passkey_auth_ms/repository"
	"passkey_auth_ms/services"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type service struct {
	//DB
	dbConnection *gorm.DB

	//Redis Client
	redisClient *redis.Client

	//WebAuthn Conf
	webAuthn *webauthn.WebAuthn

	// Logger
	logger *zap.Logger

	// Repository
	userRepository    repository.IUserRepository
	passkeyRepository repository.IPasskeyRepository

	// Service
	sessionStore   services.ISessionStore
	redisService   services.IRedisService
	jwtService     services.IJWTService
	eventProducer  services.IEventProducer
	passkeyService services.IPasskeyService

	// Controller
	passkeyController controller.IPasskeyController

	// Background tasks
	sweeper     *services.SessionSweeper
	rateLimiter *middleware.SlidingWindowLimiter
	janitorStop chan struct{}
}

// NOTE: Service Start
func (s *service) Start() {
	log.Info("Opening database connection...")
	s.dbConnection = config.OpenDatabaseConnection(config.Conf.Application.Datasource.PrimaryURL)
	config.Migrate(config.Conf.Application.Datasource.PrimaryURL)

	log.Info("Opening redis connection...")
	s.redisClient = config.ConnectToRedis(config.Conf.Application.Redis.Host)

	log.Info("WebAuthn config")
	s.webAuthn = config.InitWebAuthn()

	s.logger = config.InitLogger()
	middleware.InitValidator()

	// NOTE: Dependency Injections
	s.DependencyInjection()

	s.sweeper.Start()
	s.startLimiterJanitor()

	// NOTE: Start Fiber server...
	app := NewServer(s.passkeyController, s.jwtService, s.rateLimiter, s.logger).Start()

	log.Info("Server starting..")
	go func() {
		if err := app.Listen(config.Conf.Application.Server.Port); err != nil {
			log.Fatal("Server failed to start")
		}
	}()
	// NOTE: Keep OS signals for graceful shutdown
	s.gracefulShutdown(app)
}

// NOTE: Depency Injection Operation
func (s *service) DependencyInjection() {
	security := config.Conf.Application.Security

	// NOTE: JWT services configured and initialize...
	s.jwtService = &services.JWTService{
		Secret:     []byte(security.Secret),
		Issuer:     security.Issuer,
		AccessTTL:  time.Duration(security.TokenValidityInSeconds) * time.Second,
		RefreshTTL: time.Duration(security.TokenValidityInSecondsForRememberMe) * time.Second,
	}

	// NOTE: Repositories Injections
	s.userRepository = repository.NewUserRepository()
	s.passkeyRepository = repository.NewPasskeyRepository()

	// NOTE: Services Injections
	s.sessionStore = services.NewRedisSessionStore(s.redisClient)
	s.redisService = services.NewRedisService(s.redisClient)
	if config.Conf.Application.Kafka.Enabled {
		producer, err := services.NewKafkaEventProducer(config.Conf.Application.Kafka.Brokers)
		if err != nil {
			log.Panic("failed to connect kafka producer")
		}
		s.eventProducer = producer
	}

	ceremony := config.Conf.Application.Ceremony
	sessionTTL := secondsOrDefault(ceremony.SessionTTLSeconds, 300)
	sweepInterval := secondsOrDefault(ceremony.SweepIntervalSeconds, 60)

	s.passkeyService = services.NewPasskeyService(
		s.webAuthn,
		s.dbConnection,
		s.userRepository,
		s.passkeyRepository,
		s.sessionStore,
		s.jwtService,
		s.redisService,
		s.eventProducer,
		s.logger,
		services.PasskeyServiceConfig{
			SessionTTL: sessionTTL,
			RefreshTTL: time.Duration(security.TokenValidityInSecondsForRememberMe) * time.Second,
		},
	)

	// NOTE: Controllers Injections
	s.passkeyController = controller.NewPasskeyController(s.passkeyService, s.logger)

	// NOTE: Background tasks
	s.sweeper = services.NewSessionSweeper(s.sessionStore, sweepInterval, s.logger)

	rl := config.Conf.Application.RateLimit
	maxRequests := rl.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 100
	}
	s.rateLimiter = middleware.NewSlidingWindowLimiter(maxRequests, secondsOrDefault(rl.WindowSeconds, 60))
}

func secondsOrDefault(seconds int, fallback int) time.Duration {
	if seconds <= 0 {
		seconds = fallback
	}
	return time.Duration(seconds) * time.Second
}

// startLimiterJanitor drops idle rate-limit windows so the client map does
// not grow without bound.
func (s *service) startLimiterJanitor() {
	s.janitorStop = make(chan struct{})
	interval := secondsOrDefault(config.Conf.Application.RateLimit.WindowSeconds, 60)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.rateLimiter.PruneIdle(time.Now())
			case <-s.janitorStop:
				return
			}
		}
	}()
}

// NOTE: Graceful shutdown operation
func (s *service) gracefulShutdown(app *fiber.App) {

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// NOTE: Shutdown Fiber server
	if err := app.Shutdown(); err != nil {
		log.Error("error while shutting down app", err)
	}

	s.sweeper.Stop()
	close(s.janitorStop)
	if s.eventProducer != nil {
		if err := s.eventProducer.Close(); err != nil {
			log.Error("error while closing kafka producer", err)
		}
	}

	// NOTE: Shutdown Database connection
	done := make(chan bool)
	go func() {
		config.CloseDatabaseConnection(s.dbConnection)
		done <- true
	}()

	select {
	case <-ctx.Done():
		log.Error("timeout while shutting down database", ctx.Err())
	case <-done:
		log.Info("database is gracefully shutdown")
	}
}
