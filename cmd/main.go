package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	configs "github.com/metime/identity/config"
	"github.com/metime/identity/internal/handler"
	"github.com/metime/identity/internal/identifier"
	"github.com/metime/identity/internal/middleware"
	"github.com/metime/identity/internal/notify"
	"github.com/metime/identity/internal/password"
	"github.com/metime/identity/internal/repository"
	"github.com/metime/identity/internal/router"
	"github.com/metime/identity/internal/service"
	"github.com/metime/identity/pkg/circuit"
	"github.com/metime/identity/pkg/database"
	"github.com/metime/identity/pkg/health"
	"github.com/metime/identity/pkg/jobs"
	"github.com/metime/identity/pkg/logger"
	"github.com/metime/identity/pkg/redis"
)

func main() {
	config, err := configs.LoadConfig()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	// Initialize Zap logger
	if err := logger.InitLogger(config.App.Environment); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	logger.GetLogger().Info("Application starting",
		zap.String("app_name", config.App.Name),
		zap.String("environment", config.App.Environment),
		zap.String("version", "1.0.0"),
	)

	// Database
	db, err := database.NewPostgresDB(database.Config{
		Host:            config.Database.Host,
		Port:            config.Database.Port,
		User:            config.Database.User,
		Password:        config.Database.Password,
		Database:        config.Database.Name,
		SSLMode:         config.Database.SSLMode,
		MaxIdleConns:    config.Database.MaxIdleConns,
		MaxOpenConns:    config.Database.MaxOpenConns,
		ConnMaxLifetime: config.Database.ConnMaxLifetime,
		ConnMaxIdleTime: config.Database.ConnMaxIdleTime,
	})
	if err != nil {
		logger.GetLogger().Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.CloseDB(db)

	if err := database.AutoMigrate(db); err != nil {
		logger.GetLogger().Fatal("Failed to run database migrations", zap.Error(err))
	}
	if err := database.EnsureIndexes(db); err != nil {
		logger.GetLogger().Fatal("Failed to ensure database indexes", zap.Error(err))
	}
	logger.GetLogger().Info("Database migrated successfully")

	// Seed initial data
	if err := database.Seed(db); err != nil {
		logger.GetLogger().Error("Failed to seed database", zap.Error(err))
		// Don't fail - seed data may already exist
	}

	// Redis
	redisClient, err := redis.NewClient(config)
	if err != nil {
		logger.GetLogger().Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Background jobs
	notifier := notify.NewCircuitNotifier(notify.NewLogNotifier(), circuit.DefaultConfig(), logger.GetLogger())
	runner := jobs.NewRunner(config.Verification.JobWorkers, config.Verification.JobQueueSize, logger.GetLogger())
	runner.Register(notify.JobName, notify.JobHandler(notifier))
	runner.Start()
	defer runner.Stop()

	// Dependency monitor
	monitor := health.NewMonitor(30*time.Second, logger.GetLogger())
	monitor.Register(&health.DatabaseChecker{DB: db})
	monitor.Register(&health.RedisChecker{Client: redisClient})
	monitor.Start()
	defer monitor.Stop()

	// Repositories
	userRepo := repository.NewUserRepository(db)

	// Services
	resolver := identifier.NewResolver(config.Verification.DefaultPhoneRegion)
	policy := password.NewPolicy()
	tokenService := service.NewTokenService(config.JWT, userRepo, redisClient)
	otpService := service.NewOTPService(config.Verification, redisClient, runner)
	userService := service.NewUserService(userRepo, resolver, policy, otpService)
	authService := service.NewAuthenticationService(userRepo, resolver, policy, tokenService)

	// Handlers
	authHandler := handler.NewAuthHandler(authService, tokenService, config.JWT)
	userHandler := handler.NewUserHandler(userService)
	verificationHandler := handler.NewVerificationHandler(userService)
	passwordHandler := handler.NewPasswordHandler(userService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	// Middleware
	jwtMiddleware := middleware.NewJWTMiddleware(tokenService)

	r := router.NewRouter(
		authHandler,
		userHandler,
		verificationHandler,
		passwordHandler,
		healthHandler,

		jwtMiddleware,
		config,
	).SetupRoutes()

	go func() {
		logger.GetLogger().Info("Server starting",
			zap.String("port", config.App.Port),
			zap.String("host", "0.0.0.0"),
		)
		if err := r.Run(":" + config.App.Port); err != nil {
			logger.GetLogger().Fatal("Failed to start server",
				zap.Error(err),
				zap.String("port", config.App.Port),
			)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.GetLogger().Info("Shutting down server...")
}
