package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinicflow/config"
	"clinicflow/internal/changefeed"
	deliveryHttp "clinicflow/internal/delivery/http"
	"clinicflow/internal/delivery/http/handler"
	"clinicflow/internal/delivery/http/middleware"
	"clinicflow/internal/infrastructure/cache"
	"clinicflow/internal/infrastructure/database"
	"clinicflow/internal/repository"
	"clinicflow/internal/service"
	"clinicflow/internal/usecase"
	"clinicflow/internal/workspace"
	"clinicflow/pkg/jwt"
	"clinicflow/pkg/validator"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	DB          *gorm.DB
	RedisClient *redis.Client
	Server      *http.Server
	Registry    *workspace.Registry
	Listener    *changefeed.Listener

	background context.Context
	stop       context.CancelFunc
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	app := &App{}

	// Setup logger
	log := setupLogger()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg
	log.Info("Configuration loaded successfully")

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.DB, cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db
	log.Info("Database connected successfully")

	// Initialize Redis
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient
	log.Info("Redis connected successfully")

	app.background, app.stop = context.WithCancel(context.Background())

	// Initialize all layers
	app.initialize(log, cfg, db, redisClient)

	return app, nil
}

// setupLogger configures the logrus logger
func setupLogger() *logrus.Logger {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(logrus.InfoLevel)
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logrus.SetLevel(level)
	}
	return logrus.StandardLogger()
}

// initialize wires repositories, usecases, the change feed, workspace
// sessions and the HTTP server
func (app *App) initialize(log *logrus.Logger, cfg *config.Config, db *gorm.DB, redisClient *redis.Client) {
	loc := cfg.App.Location()

	// Initialize JWT service
	jwtService := jwt.NewJWTService(cfg.JWT)

	// Initialize validator
	customValidator := validator.NewValidator()

	// Initialize repositories
	transactor := repository.NewTransactor(db)
	userRepo := repository.NewUserRepository(db)
	clinicRepo := repository.NewClinicRepository(db)
	patientRepo := repository.NewPatientRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	visitRepo := repository.NewVisitRepository(db)
	metricsRepo := repository.NewMetricsRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// Initialize services
	sessionStore := service.NewSessionStore(redisClient)
	auditService := service.NewAuditService(log, auditRepo)

	// Change feed: one LISTEN connection fanned out per clinic
	broker := changefeed.NewBroker(cfg.Feed.SubBuffer)
	app.Listener = changefeed.NewListener(changefeed.PgxConnect(cfg.DB.DSN()), broker, log, changefeed.ListenerConfig{
		MinReconnect: cfg.Feed.MinReconnect,
		MaxReconnect: cfg.Feed.MaxReconnect,
	})

	// Initialize usecases. The registry closes sessions on logout and clinic
	// reassignment, so it is built before the usecases that need it.
	workspaceUsecase := usecase.NewWorkspaceUsecase(log, transactor, userRepo, clinicRepo, patientRepo, appointmentRepo, visitRepo, loc)
	lookupUsecase := usecase.NewLookupUsecase(log, patientRepo, visitRepo, cfg.Workspace.LookupMinDigits)
	app.Registry = workspace.NewRegistry(log, workspaceUsecase, lookupUsecase, broker, cfg.Workspace)

	authUsecase := usecase.NewAuthUsecase(log, userRepo, jwtService, sessionStore, auditService, app.Registry)
	identityUsecase := usecase.NewIdentityUsecase(log, userRepo, clinicRepo, jwtService, sessionStore)
	adminUsecase := usecase.NewAdminUsecase(log, transactor, userRepo, clinicRepo, auditRepo, auditService, app.Registry)
	queueUsecase := usecase.NewQueueUsecase(log, transactor, userRepo, clinicRepo, patientRepo, appointmentRepo, visitRepo, metricsRepo, auditService, loc)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(identityUsecase)
	corsMiddleware := middleware.NewCORSMiddleware(cfg.App.AllowedOrigins)
	loginLimiter := middleware.NewRateLimiter(cfg.RateLimit.LoginRPS, cfg.RateLimit.LoginBurst)
	loginLimiter.StartCleanup(app.background)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authUsecase, customValidator)
	adminHandler := handler.NewAdminHandler(adminUsecase, customValidator)
	auditLogHandler := handler.NewAuditLogHandler(adminUsecase)
	queueHandler := handler.NewQueueHandler(queueUsecase, lookupUsecase, customValidator)
	appointmentHandler := handler.NewAppointmentHandler(queueUsecase, customValidator)
	workspaceHandler := handler.NewWorkspaceHandler(log, app.Registry, corsMiddleware.AllowOrigin)

	// Initialize router
	router := deliveryHttp.NewRouter(
		authHandler, adminHandler, auditLogHandler, queueHandler, appointmentHandler, workspaceHandler,
		authMiddleware, corsMiddleware, loginLimiter, app.Registry,
	)
	httpRouter := router.Setup()

	// Create server
	serverAddr := fmt.Sprintf(":%s", cfg.App.Port)
	app.Server = &http.Server{
		Addr:              serverAddr,
		Handler:           httpRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Run starts the change feed and the HTTP server and handles graceful shutdown
func (app *App) Run() {
	// Start the change feed listener
	go func() {
		if err := app.Listener.Run(app.background); err != nil {
			logrus.Errorf("Change feed listener stopped: %v", err)
		}
	}()

	// Start server in goroutine
	go func() {
		logrus.Infof("Server starting on port %s", app.Config.App.Port)
		logrus.Infof("Environment: %s", app.Config.App.Env)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	app.waitForShutdown()
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	// Close live workspaces first; their sockets end with a normal closure
	closed := app.Registry.CloseAll()
	logrus.Infof("Closed %d workspace session(s)", closed)

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server gracefully
	if err := app.Server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	// Close connections
	app.Close()

	logrus.Info("Server shutdown complete")
}

// Close stops background workers and closes all connections
func (app *App) Close() {
	if app.stop != nil {
		app.stop()
	}

	// Close database connection
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	// Close Redis connection
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
