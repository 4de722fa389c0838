// Package main provides the main entry point for the LedgerDesk banking administration backend
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/ledgerdesk/ledgerdesk/app/handlers"
	"github.com/ledgerdesk/ledgerdesk/app/middleware"
	"github.com/ledgerdesk/ledgerdesk/app/router"
	"github.com/ledgerdesk/ledgerdesk/app/scheduler"
	"github.com/ledgerdesk/ledgerdesk/app/services"
	businessflow "github.com/ledgerdesk/ledgerdesk/business_flow"
	"github.com/ledgerdesk/ledgerdesk/config"
	_ "github.com/ledgerdesk/ledgerdesk/docs"
	"github.com/ledgerdesk/ledgerdesk/models"
	"github.com/ledgerdesk/ledgerdesk/repository"
	"github.com/ledgerdesk/ledgerdesk/utils"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

// @title						LedgerDesk API
// @version					1.0
// @description				Internal banking administration backend: identity sequencing, account ledger, and activity reporting.
// @BasePath					/api/v1
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
func main() {
	log.Println("Starting LedgerDesk application...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Route the standard logger through the rotated log file
	setupLogging(cfg.Logging)

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Setup graceful shutdown
	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// setupLogging redirects the standard logger to a size-rotated file when file
// output is configured. Rotation settings come straight from the logging config.
func setupLogging(cfg config.LoggingConfig) {
	if cfg.FilePath == "" || (cfg.Output != "file" && cfg.Output != "both") {
		return
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	if cfg.Output == "both" {
		log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	} else {
		log.SetOutput(rotator)
	}
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Cache client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeNotificationService initializes the notification service
func initializeNotificationService(cfg *config.ProductionConfig) services.NotificationService {
	// Fall back to the mock provider when SMTP credentials are not configured
	var emailProvider services.EmailProvider
	if cfg.Email.Username == "" || cfg.Email.Password == "" {
		emailProvider = services.NewMockEmailProvider()
	} else {
		emailProvider = services.NewSMTPEmailProvider(
			cfg.Email.Host,
			cfg.Email.Port,
			cfg.Email.Username,
			cfg.Email.Password,
			cfg.Email.FromEmail,
		)
	}

	return services.NewNotificationService(emailProvider)
}

// initializeEventPublisher initializes the transaction event stream publisher
func initializeEventPublisher(cfg config.KafkaConfig) services.EventPublisher {
	if !cfg.Enabled {
		return services.NewNoopEventPublisher()
	}

	log.Printf("Kafka publisher initialized for topic %s (brokers=%v)", cfg.Topic, cfg.Brokers)
	return services.NewKafkaEventPublisher(cfg.Brokers, cfg.Topic)
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		cancel := startCacheHealthMonitor(context.Background(), rc, cfg.Cache.CleanupInterval)
		stopFuncs = append(stopFuncs, cancel)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	ledgerRepo := repository.NewLedgerEntryRepository(db)
	loginEventRepo := repository.NewLoginEventRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db, userRepo, cfg.Ledger.SequenceName, cfg.Ledger.SequenceFloor)

	// Seed the bootstrap operator identity using config
	if err := ensureBootstrapAdmin(userRepo, sequenceRepo, cfg); err != nil {
		return nil, err
	}

	// Initialize services
	notificationService := initializeNotificationService(cfg)

	publisher := initializeEventPublisher(cfg.Kafka)
	stopFuncs = append(stopFuncs, func() {
		if err := publisher.Close(); err != nil {
			log.Printf("Error closing event publisher: %v", err)
		}
	})

	// Captcha gate for admin-tier logins
	var captchaSvc services.CaptchaService
	if cfg.Captcha.Enabled {
		captchaSvc, err = services.NewCaptchaServiceRotate(cfg.Captcha.TTL, cfg.Captcha.Padding, cfg.Captcha.ImageSizePx)
		if err != nil {
			return nil, err
		}
	}

	// Initialize token service
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	// Log that services are initialized
	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	// Initialize flows
	loginFlow := businessflow.NewLoginFlow(
		userRepo,
		loginEventRepo,
		tokenService,
		captchaSvc,
		notificationService,
		db,
	)

	provisioningFlow := businessflow.NewProvisioningFlow(
		userRepo,
		accountRepo,
		sequenceRepo,
		notificationService,
		publisher,
		cfg.Ledger,
		db,
	)

	transactionFlow := businessflow.NewTransactionFlow(
		userRepo,
		accountRepo,
		ledgerRepo,
		notificationService,
		publisher,
		rc,
		&cfg.Cache,
		db,
	)

	reportingFlow := businessflow.NewReportingFlow(
		userRepo,
		accountRepo,
		loginEventRepo,
	)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(loginFlow)
	userHandler := handlers.NewUserHandler(provisioningFlow)
	accountHandler := handlers.NewAccountHandler(provisioningFlow, transactionFlow)
	transactionHandler := handlers.NewTransactionHandler(transactionFlow)
	reportHandler := handlers.NewReportHandler(reportingFlow)

	// Initialize auth middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	// Initialize router
	appRouter := router.NewFiberRouter(
		authHandler,
		userHandler,
		accountHandler,
		transactionHandler,
		reportHandler,
		authMiddleware,
	)

	// Start report scheduler (monthly report materialization + account backfill)
	sched := scheduler.NewReportScheduler(
		reportingFlow,
		provisioningFlow,
		notificationService,
		cfg.Reports.Interval,
		cfg.Reports.OutputDir,
		cfg.Reports.SummaryEmail,
	)
	stopScheduler := sched.Start(context.Background())
	stopFuncs = append(stopFuncs, stopScheduler)

	// Create application struct from FiberRouter
	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}

// ensureBootstrapAdmin creates the configured operator identity if it does not
// exist yet. The identifier comes from the same sequence as API allocations so
// the counter stays ahead of every issued ID.
func ensureBootstrapAdmin(userRepo repository.UserRepository, sequenceRepo repository.SequenceRepository, cfg *config.ProductionConfig) error {
	if cfg.Admin.BootstrapEmail == "" || cfg.Admin.BootstrapPassword == "" {
		return nil
	}

	existing, err := userRepo.ByEmail(context.Background(), cfg.Admin.BootstrapEmail)
	if err != nil {
		return fmt.Errorf("failed to lookup bootstrap admin: %w", err)
	}
	if existing != nil {
		return nil
	}

	next, err := sequenceRepo.AllocateNext(context.Background())
	if err != nil {
		return fmt.Errorf("failed to allocate bootstrap admin identifier: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(cfg.Admin.BootstrapPassword), cfg.Security.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash bootstrap admin password: %w", err)
	}

	firstName, lastName := utils.SplitFullName(cfg.Admin.BootstrapName)
	admin := models.User{
		UserID:       strconv.FormatInt(next, 10),
		FirstName:    firstName,
		LastName:     lastName,
		Email:        cfg.Admin.BootstrapEmail,
		PasswordHash: string(passwordHash),
		RoleCode:     models.RoleCodeSuperAdmin,
		StatusCode:   models.StatusCodeActive,
		CreatedAt:    utils.UTCNow(),
		UpdatedAt:    utils.UTCNow(),
	}
	if err := userRepo.Save(context.Background(), &admin); err != nil {
		return fmt.Errorf("failed to create bootstrap admin: %w", err)
	}

	log.Printf("Bootstrap admin created with user ID %s", admin.UserID)
	return nil
}
