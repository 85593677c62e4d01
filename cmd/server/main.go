package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vaddi6894/commerce/config"
	"github.com/vaddi6894/commerce/internal/clients"
	"github.com/vaddi6894/commerce/internal/delivery"
	"github.com/vaddi6894/commerce/internal/middleware"
	"github.com/vaddi6894/commerce/internal/repository"
	"github.com/vaddi6894/commerce/internal/usecase"
	"github.com/vaddi6894/commerce/pkg/db"
	"github.com/vaddi6894/commerce/pkg/mailer"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	logger.Info("Starting storefront service...")

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	logger.Info("Database connection established.")

	if err := db.Migrate(database, cfg.MigrationsPath); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Database migrations applied.")

	// Repository Layer
	productRepo := repository.NewPostgresProductRepository(database, logger)
	userRepo := repository.NewPostgresUserRepository(database, logger)
	sessionRepo := repository.NewPostgresSessionRepository(database, logger)
	orderRepo := repository.NewPostgresOrderRepository(database, logger)
	reviewRepo := repository.NewPostgresReviewRepository(database, logger)
	reconRepo := repository.NewPostgresReconciliationRepository(database, logger)
	logger.Info("Repositories initialized.")

	// External clients
	gateway := clients.NewPaymentHTTPClient(cfg.PaymentAPIURL, cfg.PaymentSecretKey, cfg.PaymentTimeout, logger)
	smtpMailer := mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, logger)

	// Usecase Layer
	productUseCase := usecase.NewProductUseCase(productRepo, logger)
	userUseCase := usecase.NewUserUseCase(userRepo, sessionRepo, cfg.SessionTTL, logger)
	reviewUseCase := usecase.NewReviewUseCase(reviewRepo, productRepo, logger)
	orderUseCase := usecase.NewOrderUseCase(orderRepo, productRepo, gateway, logger)
	paymentUseCase := usecase.NewPaymentUseCase(gateway, orderUseCase, userRepo, productRepo, reconRepo, cfg.ClientURL, logger)
	logger.Info("Use cases initialized.")

	productHandler := delivery.NewProductHandler(productUseCase, logger)
	authHandler := delivery.NewAuthHandler(userUseCase, logger)
	reviewHandler := delivery.NewReviewHandler(reviewUseCase, logger)
	orderHandler := delivery.NewOrderHandler(orderUseCase, logger)
	paymentHandler := delivery.NewPaymentHandler(paymentUseCase, cfg.WebhookSecret, logger)
	userHandler := delivery.NewUserHandler(userUseCase, logger)
	contactHandler := delivery.NewContactHandler(smtpMailer, cfg.SMTPUser, logger)
	logger.Info("Handlers initialized.")

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	api := router.Group("/api")
	protected := router.Group("/api")
	protected.Use(middleware.Authenticate(userUseCase, logger))
	admin := router.Group("/api/admin")
	admin.Use(middleware.Authenticate(userUseCase, logger), middleware.AdminOnly(logger))

	productHandler.RegisterRoutes(api, admin)
	authHandler.RegisterRoutes(api, protected)
	reviewHandler.RegisterRoutes(api, protected)
	orderHandler.RegisterRoutes(protected, admin)
	paymentHandler.RegisterRoutes(api, protected)
	userHandler.RegisterRoutes(admin)
	contactHandler.RegisterRoutes(api)
	logger.Info("API routes registered.")

	// Dead-letter retry worker
	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()
	go usecase.RunReconciliationWorker(workerCtx, paymentUseCase, cfg.ReconcileInterval, logger)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("Shutdown signal received, stopping reconciliation worker...")
		cancelWorker()
	}()

	logger.Infof("Starting server on %s", cfg.Port)
	if err := router.Run(cfg.Port); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
