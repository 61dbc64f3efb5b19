package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deliverymaster/service-quote/internal/application"
	"github.com/deliverymaster/service-quote/internal/config"
	"github.com/deliverymaster/service-quote/internal/events"
	"github.com/deliverymaster/service-quote/internal/genai"
	"github.com/deliverymaster/service-quote/internal/handler"
	"github.com/deliverymaster/service-quote/internal/kafka"
	"github.com/deliverymaster/service-quote/internal/logger"
	"github.com/deliverymaster/service-quote/internal/middleware"
	"github.com/deliverymaster/service-quote/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, "service-quote")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-quote",
		zap.String("port", cfg.Port),
	)

	// Connect to the history store
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisConfig.Addr,
		Password: cfg.RedisConfig.Password,
		DB:       cfg.RedisConfig.DB,
	})
	defer func() { _ = redisClient.Close() }()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		pingCancel()
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	pingCancel()

	historyRepo := repository.NewRedisHistoryRepository(redisClient)

	// Initialize the generative quoting backend
	genaiClient := genai.NewClient(cfg.GenAIConfig, log)

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	// Initialize application services
	quoteService := application.NewQuoteService(
		historyRepo,
		genaiClient,
		kafkaProducer,
		cfg.QuoteConfig.MinimumFare,
		cfg.QuoteConfig.WhatsAppNumber,
		log,
	)

	initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := quoteService.Init(initCtx); err != nil {
		initCancel()
		log.Fatal("failed to load delivery history", zap.Error(err))
	}
	initCancel()

	sessionService := application.NewSessionService(
		genaiClient,
		cfg.QuoteConfig.GeocodeQuietPeriod,
		log,
	)

	// Initialize and start dispatch event consumer in a goroutine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	groupID := cfg.KafkaConfig.GroupPrefix + "quote-service"
	dispatchConsumer := events.NewDispatchEventConsumer(
		cfg.KafkaConfig.Brokers,
		groupID,
		quoteService,
		log,
	)
	defer func() { _ = dispatchConsumer.Close() }()

	go func() {
		log.Info("starting dispatch event consumer")
		if err := dispatchConsumer.Start(ctx); err != nil && err != context.Canceled {
			log.Error("dispatch event consumer error", zap.Error(err))
		}
	}()

	// Initialize HTTP handlers
	sessionHandler := handler.NewSessionHandler(sessionService, quoteService)
	deliveryHandler := handler.NewDeliveryHandler(quoteService)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "service-quote"})
	})

	// Register routes
	sessionHandler.RegisterRoutes(&router.RouterGroup)
	deliveryHandler.RegisterRoutes(&router.RouterGroup)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service-quote...")

	// Cancel the consumer context
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info("service-quote stopped")
}
