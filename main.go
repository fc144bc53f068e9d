// main.go
package main

import (
	"log"
	"time"

	"service-booking/cmd"
	"service-booking/internal/data/repository"
	"service-booking/internal/gateway"
	"service-booking/internal/notify"
	"service-booking/internal/wire"
	"service-booking/pkg/cache"
	"service-booking/pkg/database"
	"service-booking/pkg/mq"
	"service-booking/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	// Connect to database
	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	// Initialize all repositories
	repos := repository.NewRepository(db, logger)

	// Booking cache
	redisClient := cache.NewRedisClient(config.Redis.Addr, config.Redis.Password, config.Redis.DB)
	bookingCache := cache.NewBookingCache(redisClient, time.Duration(config.Redis.TTLSeconds)*time.Second, logger)

	// Payment gateway client
	gatewayClient := gateway.NewHTTPClient(config.Gateway, logger)

	// Notifications are optional: without brokers the app runs silent
	var notifier notify.Notifier = notify.NoopNotifier{}
	if len(config.Kafka.Brokers) > 0 {
		producer := mq.NewProducer(config.Kafka.Brokers, logger)
		defer producer.Close()
		notifier = notify.NewKafkaNotifier(producer, config.Kafka.NotificationsTopic, logger)
	}

	// Wire all dependencies
	app := wire.Wiring(repos, gatewayClient, bookingCache, notifier, config, logger)

	// Start server
	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))

	cmd.APIServer(app.Router, config.App.Port)
}
