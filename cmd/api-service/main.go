package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/relinkhq/url-shortener/internal/auth"
	"github.com/relinkhq/url-shortener/internal/cache"
	"github.com/relinkhq/url-shortener/internal/clicks"
	"github.com/relinkhq/url-shortener/internal/config"
	"github.com/relinkhq/url-shortener/internal/httpapi"
	applog "github.com/relinkhq/url-shortener/internal/logger"
	"github.com/relinkhq/url-shortener/internal/model"
	"github.com/relinkhq/url-shortener/internal/qr"
	"github.com/relinkhq/url-shortener/internal/repository"
	"github.com/relinkhq/url-shortener/internal/service"
	"github.com/relinkhq/url-shortener/internal/shortcode"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		slog.Warn(".env file not found, relying on env vars", "err", err)
	}

	applog.Init("url-service")
	cfg := config.Load()

	db, err := gorm.Open(postgres.Open(cfg.DBURL), &gorm.Config{
		Logger:         applog.NewGormLogger(cfg.GormLogLevel),
		TranslateError: true,
	})
	if err != nil {
		slog.Error("Unable to connect to database", "err", err)
		os.Exit(1)
	}

	slog.Info("Running GORM auto-migration")
	if err := db.AutoMigrate(&model.URL{}, &model.URLAnalytics{}); err != nil {
		slog.Error("Failed to auto-migrate database", "err", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	urlCache := cache.NewRedisCache(rdb, cfg.CacheTTL)
	defer urlCache.Close()

	rabbitConn, err := amqp091.Dial(cfg.RabbitURL)
	if err != nil {
		slog.Error("Unable to connect to RabbitMQ", "err", err)
		os.Exit(1)
	}
	defer rabbitConn.Close()

	rabbitCH, err := rabbitConn.Channel()
	if err != nil {
		slog.Error("Unable to open RabbitMQ channel", "err", err)
		os.Exit(1)
	}
	defer rabbitCH.Close()

	if _, err := rabbitCH.QueueDeclare(cfg.ClickQueue, true, false, false, false, nil); err != nil {
		slog.Error("Failed to declare click queue", "queue", cfg.ClickQueue, "err", err)
		os.Exit(1)
	}

	reporter := clicks.NewRabbitReporter(rabbitCH, cfg.ClickQueue, db)
	store := repository.NewGormStore(db)
	gen := shortcode.NewGenerator(cfg.CodeLength)
	svc := service.NewShortener(store, urlCache, reporter, gen, cfg.BaseURL)

	app := fiber.New()
	app.Use(applog.FiberMiddleware())
	app.Use(cors.New())
	app.Use(auth.OptionalMiddleware(auth.NewDecoder(cfg.JWTSecret)))

	httpapi.Register(app, httpapi.NewHandler(svc, qr.NewPNGRenderer()))

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		slog.Info("Shutting down API service")
		_ = app.Shutdown()
	}()

	slog.Info("Starting API service", "addr", cfg.ListenAddr)
	if err := app.Listen(cfg.ListenAddr); err != nil {
		slog.Error("API service failed", "err", err)
		os.Exit(1)
	}
}
