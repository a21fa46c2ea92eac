package main

import (
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rabbitmq/amqp091-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/relinkhq/url-shortener/internal/clicks"
	"github.com/relinkhq/url-shortener/internal/config"
	applog "github.com/relinkhq/url-shortener/internal/logger"
	"github.com/relinkhq/url-shortener/internal/model"
)

const (
	batchSize     = 100
	flushInterval = 2 * time.Second
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		slog.Warn(".env file not found, relying on env vars", "err", err)
	}

	applog.Init("analytics-worker")
	cfg := config.Load()

	db, err := gorm.Open(postgres.Open(cfg.DBURL), &gorm.Config{Logger: applog.NewGormLogger(cfg.GormLogLevel)})
	if err != nil {
		slog.Error("Unable to connect to database", "err", err)
		os.Exit(1)
	}

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

	q, err := rabbitCH.QueueDeclare(cfg.ClickQueue, true, false, false, false, nil)
	if err != nil {
		slog.Error("Failed to declare queue", "queue", cfg.ClickQueue, "err", err)
		os.Exit(1)
	}

	// Grab up to a batch worth of messages at a time.
	if err := rabbitCH.Qos(batchSize, 0, false); err != nil {
		slog.Error("Failed to set QoS", "err", err)
		os.Exit(1)
	}

	msgs, err := rabbitCH.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		slog.Error("Failed to register consumer", "err", err)
		os.Exit(1)
	}

	slog.Info("Analytics worker started, waiting for click events")
	consume(db, msgs)
}

func consume(db *gorm.DB, msgs <-chan amqp091.Delivery) {
	var events []clicks.Event
	var deliveries []amqp091.Delivery

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case d, ok := <-msgs:
			if !ok {
				slog.Warn("RabbitMQ channel closed, flushing remaining events")
				processBatch(db, events, deliveries)
				return
			}
			var event clicks.Event
			if err := json.Unmarshal(d.Body, &event); err != nil {
				slog.Error("Undecodable click event, rejecting", "err", err)
				d.Reject(false)
				continue
			}
			events = append(events, event)
			deliveries = append(deliveries, d)

			if len(events) >= batchSize {
				processBatch(db, events, deliveries)
				events, deliveries = nil, nil
				ticker.Reset(flushInterval)
			}

		case <-ticker.C:
			if len(events) > 0 {
				slog.Info("Timer flush, processing queued events", "count", len(events))
				processBatch(db, events, deliveries)
				events, deliveries = nil, nil
			}
		}
	}
}

func processBatch(db *gorm.DB, events []clicks.Event, deliveries []amqp091.Delivery) {
	if len(events) == 0 {
		return
	}

	counts := make(map[string]int64)
	for _, event := range events {
		counts[event.ShortCode]++
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		for shortCode, count := range counts {
			// Insert the initial count or increment the existing one atomically.
			rec := model.URLAnalytics{ShortCode: shortCode, ClickCount: count}
			if err := tx.Clauses(
				clause.OnConflict{
					Columns: []clause.Column{{Name: "short_code"}},
					DoUpdates: clause.Assignments(map[string]interface{}{
						"click_count": gorm.Expr("url_analytics.click_count + EXCLUDED.click_count"),
					}),
				},
			).Create(&rec).Error; err != nil {
				slog.Error("Error upserting click count", "short_code", shortCode, "err", err)
				return err
			}
		}
		return nil
	})

	if err != nil {
		slog.Error("Failed to process batch, nacking for retry", "err", err)
		for _, d := range deliveries {
			d.Nack(false, true)
		}
		return
	}

	for _, d := range deliveries {
		d.Ack(false)
	}
	slog.Info("Processed click event batch", "events", len(events), "codes", len(counts))
}
