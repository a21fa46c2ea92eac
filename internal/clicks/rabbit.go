package clicks

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"gorm.io/gorm"

	"github.com/relinkhq/url-shortener/internal/model"
)

const publishTimeout = 3 * time.Second

// RabbitReporter publishes click events to a RabbitMQ queue and reads
// aggregated counts from the url_analytics table the worker maintains.
type RabbitReporter struct {
	ch    *amqp091.Channel
	queue string
	db    *gorm.DB
}

func NewRabbitReporter(ch *amqp091.Channel, queue string, db *gorm.DB) *RabbitReporter {
	return &RabbitReporter{ch: ch, queue: queue, db: db}
}

// Report publishes on a detached goroutine with its own timeout so an
// abandoned request or a slow broker never delays the response that
// triggered it.
func (r *RabbitReporter) Report(code, destination string) {
	event := Event{ShortCode: code, Destination: destination, Timestamp: time.Now().UTC()}
	go func() {
		body, err := json.Marshal(event)
		if err != nil {
			slog.Warn("click event marshal failed", "code", code, "err", err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		err = r.ch.PublishWithContext(ctx, "", r.queue, false, false, amqp091.Publishing{
			ContentType: "application/json",
			Body:        body,
		})
		if err != nil {
			slog.Warn("click event publish failed", "code", code, "err", err)
		}
	}()
}

// Count returns the aggregated click count for code, or zero when the
// analytics table is unreachable or has no row yet.
func (r *RabbitReporter) Count(ctx context.Context, code string) int64 {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	var rec model.URLAnalytics
	err := r.db.WithContext(ctx).Where("short_code = ?", code).First(&rec).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			slog.Warn("click count lookup failed", "code", code, "err", err)
		}
		return 0
	}
	return rec.ClickCount
}
