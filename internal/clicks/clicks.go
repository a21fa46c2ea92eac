package clicks

import (
	"context"
	"time"
)

// Event is the message published for every successful redirect and
// consumed by the analytics worker.
type Event struct {
	ShortCode   string    `json:"short_code"`
	Destination string    `json:"destination"`
	Timestamp   time.Time `json:"timestamp"`
}

// Reporter is the best-effort click-analytics collaborator. Report is
// fire-and-forget: it must return immediately and never surface a
// failure. Count degrades to zero when analytics are unavailable.
type Reporter interface {
	Report(code, destination string)
	Count(ctx context.Context, code string) int64
}
