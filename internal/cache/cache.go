package cache

import (
	"context"
	"time"
)

// Entry is the cached view of a mapping: the destination plus the
// entry's own expiry, carried along so the resolution engine can
// re-check it without touching the store.
type Entry struct {
	Destination string     `json:"destination"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// Cache is a best-effort read-through accelerator keyed by short
// code. Implementations must never let an infrastructure failure
// escape: a failed Get is a miss, a failed Set or Delete is a no-op.
type Cache interface {
	Get(ctx context.Context, code string) (*Entry, bool)
	Set(ctx context.Context, code string, entry *Entry) error
	Delete(ctx context.Context, code string) error
	Healthy(ctx context.Context) bool
	Close() error
}
