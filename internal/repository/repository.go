package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/relinkhq/url-shortener/internal/model"
)

// Store is the authoritative record of mappings. The unique index on
// short_code is the only concurrency primitive the engines rely on.
type Store interface {
	// Insert persists a new entry; returns ErrDuplicateCode when the
	// short code is already taken.
	Insert(ctx context.Context, u *model.URL) error

	// GetByCode returns the entry for code, or (nil, nil) when absent.
	GetByCode(ctx context.Context, code string) (*model.URL, error)

	// CodeExists reports whether any entry uses code.
	CodeExists(ctx context.Context, code string) (bool, error)

	// Claim atomically assigns every unowned entry carrying token to
	// userID and clears the token, returning the number of rows
	// transferred. A single conditional UPDATE, never read-then-write.
	Claim(ctx context.Context, token string, userID uuid.UUID) (int64, error)

	// Delete hard-deletes the entry with the given id.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListByOwner returns userID's entries, newest first.
	ListByOwner(ctx context.Context, userID uuid.UUID, skip, limit int) ([]model.URL, error)
}
