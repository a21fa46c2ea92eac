package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/relinkhq/url-shortener/internal/apperr"
	"github.com/relinkhq/url-shortener/internal/auth"
	"github.com/relinkhq/url-shortener/internal/cache"
	"github.com/relinkhq/url-shortener/internal/clicks"
	"github.com/relinkhq/url-shortener/internal/model"
	"github.com/relinkhq/url-shortener/internal/repository"
	"github.com/relinkhq/url-shortener/internal/shortcode"
)

const (
	// Collision probability at 62^6 is negligible; the bound exists so
	// a corrupted store cannot spin the loop forever.
	maxGenerateAttempts = 20

	minExpiresInDays = 1
	maxExpiresInDays = 365

	maxPageSize = 100
)

// Shortener is the resolution and ownership engine. It is stateless
// across requests; all shared state lives in the injected store,
// cache, and reporter.
type Shortener struct {
	store    repository.Store
	cache    cache.Cache
	reporter clicks.Reporter
	gen      *shortcode.Generator
	baseURL  string
	now      func() time.Time
}

func NewShortener(store repository.Store, c cache.Cache, reporter clicks.Reporter, gen *shortcode.Generator, baseURL string) *Shortener {
	return &Shortener{
		store:    store,
		cache:    c,
		reporter: reporter,
		gen:      gen,
		baseURL:  baseURL,
		now:      time.Now,
	}
}

// ShortURL returns the public URL for a code.
func (s *Shortener) ShortURL(code string) string {
	return fmt.Sprintf("%s/%s", s.baseURL, code)
}

// CreateParams carries the creation request. Identity is nil for
// guests; GuestClaimToken is only honored for guests.
type CreateParams struct {
	Destination     string
	CustomCode      string
	Identity        *auth.Identity
	GuestClaimToken string
	ExpiresInDays   *int
}

// Create validates the request, resolves a short code (custom or
// generated with collision retry), persists the entry, and best-effort
// primes the cache. The store write is the only authoritative step.
func (s *Shortener) Create(ctx context.Context, p CreateParams) (*model.URL, error) {
	if !validDestination(p.Destination) {
		return nil, apperr.New(apperr.KindUnprocessable, "destination must be an absolute http(s) URL")
	}
	if p.ExpiresInDays != nil {
		d := *p.ExpiresInDays
		if d < minExpiresInDays || d > maxExpiresInDays {
			return nil, apperr.Newf(apperr.KindUnprocessable, "expires_in_days must be between %d and %d", minExpiresInDays, maxExpiresInDays)
		}
	}

	code, err := s.resolveCode(ctx, p.CustomCode)
	if err != nil {
		return nil, err
	}

	entry := &model.URL{
		ID:          uuid.New(),
		ShortCode:   code,
		OriginalURL: p.Destination,
		CreatedAt:   s.now().UTC(),
	}
	if p.ExpiresInDays != nil {
		exp := entry.CreatedAt.AddDate(0, 0, *p.ExpiresInDays)
		entry.ExpiresAt = &exp
	}
	if p.Identity != nil {
		id := p.Identity.UserID
		entry.UserID = &id
	} else if p.GuestClaimToken != "" {
		token := p.GuestClaimToken
		entry.ClaimToken = &token
	}

	if err := s.store.Insert(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrDuplicateCode) {
			return nil, apperr.New(apperr.KindConflict, "short code already exists")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "persisting entry", err)
	}

	// Cache priming is best-effort; creation already succeeded.
	_ = s.cache.Set(ctx, entry.ShortCode, &cache.Entry{
		Destination: entry.OriginalURL,
		ExpiresAt:   entry.ExpiresAt,
	})

	return entry, nil
}

func (s *Shortener) resolveCode(ctx context.Context, custom string) (string, error) {
	if custom != "" {
		if !shortcode.Valid(custom) {
			return "", apperr.New(apperr.KindValidation, "custom code must be 3-10 alphanumeric characters")
		}
		exists, err := s.store.CodeExists(ctx, custom)
		if err != nil {
			return "", apperr.Wrap(apperr.KindInternal, "checking custom code", err)
		}
		if exists {
			return "", apperr.New(apperr.KindConflict, "custom code already exists")
		}
		return custom, nil
	}

	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		code, err := s.gen.Generate()
		if err != nil {
			return "", apperr.Wrap(apperr.KindInternal, "generating short code", err)
		}
		exists, err := s.store.CodeExists(ctx, code)
		if err != nil {
			return "", apperr.Wrap(apperr.KindInternal, "checking generated code", err)
		}
		if !exists {
			return code, nil
		}
		slog.Warn("short code collision, regenerating", "attempt", attempt+1)
	}
	return "", apperr.New(apperr.KindInternal, "could not generate a unique short code")
}

// Resolve runs the redirect lookup: cache first, store on miss, with
// expiry re-checked against the wall clock regardless of origin. A
// successful resolution fires the click reporter without waiting.
func (s *Shortener) Resolve(ctx context.Context, code string) (string, error) {
	now := s.now()

	if hit, ok := s.cache.Get(ctx, code); ok {
		// Cached entries are trusted for existence, never for expiry.
		if hit.ExpiresAt != nil && hit.ExpiresAt.Before(now) {
			return "", apperr.New(apperr.KindGone, "short URL has expired")
		}
		s.reporter.Report(code, hit.Destination)
		return hit.Destination, nil
	}

	entry, err := s.store.GetByCode(ctx, code)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "looking up short code", err)
	}
	if entry == nil {
		return "", apperr.New(apperr.KindNotFound, "short URL not found")
	}
	if entry.IsExpired(now) {
		// Expired entries are never written back to the cache.
		return "", apperr.New(apperr.KindGone, "short URL has expired")
	}

	_ = s.cache.Set(ctx, code, &cache.Entry{
		Destination: entry.OriginalURL,
		ExpiresAt:   entry.ExpiresAt,
	})
	s.reporter.Report(code, entry.OriginalURL)
	return entry.OriginalURL, nil
}

// Claim transfers every unowned entry carrying token to the caller in
// one atomic conditional update. Zero rows is a valid outcome: an
// unknown or spent token simply matches nothing.
func (s *Shortener) Claim(ctx context.Context, token string, identity auth.Identity) (int64, error) {
	if token == "" {
		return 0, apperr.New(apperr.KindValidation, "claim_token is required")
	}
	n, err := s.store.Claim(ctx, token, identity.UserID)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "claiming entries", err)
	}
	return n, nil
}

// Delete hard-deletes an entry. Only the verified owner may delete;
// unowned entries are not deletable through the API.
func (s *Shortener) Delete(ctx context.Context, code string, identity auth.Identity) error {
	entry, err := s.store.GetByCode(ctx, code)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "looking up short code", err)
	}
	if entry == nil {
		return apperr.New(apperr.KindNotFound, "short URL not found")
	}
	if !entry.OwnedBy(identity.UserID) {
		return apperr.New(apperr.KindForbidden, "you do not own this short URL")
	}
	if err := s.store.Delete(ctx, entry.ID); err != nil {
		return apperr.Wrap(apperr.KindInternal, "deleting entry", err)
	}
	_ = s.cache.Delete(ctx, code)
	return nil
}

// GetActive returns the entry for code when it exists and has not
// expired. Used by the info and QR paths; does not touch the cache.
func (s *Shortener) GetActive(ctx context.Context, code string) (*model.URL, error) {
	entry, err := s.store.GetByCode(ctx, code)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "looking up short code", err)
	}
	if entry == nil {
		return nil, apperr.New(apperr.KindNotFound, "short URL not found")
	}
	if entry.IsExpired(s.now()) {
		return nil, apperr.New(apperr.KindGone, "short URL has expired")
	}
	return entry, nil
}

// Info is the management read path: entry metadata plus a best-effort
// click count and an is_owner flag for the optional caller identity.
type Info struct {
	Entry      *model.URL
	ClickCount int64
	IsOwner    bool
}

func (s *Shortener) Info(ctx context.Context, code string, identity *auth.Identity) (*Info, error) {
	entry, err := s.GetActive(ctx, code)
	if err != nil {
		return nil, err
	}
	info := &Info{
		Entry:      entry,
		ClickCount: s.reporter.Count(ctx, code),
	}
	if identity != nil {
		info.IsOwner = entry.OwnedBy(identity.UserID)
	}
	return info, nil
}

// List returns the caller's entries, newest first. Limit is clamped
// to a hard maximum regardless of what the caller asks for.
func (s *Shortener) List(ctx context.Context, identity auth.Identity, skip, limit int) ([]model.URL, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	urls, err := s.store.ListByOwner(ctx, identity.UserID, skip, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "listing entries", err)
	}
	return urls, nil
}

// CacheHealthy probes the cache for the health endpoint.
func (s *Shortener) CacheHealthy(ctx context.Context) bool {
	return s.cache.Healthy(ctx)
}

func validDestination(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
