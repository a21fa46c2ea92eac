package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relinkhq/url-shortener/internal/auth"
	"github.com/relinkhq/url-shortener/internal/cache"
	"github.com/relinkhq/url-shortener/internal/model"
	"github.com/relinkhq/url-shortener/internal/qr"
	"github.com/relinkhq/url-shortener/internal/repository"
	"github.com/relinkhq/url-shortener/internal/service"
	"github.com/relinkhq/url-shortener/internal/shortcode"
)

const testSecret = "handler-test-secret"

type stubStore struct {
	mu     sync.Mutex
	byCode map[string]model.URL
}

func newStubStore() *stubStore {
	return &stubStore{byCode: make(map[string]model.URL)}
}

func (s *stubStore) Insert(_ context.Context, u *model.URL) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byCode[u.ShortCode]; ok {
		return repository.ErrDuplicateCode
	}
	s.byCode[u.ShortCode] = *u
	return nil
}

func (s *stubStore) GetByCode(_ context.Context, code string) (*model.URL, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byCode[code]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *stubStore) CodeExists(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byCode[code]
	return ok, nil
}

func (s *stubStore) Claim(_ context.Context, token string, userID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for code, u := range s.byCode {
		if u.UserID == nil && u.ClaimToken != nil && *u.ClaimToken == token {
			id := userID
			u.UserID = &id
			u.ClaimToken = nil
			s.byCode[code] = u
			n++
		}
	}
	return n, nil
}

func (s *stubStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for code, u := range s.byCode {
		if u.ID == id {
			delete(s.byCode, code)
			break
		}
	}
	return nil
}

func (s *stubStore) ListByOwner(_ context.Context, userID uuid.UUID, skip, limit int) ([]model.URL, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.URL
	for _, u := range s.byCode {
		if u.UserID != nil && *u.UserID == userID {
			out = append(out, u)
		}
	}
	if skip > len(out) {
		skip = len(out)
	}
	out = out[skip:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

type stubReporter struct {
	counts map[string]int64
}

func (r *stubReporter) Report(string, string) {}

func (r *stubReporter) Count(_ context.Context, code string) int64 {
	return r.counts[code]
}

func newTestApp(t *testing.T) (*fiber.App, *stubReporter) {
	t.Helper()
	reporter := &stubReporter{counts: make(map[string]int64)}
	svc := service.NewShortener(
		newStubStore(),
		cache.NewMemoryCache(time.Hour),
		reporter,
		shortcode.NewGenerator(6),
		"http://localhost:8000",
	)
	app := fiber.New()
	app.Use(auth.OptionalMiddleware(auth.NewDecoder(testSecret)))
	Register(app, NewHandler(svc, qr.NewPNGRenderer()))
	return app, reporter
}

func bearerFor(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": userID.String(),
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func createURL(t *testing.T, app *fiber.App, body map[string]any, headers map[string]string) urlResponse {
	t.Helper()
	req := jsonRequest(t, http.MethodPost, "/api/urls", body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	return decodeBody[urlResponse](t, resp)
}

func TestCreateHandler(t *testing.T) {
	app, _ := newTestApp(t)

	created := createURL(t, app, map[string]any{"original_url": "https://example.com/page"}, nil)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Len(t, created.ShortCode, 6)
	assert.Equal(t, "https://example.com/page", created.OriginalURL)
	assert.Equal(t, "http://localhost:8000/"+created.ShortCode, created.ShortURL)
	assert.Nil(t, created.ExpiresAt)
}

func TestCreateHandlerErrors(t *testing.T) {
	app, _ := newTestApp(t)

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
	}{
		{"invalid custom code", map[string]any{"original_url": "https://example.com", "custom_code": "a!"}, fiber.StatusBadRequest},
		{"invalid destination", map[string]any{"original_url": "nonsense"}, fiber.StatusUnprocessableEntity},
		{"expiry zero", map[string]any{"original_url": "https://example.com", "expires_in_days": 0}, fiber.StatusUnprocessableEntity},
		{"expiry too long", map[string]any{"original_url": "https://example.com", "expires_in_days": 366}, fiber.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/urls", tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestCreateHandlerConflict(t *testing.T) {
	app, _ := newTestApp(t)

	createURL(t, app, map[string]any{"original_url": "https://example.com", "custom_code": "taken1"}, nil)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/urls", map[string]any{
		"original_url": "https://example.com/other",
		"custom_code":  "taken1",
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestRedirectHandler(t *testing.T) {
	app, _ := newTestApp(t)

	created := createURL(t, app, map[string]any{"original_url": "https://example.com/test"}, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/"+created.ShortCode, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "https://example.com/test", resp.Header.Get(fiber.HeaderLocation))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/nosuch1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestOwnerLifecycle(t *testing.T) {
	app, _ := newTestApp(t)
	userA := uuid.New()
	userB := uuid.New()

	created := createURL(t, app,
		map[string]any{"original_url": "https://example.com/test"},
		map[string]string{fiber.HeaderAuthorization: bearerFor(t, userA)})

	// Redirect works for anybody.
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/"+created.ShortCode, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTemporaryRedirect, resp.StatusCode)

	// Delete without credentials.
	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/api/urls/"+created.ShortCode, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// Delete by a non-owner.
	req := httptest.NewRequest(http.MethodDelete, "/api/urls/"+created.ShortCode, nil)
	req.Header.Set(fiber.HeaderAuthorization, bearerFor(t, userB))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	// Delete by the owner.
	req = httptest.NewRequest(http.MethodDelete, "/api/urls/"+created.ShortCode, nil)
	req.Header.Set(fiber.HeaderAuthorization, bearerFor(t, userA))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	// Gone from the redirect path afterwards.
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/"+created.ShortCode, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestClaimHandler(t *testing.T) {
	app, _ := newTestApp(t)
	userC := uuid.New()

	for i := 0; i < 2; i++ {
		createURL(t, app,
			map[string]any{"original_url": fmt.Sprintf("https://example.com/%d", i)},
			map[string]string{"X-Guest-Claim-Token": "guest-batch"})
	}

	// Claim requires authentication.
	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/urls/claim", map[string]any{"claim_token": "guest-batch"}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := jsonRequest(t, http.MethodPost, "/api/urls/claim", map[string]any{"claim_token": "guest-batch"})
	req.Header.Set(fiber.HeaderAuthorization, bearerFor(t, userC))
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(2), decodeBody[claimResponse](t, resp).Claimed)

	// Second claim with the same token transfers nothing.
	req = jsonRequest(t, http.MethodPost, "/api/urls/claim", map[string]any{"claim_token": "guest-batch"})
	req.Header.Set(fiber.HeaderAuthorization, bearerFor(t, userC))
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(0), decodeBody[claimResponse](t, resp).Claimed)

	// The claimed entries now show up in the owner's list.
	req = httptest.NewRequest(http.MethodGet, "/api/urls", nil)
	req.Header.Set(fiber.HeaderAuthorization, bearerFor(t, userC))
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decodeBody[[]urlResponse](t, resp), 2)
}

func TestInfoHandler(t *testing.T) {
	app, reporter := newTestApp(t)
	owner := uuid.New()

	created := createURL(t, app,
		map[string]any{"original_url": "https://example.com"},
		map[string]string{fiber.HeaderAuthorization: bearerFor(t, owner)})
	reporter.counts[created.ShortCode] = 7

	// Anonymous caller sees the metadata but is never the owner.
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/urls/"+created.ShortCode, nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	info := decodeBody[infoResponse](t, resp)
	assert.Equal(t, int64(7), info.ClickCount)
	assert.False(t, info.IsOwner)

	req := httptest.NewRequest(http.MethodGet, "/api/urls/"+created.ShortCode, nil)
	req.Header.Set(fiber.HeaderAuthorization, bearerFor(t, owner))
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, decodeBody[infoResponse](t, resp).IsOwner)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/urls/nosuch1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestListRequiresAuth(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/urls", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// An invalid token is the same as no token.
	req := httptest.NewRequest(http.MethodGet, "/api/urls", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer garbage")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestQRHandler(t *testing.T) {
	app, _ := newTestApp(t)

	created := createURL(t, app, map[string]any{"original_url": "https://example.com"}, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/urls/"+created.ShortCode+"/qr?size=200", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get(fiber.HeaderContentType))
	png, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotEmpty(t, png)

	for _, size := range []int{50, 99, 1001} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet,
			fmt.Sprintf("/api/urls/%s/qr?size=%d", created.ShortCode, size), nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "size %d", size)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/urls/nosuch1/qr?size=200", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHealthHandler(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	health := decodeBody[healthResponse](t, resp)
	assert.Equal(t, "healthy", health.Status)
	assert.True(t, health.RedisHealthy)
}
