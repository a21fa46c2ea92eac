package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/relinkhq/url-shortener/internal/apperr"
	"github.com/relinkhq/url-shortener/internal/auth"
	"github.com/relinkhq/url-shortener/internal/model"
	"github.com/relinkhq/url-shortener/internal/qr"
	"github.com/relinkhq/url-shortener/internal/service"
)

// Handler owns the HTTP surface; all semantics live in the service.
type Handler struct {
	svc      *service.Shortener
	renderer qr.Renderer
}

func NewHandler(svc *service.Shortener, renderer qr.Renderer) *Handler {
	return &Handler{svc: svc, renderer: renderer}
}

type createRequest struct {
	OriginalURL   string `json:"original_url"`
	CustomCode    string `json:"custom_code"`
	ExpiresInDays *int   `json:"expires_in_days"`
}

type urlResponse struct {
	ID          uuid.UUID  `json:"id"`
	ShortCode   string     `json:"short_code"`
	OriginalURL string     `json:"original_url"`
	ShortURL    string     `json:"short_url"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type infoResponse struct {
	urlResponse
	ClickCount int64 `json:"click_count"`
	IsOwner    bool  `json:"is_owner"`
}

type claimRequest struct {
	ClaimToken string `json:"claim_token"`
}

type claimResponse struct {
	Claimed int64  `json:"claimed"`
	Message string `json:"message"`
}

type healthResponse struct {
	Status       string `json:"status"`
	Service      string `json:"service"`
	Version      string `json:"version"`
	RedisHealthy bool   `json:"redis_healthy"`
}

func (h *Handler) toURLResponse(u *model.URL) urlResponse {
	return urlResponse{
		ID:          u.ID,
		ShortCode:   u.ShortCode,
		OriginalURL: u.OriginalURL,
		ShortURL:    h.svc.ShortURL(u.ShortCode),
		CreatedAt:   u.CreatedAt,
		ExpiresAt:   u.ExpiresAt,
	}
}

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(healthResponse{
		Status:       "healthy",
		Service:      "url-service",
		Version:      "1.0.0",
		RedisHealthy: h.svc.CacheHealthy(c.Context()),
	})
}

func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, apperr.New(apperr.KindValidation, "invalid request body"))
	}

	params := service.CreateParams{
		Destination:     req.OriginalURL,
		CustomCode:      req.CustomCode,
		GuestClaimToken: c.Get("X-Guest-Claim-Token"),
		ExpiresInDays:   req.ExpiresInDays,
	}
	if id, ok := auth.FromContext(c); ok {
		params.Identity = &id
		params.GuestClaimToken = ""
	}

	entry, err := h.svc.Create(c.Context(), params)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(h.toURLResponse(entry))
}

func (h *Handler) Claim(c *fiber.Ctx) error {
	identity, ok := auth.FromContext(c)
	if !ok {
		return writeError(c, apperr.New(apperr.KindUnauthorized, "authentication required"))
	}
	var req claimRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, apperr.New(apperr.KindValidation, "invalid request body"))
	}

	claimed, err := h.svc.Claim(c.Context(), req.ClaimToken, identity)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(claimResponse{
		Claimed: claimed,
		Message: "claim processed",
	})
}

func (h *Handler) Info(c *fiber.Ctx) error {
	var identity *auth.Identity
	if id, ok := auth.FromContext(c); ok {
		identity = &id
	}

	info, err := h.svc.Info(c.Context(), c.Params("short_code"), identity)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(infoResponse{
		urlResponse: h.toURLResponse(info.Entry),
		ClickCount:  info.ClickCount,
		IsOwner:     info.IsOwner,
	})
}

func (h *Handler) List(c *fiber.Ctx) error {
	identity, ok := auth.FromContext(c)
	if !ok {
		return writeError(c, apperr.New(apperr.KindUnauthorized, "authentication required"))
	}

	urls, err := h.svc.List(c.Context(), identity, c.QueryInt("skip", 0), c.QueryInt("limit", 100))
	if err != nil {
		return writeError(c, err)
	}
	out := make([]urlResponse, 0, len(urls))
	for i := range urls {
		out = append(out, h.toURLResponse(&urls[i]))
	}
	return c.JSON(out)
}

func (h *Handler) Delete(c *fiber.Ctx) error {
	identity, ok := auth.FromContext(c)
	if !ok {
		return writeError(c, apperr.New(apperr.KindUnauthorized, "authentication required"))
	}

	if err := h.svc.Delete(c.Context(), c.Params("short_code"), identity); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) QR(c *fiber.Ctx) error {
	size := c.QueryInt("size", 200)
	if !qr.ValidSize(size) {
		return writeError(c, apperr.Newf(apperr.KindValidation, "size must be between %d and %d pixels", qr.MinSize, qr.MaxSize))
	}

	code := c.Params("short_code")
	if _, err := h.svc.GetActive(c.Context(), code); err != nil {
		return writeError(c, err)
	}

	png, err := h.renderer.RenderPNG(h.svc.ShortURL(code), size)
	if err != nil {
		return writeError(c, apperr.Wrap(apperr.KindInternal, "rendering qr code", err))
	}
	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderContentDisposition, `inline; filename=qr-`+code+`.png`)
	return c.Send(png)
}

func (h *Handler) Redirect(c *fiber.Ctx) error {
	destination, err := h.svc.Resolve(c.Context(), c.Params("short_code"))
	if err != nil {
		return writeError(c, err)
	}
	return c.Redirect(destination, fiber.StatusTemporaryRedirect)
}
