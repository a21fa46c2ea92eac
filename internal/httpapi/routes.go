package httpapi

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/relinkhq/url-shortener/internal/apperr"
)

// Register wires all routes. The redirect catch-all must be last so
// it cannot shadow /health or /api.
func Register(app *fiber.App, h *Handler) {
	app.Get("/health", h.Health)

	api := app.Group("/api")
	api.Post("/urls", h.Create)
	api.Post("/urls/claim", h.Claim)
	api.Get("/urls", h.List)
	api.Get("/urls/:short_code", h.Info)
	api.Delete("/urls/:short_code", h.Delete)
	api.Get("/urls/:short_code/qr", h.QR)

	app.Get("/:short_code", h.Redirect)
}

func writeError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := err.Error()

	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = fiber.StatusBadRequest
	case apperr.KindUnprocessable:
		status = fiber.StatusUnprocessableEntity
	case apperr.KindConflict:
		status = fiber.StatusConflict
	case apperr.KindNotFound:
		status = fiber.StatusNotFound
	case apperr.KindGone:
		status = fiber.StatusGone
	case apperr.KindForbidden:
		status = fiber.StatusForbidden
	case apperr.KindUnauthorized:
		status = fiber.StatusUnauthorized
	default:
		// The store is the only source of truth; its failures are not
		// recoverable for this request and must not leak detail.
		slog.Error("internal error", "path", c.OriginalURL(), "err", err)
		message = "internal server error"
	}
	return c.Status(status).JSON(fiber.Map{"error": message})
}
