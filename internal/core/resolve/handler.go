package resolve

import (
	"time"

	"downloader/internal/core/media"
	"downloader/internal/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

const (
	msgInvalidURL = "Please enter a valid URL."
	msgNoContent  = "No downloadable content found at this URL."
	msgFailed     = "Failed to process the URL. Please try again or contact support."
)

type Handler struct {
	log     *logger.Logger
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{log: logger.New("ResolveHandler"), service: service}
}

type Request struct {
	URL string `json:"url" query:"url" form:"url"`
}

type Response struct {
	Success bool          `json:"success"`
	Data    *media.Result `json:"data,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// HandleResolve serves both POST (JSON or form body) and GET (?url=).
func (h *Handler) HandleResolve(c *fiber.Ctx) error {
	var req Request
	if c.Method() == fiber.MethodGet {
		req.URL = c.Query("url")
	} else if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(Response{Error: msgInvalidURL})
	}

	res, err := h.service.Resolve(c.Context(), req.URL)
	if err != nil {
		if media.KindOf(err) == media.ErrInvalidURL {
			return c.Status(fiber.StatusBadRequest).JSON(Response{Error: msgInvalidURL})
		}
		h.log.Error().Err(err).Str("url", req.URL).Msg("Resolution failed")
		return c.Status(fiber.StatusBadGateway).JSON(Response{Error: msgFailed})
	}
	if !res.HasFormats() {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(Response{Error: msgNoContent, Data: res})
	}
	return c.JSON(Response{Success: true, Data: res})
}

// Limiter caps requests per client IP per minute.
func Limiter(perMinute int) fiber.Handler {
	if perMinute <= 0 {
		perMinute = 10
	}
	return limiter.New(limiter.Config{
		Max:        perMinute,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(Response{Error: "Rate limit exceeded"})
		},
	})
}
