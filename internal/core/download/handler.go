package download

import (
	"downloader/internal/core/media"
	"downloader/internal/logger"

	"github.com/gofiber/fiber/v2"
)

const msgFailed = "Download failed. Please try again."

type Handler struct {
	log     *logger.Logger
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{log: logger.New("DownloadHandler"), service: service}
}

func (h *Handler) HandleDownload(c *fiber.Ctx) error {
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid body"})
	}
	res, err := h.service.Download(c.Context(), req)
	if err != nil {
		if media.KindOf(err) == media.ErrInvalidURL {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": err.Error()})
		}
		h.log.Error().Err(err).Str("format_url", req.FormatURL).Msg("Download error")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"success": false, "error": msgFailed})
	}
	return c.JSON(res)
}
