package job

import (
	"downloader/internal/core/media"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler { return &Handler{service: service} }

type createRequest struct {
	URL string `json:"url" form:"url"`
}

func (h *Handler) HandleCreate(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid body"})
	}
	id, err := h.service.Submit(c.Context(), req.URL)
	if err != nil {
		if media.KindOf(err) == media.ErrInvalidURL {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Please enter a valid URL."})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "Failed to queue job."})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"success": true, "job_id": id})
}

// HandleGet always answers 200; unknown ids carry status not_found.
func (h *Handler) HandleGet(c *fiber.Ctx) error {
	return c.JSON(h.service.Store().Status(c.Context(), c.Params("jobId")))
}

func (h *Handler) HandleRecent(c *fiber.Ctx) error {
	jobs, err := h.service.Store().Recent(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "failed to load recent jobs"})
	}
	return c.JSON(fiber.Map{"success": true, "jobs": jobs})
}
