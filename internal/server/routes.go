package server

import (
	"downloader/internal/core/download"
	"downloader/internal/core/job"
	"downloader/internal/core/resolve"
	"downloader/internal/health"
	"downloader/internal/platform/redis"
	"downloader/internal/platform/storage"

	"github.com/gofiber/fiber/v2"
)

type Dependencies struct {
	Resolve            *resolve.Service
	Jobs               *job.Service
	Download           *download.Service
	Redis              *redis.Service
	Storage            storage.BlobStore
	RateLimitPerMinute int
}

func RegisterRoutes(app *fiber.App, d Dependencies) *health.HealthHandler {
	checks := map[string]health.Checker{"storage": d.Storage}
	if d.Redis != nil {
		checks["redis"] = d.Redis
	}
	healthHandler := health.NewHealthHandler(checks)
	app.Get("/v1/health", health.HealthLimiter(), healthHandler.HandleHealth)

	api := app.Group("/v1")
	limit := resolve.Limiter(d.RateLimitPerMinute)

	resolveHandler := resolve.NewHandler(d.Resolve)
	api.Get("/resolve", limit, resolveHandler.HandleResolve)
	api.Post("/resolve", limit, resolveHandler.HandleResolve)

	jobHandler := job.NewHandler(d.Jobs)
	api.Post("/jobs", limit, jobHandler.HandleCreate)
	api.Get("/jobs", jobHandler.HandleRecent)
	api.Get("/jobs/:jobId", jobHandler.HandleGet)

	downloadHandler := download.NewHandler(d.Download)
	api.Post("/download", limit, downloadHandler.HandleDownload)

	return healthHandler
}
