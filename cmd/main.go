package main

import (
	"bytes"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"downloader/internal/config"
	"downloader/internal/core/download"
	"downloader/internal/core/extract"
	"downloader/internal/core/job"
	"downloader/internal/core/resolve"
	"downloader/internal/core/retention"
	"downloader/internal/logger"
	rds "downloader/internal/platform/redis"
	"downloader/internal/platform/storage"
	"downloader/internal/platform/tasks"
	"downloader/internal/server"
	"downloader/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	log.Printf("[downloader] starting at %s (env=%s)\n", cfg.HTTPAddr, cfg.AppEnv)

	logr := logger.New("main")

	// Redis client
	redisSvc, err := rds.New(rds.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer redisSvc.Close()

	blobs, err := storage.Open(storage.OpenOptions{
		Backend:   cfg.StorageBackend,
		LocalDir:  cfg.DataDir,
		URLPrefix: "/files",
		Supabase: storage.SupabaseConfig{
			URL:        cfg.SupabaseURL,
			ServiceKey: cfg.SupabaseServiceKey,
			Bucket:     cfg.SupabaseBucket,
		},
	})
	if err != nil {
		log.Fatalf("failed to initialize storage: %v", err)
	}

	// Resolution strategies, tried in this order
	if cfg.HostedAPIEnabled && !cfg.HostedAPIActive() {
		logr.LogWarnf("Hosted API is enabled but RAPIDAPI_KEY is not set; skipping it")
	}
	var fetcher extract.PageFetcher = extract.NewCollyFetcher(cfg.ScrapeUserAgent, cfg.ScrapeTimeout)
	if cfg.ScrapeRenderJS {
		fetcher = extract.NewBrowserFetcher(cfg.ScrapeUserAgent, cfg.ScrapeTimeout)
	}
	strategies := []resolve.Strategy{
		extract.NewHostedAPI(extract.HostedAPIConfig{
			Enabled:  cfg.HostedAPIActive(),
			Key:      cfg.RapidAPIKey,
			Host:     cfg.RapidAPIHost,
			Endpoint: cfg.HostedAPIEndpoint,
			Timeout:  cfg.HostedAPITimeout,
		}),
		extract.NewLocalTool(extract.LocalToolConfig{
			Enabled: cfg.YtDlpEnabled,
			Binary:  cfg.YtDlpBinary,
			Timeout: cfg.YtDlpTimeout,
		}),
		extract.NewHTMLScrape(cfg.ScrapeEnabled, fetcher),
	}
	resolveSvc := resolve.NewService(strategies, redisSvc, resolve.Options{
		MaxURLLength:   cfg.MaxURLLength,
		AllowedDomains: cfg.AllowedDomains,
		BlockedDomains: cfg.BlockedDomains,
		CacheEnabled:   cfg.CacheEnabled,
		CacheTTL:       cfg.CacheTTL,
		CachePrefix:    cfg.CachePrefix,
	})

	// Jobs
	taskClient := tasks.New(redisSvc, tasks.Options{
		Queue:       cfg.QueueName,
		MaxAttempts: cfg.TaskMaxAttempts,
		Timeout:     cfg.TaskTimeout,
	})
	defer taskClient.Close()
	jobStore := job.NewStore(redisSvc, job.StoreOptions{TTL: cfg.JobTTL, RecentLimit: cfg.RecentJobsLimit})
	jobSvc := job.NewService(jobStore, taskClient, resolveSvc)
	jobWorker := job.NewWorker(jobStore, resolveSvc)

	downloadSvc := download.NewService(blobs, download.Options{
		Dir:         cfg.DownloadDir,
		MaxFileSize: cfg.MaxFileSize,
		Timeout:     cfg.DownloadTimeout,
	})

	sweeper := retention.NewSweeper(blobs)
	sweepHandler := retention.NewTaskHandler(sweeper, cfg.DownloadDir, cfg.CleanupMaxAge())

	// Worker mux
	mux := worker.NewMux()
	mux.HandleFunc(tasks.TypeResolve, jobWorker.HandleResolveTask)
	mux.OnExhausted(tasks.TypeResolve, jobWorker.HandleExhausted)
	mux.HandleFunc(tasks.TypeSweep, sweepHandler.HandleSweepTask)

	asynqServer := worker.NewServer(redisSvc.AsynqRedisOpt(), worker.Options{
		Concurrency: cfg.WorkerConcurrency,
		Queue:       cfg.QueueName,
		RetryDelay:  cfg.TaskRetryDelay,
	}, mux)
	scheduler, err := worker.NewScheduler(redisSvc.AsynqRedisOpt(), cfg.CleanupSchedule, tasks.TypeSweep, cfg.QueueName)
	if err != nil {
		log.Fatalf("failed to register retention schedule: %v", err)
	}

	// Start worker and scheduler
	go func() {
		if err := asynqServer.Start(mux.Mux()); err != nil {
			log.Printf("[worker] stopped: %v\n", err)
		}
	}()
	go func() {
		if err := scheduler.Start(); err != nil {
			log.Printf("[scheduler] stopped: %v\n", err)
		}
	}()

	// HTTP server
	app := fiber.New(fiber.Config{
		AppName: "Media Downloader",
		JSONEncoder: func(v interface{}) ([]byte, error) {
			var buf bytes.Buffer
			encoder := json.NewEncoder(&buf)
			encoder.SetEscapeHTML(false)
			if err := encoder.Encode(v); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
	})
	// Serve downloaded files from DATA_DIR under /files
	if cfg.StorageBackend == "local" {
		app.Static("/files", cfg.DataDir)
	}

	healthHandler := server.RegisterRoutes(app, server.Dependencies{
		Resolve:            resolveSvc,
		Jobs:               jobSvc,
		Download:           downloadSvc,
		Redis:              redisSvc,
		Storage:            blobs,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	go func() {
		time.Sleep(2 * time.Second)
		healthHandler.SetReady()
	}()

	// Graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		logr.LogInfof("Shutting down...")
		scheduler.Shutdown()
		asynqServer.Shutdown()
		_ = app.ShutdownWithTimeout(5 * time.Second)
	}()

	if err := app.Listen(cfg.HTTPAddr); err != nil {
		log.Fatalf("server listen: %v", err)
	}
}
