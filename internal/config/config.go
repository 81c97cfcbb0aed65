package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	AppEnv        string `yaml:"app_env"`
	HTTPAddr      string `yaml:"http_addr"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	DataDir       string `yaml:"data_dir"`

	// Hosted API strategy (RapidAPI style).
	HostedAPIEnabled  bool          `yaml:"hosted_api_enabled"`
	RapidAPIKey       string        `yaml:"rapidapi_key"`
	RapidAPIHost      string        `yaml:"rapidapi_host"`
	HostedAPIEndpoint string        `yaml:"hosted_api_endpoint"`
	HostedAPITimeout  time.Duration `yaml:"hosted_api_timeout"`

	// Local extractor tool strategy.
	YtDlpEnabled bool          `yaml:"ytdlp_enabled"`
	YtDlpBinary  string        `yaml:"ytdlp_binary"`
	YtDlpTimeout time.Duration `yaml:"ytdlp_timeout"`

	// HTML scrape strategy.
	ScrapeEnabled   bool          `yaml:"scrape_enabled"`
	ScrapeUserAgent string        `yaml:"scrape_user_agent"`
	ScrapeTimeout   time.Duration `yaml:"scrape_timeout"`
	ScrapeRenderJS  bool          `yaml:"scrape_render_js"`

	// Storage.
	StorageBackend     string        `yaml:"storage_backend"`
	DownloadDir        string        `yaml:"download_dir"`
	MaxFileSize        int64         `yaml:"max_file_size"`
	DownloadTimeout    time.Duration `yaml:"download_timeout"`
	SupabaseURL        string        `yaml:"supabase_url"`
	SupabaseServiceKey string        `yaml:"supabase_service_key"`
	SupabaseBucket     string        `yaml:"supabase_bucket"`

	// Retention.
	CleanupHours    int    `yaml:"cleanup_hours"`
	CleanupSchedule string `yaml:"cleanup_schedule"`

	// Queue / jobs.
	QueueName         string        `yaml:"queue_name"`
	WorkerConcurrency int           `yaml:"worker_concurrency"`
	TaskMaxAttempts   int           `yaml:"task_max_attempts"`
	TaskRetryDelay    time.Duration `yaml:"task_retry_delay"`
	TaskTimeout       time.Duration `yaml:"task_timeout"`
	JobTTL            time.Duration `yaml:"job_ttl"`
	RecentJobsLimit   int           `yaml:"recent_jobs_limit"`

	// Result cache.
	CacheEnabled bool          `yaml:"cache_enabled"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
	CachePrefix  string        `yaml:"cache_prefix"`

	// Request guards.
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute"`
	MaxURLLength       int      `yaml:"max_url_length"`
	AllowedDomains     []string `yaml:"allowed_domains"`
	BlockedDomains     []string `yaml:"blocked_domains"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		AppEnv:    "development",
		HTTPAddr:  ":8081",
		RedisAddr: "127.0.0.1:6379",
		DataDir:   "./data",

		HostedAPIEnabled:  true,
		RapidAPIHost:      "youtube-mp36.p.rapidapi.com",
		HostedAPIEndpoint: "https://youtube-mp36.p.rapidapi.com/dl",
		HostedAPITimeout:  30 * time.Second,

		YtDlpEnabled: false,
		YtDlpBinary:  "yt-dlp",
		YtDlpTimeout: 60 * time.Second,

		// An empty user agent lets each fetch rotate a full browser profile.
		ScrapeEnabled: true,
		ScrapeTimeout: 30 * time.Second,

		StorageBackend:  "local",
		DownloadDir:     "downloads",
		MaxFileSize:     100 * 1024 * 1024,
		DownloadTimeout: 5 * time.Minute,
		SupabaseBucket:  "downloads",

		CleanupHours:    24,
		CleanupSchedule: "@hourly",

		QueueName:         "downloads",
		WorkerConcurrency: 3,
		TaskMaxAttempts:   3,
		TaskRetryDelay:    60 * time.Second,
		TaskTimeout:       5 * time.Minute,
		JobTTL:            time.Hour,
		RecentJobsLimit:   100,

		CacheEnabled: true,
		CacheTTL:     time.Hour,
		CachePrefix:  "downloader",

		RateLimitPerMinute: 10,
		MaxURLLength:       2048,
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// DOWNLOADER_CONFIG_FILE, and finally environment variables.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("DOWNLOADER_CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(c *Config) {
	c.AppEnv = getenv("APP_ENV", c.AppEnv)
	c.HTTPAddr = getenv("HTTP_ADDR", c.HTTPAddr)
	c.RedisAddr = getenv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getenv("REDIS_PASSWORD", c.RedisPassword)
	c.DataDir = getenv("DATA_DIR", c.DataDir)

	c.HostedAPIEnabled = getenvBool("DOWNLOADER_USE_EXTERNAL_API", c.HostedAPIEnabled)
	c.RapidAPIKey = getenv("RAPIDAPI_KEY", c.RapidAPIKey)
	c.RapidAPIHost = getenv("RAPIDAPI_HOST", c.RapidAPIHost)
	c.HostedAPIEndpoint = getenv("DOWNLOADER_API_ENDPOINT", c.HostedAPIEndpoint)
	c.HostedAPITimeout = getenvSeconds("DOWNLOADER_API_TIMEOUT", c.HostedAPITimeout)

	c.YtDlpEnabled = getenvBool("DOWNLOADER_USE_YTDLP", c.YtDlpEnabled)
	c.YtDlpBinary = getenv("YTDLP_BINARY_PATH", c.YtDlpBinary)
	c.YtDlpTimeout = getenvSeconds("YTDLP_TIMEOUT", c.YtDlpTimeout)

	c.ScrapeEnabled = getenvBool("DOWNLOADER_USE_DIRECT_PARSING", c.ScrapeEnabled)
	c.ScrapeUserAgent = getenv("DOWNLOADER_USER_AGENT", c.ScrapeUserAgent)
	c.ScrapeTimeout = getenvSeconds("DOWNLOADER_DIRECT_TIMEOUT", c.ScrapeTimeout)
	c.ScrapeRenderJS = getenvBool("SCRAPE_RENDER_JS", c.ScrapeRenderJS)

	c.StorageBackend = getenv("DOWNLOADER_STORAGE_BACKEND", c.StorageBackend)
	c.DownloadDir = getenv("DOWNLOADER_STORAGE_DIRECTORY", c.DownloadDir)
	c.MaxFileSize = int64(getenvInt("DOWNLOADER_MAX_FILESIZE", int(c.MaxFileSize)))
	c.DownloadTimeout = getenvSeconds("DOWNLOADER_DOWNLOAD_TIMEOUT", c.DownloadTimeout)
	c.SupabaseURL = getenv("NEXT_PUBLIC_SUPABASE_URL", c.SupabaseURL)
	c.SupabaseServiceKey = getenv("SUPABASE_SERVICE_ROLE_KEY", c.SupabaseServiceKey)
	c.SupabaseBucket = getenv("SUPABASE_STORAGE_BUCKET", c.SupabaseBucket)

	c.CleanupHours = getenvInt("DOWNLOADER_CLEANUP_HOURS", c.CleanupHours)
	c.CleanupSchedule = getenv("DOWNLOADER_CLEANUP_SCHEDULE", c.CleanupSchedule)

	c.QueueName = getenv("DOWNLOADER_QUEUE_NAME", c.QueueName)
	c.WorkerConcurrency = getenvInt("DOWNLOADER_MAX_CONCURRENT", c.WorkerConcurrency)
	c.TaskMaxAttempts = getenvInt("DOWNLOADER_MAX_TRIES", c.TaskMaxAttempts)
	c.TaskRetryDelay = getenvSeconds("DOWNLOADER_RETRY_DELAY", c.TaskRetryDelay)
	c.TaskTimeout = getenvSeconds("DOWNLOADER_QUEUE_TIMEOUT", c.TaskTimeout)
	c.JobTTL = getenvSeconds("DOWNLOADER_JOB_TTL", c.JobTTL)
	c.RecentJobsLimit = getenvInt("DOWNLOADER_RECENT_JOBS", c.RecentJobsLimit)

	c.CacheEnabled = getenvBool("DOWNLOADER_CACHE_ENABLED", c.CacheEnabled)
	c.CacheTTL = getenvSeconds("DOWNLOADER_CACHE_TTL", c.CacheTTL)
	c.CachePrefix = getenv("DOWNLOADER_CACHE_PREFIX", c.CachePrefix)

	c.RateLimitPerMinute = getenvInt("DOWNLOADER_MAX_REQUESTS_PER_MINUTE", c.RateLimitPerMinute)
	c.MaxURLLength = getenvInt("DOWNLOADER_MAX_URL_LENGTH", c.MaxURLLength)
	c.AllowedDomains = getenvList("DOWNLOADER_ALLOWED_DOMAINS", c.AllowedDomains)
	c.BlockedDomains = getenvList("DOWNLOADER_BLOCKED_DOMAINS", c.BlockedDomains)
}

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	if c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}
	if c.TaskMaxAttempts < 1 {
		return fmt.Errorf("DOWNLOADER_MAX_TRIES must be at least 1, got %d", c.TaskMaxAttempts)
	}
	if c.RecentJobsLimit < 1 {
		return fmt.Errorf("DOWNLOADER_RECENT_JOBS must be at least 1, got %d", c.RecentJobsLimit)
	}
	if c.CleanupHours < 0 {
		return fmt.Errorf("DOWNLOADER_CLEANUP_HOURS must not be negative")
	}
	switch c.StorageBackend {
	case "local":
	case "supabase":
		if c.SupabaseURL == "" || c.SupabaseServiceKey == "" {
			return fmt.Errorf("supabase storage requires NEXT_PUBLIC_SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
	return nil
}

// HostedAPIActive reports whether the hosted API strategy can run.
func (c Config) HostedAPIActive() bool { return c.HostedAPIEnabled && c.RapidAPIKey != "" }

// CleanupMaxAge is the retention threshold.
func (c Config) CleanupMaxAge() time.Duration { return time.Duration(c.CleanupHours) * time.Hour }

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// getenvSeconds reads a whole number of seconds.
func getenvSeconds(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil || i < 0 {
		return def
	}
	return time.Duration(i) * time.Second
}

func getenvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}
