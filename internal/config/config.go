package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// BrandPair names a brand and the competitor it is benchmarked against.
type BrandPair struct {
	Brand      string
	Competitor string
}

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Evaluation cadence; the window length equals the interval
	EvalInterval time.Duration
	EvalWorkers  int

	// Brands and search terms
	Brands          []string
	Keywords        []string
	Subreddits      []string
	CompetitorPairs []BrandPair

	// Crisis detection tunables
	AlertThreshold       float64
	VolumeTriggerZ       float64
	NegativityTriggerZ   float64
	VolumeWeight         float64
	NegativityWeight     float64
	NegativityCutoff     float64
	BaselineHistory      int
	MinHistory           int
	QuietCyclesToResolve int

	// Influencer scoring
	FollowerReference int

	// Competitive benchmarking
	BenchmarkPeriod time.Duration

	// Persistence
	DatabaseURL    string
	MigrationsPath string

	// Upstream sentiment analyzer
	SentimentAPIURL string

	// Azure Storage (cycle archive)
	StorageAccount   string
	StorageContainer string

	// Notification configuration
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string

	// API keys and credentials
	RedditClientID     string
	RedditClientSecret string
	NewsAPIKey         string
	TwitterBearerToken string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		EvalInterval: getDurationEnv("EVAL_INTERVAL", time.Hour),
		EvalWorkers:  getIntEnv("EVAL_WORKERS", 4),

		Brands:     getSliceEnv("BRANDS", []string{"Apple", "Samsung", "Google", "Microsoft"}),
		Keywords:   getSliceEnv("KEYWORDS", []string{"smartphone", "laptop", "tablet", "tech"}),
		Subreddits: getSliceEnv("SUBREDDITS", []string{"technology", "gadgets", "apple", "android"}),

		AlertThreshold:       getFloatEnv("ALERT_THRESHOLD", 0.75),
		VolumeTriggerZ:       getFloatEnv("VOLUME_TRIGGER_Z", 2.5),
		NegativityTriggerZ:   getFloatEnv("NEGATIVITY_TRIGGER_Z", 2.0),
		VolumeWeight:         getFloatEnv("VOLUME_WEIGHT", 0.1),
		NegativityWeight:     getFloatEnv("NEGATIVITY_WEIGHT", 0.2),
		NegativityCutoff:     getFloatEnv("NEGATIVITY_CUTOFF", -0.3),
		BaselineHistory:      getIntEnv("BASELINE_HISTORY", 48),
		MinHistory:           getIntEnv("MIN_HISTORY", 8),
		QuietCyclesToResolve: getIntEnv("QUIET_CYCLES_TO_RESOLVE", 3),

		FollowerReference: getIntEnv("FOLLOWER_REFERENCE", 100000),

		BenchmarkPeriod: getDurationEnv("BENCHMARK_PERIOD", 24*time.Hour),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "file://internal/repository/migrations"),

		SentimentAPIURL: getEnv("SENTIMENT_API_URL", ""),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "cycles"),

		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),

		RedditClientID:     getEnv("REDDIT_CLIENT_ID", ""),
		RedditClientSecret: getEnv("REDDIT_CLIENT_SECRET", ""),
		NewsAPIKey:         getEnv("NEWS_API_KEY", ""),
		TwitterBearerToken: getEnv("TWITTER_BEARER_TOKEN", ""),
	}

	pairs, err := parseBrandPairs(getEnv("COMPETITOR_PAIRS", "Apple:Samsung,Google:Microsoft"))
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	cfg.CompetitorPairs = pairs

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Brands) == 0 {
		return fmt.Errorf("BRANDS must name at least one brand")
	}

	if c.EvalInterval < time.Minute {
		return fmt.Errorf("EVAL_INTERVAL must be at least 1m, got %v", c.EvalInterval)
	}

	if c.AlertThreshold <= 0 || c.AlertThreshold > 1 {
		return fmt.Errorf("ALERT_THRESHOLD must be in (0,1], got %v", c.AlertThreshold)
	}

	if c.VolumeWeight < 0 || c.NegativityWeight <= 0 {
		return fmt.Errorf("severity weights must be non-negative with NEGATIVITY_WEIGHT > 0")
	}

	if c.MinHistory < 1 || c.MinHistory > c.BaselineHistory {
		return fmt.Errorf("MIN_HISTORY must be in [1, BASELINE_HISTORY=%d], got %d", c.BaselineHistory, c.MinHistory)
	}

	if c.QuietCyclesToResolve < 1 {
		return fmt.Errorf("QUIET_CYCLES_TO_RESOLVE must be at least 1, got %d", c.QuietCyclesToResolve)
	}

	if c.EvalWorkers < 1 {
		return fmt.Errorf("EVAL_WORKERS must be at least 1, got %d", c.EvalWorkers)
	}

	if c.FollowerReference < 2 {
		return fmt.Errorf("FOLLOWER_REFERENCE must be at least 2, got %d", c.FollowerReference)
	}

	for _, pair := range c.CompetitorPairs {
		if pair.Brand == pair.Competitor {
			return fmt.Errorf("COMPETITOR_PAIRS: a brand cannot compete with itself (%s)", pair.Brand)
		}
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

func parseBrandPairs(value string) ([]BrandPair, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	var pairs []BrandPair
	for _, raw := range strings.Split(value, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts := strings.SplitN(raw, ":", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
			return nil, fmt.Errorf("COMPETITOR_PAIRS entry %q must be brand:competitor", raw)
		}
		pairs = append(pairs, BrandPair{
			Brand:      strings.TrimSpace(parts[0]),
			Competitor: strings.TrimSpace(parts[1]),
		})
	}

	return pairs, nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var parts []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				parts = append(parts, part)
			}
		}
		return parts
	}
	return defaultValue
}
