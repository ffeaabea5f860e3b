package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so tuning files can use "30s" / "5m" syntax.
type Duration time.Duration

// UnmarshalYAML parses durations written in time.ParseDuration notation.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// SourceLimits tunes the rate window of one connector.
type SourceLimits struct {
	MaxCalls int      `yaml:"max_calls"`
	Window   Duration `yaml:"window"`
}

// Tuning is the optional YAML file with per-source knobs that are too
// structured for environment variables.
type Tuning struct {
	Subreddits         []string                `yaml:"subreddits"`
	RateLimits         map[string]SourceLimits `yaml:"rate_limits"`
	DedupWindow        Duration                `yaml:"dedup_window"`
	DedupOverlap       float64                 `yaml:"dedup_overlap"`
	KeywordsPerMention int                     `yaml:"keywords_per_mention"`
	SpikeFactor        float64                 `yaml:"spike_factor"`
}

// Config holds all configuration for the application.
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Schedule configuration
	ReportSchedule string // "daily" or "weekly"
	TimeZone       string

	// Storage configuration
	StorageBackend   string // "file" or "azure"
	DataDir          string
	StorageAccount   string
	StorageContainer string

	// Report store configuration
	ReportStore      string // "json" or "sqlite"
	ReportFile       string
	ReportDB         string
	ReportDedupWindow time.Duration

	// Alert delivery configuration
	WebhookURL        string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string

	// API keys and credentials
	RedditClientID     string
	RedditClientSecret string
	TwitterBearerToken string
	GoogleAPIKey       string
	GoogleCSEID        string

	// Tracked subject and defaults
	Query      string
	Sources    []string
	MaxResults int

	// Aggregation deadline for one run
	RunTimeout time.Duration

	// Per-source tuning, optionally overridden by a YAML file
	Tuning Tuning
}

// Load loads configuration from environment variables and, when
// REPWATCH_TUNING points at a YAML file, merges the tuning section from it.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		Debug:          getBoolEnv("DEBUG", false),
		ReportSchedule: getEnv("REPORT_SCHEDULE", "daily"),
		TimeZone:       getEnv("TIMEZONE", "UTC"),

		StorageBackend:   getEnv("STORAGE_BACKEND", "file"),
		DataDir:          getEnv("DATA_DIR", "data"),
		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "mentions"),

		ReportStore:       getEnv("REPORT_STORE", "json"),
		ReportFile:        getEnv("REPORT_FILE", "reports.json"),
		ReportDB:          getEnv("REPORT_DB", "reports.db"),
		ReportDedupWindow: getDurationEnv("REPORT_DEDUP_WINDOW", time.Minute),

		WebhookURL:        getEnv("WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),

		RedditClientID:     getEnv("REDDIT_CLIENT_ID", ""),
		RedditClientSecret: getEnv("REDDIT_CLIENT_SECRET", ""),
		TwitterBearerToken: getEnv("TWITTER_BEARER_TOKEN", ""),
		GoogleAPIKey:       getEnv("GOOGLE_API_KEY", ""),
		GoogleCSEID:        getEnv("GOOGLE_CSE_ID", ""),

		Query:      getEnv("QUERY", ""),
		Sources:    getSliceEnv("SOURCES", []string{"twitter", "reddit", "web"}),
		MaxResults: getIntEnv("MAX_RESULTS", 50),

		RunTimeout: getDurationEnv("RUN_TIMEOUT", 10*time.Minute),

		Tuning: defaultTuning(),
	}

	if path := os.Getenv("REPWATCH_TUNING"); path != "" {
		if err := cfg.loadTuning(path); err != nil {
			return nil, fmt.Errorf("failed to load tuning file %s: %w", path, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func defaultTuning() Tuning {
	return Tuning{
		Subreddits: []string{"all", "news"},
		RateLimits: map[string]SourceLimits{
			"twitter": {MaxCalls: 10, Window: Duration(time.Minute)},
			"reddit":  {MaxCalls: 30, Window: Duration(time.Minute)},
			"web":     {MaxCalls: 10, Window: Duration(time.Minute)},
		},
		DedupWindow:        Duration(5 * time.Minute),
		DedupOverlap:       0.9,
		KeywordsPerMention: 5,
		SpikeFactor:        3.0,
	}
}

func (c *Config) loadTuning(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var t Tuning
	if err := yaml.Unmarshal(data, &t); err != nil {
		return err
	}

	if len(t.Subreddits) > 0 {
		c.Tuning.Subreddits = t.Subreddits
	}
	for source, limits := range t.RateLimits {
		c.Tuning.RateLimits[source] = limits
	}
	if t.DedupWindow > 0 {
		c.Tuning.DedupWindow = t.DedupWindow
	}
	if t.DedupOverlap > 0 {
		c.Tuning.DedupOverlap = t.DedupOverlap
	}
	if t.KeywordsPerMention > 0 {
		c.Tuning.KeywordsPerMention = t.KeywordsPerMention
	}
	if t.SpikeFactor > 0 {
		c.Tuning.SpikeFactor = t.SpikeFactor
	}

	return nil
}

func (c *Config) validate() error {
	if c.ReportSchedule != "daily" && c.ReportSchedule != "weekly" {
		return fmt.Errorf("REPORT_SCHEDULE must be 'daily' or 'weekly'")
	}

	if c.StorageBackend != "file" && c.StorageBackend != "azure" {
		return fmt.Errorf("STORAGE_BACKEND must be 'file' or 'azure'")
	}

	if c.StorageBackend == "azure" && c.StorageAccount == "" {
		return fmt.Errorf("AZURE_STORAGE_ACCOUNT is required when STORAGE_BACKEND is 'azure'")
	}

	if c.ReportStore != "json" && c.ReportStore != "sqlite" {
		return fmt.Errorf("REPORT_STORE must be 'json' or 'sqlite'")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	if c.Tuning.DedupOverlap <= 0 || c.Tuning.DedupOverlap > 1 {
		return fmt.Errorf("dedup_overlap must be in (0, 1]")
	}

	return nil
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
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
