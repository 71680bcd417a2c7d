package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the profile aggregator
type Config struct {
	// Upstream data API
	API APIConfig `yaml:"api" json:"api"`

	// Ordered API credential pool
	Keys []string `yaml:"keys" json:"-"`

	// Collection budgets
	Analysis AnalysisConfig `yaml:"analysis" json:"analysis"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Circuit breaker around upstream calls
	Breaker BreakerConfig `yaml:"breaker" json:"breaker"`

	// Retries of transient upstream failures
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Result cache settings
	Cache CacheConfig `yaml:"cache" json:"cache"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Metrics endpoint
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// APIConfig describes how to reach the upstream data API
type APIConfig struct {
	BaseURL    string        `yaml:"base_url" json:"base_url"`
	Host       string        `yaml:"host" json:"host"`
	KeyHeader  string        `yaml:"key_header" json:"key_header"`
	HostHeader string        `yaml:"host_header" json:"host_header"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	PageSize   int           `yaml:"page_size" json:"page_size"`
}

// AnalysisConfig holds the per-stream collection budgets
type AnalysisConfig struct {
	MaxFollowersAndFollows int `yaml:"max_followers_and_follows" json:"max_followers_and_follows"`
	MaxLikesAndComments    int `yaml:"max_likes_and_comments" json:"max_likes_and_comments"`
	MaxPostsAndReels       int `yaml:"max_posts_and_reels" json:"max_posts_and_reels"`
	EnrichConcurrency      int `yaml:"enrich_concurrency" json:"enrich_concurrency"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
	Burst             int     `yaml:"burst" json:"burst"`
}

// BreakerConfig holds circuit breaker thresholds
type BreakerConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	FailureRatio float64       `yaml:"failure_ratio" json:"failure_ratio"`
	MinRequests  uint32        `yaml:"min_requests" json:"min_requests"`
	OpenTimeout  time.Duration `yaml:"open_timeout" json:"open_timeout"`
}

// RetryConfig holds retry configuration. MaxAttempts counts the first
// try, so 1 disables retries.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
}

// CacheConfig holds result cache configuration
type CacheConfig struct {
	TTL           time.Duration `yaml:"ttl" json:"ttl"`
	Capacity      int           `yaml:"capacity" json:"capacity"`
	RedisAddr     string        `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string        `yaml:"redis_password" json:"-"`
	RedisDB       int           `yaml:"redis_db" json:"redis_db"`
}

// OutputConfig holds report output configuration
type OutputConfig struct {
	Directory string `yaml:"directory" json:"directory"`
	Pretty    bool   `yaml:"pretty" json:"pretty"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Listen string `yaml:"listen" json:"listen"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:    "https://api.com",
			Host:       "api.com",
			KeyHeader:  "X-RapidAPI-Key",
			HostHeader: "X-RapidAPI-Host",
			Timeout:    30 * time.Second,
			PageSize:   50,
		},
		Analysis: AnalysisConfig{
			MaxFollowersAndFollows: 1000,
			MaxLikesAndComments:    100,
			MaxPostsAndReels:       100,
			EnrichConcurrency:      4,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			Burst:             10,
		},
		Breaker: BreakerConfig{
			Enabled:      true,
			FailureRatio: 0.6,
			MinRequests:  10,
			OpenTimeout:  30 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts: 1,
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    10 * time.Second,
		},
		Cache: CacheConfig{
			TTL:      time.Hour,
			Capacity: 128,
		},
		Output: OutputConfig{
			Directory: "./reports",
			Pretty:    true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if keys := os.Getenv("INSTAGRAM_API_KEYS"); keys != "" {
		c.Keys = SplitKeys(keys)
	}
	if baseURL := os.Getenv("IGAGG_API_BASE_URL"); baseURL != "" {
		c.API.BaseURL = baseURL
	}
	if host := os.Getenv("IGAGG_API_HOST"); host != "" {
		c.API.Host = host
	}

	intVars := map[string]*int{
		"MAX_ANALYSIS_FOLLOWERS_AND_FOLLOWS": &c.Analysis.MaxFollowersAndFollows,
		"MAX_ANALYSIS_LIKES_AND_COMMENTS":    &c.Analysis.MaxLikesAndComments,
		"MAX_ANALYSIS_POSTS_AND_REELS":       &c.Analysis.MaxPostsAndReels,
		"IGAGG_PAGE_SIZE":                    &c.API.PageSize,
		"IGAGG_ENRICH_CONCURRENCY":           &c.Analysis.EnrichConcurrency,
		"IGAGG_CACHE_CAPACITY":               &c.Cache.Capacity,
		"IGAGG_RETRY_MAX_ATTEMPTS":           &c.Retry.MaxAttempts,
	}
	for name, target := range intVars {
		raw := os.Getenv(name)
		if raw == "" {
			continue
		}
		val, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		*target = val
	}

	if ttl := os.Getenv("IGAGG_CACHE_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return fmt.Errorf("invalid IGAGG_CACHE_TTL: %w", err)
		}
		c.Cache.TTL = d
	}
	if addr := os.Getenv("IGAGG_REDIS_ADDR"); addr != "" {
		c.Cache.RedisAddr = addr
	}
	if pass := os.Getenv("IGAGG_REDIS_PASSWORD"); pass != "" {
		c.Cache.RedisPassword = pass
	}
	if outputDir := os.Getenv("IGAGG_OUTPUT_DIR"); outputDir != "" {
		c.Output.Directory = outputDir
	}
	if logLevel := os.Getenv("IGAGG_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if listen := os.Getenv("IGAGG_METRICS_LISTEN"); listen != "" {
		c.Metrics.Listen = listen
	}

	return nil
}

// SplitKeys parses a comma separated credential list, dropping blanks
func SplitKeys(raw string) []string {
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".igaggregator.yaml",
		".igaggregator.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "igaggregator", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "igaggregator", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if len(c.Keys) == 0 {
		errs = append(errs, errors.New("at least one API key is required"))
	}
	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("API base URL is required"))
	}
	if c.API.PageSize <= 0 {
		errs = append(errs, errors.New("page size must be positive"))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("API timeout must be positive"))
	}

	if c.Analysis.MaxFollowersAndFollows < 0 || c.Analysis.MaxLikesAndComments < 0 || c.Analysis.MaxPostsAndReels < 0 {
		errs = append(errs, errors.New("analysis budgets cannot be negative"))
	}
	if c.Analysis.EnrichConcurrency <= 0 {
		errs = append(errs, errors.New("enrich concurrency must be positive"))
	}

	if c.RateLimit.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("requests per second must be positive"))
	}
	if c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}

	if c.Breaker.Enabled && (c.Breaker.FailureRatio <= 0 || c.Breaker.FailureRatio > 1) {
		errs = append(errs, errors.New("breaker failure ratio must be in (0, 1]"))
	}

	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry max attempts must be at least 1"))
	}

	if c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache TTL must be positive"))
	}
	if c.Cache.Capacity <= 0 {
		errs = append(errs, errors.New("cache capacity must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if keys, ok := flags["keys"].([]string); ok && len(keys) > 0 {
		c.Keys = keys
	}
	// Keys from the credential stores only fill an otherwise empty pool
	if stored, ok := flags["stored-keys"].([]string); ok && len(stored) > 0 && len(c.Keys) == 0 {
		c.Keys = stored
	}
	if baseURL, ok := flags["base-url"].(string); ok && baseURL != "" {
		c.API.BaseURL = baseURL
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.Directory = outputDir
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if rps, ok := flags["rate-limit"].(float64); ok && rps > 0 {
		c.RateLimit.RequestsPerSecond = rps
	}
	if concurrency, ok := flags["enrich-concurrency"].(int); ok && concurrency > 0 {
		c.Analysis.EnrichConcurrency = concurrency
	}
	if redisAddr, ok := flags["redis"].(string); ok && redisAddr != "" {
		c.Cache.RedisAddr = redisAddr
	}
	if attempts, ok := flags["retries"].(int); ok && attempts > 0 {
		c.Retry.MaxAttempts = attempts
	}
	if listen, ok := flags["metrics-listen"].(string); ok && listen != "" {
		c.Metrics.Listen = listen
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igaggregator.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
