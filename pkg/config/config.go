package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "WIKIGLOSSARY_"

// Config holds all configuration options for the glossary crawler
type Config struct {
	// Upstream wiki
	Wiki WikiConfig `yaml:"wiki" json:"wiki"`

	// Request pacing and retry budgets
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Crawl behaviour
	Crawl CrawlConfig `yaml:"crawl" json:"crawl"`

	// Checkpoint cache
	Cache CacheConfig `yaml:"cache" json:"cache"`

	// Artifact output
	Output OutputConfig `yaml:"output" json:"output"`

	// Category classification rules
	Classifier ClassifierConfig `yaml:"classifier" json:"classifier"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// WikiConfig holds upstream MediaWiki settings
type WikiConfig struct {
	APIURL         string        `yaml:"api_url" json:"api_url"`
	PageBaseURL    string        `yaml:"page_base_url" json:"page_base_url"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent"`
	Namespace      int           `yaml:"namespace" json:"namespace"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
	// MetaNamespaces are site-specific project namespaces, e.g. the wiki's
	// own name on wiki farms. Titles and links in them are never terms.
	MetaNamespaces []string `yaml:"meta_namespaces" json:"meta_namespaces"`
}

// RateLimitConfig holds request pacing and retry configuration
type RateLimitConfig struct {
	RequestInterval    time.Duration `yaml:"request_interval" json:"request_interval"`
	MaxRetries         int           `yaml:"max_retries" json:"max_retries"`
	RetryDelay         time.Duration `yaml:"retry_delay" json:"retry_delay"`
	MaxRetryDelay      time.Duration `yaml:"max_retry_delay" json:"max_retry_delay"`
	ThrottleDelay      time.Duration `yaml:"throttle_delay" json:"throttle_delay"`
	MaxThrottleRetries int           `yaml:"max_throttle_retries" json:"max_throttle_retries"`
}

// CrawlConfig holds crawl-specific configuration
type CrawlConfig struct {
	PageLimit           int      `yaml:"page_limit" json:"page_limit"`
	BatchSize           int      `yaml:"batch_size" json:"batch_size"`
	CheckpointEvery     int      `yaml:"checkpoint_every" json:"checkpoint_every"`
	Workers             int      `yaml:"workers" json:"workers"`
	MinDefinitionLength int      `yaml:"min_definition_length" json:"min_definition_length"`
	MaxRelatedTerms     int      `yaml:"max_related_terms" json:"max_related_terms"`
	ExcludePatterns     []string `yaml:"exclude_patterns" json:"exclude_patterns"`
}

// CacheConfig holds checkpoint cache configuration
type CacheConfig struct {
	Directory    string        `yaml:"directory" json:"directory"`
	PrunePartial bool          `yaml:"prune_partial" json:"prune_partial"`
	LockTimeout  time.Duration `yaml:"lock_timeout" json:"lock_timeout"`
}

// OutputConfig holds artifact output configuration
type OutputConfig struct {
	Directory  string `yaml:"directory" json:"directory"`
	IndexFile  string `yaml:"index_file" json:"index_file"`
	ReportFile string `yaml:"report_file" json:"report_file"`
	Pretty     bool   `yaml:"pretty" json:"pretty"`
}

// ClassifierConfig holds the ordered classification rules.
// An empty rule list selects the built-in rules.
type ClassifierConfig struct {
	Fallback string       `yaml:"fallback" json:"fallback"`
	Rules    []RuleConfig `yaml:"rules" json:"rules"`
}

// RuleConfig maps a raw category pattern to an output category
type RuleConfig struct {
	Pattern  string `yaml:"pattern" json:"pattern"`
	Category string `yaml:"category" json:"category"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Wiki: WikiConfig{
			APIURL:         "https://kingdomdeath.fandom.com/api.php",
			PageBaseURL:    "https://kingdomdeath.fandom.com/wiki/",
			UserAgent:      "wikiglossary/1.0 (glossary crawler; offline batch job)",
			Namespace:      0,
			RequestTimeout: 30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestInterval:    500 * time.Millisecond,
			MaxRetries:         3,
			RetryDelay:         1 * time.Second,
			MaxRetryDelay:      30 * time.Second,
			ThrottleDelay:      5 * time.Second,
			MaxThrottleRetries: 8,
		},
		Crawl: CrawlConfig{
			PageLimit:           500,
			BatchSize:           50,
			CheckpointEvery:     200,
			Workers:             1,
			MinDefinitionLength: 20,
			MaxRelatedTerms:     20,
		},
		Cache: CacheConfig{
			Directory:    ".cache/wikiglossary",
			PrunePartial: false,
			LockTimeout:  5 * time.Second,
		},
		Output: OutputConfig{
			Directory:  "./data/glossary",
			IndexFile:  "index.json",
			ReportFile: "crawl-report.json",
			Pretty:     false,
		},
		Classifier: ClassifierConfig{
			Fallback: "Uncategorized",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv(envPrefix + "API_URL"); v != "" {
		c.Wiki.APIURL = v
	}
	if v := os.Getenv(envPrefix + "PAGE_BASE_URL"); v != "" {
		c.Wiki.PageBaseURL = v
	}
	if v := os.Getenv(envPrefix + "USER_AGENT"); v != "" {
		c.Wiki.UserAgent = v
	}
	if v := os.Getenv(envPrefix + "META_NAMESPACES"); v != "" {
		c.Wiki.MetaNamespaces = nil
		for _, ns := range strings.Split(v, ",") {
			if ns = strings.TrimSpace(ns); ns != "" {
				c.Wiki.MetaNamespaces = append(c.Wiki.MetaNamespaces, ns)
			}
		}
	}

	if v := os.Getenv(envPrefix + "REQUEST_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sREQUEST_INTERVAL: %w", envPrefix, err))
		} else {
			c.RateLimit.RequestInterval = d
		}
	}
	if v := os.Getenv(envPrefix + "MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_RETRIES: %w", envPrefix, err))
		} else {
			c.RateLimit.MaxRetries = n
		}
	}

	if v := os.Getenv(envPrefix + "WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sWORKERS: %w", envPrefix, err))
		} else if n > 0 {
			c.Crawl.Workers = n
		}
	}

	if v := os.Getenv(envPrefix + "CACHE_DIR"); v != "" {
		c.Cache.Directory = v
	}
	if v := os.Getenv(envPrefix + "PRUNE_PARTIAL"); v != "" {
		c.Cache.PrunePartial = strings.ToLower(v) == "true"
	}

	if v := os.Getenv(envPrefix + "OUTPUT_DIR"); v != "" {
		c.Output.Directory = v
	}

	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(envPrefix + "LOG_FILE"); v != "" {
		c.Logging.File = v
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
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
func findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".wikiglossary.yaml",
		".wikiglossary.yml",
		"wikiglossary.yaml",
		filepath.Join(home, ".config", "wikiglossary", "config.yaml"),
		filepath.Join(home, ".config", "wikiglossary", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// FindConfigFile exposes the discovery order used by LoadFromFile
func FindConfigFile() string {
	return findConfigFile()
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Wiki.APIURL == "" {
		errs = append(errs, errors.New("wiki API URL is required"))
	}
	if c.Wiki.PageBaseURL == "" {
		errs = append(errs, errors.New("wiki page base URL is required"))
	}
	if strings.TrimSpace(c.Wiki.UserAgent) == "" {
		errs = append(errs, errors.New("a descriptive user agent is required"))
	}
	for _, ns := range c.Wiki.MetaNamespaces {
		if strings.TrimSpace(ns) == "" || strings.Contains(ns, ":") {
			errs = append(errs, fmt.Errorf("invalid meta namespace %q", ns))
		}
	}
	if c.Wiki.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	if c.RateLimit.RequestInterval < 0 {
		errs = append(errs, errors.New("request interval cannot be negative"))
	}
	if c.RateLimit.MaxRetries < 1 {
		errs = append(errs, errors.New("max retries must be at least 1"))
	}
	if c.RateLimit.MaxThrottleRetries < 0 {
		errs = append(errs, errors.New("max throttle retries cannot be negative"))
	}
	if c.RateLimit.RetryDelay < 0 || c.RateLimit.ThrottleDelay < 0 {
		errs = append(errs, errors.New("retry delays cannot be negative"))
	}

	if c.Crawl.PageLimit <= 0 || c.Crawl.PageLimit > 500 {
		errs = append(errs, errors.New("page limit must be between 1 and 500"))
	}
	if c.Crawl.BatchSize <= 0 || c.Crawl.BatchSize > 50 {
		errs = append(errs, errors.New("batch size must be between 1 and 50"))
	}
	if c.Crawl.CheckpointEvery <= 0 {
		errs = append(errs, errors.New("checkpoint interval must be positive"))
	}
	if c.Crawl.Workers <= 0 {
		errs = append(errs, errors.New("workers must be positive"))
	}
	if c.Crawl.Workers > 8 {
		errs = append(errs, errors.New("workers should not exceed 8"))
	}
	if c.Crawl.MinDefinitionLength < 0 {
		errs = append(errs, errors.New("minimum definition length cannot be negative"))
	}
	if c.Crawl.MaxRelatedTerms < 0 {
		errs = append(errs, errors.New("max related terms cannot be negative"))
	}
	for _, p := range c.Crawl.ExcludePatterns {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("invalid exclude pattern %q: %w", p, err))
		}
	}

	if c.Cache.Directory == "" {
		errs = append(errs, errors.New("cache directory is required"))
	}

	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Output.IndexFile == "" {
		errs = append(errs, errors.New("index file name is required"))
	}

	if strings.TrimSpace(c.Classifier.Fallback) == "" {
		errs = append(errs, errors.New("classifier fallback category is required"))
	}
	for i, r := range c.Classifier.Rules {
		if r.Category == "" {
			errs = append(errs, fmt.Errorf("classifier rule %d has no category", i))
		}
		if _, err := regexp.Compile(r.Pattern); err != nil {
			errs = append(errs, fmt.Errorf("classifier rule %d: invalid pattern %q: %w", i, r.Pattern, err))
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	return errors.Join(errs...)
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

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.Directory = v
	}
	if v, ok := flags["cache-dir"].(string); ok && v != "" {
		c.Cache.Directory = v
	}
	if v, ok := flags["workers"].(int); ok && v > 0 {
		c.Crawl.Workers = v
	}
	if v, ok := flags["rate-interval"].(time.Duration); ok && v >= 0 {
		c.RateLimit.RequestInterval = v
	}
	if v, ok := flags["prune-partial"].(bool); ok {
		c.Cache.PrunePartial = v
	}
	if v, ok := flags["pretty"].(bool); ok {
		c.Output.Pretty = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".wikiglossary.env"))

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
