package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

type Config struct {
	Port string `mapstructure:"PORT"`

	// Auth
	APIKey string `mapstructure:"CHARTDOCX_API_KEY"`

	// Correction service
	CorrectionEnabled  bool          `mapstructure:"CORRECTION_ENABLED"`
	CorrectionURL      string        `mapstructure:"CORRECTION_URL"`
	CorrectionAPIKey   string        `mapstructure:"CORRECTION_API_KEY"`
	CorrectionUsername string        `mapstructure:"CORRECTION_USERNAME"`
	CorrectionLanguage string        `mapstructure:"CORRECTION_LANGUAGE"`
	CorrectionRules    []string      `mapstructure:"CORRECTION_RULES"`
	CorrectionFallback bool          `mapstructure:"CORRECTION_FALLBACK"`
	CorrectionTimeout  time.Duration `mapstructure:"CORRECTION_TIMEOUT"`
	CorrectionCacheTTL time.Duration `mapstructure:"CORRECTION_CACHE_TTL"`

	// Worker pool
	MaxConcurrentCorrect int `mapstructure:"MAX_CONCURRENT_CORRECT"`
	WorkerCount          int `mapstructure:"WORKER_COUNT"`
	MaxQueueSize         int `mapstructure:"MAX_QUEUE_SIZE"`

	// Upload limits
	MaxUploadBytes int64 `mapstructure:"MAX_UPLOAD_BYTES"`

	// Job state
	JobTTL time.Duration `mapstructure:"JOB_TTL"`

	// Export
	TemplatePlaceholder string `mapstructure:"TEMPLATE_PLACEHOLDER"`
	DocumentAuthor      string `mapstructure:"DOCUMENT_AUTHOR"`
}

var keys = []string{
	"PORT",
	"CHARTDOCX_API_KEY",
	"CORRECTION_ENABLED",
	"CORRECTION_URL",
	"CORRECTION_API_KEY",
	"CORRECTION_USERNAME",
	"CORRECTION_LANGUAGE",
	"CORRECTION_RULES",
	"CORRECTION_FALLBACK",
	"CORRECTION_TIMEOUT",
	"CORRECTION_CACHE_TTL",
	"MAX_CONCURRENT_CORRECT",
	"WORKER_COUNT",
	"MAX_QUEUE_SIZE",
	"MAX_UPLOAD_BYTES",
	"JOB_TTL",
	"TEMPLATE_PLACEHOLDER",
	"DOCUMENT_AUTHOR",
}

// Load reads configuration from the environment and an optional .env file.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8090")
	v.SetDefault("CORRECTION_ENABLED", true)
	v.SetDefault("CORRECTION_URL", "https://api.languagetool.org/v2")
	v.SetDefault("CORRECTION_LANGUAGE", "en-US")
	v.SetDefault("CORRECTION_FALLBACK", true)
	v.SetDefault("CORRECTION_TIMEOUT", 20*time.Second)
	v.SetDefault("CORRECTION_CACHE_TTL", 30*time.Minute)
	v.SetDefault("MAX_CONCURRENT_CORRECT", 4)
	v.SetDefault("WORKER_COUNT", 2)
	v.SetDefault("MAX_QUEUE_SIZE", 50)
	v.SetDefault("MAX_UPLOAD_BYTES", 10<<20) // 10MB
	v.SetDefault("JOB_TTL", time.Hour)
	v.SetDefault("TEMPLATE_PLACEHOLDER", "{{content}}")
	v.SetDefault("DOCUMENT_AUTHOR", "chartdocx")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env is optional.
	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.CorrectionRules = splitList(cfg.CorrectionRules)

	if cfg.MaxConcurrentCorrect <= 0 {
		cfg.MaxConcurrentCorrect = 4
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 50
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = time.Hour
	}
	return cfg, nil
}

// splitList accepts both a real list and a single comma separated value.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks settings shared by every command.
func (c Config) Validate() error {
	if c.CorrectionEnabled {
		u, err := url.Parse(c.CorrectionURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("CORRECTION_URL must be an absolute URL, got %q", c.CorrectionURL)
		}
		if _, err := language.Parse(c.CorrectionLanguage); err != nil {
			return fmt.Errorf("CORRECTION_LANGUAGE %q: %w", c.CorrectionLanguage, err)
		}
		if c.CorrectionTimeout <= 0 {
			return fmt.Errorf("CORRECTION_TIMEOUT must be positive")
		}
	}
	if c.TemplatePlaceholder == "" {
		return fmt.Errorf("TEMPLATE_PLACEHOLDER must not be empty")
	}
	return nil
}

// ValidateServer additionally checks what the HTTP server needs.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("CHARTDOCX_API_KEY is required")
	}
	return nil
}
