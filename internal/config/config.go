// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port                string
	DBPath              string
	RulesPath           string
	RulesWatch          bool
	KnowledgeBase       KnowledgeBaseConfig
	AllowedOrigins      []string
	SessionTTL          time.Duration
	SweepInterval       time.Duration
	RateLimit           RateLimitConfig
	MaxRequestBodyBytes int64
	LLM                 LLMConfig
	Advisory            AdvisoryConfig
	RandomSeed          int64
	Log                 LogConfig
	ConversationLog     ConversationLogConfig
	Timeout             TimeoutConfig
}

// KnowledgeBaseConfig selects the knowledge base directory and the KB
// loaded at startup. An empty Name uses the primary KB from the rules file.
type KnowledgeBaseConfig struct {
	Dir  string
	Name string
}

// RateLimitConfig bounds chat requests per client IP.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// LLMConfig configures the Ollama generation client.
type LLMConfig struct {
	Enabled    bool
	Endpoint   string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// AdvisoryConfig controls the model check for human-help requests.
type AdvisoryConfig struct {
	Enabled bool
	Timeout time.Duration
}

// LogConfig controls process logging.
type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// ConversationLogConfig controls the NDJSON transcript log.
type ConversationLogConfig struct {
	Enabled    bool
	Path       string
	QueueSize  int
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// TimeoutConfig holds server timeouts.
type TimeoutConfig struct {
	HealthCheck time.Duration
	Shutdown    time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:       getEnv("PORT", "8000"),
		DBPath:     getEnv("DB_PATH", "./data/faq.db"),
		RulesPath:  getEnv("RULES_PATH", "./configs/faq.yaml"),
		RulesWatch: getEnvBool("RULES_WATCH", true),
		KnowledgeBase: KnowledgeBaseConfig{
			Dir:  getEnv("KB_DIR", "./configs/knowledge_bases"),
			Name: getEnv("KB_NAME", ""),
		},
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		SessionTTL:     getEnvDuration("SESSION_TTL", 24*time.Hour),
		SweepInterval:  getEnvDuration("SWEEP_INTERVAL", 10*time.Minute),
		RateLimit: RateLimitConfig{
			Requests: getEnvInt("RATE_LIMIT_REQUESTS", 30),
			Window:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		MaxRequestBodyBytes: int64(getEnvInt("MAX_REQUEST_BODY_BYTES", 64*1024)),
		LLM: LLMConfig{
			Enabled:    getEnvBool("LLM_ENABLED", false),
			Endpoint:   getEnv("LLM_ENDPOINT", "http://localhost:11434"),
			Model:      getEnv("LLM_MODEL", "llama3.2:3b"),
			Timeout:    getEnvDuration("LLM_TIMEOUT", 15*time.Second),
			MaxRetries: getEnvInt("LLM_MAX_RETRIES", 1),
		},
		Advisory: AdvisoryConfig{
			Enabled: getEnvBool("ADVISORY_ENABLED", false),
			Timeout: getEnvDuration("ADVISORY_TIMEOUT", 3*time.Second),
		},
		RandomSeed: int64(getEnvInt("RANDOM_SEED", 0)),
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 50),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 30),
		},
		ConversationLog: ConversationLogConfig{
			Enabled:    getEnvBool("CONVERSATION_LOG_ENABLED", false),
			Path:       getEnv("CONVERSATION_LOG_PATH", "./data/logs/conversations.ndjson"),
			QueueSize:  getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000),
			MaxSizeMB:  getEnvInt("CONVERSATION_LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvInt("CONVERSATION_LOG_MAX_BACKUPS", 10),
			MaxAgeDays: getEnvInt("CONVERSATION_LOG_MAX_AGE_DAYS", 30),
		},
		Timeout: TimeoutConfig{
			HealthCheck: 5 * time.Second,
			Shutdown:    10 * time.Second,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.KnowledgeBase.Dir == "" {
		return fmt.Errorf("KB_DIR cannot be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be > 0")
	}
	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be > 0")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}
	if c.MaxRequestBodyBytes <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_BYTES must be > 0")
	}
	if c.LLM.Enabled {
		if c.LLM.Endpoint == "" {
			return fmt.Errorf("LLM_ENDPOINT cannot be empty when LLM_ENABLED is set")
		}
		if c.LLM.Model == "" {
			return fmt.Errorf("LLM_MODEL cannot be empty when LLM_ENABLED is set")
		}
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be > 0")
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("LLM_MAX_RETRIES must be >= 0")
	}
	if c.Advisory.Timeout <= 0 {
		return fmt.Errorf("ADVISORY_TIMEOUT must be > 0")
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if c.ConversationLog.Enabled && c.ConversationLog.Path == "" {
		return fmt.Errorf("CONVERSATION_LOG_PATH cannot be empty")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return fmt.Errorf("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
