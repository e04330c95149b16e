package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the concierge API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Redis      RedisConfig      `yaml:"redis"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Cache      CacheConfig      `yaml:"cache"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// PostgresConfig holds the authoritative business store settings.
type PostgresConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds the shared cache / vector index settings.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	ReviewIndex      string   `yaml:"review_index"`
	PhotoIndex       string   `yaml:"photo_index"`
}

// OpenAIConfig holds settings for the OpenAI-compatible provider serving
// classification, generation, and query embedding.
type OpenAIConfig struct {
	APIKey          string `yaml:"api_key"`
	BaseURL         string `yaml:"base_url"`
	ClassifierModel string `yaml:"classifier_model"`
	GeneratorModel  string `yaml:"generator_model"`
	EmbeddingModel  string `yaml:"embedding_model"`
	EmbeddingDims   int    `yaml:"embedding_dimensions"`
}

// CacheConfig holds the tier-1 bound. TTLs per namespace are design
// constants, not configuration.
type CacheConfig struct {
	LocalCapacity int `yaml:"local_capacity"`
}

// BreakerSettings holds per-dependency circuit breaker thresholds.
type BreakerSettings struct {
	FailureThreshold   int `yaml:"failure_threshold"`
	SuccessThreshold   int `yaml:"success_threshold"`
	RecoveryTimeoutSec int `yaml:"recovery_timeout_sec"`
}

// ResilienceConfig holds breaker thresholds, call budgets, and limiter
// capacities.
type ResilienceConfig struct {
	Breakers         map[string]BreakerSettings `yaml:"breakers"`
	StructuredBudget int                        `yaml:"structured_budget_ms"`
	VectorBudget     int                        `yaml:"vector_budget_ms"`
	GeneratorBudget  int                        `yaml:"generator_budget_ms"`
	VectorSlots      int                        `yaml:"vector_slots"`
	GenerateSlots    int                        `yaml:"generate_slots"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Redis.ReadinessTimeout <= 0 {
		c.Redis.ReadinessTimeout = 10
	}
	if c.Redis.ReviewIndex == "" {
		c.Redis.ReviewIndex = "idx:reviews"
	}
	if c.Redis.PhotoIndex == "" {
		c.Redis.PhotoIndex = "idx:photos"
	}
	if c.Cache.LocalCapacity <= 0 {
		c.Cache.LocalCapacity = 10000
	}
	if c.Resilience.StructuredBudget <= 0 {
		c.Resilience.StructuredBudget = 40
	}
	if c.Resilience.VectorBudget <= 0 {
		c.Resilience.VectorBudget = 80
	}
	if c.Resilience.GeneratorBudget <= 0 {
		c.Resilience.GeneratorBudget = 1000
	}
	if c.Resilience.VectorSlots <= 0 {
		c.Resilience.VectorSlots = 64
	}
	if c.Resilience.GenerateSlots <= 0 {
		c.Resilience.GenerateSlots = 32
	}
	if c.OpenAI.ClassifierModel == "" {
		c.OpenAI.ClassifierModel = "gpt-4o-mini"
	}
	if c.OpenAI.GeneratorModel == "" {
		c.OpenAI.GeneratorModel = "gpt-4o-mini"
	}
	if c.OpenAI.EmbeddingModel == "" {
		c.OpenAI.EmbeddingModel = "text-embedding-3-small"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Postgres.URL == "" {
		return fmt.Errorf("postgres.url is required")
	}
	if len(c.Redis.Addrs) == 0 {
		return fmt.Errorf("redis.addrs is required")
	}
	for name, b := range c.Resilience.Breakers {
		if b.FailureThreshold < 0 || b.SuccessThreshold < 0 || b.RecoveryTimeoutSec < 0 {
			return fmt.Errorf("resilience.breakers.%s: thresholds must be non-negative", name)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
