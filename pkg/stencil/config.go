package stencil

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config contains all configuration options for the rendering engine
type Config struct {
	// CacheMaxSize is the maximum number of parsed templates to cache. 0 disables caching.
	CacheMaxSize int `yaml:"cacheMaxSize"`
	// CacheTTL is the time-to-live for cached templates. 0 means no expiration.
	CacheTTL time.Duration `yaml:"cacheTTL"`
	// LogLevel controls the verbosity of logging (debug, info, warn, error, off)
	LogLevel string `yaml:"logLevel"`
	// MaxNestingDepth limits how deeply blocks may nest. Deeper blocks are
	// kept as text. It must be positive; zero means the default.
	MaxNestingDepth int `yaml:"maxNestingDepth"`
	// DateLayout is the Go layout for {{date}} and {{today}}
	DateLayout string `yaml:"dateLayout"`
	// TimeLayout is the Go layout for {{time}}
	TimeLayout string `yaml:"timeLayout"`
	// DateTimeLayout is the Go layout for {{datetime}}
	DateTimeLayout string `yaml:"dateTimeLayout"`
	// SanitizeValues strips unsafe HTML from substituted variable values
	SanitizeValues bool `yaml:"sanitizeValues"`
}

var (
	globalConfig      *Config
	globalConfigMutex sync.RWMutex
	configOnce        sync.Once
)

func init() {
	// Initialize global config from environment on first use
	configOnce.Do(func() {
		globalConfig = ConfigFromEnvironment()
	})
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		CacheMaxSize:    100,
		CacheTTL:        0,
		LogLevel:        "info",
		MaxNestingDepth: 32,
		DateLayout:      "2006-01-02",
		TimeLayout:      "15:04",
		DateTimeLayout:  "2006-01-02 15:04",
		SanitizeValues:  false,
	}
}

// ConfigFromEnvironment creates a configuration from environment variables
func ConfigFromEnvironment() *Config {
	config := DefaultConfig()
	applyEnvironment(config)
	return config
}

func applyEnvironment(config *Config) {
	// PAGESTENCIL_CACHE_MAX_SIZE
	if val := os.Getenv("PAGESTENCIL_CACHE_MAX_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			config.CacheMaxSize = size
		}
	}

	// PAGESTENCIL_CACHE_TTL
	if val := os.Getenv("PAGESTENCIL_CACHE_TTL"); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.CacheTTL = duration
		}
	}

	// PAGESTENCIL_LOG_LEVEL
	if val := os.Getenv("PAGESTENCIL_LOG_LEVEL"); val != "" {
		config.LogLevel = val
	}

	// PAGESTENCIL_MAX_NESTING_DEPTH
	if val := os.Getenv("PAGESTENCIL_MAX_NESTING_DEPTH"); val != "" {
		if depth, err := strconv.Atoi(val); err == nil && depth > 0 {
			config.MaxNestingDepth = depth
		}
	}

	if val := os.Getenv("PAGESTENCIL_DATE_LAYOUT"); val != "" {
		config.DateLayout = val
	}
	if val := os.Getenv("PAGESTENCIL_TIME_LAYOUT"); val != "" {
		config.TimeLayout = val
	}
	if val := os.Getenv("PAGESTENCIL_DATETIME_LAYOUT"); val != "" {
		config.DateTimeLayout = val
	}

	// PAGESTENCIL_SANITIZE_VALUES
	if val := os.Getenv("PAGESTENCIL_SANITIZE_VALUES"); val != "" {
		config.SanitizeValues = parseBool(val)
	}
}

// LoadConfigFile reads a YAML configuration file over the defaults and then
// applies environment overrides.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	config, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	applyEnvironment(config)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return config, nil
}

// ParseConfig decodes YAML configuration. Keys that are absent keep their
// default values.
func ParseConfig(data []byte) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return config, nil
}

// YAML encodes the configuration in the format read by LoadConfigFile.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// NewConfigWithDefaults creates a new configuration with defaults applied to unset fields
func NewConfigWithDefaults(overrides *Config) *Config {
	defaults := DefaultConfig()

	if overrides == nil {
		return defaults
	}

	// Create a copy of the overrides
	config := *overrides

	if config.LogLevel == "" {
		config.LogLevel = defaults.LogLevel
	}

	if config.MaxNestingDepth <= 0 {
		config.MaxNestingDepth = defaults.MaxNestingDepth
	}

	if config.DateLayout == "" {
		config.DateLayout = defaults.DateLayout
	}
	if config.TimeLayout == "" {
		config.TimeLayout = defaults.TimeLayout
	}
	if config.DateTimeLayout == "" {
		config.DateTimeLayout = defaults.DateTimeLayout
	}

	return &config
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.CacheMaxSize < 0 {
		return errors.New("cache max size cannot be negative")
	}

	if c.CacheTTL < 0 {
		return errors.New("cache TTL cannot be negative")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"off":   true,
	}

	if !validLogLevels[c.LogLevel] {
		return errors.New("invalid log level: " + c.LogLevel)
	}

	if c.MaxNestingDepth <= 0 {
		return errors.New("max nesting depth must be positive")
	}

	if c.DateLayout == "" || c.TimeLayout == "" || c.DateTimeLayout == "" {
		return errors.New("date and time layouts cannot be empty")
	}

	return nil
}

// GetGlobalConfig returns the global configuration
func GetGlobalConfig() *Config {
	globalConfigMutex.RLock()
	defer globalConfigMutex.RUnlock()

	if globalConfig == nil {
		return DefaultConfig()
	}

	// Return a copy to prevent modification
	configCopy := *globalConfig
	return &configCopy
}

// SetGlobalConfig sets the global configuration
func SetGlobalConfig(config *Config) {
	globalConfigMutex.Lock()
	globalConfig = config
	globalConfigMutex.Unlock()

	// Update logger based on new config (outside the lock to avoid deadlock)
	UpdateLoggerFromConfig()
	resetDefaultEngine()
}

// parseBool parses a boolean value from a string
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
