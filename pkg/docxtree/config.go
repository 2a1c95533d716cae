package docxtree

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config contains all configuration options for the engine
type Config struct {
	// LogLevel controls the verbosity of logging (debug, info, warn, error, off)
	LogLevel string `yaml:"log_level"`
	// LogFile, when set, also writes JSON logs to a rotating file
	LogFile string `yaml:"log_file"`
	// ValidateIDsOnOpen rejects documents whose paragraph ids collide
	ValidateIDsOnOpen bool `yaml:"validate_ids_on_open"`
	// TemplateDir overrides the embedded part skeletons with files from disk
	TemplateDir string `yaml:"template_dir"`
	// TemplateCacheTTL is how long skeletons read from TemplateDir are cached. 0 means forever.
	TemplateCacheTTL time.Duration `yaml:"template_cache_ttl"`
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
		LogLevel:          "info",
		ValidateIDsOnOpen: true,
	}
}

// ConfigFromEnvironment creates a configuration from environment variables
func ConfigFromEnvironment() *Config {
	config := DefaultConfig()

	// DOCXTREE_LOG_LEVEL
	if val := os.Getenv("DOCXTREE_LOG_LEVEL"); val != "" {
		config.LogLevel = val
	}

	// DOCXTREE_LOG_FILE
	if val := os.Getenv("DOCXTREE_LOG_FILE"); val != "" {
		config.LogFile = val
	}

	// DOCXTREE_VALIDATE_IDS
	if val := os.Getenv("DOCXTREE_VALIDATE_IDS"); val != "" {
		config.ValidateIDsOnOpen = parseBool(val)
	}

	// DOCXTREE_TEMPLATE_DIR
	if val := os.Getenv("DOCXTREE_TEMPLATE_DIR"); val != "" {
		config.TemplateDir = val
	}

	// DOCXTREE_TEMPLATE_CACHE_TTL
	if val := os.Getenv("DOCXTREE_TEMPLATE_CACHE_TTL"); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.TemplateCacheTTL = duration
		}
	}

	return config
}

// LoadConfigFile reads a YAML configuration file. Keys missing from the file
// keep their default values.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
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

	if c.TemplateCacheTTL < 0 {
		return errors.New("template cache TTL cannot be negative")
	}

	if c.TemplateDir != "" {
		info, err := os.Stat(c.TemplateDir)
		if err != nil {
			return fmt.Errorf("template dir: %w", err)
		}
		if !info.IsDir() {
			return errors.New("template dir is not a directory: " + c.TemplateDir)
		}
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
}

// parseBool parses a boolean value from a string
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
