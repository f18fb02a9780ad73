package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Env string `yaml:"env"`

	// API settings
	APIURL     string `yaml:"api_url"`
	APITimeout int    `yaml:"api_timeout"` // seconds

	// Session storage
	TokenFile string `yaml:"token_file"`

	// Logging
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	LogFile       string `yaml:"log_file"`
	LogMaxSizeMB  int    `yaml:"log_max_size_mb"`
	LogMaxBackups int    `yaml:"log_max_backups"`

	// Background work
	UnreadPollInterval int `yaml:"unread_poll_interval"` // seconds
	MasterDataWaitMS   int `yaml:"master_data_wait_ms"`
}

func Defaults() *Config {
	return &Config{
		Env:                "development",
		APIURL:             "http://localhost:8080/api",
		APITimeout:         30,
		TokenFile:          defaultTokenFile(),
		LogLevel:           "info",
		LogFormat:          "text",
		LogMaxSizeMB:       10,
		LogMaxBackups:      3,
		UnreadPollInterval: 30,
		MasterDataWaitMS:   2,
	}
}

// Load reads .env, then the optional YAML file named by CONSOLE_CONFIG, then
// environment variables. Later sources win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("could not load .env file: %v", err)
	}

	config := Defaults()

	if path := os.Getenv("CONSOLE_CONFIG"); path != "" {
		if err := config.loadFile(path); err != nil {
			return nil, err
		}
	}

	config.Env = getEnv("ENV", config.Env)
	config.APIURL = getEnv("API_URL", config.APIURL)
	config.APITimeout = getEnvAsInt("API_TIMEOUT", config.APITimeout)
	config.TokenFile = getEnv("TOKEN_FILE", config.TokenFile)
	config.LogLevel = getEnv("LOG_LEVEL", config.LogLevel)
	config.LogFormat = getEnv("LOG_FORMAT", config.LogFormat)
	config.LogFile = getEnv("LOG_FILE", config.LogFile)
	config.LogMaxSizeMB = getEnvAsInt("LOG_MAX_SIZE_MB", config.LogMaxSizeMB)
	config.LogMaxBackups = getEnvAsInt("LOG_MAX_BACKUPS", config.LogMaxBackups)
	config.UnreadPollInterval = getEnvAsInt("UNREAD_POLL_INTERVAL", config.UnreadPollInterval)
	config.MasterDataWaitMS = getEnvAsInt("MASTER_DATA_WAIT_MS", config.MasterDataWaitMS)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid API_URL %q", c.APIURL)
	}
	if c.APITimeout <= 0 {
		return fmt.Errorf("API_TIMEOUT must be positive, got %d", c.APITimeout)
	}
	if c.UnreadPollInterval <= 0 {
		return fmt.Errorf("UNREAD_POLL_INTERVAL must be positive, got %d", c.UnreadPollInterval)
	}
	if c.MasterDataWaitMS < 0 {
		return fmt.Errorf("MASTER_DATA_WAIT_MS must not be negative, got %d", c.MasterDataWaitMS)
	}
	if c.TokenFile == "" {
		return errors.New("TOKEN_FILE must be set")
	}
	return nil
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.APITimeout) * time.Second
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.UnreadPollInterval) * time.Second
}

func (c *Config) MasterDataWait() time.Duration {
	return time.Duration(c.MasterDataWaitMS) * time.Millisecond
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".directory-console", "session.json")
	}
	return filepath.Join(home, ".directory-console", "session.json")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
