package config

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// FakeAPIConfig configures the in-memory backend served by cmd/fakeapi.
type FakeAPIConfig struct {
	Env  string
	Addr string

	// Rate limiting, zero disables it
	RateLimit  int
	RateWindow int // seconds

	CORSOrigins []string
}

// LoadFakeAPI reads .env and the FAKEAPI_* environment variables.
func LoadFakeAPI() *FakeAPIConfig {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("could not load .env file: %v", err)
	}

	return &FakeAPIConfig{
		Env:         getEnv("ENV", "development"),
		Addr:        getEnv("FAKEAPI_ADDR", "localhost:8080"),
		RateLimit:   getEnvAsInt("FAKEAPI_RATE_LIMIT", 0),
		RateWindow:  getEnvAsInt("FAKEAPI_RATE_WINDOW", 60),
		CORSOrigins: splitList(getEnv("FAKEAPI_CORS_ORIGINS", "")),
	}
}

func (c *FakeAPIConfig) Window() time.Duration {
	return time.Duration(c.RateWindow) * time.Second
}

func (c *FakeAPIConfig) IsProduction() bool {
	return c.Env == "production"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
