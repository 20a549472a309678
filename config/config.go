package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server ServerConfig
	Twilio TwilioConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// TwilioConfig holds the Twilio account and API key credentials used for both
// REST calls (basic auth) and access token signing.
type TwilioConfig struct {
	AccountSID   string
	APIKeySID    string
	APIKeySecret string
	TokenTTLSec  int
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env

	readTimeout, _ := strconv.Atoi(getEnv("READ_TIMEOUT_SEC", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("WRITE_TIMEOUT_SEC", "30"))

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "5000"),
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Twilio: TwilioConfig{
			AccountSID:   getEnv("TWILIO_ACCOUNT_SID", ""),
			APIKeySID:    getEnv("TWILIO_API_KEY_SID", ""),
			APIKeySecret: getEnv("TWILIO_API_KEY_SECRET", ""),
			TokenTTLSec:  getEnvInt("TWILIO_TOKEN_TTL_SEC", 3600),
		},
	}
	return cfg, nil
}

// Validate checks that the Twilio credentials are present. Every endpoint
// except the static pages depends on them, so missing values fail startup
// instead of surfacing on the first vendor call.
func (c *Config) Validate() error {
	switch {
	case c.Twilio.AccountSID == "":
		return fmt.Errorf("config: TWILIO_ACCOUNT_SID is required")
	case c.Twilio.APIKeySID == "":
		return fmt.Errorf("config: TWILIO_API_KEY_SID is required")
	case c.Twilio.APIKeySecret == "":
		return fmt.Errorf("config: TWILIO_API_KEY_SECRET is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
