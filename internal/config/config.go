package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName          string
	AppEnv           string
	AppPort          string
	DatabaseURL      string
	RedisURL         string
	NATSURL          string
	JWTSecret        string
	AIAPIKey         string
	AIBaseURL        string
	AIModel          string
	AIMaxTokens      int
	AIRateLimit      int
	ScraperBaseURL   string
	ScraperTimeout   time.Duration
	ReferenceTTL     time.Duration
	ReferenceMaxAge  time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CAREER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Career Agent API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("ai.base_url", "https://router.huggingface.co/v1")
	v.SetDefault("ai.model", "meta-llama/Llama-4-Scout-17B-16E-Instruct")
	v.SetDefault("ai.max_tokens", 800)
	v.SetDefault("ai.rate_limit", 10)
	v.SetDefault("scraper.base_url", "https://roadmap.sh")
	v.SetDefault("scraper.timeout", "10s")
	v.SetDefault("reference.cache_ttl", "30m")
	v.SetDefault("reference.max_age", "168h")

	scraperTimeout, err := time.ParseDuration(v.GetString("scraper.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid scraper timeout: %w", err)
	}

	referenceTTL, err := time.ParseDuration(v.GetString("reference.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid reference cache ttl: %w", err)
	}

	referenceMaxAge, err := time.ParseDuration(v.GetString("reference.max_age"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid reference max age: %w", err)
	}

	cfg := Config{
		AppName:         v.GetString("app.name"),
		AppEnv:          v.GetString("app.env"),
		AppPort:         v.GetString("app.port"),
		DatabaseURL:     v.GetString("database.url"),
		RedisURL:        v.GetString("redis.url"),
		NATSURL:         v.GetString("nats.url"),
		JWTSecret:       v.GetString("jwt.secret"),
		AIAPIKey:        v.GetString("ai.api_key"),
		AIBaseURL:       v.GetString("ai.base_url"),
		AIModel:         v.GetString("ai.model"),
		AIMaxTokens:     v.GetInt("ai.max_tokens"),
		AIRateLimit:     v.GetInt("ai.rate_limit"),
		ScraperBaseURL:  v.GetString("scraper.base_url"),
		ScraperTimeout:  scraperTimeout,
		ReferenceTTL:    referenceTTL,
		ReferenceMaxAge: referenceMaxAge,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.AIAPIKey == "" {
		return Config{}, fmt.Errorf("ai api key must be provided")
	}

	if cfg.AIMaxTokens <= 0 {
		cfg.AIMaxTokens = 800
	}

	return cfg, nil
}
