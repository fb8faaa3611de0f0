package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration loaded from environment variables or config files.
type Config struct {
	AppEnv          string        `mapstructure:"APP_ENV" validate:"required,oneof=development staging production test"`
	HTTPAddr        string        `mapstructure:"HTTP_ADDR" validate:"required,hostname_port"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" validate:"required"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"required,oneof=debug info warn error dpanic panic fatal"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"required,oneof=json console"`

	DatabaseDriver string `mapstructure:"DATABASE_DRIVER" validate:"required,oneof=postgres mysql"`
	DatabaseURL    string `mapstructure:"DATABASE_URL" validate:"required"`

	// RedisAddr is optional; without it estimates are only generated synchronously.
	RedisAddr        string `mapstructure:"REDIS_ADDR" validate:"omitempty,hostname_port"`
	RedisPassword    string `mapstructure:"REDIS_PASSWORD"`
	AsynqConcurrency int    `mapstructure:"ASYNQ_CONCURRENCY" validate:"gte=1,lte=1000"`

	GoMaxProcs int `mapstructure:"GOMAXPROCS" validate:"gte=0,lte=4096"`

	GoogleAPIKey      string        `mapstructure:"GOOGLE_API_KEY"`
	GoogleModel       string        `mapstructure:"GOOGLE_MODEL" validate:"required"`
	GoogleBaseURL     string        `mapstructure:"GOOGLE_BASE_URL" validate:"required,url"`
	OpenRouterAPIKey  string        `mapstructure:"OPENROUTER_API_KEY"`
	OpenRouterModel   string        `mapstructure:"OPENROUTER_MODEL"`
	OpenRouterBaseURL string        `mapstructure:"OPENROUTER_BASE_URL" validate:"required,url"`
	ProviderTimeout   time.Duration `mapstructure:"PROVIDER_TIMEOUT" validate:"required"`

	AuthHMACSecret string  `mapstructure:"AUTH_HMAC_SECRET"`
	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS" validate:"gt=0"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST" validate:"gte=1"`
	CORSOrigins    string  `mapstructure:"CORS_ORIGINS"`
}

var (
	cfg      *Config
	validate = validator.New(validator.WithRequiredStructEnabled())
)

var keys = []string{
	"APP_ENV",
	"HTTP_ADDR",
	"SHUTDOWN_TIMEOUT",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"DATABASE_DRIVER",
	"DATABASE_URL",
	"REDIS_ADDR",
	"REDIS_PASSWORD",
	"ASYNQ_CONCURRENCY",
	"GOMAXPROCS",
	"GOOGLE_API_KEY",
	"GOOGLE_MODEL",
	"GOOGLE_BASE_URL",
	"OPENROUTER_API_KEY",
	"OPENROUTER_MODEL",
	"OPENROUTER_BASE_URL",
	"PROVIDER_TIMEOUT",
	"AUTH_HMAC_SECRET",
	"RATE_LIMIT_RPS",
	"RATE_LIMIT_BURST",
	"CORS_ORIGINS",
}

// Load initializes configuration using Viper. It loads from .env if present,
// applies defaults, binds env vars, and validates the result.
func Load() (*Config, error) {
	// Load .env if present (non-fatal)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", "0.0.0.0:8787")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("ASYNQ_CONCURRENCY", 4)
	v.SetDefault("GOMAXPROCS", 0)
	v.SetDefault("GOOGLE_MODEL", "gemini-1.5-flash-latest")
	v.SetDefault("GOOGLE_BASE_URL", "https://generativelanguage.googleapis.com")
	v.SetDefault("OPENROUTER_BASE_URL", "https://openrouter.ai")
	v.SetDefault("PROVIDER_TIMEOUT", "45s")
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)

	// Optional config file
	_ = v.ReadInConfig()

	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	// Parse duration types that may come as string
	for key, dst := range map[string]*time.Duration{
		"SHUTDOWN_TIMEOUT": &c.ShutdownTimeout,
		"PROVIDER_TIMEOUT": &c.ProviderTimeout,
	} {
		if s := v.GetString(key); s != "" {
			d, err := time.ParseDuration(s)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = d
		}
	}

	c.GoogleAPIKey = strings.TrimSpace(c.GoogleAPIKey)
	c.OpenRouterAPIKey = strings.TrimSpace(c.OpenRouterAPIKey)
	c.OpenRouterModel = strings.TrimSpace(c.OpenRouterModel)

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if c.GoMaxProcs > 0 {
		runtime.GOMAXPROCS(c.GoMaxProcs)
	}

	cfg = &c
	return cfg, nil
}

// MustLoad loads configuration or exits the process on failure.
func MustLoad() *Config {
	c, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	return c
}

// Get returns the loaded configuration. Panics if not loaded.
func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call config.Load or config.MustLoad first")
	}
	return cfg
}

// QueueEnabled reports whether a Redis address is configured for asynq.
func (c *Config) QueueEnabled() bool { return c.RedisAddr != "" }

// CORSOriginList splits CORS_ORIGINS; an empty value allows every origin.
func (c *Config) CORSOriginList() []string {
	if strings.TrimSpace(c.CORSOrigins) == "" {
		return []string{"*"}
	}
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
