/*
Package config loads runtime settings for the diet-plan service from the
process environment. A .env file in the working directory is honoured through
godotenv so local runs behave the same as deployed ones.
*/
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds every tunable used by the server and the generation core.
type Config struct {
	// Port is the TCP port the HTTP server listens on.
	Port int

	// AppEnv is "local" for developer machines; anything else is treated as deployed.
	AppEnv   string
	LogLevel zerolog.Level

	// NutritionDriver selects the reference store backend: "sqlite" or "postgres".
	NutritionDriver string
	// NutritionDBPath is the SQLite file produced by cmd/nutriload.
	NutritionDBPath string
	// NutritionDBURL is the Postgres connection string used when NutritionDriver is "postgres".
	NutritionDBURL     string
	NutritionCacheSize int

	GeminiAPIKey     string
	GeminiModel      string
	GeminiBaseURL    string
	// GeminiMaxRetries is how many times a transient failure is retried.
	GeminiMaxRetries int

	// GenerationTimeout bounds every call to the generation backend.
	GenerationTimeout time.Duration

	// Caps on the data injected into a generation context.
	MaxNutritionRecords int
	MaxPolicyExcerpts   int
	MaxAlternatives     int

	// ReportUnmatchedFoods turns menu items missing from the reference store
	// into a plan warning instead of dropping them silently.
	ReportUnmatchedFoods bool

	SpeechAPIKey  string
	WeatherAPIKey string

	// RateLimitRPS is the per-client request rate allowed on generation routes.
	RateLimitRPS float64
	// TrustedProxies are the ranges whose X-Forwarded-For entries are believed
	// when identifying a client. Empty means the peer address is used as is.
	TrustedProxies []*net.IPNet
}

// Defaults used when the matching environment variable is missing or invalid.
const (
	DefaultPort                = 8080
	DefaultNutritionDriver     = "sqlite"
	DefaultNutritionDBPath     = "data/ifct.db"
	DefaultNutritionCacheSize  = 512
	DefaultGeminiModel         = "gemini-2.5-flash"
	DefaultGeminiBaseURL       = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiMaxRetries    = 3
	DefaultGenerationTimeout   = 45 * time.Second
	DefaultMaxNutritionRecords = 15
	DefaultMaxPolicyExcerpts   = 5
	DefaultMaxAlternatives     = 5
	DefaultRateLimitRPS        = 2
)

// Load reads a .env file if present and builds a Config from the environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 intEnv("PORT", DefaultPort),
		AppEnv:               stringEnv("APP_ENV", "production"),
		NutritionDriver:      strings.ToLower(stringEnv("NUTRITION_DB_DRIVER", DefaultNutritionDriver)),
		NutritionDBPath:      stringEnv("NUTRITION_DB_PATH", DefaultNutritionDBPath),
		NutritionDBURL:       os.Getenv("NUTRITION_DB_URL"),
		NutritionCacheSize:   intEnv("NUTRITION_CACHE_SIZE", DefaultNutritionCacheSize),
		GeminiAPIKey:         os.Getenv("GEMINI_API_KEY"),
		GeminiModel:          stringEnv("GEMINI_MODEL", DefaultGeminiModel),
		GeminiBaseURL:        strings.TrimRight(stringEnv("GEMINI_BASE_URL", DefaultGeminiBaseURL), "/"),
		GeminiMaxRetries:     intEnv("GEMINI_MAX_RETRIES", DefaultGeminiMaxRetries),
		GenerationTimeout:    durationEnv("GENERATION_TIMEOUT", DefaultGenerationTimeout),
		MaxNutritionRecords:  intEnv("MAX_NUTRITION_RECORDS", DefaultMaxNutritionRecords),
		MaxPolicyExcerpts:    intEnv("MAX_POLICY_EXCERPTS", DefaultMaxPolicyExcerpts),
		MaxAlternatives:      intEnv("MAX_ALTERNATIVES", DefaultMaxAlternatives),
		ReportUnmatchedFoods: boolEnv("REPORT_UNMATCHED_FOODS", false),
		SpeechAPIKey:         os.Getenv("SPEECH_API_KEY"),
		WeatherAPIKey:        os.Getenv("WEATHER_API_KEY"),
		RateLimitRPS:         floatEnv("RATE_LIMIT_RPS", DefaultRateLimitRPS),
	}

	level, err := zerolog.ParseLevel(strings.ToLower(stringEnv("LOG_LEVEL", "info")))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	proxies, err := parseCIDRs(os.Getenv("TRUSTED_PROXIES"))
	if err != nil {
		return nil, fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}
	cfg.TrustedProxies = proxies

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.NutritionDriver {
	case "sqlite":
		if c.NutritionDBPath == "" {
			return fmt.Errorf("NUTRITION_DB_PATH is required for the sqlite driver")
		}
	case "postgres":
		if c.NutritionDBURL == "" {
			return fmt.Errorf("NUTRITION_DB_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported NUTRITION_DB_DRIVER %q", c.NutritionDriver)
	}

	if c.GenerationTimeout <= 0 {
		return fmt.Errorf("GENERATION_TIMEOUT must be positive")
	}
	if c.MaxNutritionRecords < 0 || c.MaxPolicyExcerpts < 0 || c.MaxAlternatives <= 0 {
		return fmt.Errorf("context caps must not be negative and MAX_ALTERNATIVES must be positive")
	}
	return nil
}

// IsLocal reports whether the service runs on a developer machine.
func (c *Config) IsLocal() bool {
	return c.AppEnv == "local"
}

// parseCIDRs reads a comma separated list of CIDR ranges or bare IPs.
func parseCIDRs(raw string) ([]*net.IPNet, error) {
	var nets []*net.IPNet
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !strings.Contains(part, "/") {
			ip := net.ParseIP(part)
			if ip == nil {
				return nil, fmt.Errorf("%q is not an IP or CIDR", part)
			}
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			part = fmt.Sprintf("%s/%d", part, bits)
		}
		_, n, err := net.ParseCIDR(part)
		if err != nil {
			return nil, err
		}
		nets = append(nets, n)
	}
	return nets, nil
}

func stringEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func floatEnv(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func boolEnv(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

// durationEnv accepts Go duration strings ("30s") or a bare number of seconds.
func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
