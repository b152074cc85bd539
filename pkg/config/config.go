package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const devJWTSecret = "dev-secret-change-me"

type CORSConfig struct {
	AllowedOrigins []string
}

type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig controls trace export.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// KiwifyConfig holds payment provider credentials.
type KiwifyConfig struct {
	WebhookToken string
	BaseURL      string
	ClientID     string
	ClientSecret string
	AccountID    string
	PlanPeriod   time.Duration
}

// SalesAPIEnabled reports whether the sales listing credentials are set.
func (k KiwifyConfig) SalesAPIEnabled() bool {
	return k.ClientID != "" && k.ClientSecret != "" && k.AccountID != ""
}

type Config struct {
	// Server
	Port            string
	Env             string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	BodyLimit       string
	APIBasePath     string

	// Logging
	LogLevel  string
	LogPretty bool

	// Storage
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string

	// Firebase
	FirebaseCredentialsPath string
	FirebaseStorageBucket   string

	// Auth
	JWTSecret string
	TokenTTL  time.Duration

	// Media
	MaxImageBytes int64
	MaxVideoBytes int64

	// Rate limiting
	RateRPS   float64
	RateBurst int

	CORS     CORSConfig
	Security SecurityConfig
	OTEL     OTELConfig
	Kiwify   KiwifyConfig

	// Stories
	ReapInterval time.Duration
}

func (c Config) IsProduction() bool { return c.Env == "production" }

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads .env when present, then the environment, and validates the result.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:            getenv("PORT", "8080"),
		Env:             strings.ToLower(getenv("ENV", "development")),
		ReadTimeout:     getdur("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getdur("WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:     getdur("IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getdur("SHUTDOWN_TIMEOUT", 10*time.Second),
		BodyLimit:       getenv("BODY_LIMIT", "60M"),
		APIBasePath:     normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		DatabaseURL:   getenv("POSTGRES_URL", "sqlite:community.db"),
		MongoURI:      getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getenv("MONGO_DATABASE", "socialmedia"),

		FirebaseCredentialsPath: getenv("FIREBASE_CREDENTIALS_PATH", ""),
		FirebaseStorageBucket:   getenv("FIREBASE_STORAGE_BUCKET", ""),

		JWTSecret: getenv("JWT_SECRET", devJWTSecret),
		TokenTTL:  getdur("TOKEN_TTL", 72*time.Hour),

		MaxImageBytes: int64(getint("MAX_IMAGE_BYTES", 10<<20)),
		MaxVideoBytes: int64(getint("MAX_VIDEO_BYTES", 50<<20)),

		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 20),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "community-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
		Kiwify: KiwifyConfig{
			WebhookToken: getenv("KIWIFY_WEBHOOK_TOKEN", ""),
			BaseURL:      getenv("KIWIFY_API_URL", ""),
			ClientID:     getenv("KIWIFY_CLIENT_ID", ""),
			ClientSecret: getenv("KIWIFY_CLIENT_SECRET", ""),
			AccountID:    getenv("KIWIFY_ACCOUNT_ID", ""),
			PlanPeriod:   getdur("KIWIFY_PLAN_PERIOD", 30*24*time.Hour),
		},
		ReapInterval: getdur("STORY_REAP_INTERVAL", 10*time.Minute),
	}

	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 || cfg.ShutdownTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return cfg, errors.New("POSTGRES_URL must not be empty")
	}
	if strings.TrimSpace(cfg.MongoURI) == "" {
		return cfg, errors.New("MONGO_URI must not be empty")
	}
	if cfg.JWTSecret == "" {
		return cfg, errors.New("JWT_SECRET must not be empty")
	}
	if cfg.IsProduction() && cfg.JWTSecret == devJWTSecret {
		return cfg, errors.New("JWT_SECRET must be set in production")
	}
	if cfg.TokenTTL <= 0 {
		return cfg, errors.New("TOKEN_TTL must be > 0")
	}
	if cfg.MaxImageBytes <= 0 || cfg.MaxVideoBytes <= 0 {
		return cfg, errors.New("MAX_IMAGE_BYTES and MAX_VIDEO_BYTES must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	if cfg.Kiwify.PlanPeriod <= 0 {
		return cfg, errors.New("KIWIFY_PLAN_PERIOD must be > 0")
	}
	if cfg.ReapInterval <= 0 {
		return cfg, errors.New("STORY_REAP_INTERVAL must be > 0")
	}
	return cfg, nil
}

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures a leading '/' and strips a trailing one.
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if p = strings.TrimRight(p, "/"); p == "" {
		return "/"
	}
	return p
}
