// Package config provides application configuration loaded from environment
// variables with defaults and validation. It covers the HTTP server, logging,
// storage, rate limiting and observability, plus the matching, dispatch,
// realtime and push settings of the engine.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// MatchConfig tunes candidate search and eligibility.
type MatchConfig struct {
	DefaultRadiusKm       float64 // MATCH_DEFAULT_RADIUS_KM, availability radius of donors who set none
	MaxRadiusKm           float64 // MATCH_MAX_RADIUS_KM, hard cap on any search
	DonationCooldownDays  int     // DONATION_COOLDOWN_DAYS
	EmergencyCooldownDays int     // EMERGENCY_COOLDOWN_DAYS
	TravelMode            string  // TRAVEL_MODE: driving|cycling|walking
	MaxCandidates         int     // MATCH_MAX_CANDIDATES
}

// DispatchConfig tunes notification fan-out and fulfillment.
type DispatchConfig struct {
	Concurrency    int // DISPATCH_CONCURRENCY
	DonationUnitMl int // DONATION_UNIT_ML
}

// RealtimeConfig configures the in-process hub and its optional bridges.
// Empty broker/URL values disable the bridge.
type RealtimeConfig struct {
	Buffer             int    // REALTIME_BUFFER, per-subscription queue size
	MQTTBroker         string // MQTT_BROKER, e.g. tcp://mosquitto:1883
	MQTTClientID       string // MQTT_CLIENT_ID
	MQTTTopicPrefix    string // MQTT_TOPIC_PREFIX
	RedisURL           string // REDIS_URL
	RedisChannelPrefix string // REDIS_CHANNEL_PREFIX
}

// PushConfig configures the OS/browser push surface.
type PushConfig struct {
	URLs      []string      // PUSH_URLS, shoutrrr service URLs
	DedupeTTL time.Duration // PUSH_DEDUPE_TTL
	Timeout   time.Duration // PUSH_TIMEOUT
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s; SSE streams are exempt
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Storage
	DBPath string // SQLite path

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Engine
	Match    MatchConfig
	Dispatch DispatchConfig
	Realtime RealtimeConfig
	Push     PushConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		DBPath: getenv("DB_PATH", "bloodlink.db"),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		Match: MatchConfig{
			DefaultRadiusKm:       getfloat("MATCH_DEFAULT_RADIUS_KM", 50),
			MaxRadiusKm:           getfloat("MATCH_MAX_RADIUS_KM", 150),
			DonationCooldownDays:  getint("DONATION_COOLDOWN_DAYS", 56),
			EmergencyCooldownDays: getint("EMERGENCY_COOLDOWN_DAYS", 90),
			TravelMode:            strings.ToLower(getenv("TRAVEL_MODE", "driving")),
			MaxCandidates:         getint("MATCH_MAX_CANDIDATES", 50),
		},
		Dispatch: DispatchConfig{
			Concurrency:    getint("DISPATCH_CONCURRENCY", 4),
			DonationUnitMl: getint("DONATION_UNIT_ML", 450),
		},
		Realtime: RealtimeConfig{
			Buffer:             getint("REALTIME_BUFFER", 64),
			MQTTBroker:         getenv("MQTT_BROKER", ""),
			MQTTClientID:       getenv("MQTT_CLIENT_ID", "bloodlink"),
			MQTTTopicPrefix:    strings.Trim(getenv("MQTT_TOPIC_PREFIX", "bloodlink"), "/"),
			RedisURL:           getenv("REDIS_URL", ""),
			RedisChannelPrefix: getenv("REDIS_CHANNEL_PREFIX", "bloodlink:"),
		},
		Push: PushConfig{
			URLs:      splitCSV(getenv("PUSH_URLS", "")),
			DedupeTTL: getdur("PUSH_DEDUPE_TTL", 10*time.Minute),
			Timeout:   getdur("PUSH_TIMEOUT", 10*time.Second),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "bloodlink"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
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
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if err := cfg.Match.validate(); err != nil {
		return cfg, err
	}
	if cfg.Dispatch.Concurrency < 1 {
		return cfg, errors.New("DISPATCH_CONCURRENCY must be >= 1")
	}
	if cfg.Dispatch.DonationUnitMl <= 0 {
		return cfg, errors.New("DONATION_UNIT_ML must be > 0")
	}
	if cfg.Realtime.Buffer < 1 {
		return cfg, errors.New("REALTIME_BUFFER must be >= 1")
	}
	if cfg.Push.DedupeTTL < 0 || cfg.Push.Timeout <= 0 {
		return cfg, errors.New("PUSH_DEDUPE_TTL must be >= 0 and PUSH_TIMEOUT > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

func (m MatchConfig) validate() error {
	if m.DefaultRadiusKm <= 0 || m.MaxRadiusKm <= 0 {
		return errors.New("MATCH_DEFAULT_RADIUS_KM and MATCH_MAX_RADIUS_KM must be > 0")
	}
	if m.DefaultRadiusKm > m.MaxRadiusKm {
		return errors.New("MATCH_DEFAULT_RADIUS_KM must not exceed MATCH_MAX_RADIUS_KM")
	}
	if m.DonationCooldownDays < 0 || m.EmergencyCooldownDays < 0 {
		return errors.New("cooldown days must be >= 0")
	}
	switch m.TravelMode {
	case "driving", "cycling", "walking":
	default:
		return errors.New("TRAVEL_MODE must be one of: driving, cycling, walking")
	}
	if m.MaxCandidates < 1 {
		return errors.New("MATCH_MAX_CANDIDATES must be >= 1")
	}
	return nil
}

// ---- helpers ----

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
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
