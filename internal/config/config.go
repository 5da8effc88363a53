package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvDevelopment = "dev"
	EnvProduction  = "prod"
)

var (
	// errInvalidConfig tags values that parsed but break a startup rule.
	errInvalidConfig = errors.New("invalid configuration")
	// errMalformedEnv tags values that could not be parsed at all.
	errMalformedEnv = errors.New("malformed environment value")
)

type Config struct {
	Env      string
	HTTPAddr string

	// DatabaseURL is a postgres DSN. Empty falls back to a local
	// sqlite file, which is enough for development.
	DatabaseURL string
	SQLitePath  string

	// RedisAddr empty selects the in-memory session store.
	RedisAddr     string
	RedisPassword string

	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration

	SessionAbsoluteTimeout   time.Duration
	SessionInactivityTimeout time.Duration

	CookieName     string
	CSRFHeaderName string
	CookieSecure   bool

	LoginRatePerMinute int

	OTELServiceName           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsEnabled        bool
	OTELTracesEnabled         bool
	OTELLogsEnabled           bool
	OTELMetricsExportInterval time.Duration
	EnableOTelHTTP            bool

	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment and validates it. A
// missing or weak JWT secret is a fatal startup condition: the process
// must refuse to start rather than sign tokens with a guessable key.
func Load() (*Config, error) {
	cfg, err := load()
	env := ""
	if cfg != nil {
		env = cfg.Env
	}
	recordLoad(context.Background(), env, err)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func load() (*Config, error) {
	cfg := &Config{
		Env:                       envString("APP_ENV", EnvDevelopment),
		HTTPAddr:                  envString("HTTP_ADDR", ":8080"),
		DatabaseURL:               os.Getenv("DATABASE_URL"),
		SQLitePath:                envString("SQLITE_PATH", "groupcar.db"),
		RedisAddr:                 os.Getenv("REDIS_ADDR"),
		RedisPassword:             os.Getenv("REDIS_PASSWORD"),
		JWTSecret:                 os.Getenv("JWT_SECRET"),
		JWTIssuer:                 envString("JWT_ISSUER", "groupcar-server"),
		CookieName:                envString("SESSION_COOKIE_NAME", "groupcar_session"),
		CSRFHeaderName:            envString("CSRF_HEADER_NAME", "XSRF-TOKEN"),
		OTELServiceName:           envString("OTEL_SERVICE_NAME", "groupcar-server"),
		OTELExporterOTLPEndpoint:  envString("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure:  envBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELMetricsEnabled:        envBool("OTEL_METRICS_ENABLED", false),
		OTELTracesEnabled:         envBool("OTEL_TRACES_ENABLED", false),
		OTELLogsEnabled:           envBool("OTEL_LOGS_ENABLED", false),
		EnableOTelHTTP:            envBool("OTEL_HTTP_ENABLED", false),
		LoginRatePerMinute:        envInt("LOGIN_RATE_PER_MINUTE", 10),
	}

	var err error
	if cfg.TokenTTL, err = envDuration("JWT_TOKEN_TTL", 15*time.Minute); err != nil {
		return cfg, err
	}
	if cfg.SessionAbsoluteTimeout, err = envDuration("SESSION_ABSOLUTE_TIMEOUT", 24*time.Hour); err != nil {
		return cfg, err
	}
	if cfg.SessionInactivityTimeout, err = envDuration("SESSION_INACTIVITY_TIMEOUT", time.Hour); err != nil {
		return cfg, err
	}
	if cfg.OTELMetricsExportInterval, err = envDuration("OTEL_METRICS_EXPORT_INTERVAL", 30*time.Second); err != nil {
		return cfg, err
	}
	if cfg.ShutdownTimeout, err = envDuration("SHUTDOWN_TIMEOUT", 15*time.Second); err != nil {
		return cfg, err
	}
	cfg.CookieSecure = envBool("SESSION_COOKIE_SECURE", cfg.Env == EnvProduction)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("%w: JWT_SECRET is required", errInvalidConfig)
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("%w: JWT_SECRET must be at least 32 bytes", errInvalidConfig)
	}
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		return fmt.Errorf("%w: APP_ENV must be %q or %q", errInvalidConfig, EnvDevelopment, EnvProduction)
	}
	if c.SessionInactivityTimeout > c.SessionAbsoluteTimeout {
		return fmt.Errorf("%w: SESSION_INACTIVITY_TIMEOUT cannot exceed SESSION_ABSOLUTE_TIMEOUT", errInvalidConfig)
	}
	if c.Env == EnvProduction && !c.CookieSecure {
		return fmt.Errorf("%w: SESSION_COOKIE_SECURE must not be disabled in prod", errInvalidConfig)
	}
	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", errMalformedEnv, key, err)
	}
	return parsed, nil
}
