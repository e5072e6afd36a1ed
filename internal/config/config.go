package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	StoreDriverFile     = "file"
	StoreDriverPostgres = "postgres"
)

type Config struct {
	ServerPort              string        `env:"SERVER_PORT" envDefault:"8080"`
	ServerReadHeaderTimeout time.Duration `env:"SERVER_READ_HEADER_TIMEOUT" envDefault:"10s"`
	ServerWriteTimeout      time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	ServerIdleTimeout       time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"120s"`
	RequestTimeout          time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`

	UsersFile string `env:"USERS_FILE" envDefault:"./data/users.json"`
	BooksFile string `env:"BOOKS_FILE" envDefault:"./data/books.json"`

	SecretKey  string        `env:"SECRET_KEY"`
	TokenTTL   time.Duration `env:"TOKEN_TTL" envDefault:"1h"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"12"`

	SkipRateLimit       bool  `env:"SKIP_RATE_LIMIT" envDefault:"false"`
	RateLimitMaxAttempt int   `env:"RATE_LIMIT_MAX_ATTEMPTS" envDefault:"5"`
	RateLimitWindowMs   int64 `env:"RATE_LIMIT_WINDOW_MS" envDefault:"900000"`
	GeneralRateLimitRPM int   `env:"GENERAL_RATE_LIMIT_RPM" envDefault:"300"`

	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`
	TrustProxy  bool     `env:"TRUST_PROXY" envDefault:"false"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"file"`
	DatabaseURL string `env:"DATABASE_URL"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns  int32  `env:"DB_MIN_CONNS" envDefault:"1"`

	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string `env:"LOG_FORMAT" envDefault:"pretty"`
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.SecretKey = strings.TrimSpace(cfg.SecretKey)
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.CORSOrigins = trimAll(cfg.CORSOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY is required")
	}

	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.RateLimitMaxAttempt <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX_ATTEMPTS must be positive")
	}

	if c.RateLimitWindowMs <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW_MS must be positive")
	}

	switch c.StoreDriver {
	case StoreDriverFile:
		if strings.TrimSpace(c.UsersFile) == "" {
			return fmt.Errorf("USERS_FILE cannot be empty")
		}
		if strings.TrimSpace(c.BooksFile) == "" {
			return fmt.Errorf("BOOKS_FILE cannot be empty")
		}
	case StoreDriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	return nil
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowMs) * time.Millisecond
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
