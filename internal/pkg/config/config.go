package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/apiecommerce/identity-service/internal/core/domain"
	"github.com/apiecommerce/identity-service/internal/infrastructure/security"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

type Config struct {
	Port          string   `env:"PORT,           default=8080"`
	Env           string   `env:"ENV,            default=development"`
	LogLevel      string   `env:"LOG_LEVEL,      default=info"`
	StorageDriver string   `env:"STORAGE_DRIVER, default=mongo"`
	CORSOrigins   []string `env:"CORS_ORIGINS,   default=*"`

	Auth     AuthConfig
	Mongo    MongoConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Events   EventsConfig
}

type AuthConfig struct {
	JWTSecret            string        `env:"JWT_SECRET"`
	JWTTTL               time.Duration `env:"JWT_TTL,                     default=2h"`
	JWTIssuer            string        `env:"JWT_ISSUER,                  default=identity-service"`
	BcryptCost           int           `env:"BCRYPT_COST,                 default=10"`
	UniformLoginErrors   bool          `env:"AUTH_UNIFORM_LOGIN_ERRORS,   default=false"`
	OpenRoleRegistration bool          `env:"AUTH_OPEN_ROLE_REGISTRATION, default=false"`
	LoginMaxAttempts     int           `env:"LOGIN_MAX_ATTEMPTS,          default=5"`
	LoginLockout         time.Duration `env:"LOGIN_LOCKOUT,               default=15m"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=identity"`
}

type PostgresConfig struct {
	URL string `env:"DATABASE_URL"`
}

// RedisConfig is optional: an empty Addr disables the login throttle.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
}

// EventsConfig is optional: an empty AMQPURL logs events instead of publishing them.
type EventsConfig struct {
	AMQPURL string `env:"AMQP_URL"`
	Queue   string `env:"EVENTS_QUEUE,  default=identity.events"`
	Workers int    `env:"EVENT_WORKERS, default=4"`
}

// Load reads configuration from environment variables and validates it.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

// LoadFrom reads configuration from an explicit key/value map.
func LoadFrom(ctx context.Context, env map[string]string) (*Config, error) {
	return load(ctx, envconfig.MapLookuper(env))
}

func load(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the process cannot start without.
func (c *Config) Validate() error {
	secret := strings.TrimSpace(c.Auth.JWTSecret)
	if secret == "" {
		return fmt.Errorf("%w: JWT_SECRET is required", domain.ErrConfiguration)
	}
	if len(secret) < security.MinSecretLength {
		return fmt.Errorf("%w: JWT_SECRET must be at least %d bytes", domain.ErrConfiguration, security.MinSecretLength)
	}
	if c.Auth.JWTTTL <= 0 {
		return fmt.Errorf("%w: JWT_TTL must be positive", domain.ErrConfiguration)
	}

	switch c.StorageDriver {
	case DriverMongo:
		if c.Mongo.URI == "" || c.Mongo.Database == "" {
			return fmt.Errorf("%w: MONGO_URI and MONGO_DB are required for the mongo driver", domain.ErrConfiguration)
		}
	case DriverPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("%w: DATABASE_URL is required for the postgres driver", domain.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown STORAGE_DRIVER %q", domain.ErrConfiguration, c.StorageDriver)
	}
	return nil
}

// IsDevelopment reports whether the process runs with ENV=development.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}
