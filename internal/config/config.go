package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"

	HasherBcrypt   = "bcrypt"
	HasherArgon2id = "argon2id"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`
	AppEnv   string `env:"APP_ENV" envDefault:"development"`

	StoreDriver   string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL   string `env:"DATABASE_URL"`
	MongoURI      string `env:"MONGO_URI"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"forum"`

	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	UserCacheTTL  time.Duration `env:"USER_CACHE_TTL" envDefault:"1m"`

	JWTSecret          string        `env:"JWT_SECRET,required"`
	JWTExpiresIn       time.Duration `env:"JWT_EXPIRES_IN" envDefault:"72h"`
	JWTCookieExpiresIn int           `env:"JWT_COOKIE_EXPIRES_IN" envDefault:"90"`

	PasswordHasher string        `env:"PASSWORD_HASHER" envDefault:"bcrypt"`
	BcryptCost     int           `env:"BCRYPT_COST" envDefault:"12"`
	ResetTokenTTL  time.Duration `env:"RESET_TOKEN_TTL" envDefault:"10m"`
	PublicBaseURL  string        `env:"PUBLIC_BASE_URL"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.PasswordHasher = strings.ToLower(strings.TrimSpace(cfg.PasswordHasher))
	cfg.PublicBaseURL = strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate revisa combinaciones que env no puede expresar con tags.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET must not be blank")
	}
	if c.JWTExpiresIn <= 0 {
		return errors.New("JWT_EXPIRES_IN must be positive")
	}
	if c.JWTCookieExpiresIn <= 0 {
		return errors.New("JWT_COOKIE_EXPIRES_IN must be positive")
	}
	if c.ResetTokenTTL <= 0 {
		return errors.New("RESET_TOKEN_TTL must be positive")
	}
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	case StoreDriverMongo:
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is required for the mongo store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.PasswordHasher {
	case HasherBcrypt, HasherArgon2id:
	default:
		return fmt.Errorf("unknown PASSWORD_HASHER %q", c.PasswordHasher)
	}
	// En producción el enlace de reseteo nunca se arma con el Host del cliente.
	if c.IsProduction() && c.PublicBaseURL == "" {
		return errors.New("PUBLIC_BASE_URL is required in production")
	}
	return nil
}

// IsProduction indica si la cookie de sesión debe marcarse Secure.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.AppEnv), "production")
}

// MigrateConfig es el subconjunto que necesita el comando migrate.
type MigrateConfig struct {
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
}

func LoadMigrateConfig() (*MigrateConfig, error) {
	var cfg MigrateConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// CookieTTL convierte JWT_COOKIE_EXPIRES_IN (días) en duración.
func (c *Config) CookieTTL() time.Duration {
	return time.Duration(c.JWTCookieExpiresIn) * 24 * time.Hour
}
