package pressroom

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/avolier/pressroom/storage"
)

// Config holds all site configuration, loaded from environment variables.
type Config struct {
	Env     string `env:"APP_ENV" env-default:"development"`
	Addr    string `env:"ADDR" env-default:":3000"`
	BaseURL string `env:"BASE_URL" env-default:"http://localhost:3000"`

	// DatabaseURL selects the durable backend. Empty means the in-memory
	// fallback, which storage.Open refuses in production.
	DatabaseURL       string        `env:"DATABASE_URL"`
	DBMaxConns        int32         `env:"DATABASE_MAX_CONNS" env-default:"10"`
	DBMinConns        int32         `env:"DATABASE_MIN_CONNS" env-default:"2"`
	DBMaxConnLifetime time.Duration `env:"DATABASE_MAX_CONN_LIFETIME" env-default:"1h"`
	DBMaxConnIdleTime time.Duration `env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`

	AdminPassword string `env:"ADMIN_PASSWORD"`
	SessionSecret string `env:"SESSION_SECRET"`
	CookieSecure  bool   `env:"COOKIE_SECURE" env-default:"false"`

	StaticDir  string `env:"STATIC_DIR" env-default:"public"`
	UploadsDir string `env:"UPLOADS_DIR" env-default:"public/uploads"`

	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `env:"LOG_FORMAT" env-default:"json"`
}

// LoadConfig reads configuration from the environment and validates it.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required")
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	return nil
}

// Production reports whether this is a production-designated environment.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// cookieSecure forces secure cookies in production regardless of the flag.
func (c *Config) cookieSecure() bool {
	return c.CookieSecure || c.Production()
}

// StorageConfig translates the app configuration for storage.Open.
func (c *Config) StorageConfig() storage.Config {
	return storage.Config{
		DatabaseURL:     c.DatabaseURL,
		Production:      c.Production(),
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: c.DBMaxConnLifetime,
		MaxConnIdleTime: c.DBMaxConnIdleTime,
	}
}
