package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrMissingDBConfig is returned by RequireDB when the SurrealDB settings are incomplete.
var ErrMissingDBConfig = errors.New("required environment variables SURREAL_URL, SURREAL_NS, or SURREAL_DB are not set")

// Provider exposes the application configuration to the rest of the system.
// Components depend on this interface rather than on *Config so tests can
// substitute their own values.
type Provider interface {
	GetDBURL() string
	GetDBNs() string
	GetDBDb() string
	GetDBUser() string
	GetDBPass() string
	GetDBQueryTimeout() time.Duration
	GetDBExecuteTimeout() time.Duration

	GetServerAddr() string
	GetSessionSecret() string

	// GetDMUIDs returns the participant ids that act as the Dungeon Master.
	GetDMUIDs() []string
	// GetMessageLimit is the number of most recent log entries the engine reads.
	GetMessageLimit() int
	// GetErrorPhotoURL is the avatar attached to private command-failure messages.
	GetErrorPhotoURL() string
	// GetRosterFile is a JSON roster imported at startup, if set.
	GetRosterFile() string
}

// Config holds all configuration for the application.
type Config struct {
	DBUrl            string        `env:"SURREAL_URL"`
	DBNs             string        `env:"SURREAL_NS"`
	DBDb             string        `env:"SURREAL_DB"`
	DBUser           string        `env:"SURREAL_USER"`
	DBPass           string        `env:"SURREAL_PASS"`
	DBQueryTimeout   time.Duration `env:"DB_QUERY_TIMEOUT" envDefault:"5s"`
	DBExecuteTimeout time.Duration `env:"DB_EXECUTE_TIMEOUT" envDefault:"10s"`

	ServerAddr    string `env:"SERVER_ADDR" envDefault:":8080"`
	SessionSecret string `env:"SESSION_SECRET" envDefault:"tavern-dev-secret"`

	DMUIDs        []string `env:"TABLE_DM_UIDS" envSeparator:","`
	MessageLimit  int      `env:"TABLE_MESSAGE_LIMIT" envDefault:"100"`
	ErrorPhotoURL string   `env:"TABLE_ERROR_PHOTO_URL" envDefault:"https://cdn-icons-png.flaticon.com/512/5219/5219070.png"`
	RosterFile    string   `env:"TABLE_ROSTER_FILE"`
}

var _ Provider = (*Config)(nil)

// New loads configuration from the environment, reading a .env file first if one exists.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	return FromEnv()
}

// FromEnv parses the current process environment without touching .env files.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.MessageLimit <= 0 {
		cfg.MessageLimit = 100
	}
	return cfg, nil
}

// RequireDB reports whether the settings needed to reach SurrealDB are present.
func (c *Config) RequireDB() error {
	if c.DBUrl == "" || c.DBNs == "" || c.DBDb == "" {
		return ErrMissingDBConfig
	}
	return nil
}

func (c *Config) GetDBURL() string                  { return c.DBUrl }
func (c *Config) GetDBNs() string                   { return c.DBNs }
func (c *Config) GetDBDb() string                   { return c.DBDb }
func (c *Config) GetDBUser() string                 { return c.DBUser }
func (c *Config) GetDBPass() string                 { return c.DBPass }
func (c *Config) GetDBQueryTimeout() time.Duration   { return c.DBQueryTimeout }
func (c *Config) GetDBExecuteTimeout() time.Duration { return c.DBExecuteTimeout }
func (c *Config) GetServerAddr() string             { return c.ServerAddr }
func (c *Config) GetSessionSecret() string          { return c.SessionSecret }
func (c *Config) GetDMUIDs() []string               { return c.DMUIDs }
func (c *Config) GetMessageLimit() int              { return c.MessageLimit }
func (c *Config) GetErrorPhotoURL() string          { return c.ErrorPhotoURL }
func (c *Config) GetRosterFile() string             { return c.RosterFile }
