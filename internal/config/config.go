// Package config loads process configuration from the environment and the
// session limits file.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/emiliopalmerini/mtranscript/internal/util"
)

// Database holds the libsql connection settings. An empty URL selects a local
// file in the XDG data directory.
type Database struct {
	URL       string `envconfig:"MTRANSCRIPT_DATABASE_URL"`
	AuthToken string `envconfig:"MTRANSCRIPT_AUTH_TOKEN"`
}

// Server holds the HTTP API settings.
type Server struct {
	Addr            string        `envconfig:"ADDR" default:":8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Archive selects where raw transcripts are kept on import. An empty Dir
// keeps them in the database.
type Archive struct {
	Dir string `envconfig:"MTRANSCRIPT_ARCHIVE_DIR"`
}

type Config struct {
	Database Database
	Server   Server
	Archive  Archive
	Debug    bool `envconfig:"MTRANSCRIPT_DEBUG"`
}

// Load reads .env from the working directory when present, then the
// environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// DatabaseURL returns the configured URL or the local default.
func (c *Config) DatabaseURL() (string, error) {
	if c.Database.URL != "" {
		return c.Database.URL, nil
	}
	path, err := util.DataPath("mtranscript.db")
	if err != nil {
		return "", err
	}
	return "file:" + path, nil
}
