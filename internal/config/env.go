package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvAPIKey    = "BINANCE_API_KEY"
	EnvAPISecret = "BINANCE_API_SECRET"
)

// LoadEnvFile loads KEY=VALUE pairs into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// ApplyEnv lets the environment supply credentials the config file left empty.
func (c *Config) ApplyEnv() {
	if c.Exchange.APIKey == "" {
		c.Exchange.APIKey = strings.TrimSpace(os.Getenv(EnvAPIKey))
	}
	if c.Exchange.APISecret == "" {
		c.Exchange.APISecret = strings.TrimSpace(os.Getenv(EnvAPISecret))
	}
}
