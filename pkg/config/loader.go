package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/beautifulqr/qrgen/pkg/logger"
)

// LoadConfig builds the runtime configuration: defaults, then the optional
// config file (JSON or YAML), then environment overrides. An empty path
// falls back to DefaultConfigPath and tolerates its absence.
func LoadConfig(path string) (*Config, error) {
	loadEnvFile(".")

	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}

	if err := readConfigFile(path, cfg); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func readConfigFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	return nil
}

// loadEnvFile loads .env files from dir when present. Variables already
// set in the environment win. A malformed file is skipped with a warning.
func loadEnvFile(dir string) {
	for _, name := range []string{".env", ".env.local"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			logger.WarnCF("config", "Ignoring unreadable env file", map[string]interface{}{
				"path":  p,
				"error": err.Error(),
			})
		}
	}
}
