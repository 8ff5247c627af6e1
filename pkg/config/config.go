package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Config struct {
	Server  ServerConfig  `json:"server" mapstructure:"server"`
	Ads     AdsConfig     `json:"ads" mapstructure:"ads"`
	Render  RenderConfig  `json:"render" mapstructure:"render"`
	Cache   CacheConfig   `json:"cache" mapstructure:"cache"`
	Log     LogConfig     `json:"log" mapstructure:"log"`
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`
	Site    SiteConfig    `json:"site" mapstructure:"site"`
}

type ServerConfig struct {
	Host           string        `json:"host" mapstructure:"host"`
	Port           int           `json:"port" mapstructure:"port"`
	ReadTimeout    time.Duration `json:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `json:"write_timeout" mapstructure:"write_timeout"`
	AllowedOrigins []string      `json:"allowed_origins" mapstructure:"allowed_origins"`
}

// AdsConfig configures the optional AdSense integration. An empty Client
// disables every ad-related tag.
type AdsConfig struct {
	Client string `json:"client" mapstructure:"client"`
	Slot   string `json:"slot" mapstructure:"slot"`
	Format string `json:"format" mapstructure:"format"`
}

type RenderConfig struct {
	Backend string `json:"backend" mapstructure:"backend"` // "rsc" or "skip2"
}

type CacheConfig struct {
	Type       string        `json:"type" mapstructure:"type"` // "none", "memory" or "redis"
	TTL        time.Duration `json:"ttl" mapstructure:"ttl"`
	MaxEntries int           `json:"max_entries" mapstructure:"max_entries"`
	Redis      RedisConfig   `json:"redis" mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `json:"addr" mapstructure:"addr"`
	Password string `json:"password" mapstructure:"password"`
	DB       int    `json:"db" mapstructure:"db"`
	Prefix   string `json:"prefix" mapstructure:"prefix"`
}

type LogConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
}

type SiteConfig struct {
	Title        string `json:"title" mapstructure:"title"`
	Description  string `json:"description" mapstructure:"description"`
	ContactEmail string `json:"contact_email" mapstructure:"contact_email"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         3000,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Ads: AdsConfig{
			Slot:   "1234567890",
			Format: "auto",
		},
		Render: RenderConfig{
			Backend: "rsc",
		},
		Cache: CacheConfig{
			Type:       "memory",
			TTL:        10 * time.Minute,
			MaxEntries: 256,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "qrgen:render:",
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Site: SiteConfig{
			Title:        "Beautiful QR Code Generator",
			Description:  "Generate premium QR codes and download as PNG or SVG.",
			ContactEmail: "your-email@example.com",
		},
	}
}

func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".qrgen", "config.yaml")
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}

	switch strings.ToLower(c.Render.Backend) {
	case "rsc", "skip2":
	default:
		return fmt.Errorf("unsupported render.backend: %s (supported: rsc, skip2)", c.Render.Backend)
	}

	switch strings.ToLower(c.Cache.Type) {
	case "none", "memory":
	case "redis":
		if strings.TrimSpace(c.Cache.Redis.Addr) == "" {
			return fmt.Errorf("cache.redis.addr is required when cache.type is redis")
		}
	default:
		return fmt.Errorf("unsupported cache.type: %s (supported: none, memory, redis)", c.Cache.Type)
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unsupported log.format: %s (supported: json, console)", c.Log.Format)
	}

	return nil
}
