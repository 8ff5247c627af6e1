package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// applyEnvOverrides applies selected runtime environment variables into config.
// It returns true when any value changed.
func applyEnvOverrides(cfg *Config) bool {
	if cfg == nil {
		return false
	}

	changed := false

	setString := func(dst *string, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		if *dst != value {
			*dst = value
			changed = true
		}
	}
	setInt := func(dst *int, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return
		}
		if *dst != parsed {
			*dst = parsed
			changed = true
		}
	}
	setBool := func(dst *bool, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return
		}
		if *dst != parsed {
			*dst = parsed
			changed = true
		}
	}
	setDuration := func(dst *time.Duration, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return
		}
		if *dst != parsed {
			*dst = parsed
			changed = true
		}
	}
	setList := func(dst *[]string, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		var out []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		*dst = out
		changed = true
	}

	env := func(keys ...string) string {
		for _, key := range keys {
			if value := strings.TrimSpace(os.Getenv(key)); value != "" {
				return value
			}
		}
		return ""
	}

	setString(&cfg.Server.Host, env("QRGEN_SERVER_HOST"))
	setInt(&cfg.Server.Port, env("QRGEN_SERVER_PORT", "PORT"))
	setDuration(&cfg.Server.ReadTimeout, env("QRGEN_SERVER_READ_TIMEOUT"))
	setDuration(&cfg.Server.WriteTimeout, env("QRGEN_SERVER_WRITE_TIMEOUT"))
	setList(&cfg.Server.AllowedOrigins, env("QRGEN_SERVER_ALLOWED_ORIGINS"))

	setString(&cfg.Ads.Client, env("QRGEN_ADSENSE_CLIENT", "NEXT_PUBLIC_ADSENSE_CLIENT", "ADSENSE_CLIENT"))
	setString(&cfg.Ads.Slot, env("QRGEN_ADSENSE_SLOT"))
	setString(&cfg.Ads.Format, env("QRGEN_ADSENSE_FORMAT"))

	setString(&cfg.Render.Backend, env("QRGEN_RENDER_BACKEND"))

	setString(&cfg.Cache.Type, env("QRGEN_CACHE_TYPE"))
	setDuration(&cfg.Cache.TTL, env("QRGEN_CACHE_TTL"))
	setInt(&cfg.Cache.MaxEntries, env("QRGEN_CACHE_MAX_ENTRIES"))
	setString(&cfg.Cache.Redis.Addr, env("QRGEN_REDIS_ADDR", "REDIS_ADDR"))
	setString(&cfg.Cache.Redis.Password, env("QRGEN_REDIS_PASSWORD", "REDIS_PASSWORD"))
	setInt(&cfg.Cache.Redis.DB, env("QRGEN_REDIS_DB"))
	setString(&cfg.Cache.Redis.Prefix, env("QRGEN_REDIS_PREFIX"))

	setString(&cfg.Log.Level, env("QRGEN_LOG_LEVEL"))
	setString(&cfg.Log.Format, env("QRGEN_LOG_FORMAT"))

	setBool(&cfg.Metrics.Enabled, env("QRGEN_METRICS_ENABLED"))
	setString(&cfg.Metrics.Path, env("QRGEN_METRICS_PATH"))

	setString(&cfg.Site.ContactEmail, env("QRGEN_CONTACT_EMAIL"))

	return changed
}
