package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

var ErrMissingSecret = errors.New("JWT_SECRET is required")

// Load reads defaults, an optional YAML file at path and the environment, in
// increasing precedence. Keys map to variables by upper-casing and replacing dots
// with underscores: jwt.access_ttl is JWT_ACCESS_TTL.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	v.SetDefault("app.name", "edgeauth")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.version", "")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", "5s")
	v.SetDefault("http.write_timeout", "10s")
	v.SetDefault("http.idle_timeout", "60s")
	v.SetDefault("http.graceful_timeout", "15s")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "")
	v.SetDefault("jwt.access_ttl", "15m")
	v.SetDefault("jwt.refresh_ttl", "720h")

	v.SetDefault("admin.email", "")
	v.SetDefault("admin.user_id", "")

	v.SetDefault("ratelimit.login.limit", 10)
	v.SetDefault("ratelimit.login.window", "60s")
	v.SetDefault("ratelimit.refresh.limit", 30)
	v.SetDefault("ratelimit.refresh.window", "60s")
	v.SetDefault("ratelimit.api.limit", 120)
	v.SetDefault("ratelimit.api.window", "60s")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "")
	v.SetDefault("store.op_timeout", "2s")

	v.SetDefault("cookie.name", "refresh_token")
	v.SetDefault("cookie.secure", false)

	v.SetDefault("auth.bypass", false)
	v.SetDefault("auth.test_user.email", "")
	v.SetDefault("auth.test_user.password", "")
	v.SetDefault("auth.test_user.id", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("otel.enable", false)
	v.SetDefault("otel.endpoint", "localhost:4317")
	v.SetDefault("otel.service_name", "edgeauth")
	v.SetDefault("otel.sample_ratio", 1.0)
	v.SetDefault("otel.metric_interval", "30s")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.flush_timeout", "5s")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return nil, ErrMissingSecret
	}
	return &cfg, nil
}
