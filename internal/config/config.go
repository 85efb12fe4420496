package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/edgeauth"
	"github.com/MrEthical07/edgeauth/internal/obs"
	"github.com/MrEthical07/edgeauth/kv"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

// Production reports whether APP_ENV selects the hardened posture.
func (a App) Production() bool {
	switch strings.ToLower(a.Env) {
	case "prod", "production":
		return true
	}
	return false
}

type HTTP struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

type JWT struct {
	Secret     string        `mapstructure:"secret"`
	Issuer     string        `mapstructure:"issuer"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
}

// Admin holds comma-separated override lists.
type Admin struct {
	Email  string `mapstructure:"email"`
	UserID string `mapstructure:"user_id"`
}

type Policy struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

type RateLimit struct {
	Login   Policy `mapstructure:"login"`
	Refresh Policy `mapstructure:"refresh"`
	API     Policy `mapstructure:"api"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type Store struct {
	OpTimeout time.Duration `mapstructure:"op_timeout"`
}

type Cookie struct {
	Name   string `mapstructure:"name"`
	Secure bool   `mapstructure:"secure"`
}

type TestUser struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
	ID       string `mapstructure:"id"`
}

type Auth struct {
	Bypass   bool     `mapstructure:"bypass"`
	TestUser TestUser `mapstructure:"test_user"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type OTEL struct {
	Enable         bool          `mapstructure:"enable"`
	Endpoint       string        `mapstructure:"endpoint"`
	ServiceName    string        `mapstructure:"service_name"`
	SampleRatio    float64       `mapstructure:"sample_ratio"`
	MetricInterval time.Duration `mapstructure:"metric_interval"`
}

type Toggle struct {
	Enabled bool `mapstructure:"enabled"`
}

type Audit struct {
	Enabled      bool          `mapstructure:"enabled"`
	FlushTimeout time.Duration `mapstructure:"flush_timeout"`
}

// Config is the process configuration of the edgeauth server.
type Config struct {
	App       App       `mapstructure:"app"`
	HTTP      HTTP      `mapstructure:"http"`
	JWT       JWT       `mapstructure:"jwt"`
	Admin     Admin     `mapstructure:"admin"`
	RateLimit RateLimit `mapstructure:"ratelimit"`
	Redis     Redis     `mapstructure:"redis"`
	Store     Store     `mapstructure:"store"`
	Cookie    Cookie    `mapstructure:"cookie"`
	Auth      Auth      `mapstructure:"auth"`
	Log       Log       `mapstructure:"log"`
	OTEL      OTEL      `mapstructure:"otel"`
	Metrics   Toggle    `mapstructure:"metrics"`
	Audit     Audit     `mapstructure:"audit"`
}

// String hides the JWT secret and the Redis and test-user passwords.
func (c *Config) String() string {
	return fmt.Sprintf("config.Config{env=%q http=%q redis=%q prefix=%q issuer=%q access_ttl=%s refresh_ttl=%s bypass=%t metrics=%t audit=%t otel=%t}",
		c.App.Env, c.HTTP.Addr, c.Redis.Addr, c.Redis.Prefix, c.JWT.Issuer, c.JWT.AccessTTL, c.JWT.RefreshTTL,
		c.Auth.Bypass, c.Metrics.Enabled, c.Audit.Enabled, c.OTEL.Enable)
}

// Engine maps the process configuration onto the library configuration.
func (c *Config) Engine() edgeauth.Config {
	out := edgeauth.DefaultConfig()
	out.JWT.Secret = []byte(c.JWT.Secret)
	out.JWT.Issuer = c.JWT.Issuer
	out.JWT.AccessTTL = c.JWT.AccessTTL
	out.JWT.RefreshTTL = c.JWT.RefreshTTL
	out.Admin.Emails = splitList(c.Admin.Email)
	out.Admin.UserIDs = splitList(c.Admin.UserID)
	out.RateLimit.Login = edgeauth.RatePolicy(c.RateLimit.Login)
	out.RateLimit.Refresh = edgeauth.RatePolicy(c.RateLimit.Refresh)
	out.RateLimit.API = edgeauth.RatePolicy(c.RateLimit.API)
	out.Store.OpTimeout = c.Store.OpTimeout
	out.Store.RedisPrefix = c.Redis.Prefix
	out.Cookie.Name = c.Cookie.Name
	out.Cookie.Secure = c.Cookie.Secure || c.App.Production()
	out.Audit.Enabled = c.Audit.Enabled
	out.Audit.FlushTimeout = c.Audit.FlushTimeout
	out.Metrics.Enabled = c.Metrics.Enabled
	out.Metrics.EnableLatencyHistograms = c.Metrics.Enabled
	out.Production = c.App.Production()
	return out
}

func (c *Config) RedisConfig() kv.RedisConfig {
	return kv.RedisConfig{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	}
}

func (c *Config) StaticAuthenticator() edgeauth.StaticAuthenticatorConfig {
	return edgeauth.StaticAuthenticatorConfig{
		Bypass:           c.Auth.Bypass,
		Production:       c.App.Production(),
		TestUserEmail:    c.Auth.TestUser.Email,
		TestUserPassword: c.Auth.TestUser.Password,
		TestUserID:       c.Auth.TestUser.ID,
	}
}

func (c *Config) LoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:  c.Log.Level,
		Pretty: c.Log.Pretty,
		App:    c.App.Name,
		Env:    c.App.Env,
		Ver:    c.App.Version,
	}
}

func (c *Config) OTELConfig() obs.OTELConfig {
	return obs.OTELConfig{
		Enable:         c.OTEL.Enable,
		Endpoint:       c.OTEL.Endpoint,
		ServiceName:    c.OTEL.ServiceName,
		SampleRatio:    c.OTEL.SampleRatio,
		MetricInterval: c.OTEL.MetricInterval,
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
