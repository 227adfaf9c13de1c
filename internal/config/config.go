// Package config loads runtime settings from config.yaml and INVOICEGEN_*
// environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// HTTPConfig holds the web listener settings.
type HTTPConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// APIConfig points at the invoicing backend.
type APIConfig struct {
	URL string
	// Timeout of zero leaves backend calls unbounded.
	Timeout time.Duration
}

// StoreConfig selects and configures the client token store.
type StoreConfig struct {
	Driver        string
	PostgresDSN   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TokenTTL      time.Duration
	SealKey       string
	SweepSchedule string
}

// AuthConfig toggles optional sign-in methods.
type AuthConfig struct {
	GoogleEnabled bool
}

// CookieConfig controls the client cookie attributes.
type CookieConfig struct {
	Secure bool
}

// AppConfig is the full application configuration.
type AppConfig struct {
	Environment string
	HTTP        HTTPConfig
	API         APIConfig
	Store       StoreConfig
	Auth        AuthConfig
	Cookie      CookieConfig
}

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Load reads the configuration. A missing config file is not an error.
func Load() (*AppConfig, error) {
	return load(viper.New(), ".", "./config")
}

func load(v *viper.Viper, paths ...string) (*AppConfig, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("INVOICEGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverRedis:
	case DriverPostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("config: store.postgresdsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	if c.API.URL == "" {
		return fmt.Errorf("config: api.url is required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.addr", ":5173")
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "30s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("api.url", "http://localhost:8006")
	v.SetDefault("api.timeout", "0s")

	v.SetDefault("store.driver", DriverMemory)
	v.SetDefault("store.postgresdsn", "")
	v.SetDefault("store.redisaddr", "127.0.0.1:6379")
	v.SetDefault("store.redispassword", "")
	v.SetDefault("store.redisdb", 0)
	v.SetDefault("store.tokenttl", "30m")
	v.SetDefault("store.sealkey", "")
	v.SetDefault("store.sweepschedule", "@every 10m")

	v.SetDefault("auth.googleenabled", false)
	v.SetDefault("cookie.secure", false)
}
