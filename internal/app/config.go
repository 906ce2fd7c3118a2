package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"ddigate/internal/domain"
)

// Config is the environment-driven gateway configuration. Every field can
// be set through a DDIGATE_* variable; an optional YAML file provides the
// same keys for development setups.
type Config struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`

	RPCListenAddress   string `mapstructure:"rpc_listen_address"`
	AdminListenAddress string `mapstructure:"admin_listen_address"`

	CacheEnabled    bool `mapstructure:"cache_enabled"`
	CacheTTLSeconds int  `mapstructure:"cache_ttl_seconds"`

	RequestTimeoutSeconds   int `mapstructure:"request_timeout_seconds"`
	BreakerFailureThreshold int `mapstructure:"breaker_failure_threshold"`
	BreakerResetSeconds     int `mapstructure:"breaker_reset_seconds"`

	TracingEndpoint string `mapstructure:"tracing_endpoint"`

	LogFormat string `mapstructure:"log_format"`
	LogLevel  string `mapstructure:"log_level"`

	CacheHitRateFloor float64 `mapstructure:"cache_hit_rate_floor"`
}

// Load reads configuration from the environment (DDIGATE_ prefix) and,
// when configPath is non-empty, a YAML file. Environment wins.
func Load(configPath string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DDIGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("base_url", domain.DefaultBaseURL)
	v.SetDefault("api_key", "")
	v.SetDefault("rpc_listen_address", domain.DefaultRPCListenAddress)
	v.SetDefault("admin_listen_address", domain.DefaultAdminListenAddress)
	v.SetDefault("cache_enabled", true)
	v.SetDefault("cache_ttl_seconds", int(domain.DefaultCacheTTL.Seconds()))
	v.SetDefault("request_timeout_seconds", int(domain.DefaultRequestTimeout.Seconds()))
	v.SetDefault("breaker_failure_threshold", domain.DefaultBreakerFailureThreshold)
	v.SetDefault("breaker_reset_seconds", int(domain.DefaultBreakerResetTimeout.Seconds()))
	v.SetDefault("tracing_endpoint", "")
	v.SetDefault("log_format", domain.DefaultLogFormat)
	v.SetDefault("log_level", domain.DefaultLogLevel)
	v.SetDefault("cache_hit_rate_floor", domain.DefaultCacheHitRateFloor)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate rejects configurations the gateway cannot start with.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("api key is required (DDIGATE_API_KEY)")
	}
	if c.RPCListenAddress == "" {
		return errors.New("rpc listen address is required")
	}
	if c.AdminListenAddress == "" {
		return errors.New("admin listen address is required")
	}
	if c.RequestTimeoutSeconds <= 0 {
		return errors.New("request timeout must be positive")
	}
	if c.BreakerFailureThreshold <= 0 {
		return errors.New("breaker failure threshold must be positive")
	}
	if c.BreakerResetSeconds <= 0 {
		return errors.New("breaker reset timeout must be positive")
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("log format must be json or console, got %q", c.LogFormat)
	}
	return nil
}

func (c Config) cacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func (c Config) requestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c Config) breakerReset() time.Duration {
	return time.Duration(c.BreakerResetSeconds) * time.Second
}
