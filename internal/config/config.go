package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/dimitrmo/cygaz/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Fetcher   FetcherConfig   `mapstructure:"fetcher"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logging   logging.Config  `mapstructure:"logging"`
}

// ServerConfig covers the HTTP listener.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// FetcherConfig covers upstream access. TimeoutMS is milliseconds to match
// the TIMEOUT environment contract.
type FetcherConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	UserAgent  string `mapstructure:"user_agent"`
	TimeoutMS  int    `mapstructure:"timeout_ms"`
	RetryCount int    `mapstructure:"retry_count"`
}

// Timeout returns the fetch timeout as a duration.
func (f FetcherConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutMS) * time.Millisecond
}

// SchedulerConfig governs refresh cadence.
type SchedulerConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	AlignToStart bool          `mapstructure:"align_to_start"`
	StartupDelay time.Duration `mapstructure:"startup_delay"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CYGAZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindDeploymentEnv(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("fetcher.endpoint", "https://eforms.eservices.cyprus.gov.cy/MCIT/MCIT/PetroleumPrices")
	v.SetDefault("fetcher.user_agent", "")
	v.SetDefault("fetcher.timeout_ms", 600000)
	v.SetDefault("fetcher.retry_count", 0)

	v.SetDefault("scheduler.interval", "1h")
	v.SetDefault("scheduler.align_to_start", true)
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// bindDeploymentEnv wires the unprefixed variables the deployment contract
// uses: HOST, PORT, and TIMEOUT (fetch timeout in milliseconds).
func bindDeploymentEnv(v *viper.Viper) {
	_ = v.BindEnv("server.host", "CYGAZ_SERVER_HOST", "HOST")
	_ = v.BindEnv("server.port", "CYGAZ_SERVER_PORT", "PORT")
	_ = v.BindEnv("fetcher.timeout_ms", "CYGAZ_FETCHER_TIMEOUT_MS", "TIMEOUT")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Fetcher.TimeoutMS <= 0 {
		return fmt.Errorf("fetcher.timeout_ms must be greater than zero")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	return nil
}
