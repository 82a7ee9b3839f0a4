package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	v *viper.Viper
}

func New() (*Config, error) {
	v := viper.New()

	// default values
	for _, o := range WatchOptions {
		v.SetDefault(o.Key, o.Default)
	}

	// load config from file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/kubewatch/")

	if err := v.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !(errors.As(err, &notFoundErr) || errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// load config from environment variables
	v.SetEnvPrefix("KUBEWATCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return &Config{v: v}, nil
}

func (c *Config) BindFlags(fs *pflag.FlagSet, options []Option) error {
	for _, o := range options {
		switch v := o.Default.(type) {
		case string:
			fs.String(o.Flag, v, o.Description)
		case int:
			fs.Int(o.Flag, v, o.Description)
		case bool:
			fs.Bool(o.Flag, v, o.Description)
		case []string:
			fs.StringSlice(o.Flag, v, o.Description)
		case time.Duration:
			fs.Duration(o.Flag, v, o.Description)
		default:
			return fmt.Errorf("unsupported flag type for key: %s", o.Key)
		}

		if err := c.v.BindPFlag(o.Key, fs.Lookup(o.Flag)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", o.Flag, err)
		}
	}

	return nil
}

func (c *Config) WatchKubeconfig() string {
	return c.v.GetString(keyWatchKubeconfig) // KUBEWATCH_WATCH_KUBECONFIG
}

func (c *Config) WatchContext() string {
	return c.v.GetString(keyWatchContext) // KUBEWATCH_WATCH_CONTEXT
}

func (c *Config) WatchNamespace() string {
	return c.v.GetString(keyWatchNamespace) // KUBEWATCH_WATCH_NAMESPACE
}

func (c *Config) WatchLabelSelector() string {
	return c.v.GetString(keyWatchLabelSelector) // KUBEWATCH_WATCH_LABEL_SELECTOR
}

func (c *Config) WatchFieldSelector() string {
	return c.v.GetString(keyWatchFieldSelector) // KUBEWATCH_WATCH_FIELD_SELECTOR
}

func (c *Config) WatchReadTimeout() time.Duration {
	return c.v.GetDuration(keyWatchReadTimeout) // KUBEWATCH_WATCH_READ_TIMEOUT
}

func (c *Config) WatchTimeoutSeconds() int64 {
	return c.v.GetInt64(keyWatchTimeoutSeconds) // KUBEWATCH_WATCH_TIMEOUT_SECONDS
}

func (c *Config) WatchAllowBookmarks() bool {
	return c.v.GetBool(keyWatchAllowBookmarks) // KUBEWATCH_WATCH_ALLOW_BOOKMARKS
}

func (c *Config) WatchRestartBackoffBase() time.Duration {
	return c.v.GetDuration(keyWatchRestartBackoffBase) // KUBEWATCH_WATCH_RESTART_BACKOFF_BASE
}

func (c *Config) WatchRestartBackoffMax() time.Duration {
	return c.v.GetDuration(keyWatchRestartBackoffMax) // KUBEWATCH_WATCH_RESTART_BACKOFF_MAX
}

func (c *Config) MetricsAddress() string {
	return c.v.GetString(keyMetricsAddress) // KUBEWATCH_METRICS_ADDRESS
}

func (c *Config) MetricsAllowedOrigins() []string {
	return c.v.GetStringSlice(keyMetricsAllowedOrigins) // KUBEWATCH_METRICS_ALLOWED_ORIGINS
}

func (c *Config) DebugEnabled() bool {
	return c.v.GetBool(keyDebugEnabled) // KUBEWATCH_DEBUG_ENABLED
}
