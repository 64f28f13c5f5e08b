package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	configName = "rbstore"
	configType = "yaml"
	envPrefix  = "RBSTORE"
)

// Load reads configuration from path (or ./rbstore.yaml, $HOME/rbstore.yaml
// when path is empty), environment variables and defaults. A missing
// config file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("server.listen", ":50051")
	v.SetDefault("server.metrics_listen", ":9464")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("feed.backend", "none")
	v.SetDefault("feed.brokers", []string{})
	v.SetDefault("feed.topic", "rbstore.changes")
	v.SetDefault("feed.queue_size", 4096)
	v.SetDefault("feed.batch_size", 256)
	v.SetDefault("feed.flush_interval", "250ms")
	v.SetDefault("feed.max_retries", 5)
	v.SetDefault("feed.retry_backoff", "100ms")

	v.SetDefault("stress.workers", 16)
	v.SetDefault("stress.readers", 4)
	v.SetDefault("stress.ops", 500)
	v.SetDefault("stress.key_space", 400)
	v.SetDefault("stress.value_size", 32)
	v.SetDefault("stress.seed", 1)
}
