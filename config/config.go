// Package config loads rbstore settings from a YAML file, RBSTORE_*
// environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"rbstore/infra/feed"
	"rbstore/jobs/broadcaster"
)

type Config struct {
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
	Feed   FeedConfig   `mapstructure:"feed" yaml:"feed"`
	Stress StressConfig `mapstructure:"stress" yaml:"stress"`
}

type ServerConfig struct {
	Listen          string        `mapstructure:"listen" yaml:"listen"`
	MetricsListen   string        `mapstructure:"metrics_listen" yaml:"metrics_listen"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type FeedConfig struct {
	Backend       string        `mapstructure:"backend" yaml:"backend"`
	Brokers       []string      `mapstructure:"brokers" yaml:"brokers"`
	Topic         string        `mapstructure:"topic" yaml:"topic"`
	QueueSize     int           `mapstructure:"queue_size" yaml:"queue_size"`
	BatchSize     int           `mapstructure:"batch_size" yaml:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval" yaml:"flush_interval"`
	MaxRetries    int           `mapstructure:"max_retries" yaml:"max_retries"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff" yaml:"retry_backoff"`
}

type StressConfig struct {
	Workers   int   `mapstructure:"workers" yaml:"workers"`
	Readers   int   `mapstructure:"readers" yaml:"readers"`
	Ops       int   `mapstructure:"ops" yaml:"ops"`
	KeySpace  int   `mapstructure:"key_space" yaml:"key_space"`
	ValueSize int   `mapstructure:"value_size" yaml:"value_size"`
	Seed      int64 `mapstructure:"seed" yaml:"seed"`
}

// Validate checks cross-field constraints that defaults cannot express.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Listen == "" {
		errs = append(errs, errors.New("server.listen is required"))
	}
	switch strings.ToLower(c.Feed.Backend) {
	case feed.BackendNone, "":
	case feed.BackendKafkaGo, feed.BackendSarama:
		if len(c.Feed.Brokers) == 0 {
			errs = append(errs, fmt.Errorf("feed.brokers is required for backend %q", c.Feed.Backend))
		}
		if c.Feed.Topic == "" {
			errs = append(errs, fmt.Errorf("feed.topic is required for backend %q", c.Feed.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("feed.backend %q is not one of none, kafka-go, sarama", c.Feed.Backend))
	}
	if c.Feed.QueueSize < 0 || c.Feed.BatchSize < 0 || c.Feed.MaxRetries < 0 {
		errs = append(errs, errors.New("feed sizes and retries must not be negative"))
	}
	if c.Stress.Workers <= 0 || c.Stress.Ops <= 0 || c.Stress.KeySpace <= 0 {
		errs = append(errs, errors.New("stress.workers, stress.ops and stress.key_space must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) FeedPublisher() feed.Config {
	return feed.Config{Backend: c.Feed.Backend, Brokers: c.Feed.Brokers, Topic: c.Feed.Topic}
}

func (c *Config) Broadcaster() broadcaster.Config {
	return broadcaster.Config{
		QueueSize:     c.Feed.QueueSize,
		BatchSize:     c.Feed.BatchSize,
		FlushInterval: c.Feed.FlushInterval,
		MaxRetries:    c.Feed.MaxRetries,
		RetryBackoff:  c.Feed.RetryBackoff,
		DrainTimeout:  c.Server.ShutdownTimeout,
	}
}

// Dump renders the effective configuration as YAML.
func Dump(c *Config) ([]byte, error) {
	return yaml.Marshal(c)
}
