package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":50051", cfg.Server.Listen)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "none", cfg.Feed.Backend)
	assert.Equal(t, 250*time.Millisecond, cfg.Feed.FlushInterval)
	assert.Equal(t, 16, cfg.Stress.Workers)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rbstore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  listen: "127.0.0.1:7000"
feed:
  backend: sarama
  brokers: ["k1:9092", "k2:9092"]
  topic: index.changes
  flush_interval: 1s
`), 0o644))
	t.Setenv("RBSTORE_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.Server.Listen)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Feed.Brokers)
	assert.Equal(t, time.Second, cfg.Broadcaster().FlushInterval)
	assert.Equal(t, "index.changes", cfg.FeedPublisher().Topic)
}

func TestValidateRejectsFeedWithoutBrokers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rbstore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("feed:\n  backend: kafka-go\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feed.brokers")
}

func TestValidateUnknownBackend(t *testing.T) {
	cfg := Config{
		Server: ServerConfig{Listen: ":1"},
		Feed:   FeedConfig{Backend: "smtp"},
		Stress: StressConfig{Workers: 1, Ops: 1, KeySpace: 1},
	}
	assert.ErrorContains(t, cfg.Validate(), "smtp")
}

func TestDumpRoundTrips(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)

	out, err := Dump(cfg)
	require.NoError(t, err)

	var back Config
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, cfg.Server.Listen, back.Server.Listen)
	assert.Equal(t, cfg.Feed.Topic, back.Feed.Topic)
}
