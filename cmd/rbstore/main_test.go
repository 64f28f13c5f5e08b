package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rbstore/config"
	"rbstore/infra/logging"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := versionCmd()
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "rbstore dev")
}

func TestStressCommandFlags(t *testing.T) {
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	cmd := stressCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--workers", "4", "--ops", "50", "--keys", "20", "--readers", "1"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "200 puts")
}

func TestConfigCommandPrintsYAML(t *testing.T) {
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	cmd := configCmd()
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "50051")
	assert.Contains(t, out.String(), "backend: none")
}

func TestServeStopsOnCancel(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Server.Listen = "127.0.0.1:0"
	cfg.Server.MetricsListen = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, logging.Discard()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}
