package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestReloader_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "llm:\n  default_model: gpt-4o\n")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	r := NewReloader(cfg, path, zap.NewNop())
	var got []ConfigChange
	r.OnReload(func(_, _ *Config, changes []ConfigChange) { got = changes })

	writeConfig(t, path, "llm:\n  default_model: claude-3-haiku\n  openrouter:\n    api_key: sk-or-new\n")
	require.NoError(t, r.Reload())

	assert.Equal(t, "claude-3-haiku", r.Config().LLM.DefaultModel)
	require.Len(t, got, 2)

	byPath := map[string]ConfigChange{}
	for _, c := range got {
		byPath[c.Path] = c
	}
	assert.Equal(t, "gpt-4o", byPath["LLM.DefaultModel"].OldValue)
	assert.Equal(t, "claude-3-haiku", byPath["LLM.DefaultModel"].NewValue)
	assert.Equal(t, redacted, byPath["LLM.OpenRouter.APIKey"].NewValue)
}

func TestReloader_InvalidConfigKeepsCurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "log:\n  level: info\n")
	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	r := NewReloader(cfg, path, nil)
	var called atomic.Bool
	r.OnReload(func(_, _ *Config, _ []ConfigChange) { called.Store(true) })

	writeConfig(t, path, "log:\n  format: xml\n")
	require.Error(t, r.Reload())
	assert.Same(t, cfg, r.Config())
	assert.False(t, called.Load())

	writeConfig(t, path, "log: [broken")
	require.Error(t, r.Reload())
	assert.Same(t, cfg, r.Config())
}

func TestReloader_CallbackPanicIsIsolated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "")
	r := NewReloader(DefaultConfig(), path, zap.NewNop())

	var second atomic.Bool
	r.OnReload(func(_, _ *Config, _ []ConfigChange) { panic("boom") })
	r.OnReload(func(_, _ *Config, _ []ConfigChange) { second.Store(true) })

	require.NoError(t, r.Reload())
	assert.True(t, second.Load())
}

func TestReloader_WatchesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "llm:\n  language: zh-TW\n")
	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	r := NewReloader(cfg, path, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, r.Start(ctx, WithPollInterval(10*time.Millisecond), WithDebounceDelay(10*time.Millisecond)))
	t.Cleanup(func() { _ = r.Stop() })

	touch(t, path, "llm:\n  language: en\n", time.Minute)

	require.Eventually(t, func() bool { return r.Config().LLM.Language == "en" }, 2*time.Second, 10*time.Millisecond)
}

func TestReloader_NoPath(t *testing.T) {
	r := NewReloader(DefaultConfig(), "", nil)
	require.NoError(t, r.Start(context.Background()))
	require.NoError(t, r.Stop())
}

func TestDiffConfigs(t *testing.T) {
	a := DefaultConfig()
	b := DefaultConfig()
	assert.Empty(t, DiffConfigs(a, b))

	b.Server.APIKeys = []string{"secret-key"}
	b.Database.Password = "pw"
	b.Server.HTTPPort = 9000

	changes := DiffConfigs(a, b)
	require.Len(t, changes, 3)
	for _, c := range changes {
		switch c.Path {
		case "Server.APIKeys", "Database.Password":
			assert.Equal(t, redacted, c.NewValue)
		case "Server.HTTPPort":
			assert.Equal(t, 9000, c.NewValue)
		default:
			t.Fatalf("unexpected change %s", c.Path)
		}
	}

	assert.Empty(t, DiffConfigs(nil, b))
}
