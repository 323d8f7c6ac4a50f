package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("JOBMANAGER_ADDR", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultPageURL, cfg.PageURL)
	assert.Equal(t, BackendFile, cfg.Storage.SyncBackend)
	assert.Equal(t, 8192, cfg.Storage.ChunkBytes)
	assert.Equal(t, 8500, cfg.Storage.Quota)
	assert.Equal(t, 300*time.Millisecond, cfg.Timing.ObserveInterval)
	assert.Equal(t, 10*time.Minute, cfg.Timing.ActionCeiling)
	assert.Equal(t, "data-job-id", cfg.Selectors.IDAttribute)
	assert.NotEmpty(t, cfg.Selectors.Company)
	assert.False(t, cfg.NotificationsEnabled())
}

func TestLoadYAMLAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
page_url: https://www.linkedin.com/jobs/search/?keywords=golang
keywords: [recruiter, sales]
blocked_companies: [acme]
timing:
  observe_interval: 500ms
  action_ceiling: 2m
selectors:
  title: [".custom-title"]
`)
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "12345")
	t.Setenv("JOBMANAGER_ADDR", ":9000")
	t.Setenv("JOBMANAGER_HEADLESS", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"recruiter", "sales"}, cfg.Keywords)
	assert.Equal(t, []string{"acme"}, cfg.BlockedCompanies)
	assert.Equal(t, 500*time.Millisecond, cfg.Timing.ObserveInterval)
	assert.Equal(t, 2*time.Minute, cfg.Timing.ActionCeiling)
	assert.Equal(t, 250*time.Millisecond, cfg.Timing.Debounce)
	assert.Equal(t, []string{".custom-title"}, cfg.Selectors.Title)
	assert.Equal(t, DefaultSelectors().Company, cfg.Selectors.Company)
	assert.Equal(t, int64(12345), cfg.TelegramChatID)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.True(t, cfg.Headless)
	assert.True(t, cfg.NotificationsEnabled())
}

func TestLoadRejectsInvalidConfigs(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{name: "postgres without url", body: "storage:\n  sync_backend: postgres\n"},
		{name: "unknown backend", body: "storage:\n  sync_backend: s3\n"},
		{name: "negative interval", body: "timing:\n  debounce: -1s\n"},
		{name: "bad chat id", env: map[string]string{"TELEGRAM_CHAT_ID": "abc"}},
		{name: "token without chat", env: map[string]string{"TELEGRAM_BOT_TOKEN": "x"}},
		{name: "malformed yaml", body: "keywords: [unclosed\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TELEGRAM_BOT_TOKEN", "")
			t.Setenv("TELEGRAM_CHAT_ID", "")
			t.Setenv("DATABASE_URL", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := writeConfig(t, t.TempDir(), tt.body)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadPostgresWithURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/jobs")
	path := writeConfig(t, t.TempDir(), "storage:\n  sync_backend: postgres\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/jobs", cfg.Storage.DatabaseURL)
}

func TestWatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "keywords: [recruiter]\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config) { got <- c })
	}()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	writeConfig(t, dir, "keywords: [recruiter, intern]\n")

	select {
	case cfg := <-got:
		assert.Equal(t, []string{"recruiter", "intern"}, cfg.Keywords)
	case <-time.After(3 * time.Second):
		t.Fatal("config change was not picked up")
	}

	cancel()
	assert.NoError(t, <-done)
}
