package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "crys", "crys.db"), cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 15, cfg.ScrapeTimeoutSec)
	require.Len(t, cfg.Platforms, 2)
	assert.Equal(t, "gemini", cfg.DefaultPlatformID())

	p, ok := cfg.Platform("claude")
	require.True(t, ok)
	assert.Equal(t, "div.user-label", p.Selectors.User)
}

func TestLoadFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(home, "config.toml")
	body := `
db_path = "~/data/crys.db"
log_level = "debug"
debugger_url = "ws://127.0.0.1:9222"

[[platform]]
id = "chatgpt"
name = "ChatGPT"
url_pattern = "https://chatgpt.com/c/*"
scraper_active = true

[platform.selectors]
messages = "article"
user = "[data-message-author-role=user]"
model = "[data-message-author-role=assistant]"
text = ".markdown"

[platform.preamble]
TRANSFER = "Read ${fileUrl}"
CONTINUITY = "Continue."
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "data", "crys.db"), cfg.DBPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "127.0.0.1:8765", cfg.ListenAddr, "defaults survive partial files")
	require.Len(t, cfg.Platforms, 1, "configured platforms replace the built-ins")
	assert.Equal(t, "Read ${fileUrl}", cfg.Platforms[0].Preamble.Transfer)
	assert.Equal(t, ".markdown", cfg.Platforms[0].Selectors.Text)
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("db_path = ["), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestPlatformSetAndSave(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(home, "sub", "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)

	field, err := ParsePlatformField("preamble.transfer")
	require.NoError(t, err)
	assert.Equal(t, FieldPreambleTransfer, field)

	p, _ := cfg.Platform("gemini")
	require.NoError(t, p.Set(field, "custom ${fileUrl}"))
	require.NoError(t, p.Set(FieldSelectorText, "div.msg"))
	assert.Equal(t, "div.msg", p.Get(FieldSelectorText))
	require.NoError(t, cfg.Save())

	again, err := Load(path)
	require.NoError(t, err)
	p2, ok := again.Platform("gemini")
	require.True(t, ok)
	assert.Equal(t, "custom ${fileUrl}", p2.Preamble.Transfer)
	assert.Equal(t, "div.msg", p2.Selectors.Text)

	_, err = ParsePlatformField("selectors.speaker")
	assert.Error(t, err)
	assert.Error(t, p.Set(PlatformField(99), "x"))
}
