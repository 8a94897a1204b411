package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvDefaults(t *testing.T) {
	t.Setenv("PULSAI_API_URL", "")

	cfg, err := Config{}.LoadEnv()
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, 10, cfg.HistoryWindow)
	assert.Equal(t, 50, cfg.HistoryLimit)
	assert.Equal(t, "telegram", cfg.BotChannel)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000", "https://*.vercel.app"}, cfg.AllowedOrigins)
}

func TestLoadEnvOverrides(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected string
	}{
		{"uses env value", "https://api.pulsai.example", "https://api.pulsai.example"},
		{"trims trailing slash", "https://api.pulsai.example/", "https://api.pulsai.example"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("PULSAI_API_URL", tc.value)

			cfg, err := Config{}.LoadEnv()
			require.NoError(t, err)
			assert.Equal(t, tc.expected, cfg.APIURL)
		})
	}
}

func TestLoadEnvInvalidNumber(t *testing.T) {
	t.Setenv("HISTORY_WINDOW", "ten")

	_, err := Config{}.LoadEnv()
	require.Error(t, err)
}

func TestLoadFileMissingUsesDefaults(t *testing.T) {
	cfg := Config{ConfigFile: filepath.Join(t.TempDir(), "absent.toml")}

	require.NoError(t, cfg.LoadFile())
	assert.Equal(t, DefaultPrompts.System, cfg.Prompts.System)
	assert.Equal(t, DefaultPrompts.Channels["email"], cfg.Prompts.Tone("email"))
}

func TestLoadFileMergesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[prompts]
system = "Be a helpful shop assistant."

[prompts.channels]
whatsapp = "Keep it short."
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg := Config{ConfigFile: path}
	require.NoError(t, cfg.LoadFile())

	assert.Equal(t, "Be a helpful shop assistant.", cfg.Prompts.System)
	assert.Equal(t, "Keep it short.", cfg.Prompts.Tone("whatsapp"))
	assert.Equal(t, DefaultPrompts.Channels["web"], cfg.Prompts.Tone("web"))
	assert.Equal(t, DefaultPrompts.Channels["web"], cfg.Prompts.Tone("carrier-pigeon"))
}

func TestLoadFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[prompts\nsystem ="), 0o600))

	cfg := Config{ConfigFile: path}
	require.Error(t, cfg.LoadFile())
}

func TestRequire(t *testing.T) {
	cfg := Config{}
	assert.ErrorIs(t, cfg.RequireLLM(), ErrMissing)
	assert.ErrorIs(t, cfg.RequireBot(), ErrMissing)

	cfg.LLMAPIKey = "key"
	cfg.Token = "token"
	assert.NoError(t, cfg.RequireLLM())
	assert.NoError(t, cfg.RequireBot())
}
