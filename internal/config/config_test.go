package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"imageconverter/internal/adapters/apiverve"
	"imageconverter/internal/core/service"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, apiverve.DefaultEndpoint, cfg.APIVerve.Endpoint)
	assert.Equal(t, apiverve.DefaultTimeout, cfg.APIVerve.Timeout)
	assert.Equal(t, int64(apiverve.DefaultMaxPayload), cfg.APIVerve.MaxPayloadBytes)
	assert.Equal(t, service.DefaultWorkers, cfg.Convert.Workers)
	assert.Equal(t, 2*time.Minute, cfg.Handler.Timeout)
	assert.Empty(t, cfg.APIVerve.APIKey)
}

func TestLoadEnvOnly(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	t.Chdir(t.TempDir())
	t.Setenv("IMAGECONVERTER_APIVERVE_API_KEY", "env-key")
	t.Setenv("IMAGECONVERTER_CONVERT_WORKERS", "2")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.APIVerve.APIKey)
	assert.Equal(t, 2, cfg.Convert.Workers)
}

func TestLoadFileAndEnv(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[log]
level = "debug"

[apiverve]
api_key = "from-file"
timeout = "15s"

[convert]
workers = 8
output_dir = "converted"

[telegram]
allowed_chat_ids = [1, -100200]
daily_byte_limit = 1048576
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("IMAGECONVERTER_APIVERVE_API_KEY", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "from-env", cfg.APIVerve.APIKey)
	assert.Equal(t, 15*time.Second, cfg.APIVerve.Timeout)
	assert.Equal(t, 8, cfg.Convert.Workers)
	assert.Equal(t, "converted", cfg.Convert.OutputDir)
	assert.Equal(t, []int64{1, -100200}, cfg.Telegram.AllowedChatIDs)
	assert.Equal(t, int64(1<<20), cfg.Telegram.DailyByteLimit)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestSetupLogging(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{level: "debug", want: zerolog.DebugLevel},
		{level: "WARN", want: zerolog.WarnLevel},
		{level: "error", want: zerolog.ErrorLevel},
		{level: "info", want: zerolog.InfoLevel},
		{level: "bogus", want: zerolog.InfoLevel},
	}

	for _, tc := range tests {
		t.Run(tc.level, func(t *testing.T) {
			SetupLogging(LogConfig{Level: tc.level})
			assert.Equal(t, tc.want, zerolog.GlobalLevel())
		})
	}
}
