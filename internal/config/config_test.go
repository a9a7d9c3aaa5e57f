package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anggasct/rowfsm/internal/logger"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, Config{
		Scenario:  "full",
		LogLevel:  "info",
		LogFormat: "text",
	}, cfg)
}

func TestParse_Values(t *testing.T) {
	cfg, err := Parse(map[string]string{
		"ROWFSM_SCENARIO":   "exception",
		"ROWFSM_TABLE":      "table.yaml",
		"ROWFSM_EVENTS":     "Event1,Event2,Event1",
		"ROWFSM_LOG_LEVEL":  "debug",
		"ROWFSM_LOG_FORMAT": "json",
		"ROWFSM_DOT":        "out.dot",
		"ROWFSM_METRICS":    "true",
		"SCENARIO":          "ignored",
	})
	require.NoError(t, err)

	assert.Equal(t, "exception", cfg.Scenario)
	assert.Equal(t, "table.yaml", cfg.Table)
	assert.Equal(t, []string{"Event1", "Event2", "Event1"}, cfg.Events)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "out.dot", cfg.DOT)
	assert.True(t, cfg.Metrics)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		environ map[string]string
		want    error
	}{
		{"bad bool", map[string]string{"ROWFSM_METRICS": "maybe"}, ErrParsingConfig},
		{"bad format", map[string]string{"ROWFSM_LOG_FORMAT": "xml"}, ErrInvalidConfig},
		{"bad level", map[string]string{"ROWFSM_LOG_LEVEL": "loud"}, ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.environ)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidate_NothingToRun(t *testing.T) {
	err := Config{LogLevel: "info", LogFormat: "text"}.Validate()
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorContains(t, err, "ROWFSM_SCENARIO")
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ROWFSM_SCENARIO=ifelse\n"), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(wd)
		_ = os.Unsetenv("ROWFSM_SCENARIO")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "ifelse", cfg.Scenario)
}

func TestConfig_Logger(t *testing.T) {
	cfg := Config{LogLevel: "warn", LogFormat: "json"}

	var buf bytes.Buffer
	log, err := cfg.Logger(logger.WithOutput(&buf))
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
