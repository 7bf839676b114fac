package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), *cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), *cfg)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "memoforge.yml", `
llm:
  provider: anthropic
  model: claude-test
  timeout: 45s
index:
  path: /tmp/memo-index
  top_k: 5
orchestrator:
  retries: 4
  retry_backoff: 250ms
validator:
  redundancy_threshold: 0.5
catalog:
  dir: ./types
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "claude-test", cfg.LLM.Model)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 5, cfg.Index.TopK)
	assert.Equal(t, "/tmp/memo-index", cfg.Index.Path)
	assert.Equal(t, 4, cfg.Orchestrator.Retries)
	assert.Equal(t, 250*time.Millisecond, cfg.Orchestrator.RetryBackoff)
	assert.InDelta(t, 0.5, cfg.Validator.RedundancyThreshold, 1e-9)
	assert.Equal(t, "./types", cfg.Catalog.Dir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	// Keys absent from the file keep their defaults.
	assert.Equal(t, Defaults().Index.Collection, cfg.Index.Collection)
	assert.Equal(t, Defaults().LLM.Burst, cfg.LLM.Burst)
	assert.Equal(t, Defaults().Orchestrator.EventBuffer, cfg.Orchestrator.EventBuffer)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "memoforge.yml", `
llm:
  model: from-file
orchestrator:
  retries: 1
`)
	t.Setenv("MEMOFORGE_LLM_MODEL", "from-env")
	t.Setenv("MEMOFORGE_LLM_API_KEY", "sk-test")
	t.Setenv("MEMOFORGE_ORCHESTRATOR_RETRIES", "3")
	t.Setenv("MEMOFORGE_ORCHESTRATOR_RETRY_BACKOFF", "2s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.LLM.Model)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, 3, cfg.Orchestrator.Retries)
	assert.Equal(t, 2*time.Second, cfg.Orchestrator.RetryBackoff)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "provider", body: "llm:\n  provider: cohere\n", wantErr: "LLM.Provider"},
		{name: "threshold", body: "validator:\n  redundancy_threshold: 1.5\n", wantErr: "Validator.RedundancyThreshold"},
		{name: "retries", body: "orchestrator:\n  retries: -1\n", wantErr: "Orchestrator.Retries"},
		{name: "log level", body: "log:\n  level: loud\n", wantErr: "Log.Level"},
		{name: "base url", body: "llm:\n  base_url: not a url\n", wantErr: "LLM.BaseURL"},
		{name: "temperature", body: "llm:\n  temperature: 2.5\n", wantErr: "LLM.Temperature"},
		{name: "yaml", body: "llm: [", wantErr: "load config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), "memoforge.yml", tt.body)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_ZeroTemperatureIsSet(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Nil(t, cfg.LLM.Temperature)

	path := writeConfig(t, t.TempDir(), "memoforge.yml", "llm:\n  temperature: 0\n")
	cfg, err = Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.LLM.Temperature)
	assert.Zero(t, *cfg.LLM.Temperature)
}

func TestLoad_Directory(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, Find(dir))

	want := writeConfig(t, dir, "memoforge.yaml", "log:\n  level: warn\n")
	assert.Equal(t, want, Find(dir))

	want = writeConfig(t, dir, "memoforge.yml", "log:\n  level: warn\n")
	assert.Equal(t, want, Find(dir))
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"MEMOFORGE_LLM_MODEL":                      "llm.model",
		"MEMOFORGE_LLM_API_KEY":                    "llm.api_key",
		"MEMOFORGE_VALIDATOR_REDUNDANCY_THRESHOLD": "validator.redundancy_threshold",
		"MEMOFORGE_DEBUG":                          "debug",
	}
	for in, want := range tests {
		assert.Equal(t, want, envKey(in), in)
	}
}

func TestConversions(t *testing.T) {
	cfg := Defaults()
	cfg.LLM.APIKey = "sk"
	cfg.Index.Path = "/data/idx"

	client := cfg.LLM.Client()
	assert.Equal(t, "sk", client.APIKey)
	assert.Equal(t, cfg.LLM.Timeout, client.Timeout)

	assert.Equal(t, "/data/idx", cfg.Index.Chromem().Path)
	assert.Equal(t, cfg.Index.Collection, cfg.Index.Chromem().Collection)

	run := cfg.Orchestrator.Run()
	assert.Equal(t, cfg.Orchestrator.Retries, run.Retries)
	assert.Equal(t, cfg.Orchestrator.EventBuffer, run.EventBuffer)

	assert.Equal(t, "info", cfg.Log.Logger().Level)
	assert.Equal(t, cfg.Embedding.Model, cfg.Embedding.Embedder().Model)
}
