package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "prospects.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "http", cfg.Scrape.Browser)
	assert.Equal(t, "https://html.duckduckgo.com/html/", cfg.Scrape.SearchBaseURL)
	assert.Equal(t, 3*time.Second, cfg.Scrape.QueryJitter)
	assert.Equal(t, 1*time.Second, cfg.Scrape.CandidateDelay)
	assert.Equal(t, 2*time.Second, cfg.Scrape.CandidateJitter)
	assert.Equal(t, 30*time.Second, cfg.Scrape.SearchTimeout)
	assert.Equal(t, 15*time.Second, cfg.Scrape.PageTimeout)
	assert.Equal(t, 10*time.Second, cfg.Scrape.ContactPageTimeout)
	assert.False(t, cfg.Scrape.VerifyMX)
	assert.Equal(t, "ollama", cfg.Generation.Provider)
	assert.Equal(t, 60*time.Second, cfg.Generation.TextTimeout)
	assert.Equal(t, 120*time.Second, cfg.Generation.ImageTimeout)
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.URL)
	assert.Equal(t, "llama3", cfg.Ollama.Model)
	assert.Equal(t, "http://127.0.0.1:7860", cfg.StableDiffusion.URL)
	assert.Equal(t, 1, cfg.Pipeline.MaxActiveCampaigns)
	assert.False(t, cfg.Pipeline.ContinueOnLeadErr)
	assert.Equal(t, "mockups", cfg.Pipeline.MockupsDir)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/prospects
log:
  level: debug
  format: console
scrape:
  browser: chrome
  candidate_delay: 250ms
pipeline:
  continue_on_lead_error: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "chrome", cfg.Scrape.Browser)
	assert.Equal(t, 250*time.Millisecond, cfg.Scrape.CandidateDelay)
	assert.True(t, cfg.Pipeline.ContinueOnLeadErr)
	// Defaults still apply for unset values
	assert.Equal(t, 60*time.Second, cfg.Generation.TextTimeout)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("PROSPECT_STORE_DRIVER", "postgres")
	t.Setenv("PROSPECT_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PROSPECT_OLLAMA_MODEL=mistral\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("PROSPECT_OLLAMA_MODEL") }) //nolint:errcheck

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mistral", cfg.Ollama.Model)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "prospects.db"
	cfg.Scrape.Browser = "http"
	cfg.Generation.Provider = "ollama"
	cfg.Generation.Retries = 1
	cfg.Pipeline.MaxActiveCampaigns = 1
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateCampaign_Defaults(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("campaign"))
}

func TestValidateCampaign_AnthropicNeedsKey(t *testing.T) {
	cfg := validDefaults()
	cfg.Generation.Provider = "anthropic"

	err := cfg.Validate("campaign")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")

	cfg.Anthropic.Key = "sk-ant-key"
	assert.NoError(t, cfg.Validate("campaign"))
}

func TestValidate_CollectsProblems(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"
	cfg.Scrape.Browser = "firefox"
	cfg.Pipeline.MaxActiveCampaigns = 0

	err := cfg.Validate("campaign")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
	assert.Contains(t, err.Error(), "scrape.browser must be http or chrome")
	assert.Contains(t, err.Error(), "pipeline.max_active_campaigns must be >= 1")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
	assert.NoError(t, cfg.Validate("campaign"))
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateStore_IgnoresPipelineSettings(t *testing.T) {
	cfg := validDefaults()
	cfg.Scrape.Browser = "firefox"
	assert.NoError(t, cfg.Validate("store"))

	cfg.Store.DatabaseURL = ""
	assert.ErrorContains(t, cfg.Validate("store"), "store.database_url is required")
}
