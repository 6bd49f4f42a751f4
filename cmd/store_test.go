package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/enrich"
	"github.com/sells-group/prospect-cli/internal/model"
)

func withConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	prev := cfg
	t.Cleanup(func() { cfg = prev })

	cfg = &config.Config{
		Store:      config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(dir, "prospects.db")},
		Scrape:     config.ScrapeConfig{Browser: "http"},
		Generation: config.GenerationConfig{Provider: "ollama", Retries: 1},
		Ollama:     config.OllamaConfig{URL: "http://localhost:11434", Model: "llama3"},
		Pipeline:   config.PipelineConfig{MaxActiveCampaigns: 1, MockupsDir: filepath.Join(dir, "mockups")},
		Server:     config.ServerConfig{Port: 8080},
	}
	return dir
}

func TestInitStore_UnsupportedDriver(t *testing.T) {
	withConfig(t)
	cfg.Store.Driver = "mysql"

	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}

func TestOpenStore_SQLite(t *testing.T) {
	withConfig(t)
	ctx := context.Background()

	st, err := openStore(ctx)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	require.NoError(t, st.Ping(ctx))
	campaigns, err := st.ListCampaigns(ctx)
	require.NoError(t, err)
	assert.Empty(t, campaigns)
}

func TestInitApp_RejectsInvalidConfig(t *testing.T) {
	withConfig(t)
	cfg.Generation.Provider = "gpt"

	_, err := initApp(context.Background(), "campaign", enrich.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generation.provider")
}

func TestInitApp_WiresServices(t *testing.T) {
	withConfig(t)
	ctx := context.Background()

	env, err := initApp(ctx, "campaign", enrich.Discard)
	require.NoError(t, err)
	defer env.Close()

	s, err := env.Settings.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "llama3", s.OllamaModel)
	assert.Equal(t, cfg.Pipeline.MockupsDir, s.MockupsDirectory)

	_, _, err = env.Campaigns.Run(ctx, model.CampaignRequest{BusinessType: "", Location: "Austin", NumberOfLeads: 1})
	assert.True(t, model.IsValidationError(err))
	assert.Empty(t, env.Campaigns.Active())
}

func TestSettingsCommands_ExportImportReset(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PROSPECT_STORE_DRIVER", "sqlite")
	t.Setenv("PROSPECT_STORE_DATABASE_URL", filepath.Join(dir, "cli.db"))
	t.Setenv("PROSPECT_LOG_LEVEL", "error")
	t.Setenv("PROSPECT_PIPELINE_MOCKUPS_DIR", filepath.Join(dir, "mockups"))
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	doc := filepath.Join(dir, "in.yaml")
	require.NoError(t, os.WriteFile(doc, []byte("ollamaModel: mistral\nsenderName: Dana\n"), 0o600))

	rootCmd.SetArgs([]string{"settings", "import", "--file", doc})
	require.NoError(t, rootCmd.Execute())

	out := filepath.Join(dir, "out.yaml")
	rootCmd.SetArgs([]string{"settings", "export", "--out", out})
	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ollamaModel: mistral")
	assert.Contains(t, string(data), "senderName: Dana")

	rootCmd.SetArgs([]string{"settings", "reset"})
	require.NoError(t, rootCmd.Execute())

	rootCmd.SetArgs([]string{"settings", "export", "--out", out})
	require.NoError(t, rootCmd.Execute())
	data, err = os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ollamaModel: llama3")
}
