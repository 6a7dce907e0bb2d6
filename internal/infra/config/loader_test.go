package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/runoshun/promptbench/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.ConfigFileName), []byte(content), 0o644))
}

func TestLoader_Load_Defaults(t *testing.T) {
	loader := NewLoaderWithGlobalDir(t.TempDir(), t.TempDir())

	cfg, err := loader.Load()

	require.NoError(t, err)
	assert.Equal(t, domain.NewDefaultConfig(), cfg)
}

func TestLoader_Load_WorkspaceConfigOnly(t *testing.T) {
	dataDir := t.TempDir()
	writeConfig(t, dataDir, `
[store]
backend = "sqlite"

[sheets]
backend = "csv"
default_url = "tasks.csv"
sheet_range = "Queue!A1:Z"

[catalog]
locale = "ja"

[workflow]
storage_key = "bench"

[log]
level = "debug"
`)

	cfg, err := NewLoaderWithGlobalDir(dataDir, t.TempDir()).Load()

	require.NoError(t, err)
	assert.Equal(t, domain.StoreBackendSQLite, cfg.Store.Backend)
	assert.Equal(t, domain.SheetsBackendCSV, cfg.Sheets.Backend)
	assert.Equal(t, "tasks.csv", cfg.Sheets.DefaultURL)
	assert.Equal(t, "Queue!A1:Z", cfg.Sheets.SheetRange)
	assert.Equal(t, "ja", cfg.Catalog.Locale)
	assert.Equal(t, "bench", cfg.Workflow.StorageKey)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Empty(t, cfg.Warnings)
}

func TestLoader_Load_WorkspaceOverridesGlobal(t *testing.T) {
	dataDir := t.TempDir()
	globalDir := t.TempDir()
	writeConfig(t, globalDir, `
[sheets]
api_key = "global-key"
credentials_file = "/etc/sa.json"

[log]
level = "warn"
`)
	writeConfig(t, dataDir, `
[sheets]
api_key = "workspace-key"
`)

	cfg, err := NewLoaderWithGlobalDir(dataDir, globalDir).Load()

	require.NoError(t, err)
	assert.Equal(t, "workspace-key", cfg.Sheets.APIKey)
	assert.Equal(t, "/etc/sa.json", cfg.Sheets.CredentialsFile)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, domain.DefaultSheetRange, cfg.Sheets.SheetRange)
}

func TestLoader_Load_Warnings(t *testing.T) {
	dataDir := t.TempDir()
	writeConfig(t, dataDir, `
stray = 1

[store]
backend = "postgres"
path = "x"

[sheets]
backend = "excel"

[tui]
theme = "dark"
`)

	cfg, err := NewLoaderWithGlobalDir(dataDir, t.TempDir()).Load()

	require.NoError(t, err)
	assert.Equal(t, []string{
		`unknown key in [store]: path`,
		`unknown section: stray`,
		`unknown section: tui`,
		`unknown sheets backend "excel", using "google"`,
		`unknown store backend "postgres", using "json"`,
	}, cfg.Warnings)
	assert.Equal(t, domain.DefaultStoreBackend, cfg.Store.Backend)
	assert.Equal(t, domain.DefaultSheetBackend, cfg.Sheets.Backend)
}

func TestLoader_Load_InvalidTOML(t *testing.T) {
	dataDir := t.TempDir()
	writeConfig(t, dataDir, "[store\nbackend=")

	_, err := NewLoaderWithGlobalDir(dataDir, t.TempDir()).Load()

	assert.Error(t, err)
}

func TestLoader_LoadGlobal(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := NewLoaderWithGlobalDir(t.TempDir(), t.TempDir()).LoadGlobal()
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("no global dir", func(t *testing.T) {
		_, err := NewLoaderWithGlobalDir(t.TempDir(), "").LoadGlobal()
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("reads only global", func(t *testing.T) {
		dataDir := t.TempDir()
		globalDir := t.TempDir()
		writeConfig(t, globalDir, "[catalog]\nlocale = \"de\"\n")
		writeConfig(t, dataDir, "[catalog]\nlocale = \"sv\"\n")

		cfg, err := NewLoaderWithGlobalDir(dataDir, globalDir).LoadGlobal()

		require.NoError(t, err)
		assert.Equal(t, "de", cfg.Catalog.Locale)
	})
}

func TestLoader_Load_RenderedTemplateParses(t *testing.T) {
	dataDir := t.TempDir()
	writeConfig(t, dataDir, domain.RenderConfigTemplate(domain.NewDefaultConfig()))

	cfg, err := NewLoaderWithGlobalDir(dataDir, t.TempDir()).Load()

	require.NoError(t, err)
	assert.Empty(t, cfg.Warnings)
	assert.Equal(t, domain.NewDefaultConfig(), cfg)
}
