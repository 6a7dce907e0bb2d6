package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/runoshun/promptbench/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_GetWorkspaceConfigInfo(t *testing.T) {
	t.Run("returns info when file exists", func(t *testing.T) {
		dataDir := t.TempDir()
		content := "[log]\nlevel = \"debug\""
		require.NoError(t, os.WriteFile(filepath.Join(dataDir, domain.ConfigFileName), []byte(content), 0o644))

		info := NewManagerWithGlobalDir(dataDir, "").GetWorkspaceConfigInfo()

		assert.Equal(t, filepath.Join(dataDir, domain.ConfigFileName), info.Path)
		assert.Equal(t, content, info.Content)
		assert.True(t, info.Exists)
	})

	t.Run("returns info when file does not exist", func(t *testing.T) {
		dataDir := t.TempDir()

		info := NewManagerWithGlobalDir(dataDir, "").GetWorkspaceConfigInfo()

		assert.Equal(t, filepath.Join(dataDir, domain.ConfigFileName), info.Path)
		assert.Empty(t, info.Content)
		assert.False(t, info.Exists)
	})
}

func TestManager_GetGlobalConfigInfo(t *testing.T) {
	t.Run("returns info when file exists", func(t *testing.T) {
		globalDir := t.TempDir()
		content := "[catalog]\nlocale = \"ja\""
		require.NoError(t, os.WriteFile(filepath.Join(globalDir, domain.ConfigFileName), []byte(content), 0o644))

		info := NewManagerWithGlobalDir("", globalDir).GetGlobalConfigInfo()

		assert.Equal(t, content, info.Content)
		assert.True(t, info.Exists)
	})

	t.Run("returns empty info when global dir is empty", func(t *testing.T) {
		info := NewManagerWithGlobalDir("", "").GetGlobalConfigInfo()

		assert.Empty(t, info.Path)
		assert.False(t, info.Exists)
	})
}

func TestManager_InitWorkspaceConfig(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dataDir := filepath.Join(t.TempDir(), domain.DataDirName)
		manager := NewManagerWithGlobalDir(dataDir, "")

		require.NoError(t, manager.InitWorkspaceConfig(nil))

		content, err := os.ReadFile(filepath.Join(dataDir, domain.ConfigFileName))
		require.NoError(t, err)
		assert.Contains(t, string(content), "[store]")
		assert.Contains(t, string(content), `# backend = "json"`)
		assert.Contains(t, string(content), `# sheet_range = "Tasks"`)
	})

	t.Run("renders the given config", func(t *testing.T) {
		dataDir := filepath.Join(t.TempDir(), domain.DataDirName)
		cfg := domain.NewDefaultConfig()
		cfg.Store.Backend = domain.StoreBackendSQLite
		cfg.Catalog.Locale = "ja"

		require.NoError(t, NewManagerWithGlobalDir(dataDir, "").InitWorkspaceConfig(cfg))

		content, err := os.ReadFile(filepath.Join(dataDir, domain.ConfigFileName))
		require.NoError(t, err)
		assert.Contains(t, string(content), `# backend = "sqlite"`)
		assert.Contains(t, string(content), `# locale = "ja"`)
	})

	t.Run("returns error if file exists", func(t *testing.T) {
		dataDir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dataDir, domain.ConfigFileName), []byte("existing"), 0o644))

		err := NewManagerWithGlobalDir(dataDir, "").InitWorkspaceConfig(nil)

		assert.ErrorIs(t, err, domain.ErrConfigExists)
	})
}

func TestManager_InitGlobalConfig(t *testing.T) {
	t.Run("creates config file and directory", func(t *testing.T) {
		globalDir := filepath.Join(t.TempDir(), "nested", domain.AppDirName)
		manager := NewManagerWithGlobalDir("", globalDir)

		require.NoError(t, manager.InitGlobalConfig(nil))

		info := manager.GetGlobalConfigInfo()
		assert.True(t, info.Exists)
		assert.Contains(t, info.Content, "[log]")
	})

	t.Run("returns error if file exists", func(t *testing.T) {
		globalDir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(globalDir, domain.ConfigFileName), []byte("existing"), 0o644))

		err := NewManagerWithGlobalDir("", globalDir).InitGlobalConfig(nil)

		assert.ErrorIs(t, err, domain.ErrConfigExists)
	})

	t.Run("returns error when global dir is unavailable", func(t *testing.T) {
		err := NewManagerWithGlobalDir("", "").InitGlobalConfig(nil)

		assert.Error(t, err)
	})
}
