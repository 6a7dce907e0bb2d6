// Package app provides the dependency injection container for the application.
package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/runoshun/promptbench/internal/catalog"
	"github.com/runoshun/promptbench/internal/domain"
	"github.com/runoshun/promptbench/internal/infra/config"
	"github.com/runoshun/promptbench/internal/infra/csvsheet"
	"github.com/runoshun/promptbench/internal/infra/kvstore"
	"github.com/runoshun/promptbench/internal/infra/logging"
	"github.com/runoshun/promptbench/internal/infra/progressstore"
	"github.com/runoshun/promptbench/internal/infra/sheets"
	"github.com/runoshun/promptbench/internal/infra/sqlitestore"
	"github.com/runoshun/promptbench/internal/usecase"
	"github.com/runoshun/promptbench/internal/workflow"
)

// Config holds the application paths.
type Config struct {
	Root    string // Workspace root directory
	DataDir string // Path to <root>/.promptbench
}

// newConfig finds the workspace containing dir by walking up to the first
// directory holding .promptbench. If none exists, dir itself is the root.
func newConfig(dir string) (Config, bool) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	for d := abs; ; d = filepath.Dir(d) {
		if st, err := os.Stat(domain.WorkspaceDataDir(d)); err == nil && st.IsDir() {
			return Config{Root: d, DataDir: domain.WorkspaceDataDir(d)}, true
		}
		if filepath.Dir(d) == d {
			break
		}
	}
	return Config{Root: abs, DataDir: domain.WorkspaceDataDir(abs)}, false
}

// Container provides dependency injection for the application.
// It holds all port implementations and provides factory methods for use cases.
type Container struct {
	// Ports (interfaces bound to implementations)
	Progress      domain.ProgressStore
	Sheets        domain.SpreadsheetService
	KV            domain.KeyValueStore
	Clock         domain.Clock
	TaskLogger    domain.Logger
	ConfigLoader  domain.ConfigLoader
	ConfigManager domain.ConfigManager

	// Core modules
	Catalog  *catalog.Catalog
	Workflow *workflow.Container

	// Pointer fields
	Logger    *slog.Logger
	AppConfig *domain.Config

	closers []io.Closer

	// Configuration
	Config      Config
	Initialized bool
}

// New creates a Container for the workspace containing dir.
// Before `promptbench init` the stores are not opened and Initialized is false.
func New(dir string) (*Container, error) {
	cfg, initialized := newConfig(dir)

	configLoader := config.NewLoader(cfg.DataDir)
	appConfig, err := configLoader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logging.ParseLevel(appConfig.Log.Level),
	}))

	c := &Container{
		Clock:         domain.RealClock{},
		ConfigLoader:  configLoader,
		ConfigManager: config.NewManager(cfg.DataDir),
		Logger:        logger,
		AppConfig:     appConfig,
		Config:        cfg,
		Initialized:   initialized,
		TaskLogger:    domain.NopLogger{},
	}
	c.Sheets = newSheets(appConfig.Sheets)

	if initialized {
		fileLogger := logging.New(cfg.DataDir, logging.ParseLevel(appConfig.Log.Level))
		c.TaskLogger = fileLogger
		c.Logger = fileLogger.Slog().With(logging.AttrCategory, "app")
		c.closers = append(c.closers, fileLogger)

		c.KV = kvstore.New(domain.KVStorePath(cfg.DataDir))

		progress, closer, err := newProgressStore(appConfig.Store.Backend, cfg.DataDir)
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		c.Progress = progress
		if closer != nil {
			c.closers = append(c.closers, closer)
		}
	}

	c.wire()
	return c, nil
}

// NewWithDeps creates a new Container with custom dependencies for testing.
func NewWithDeps(cfg Config, progress domain.ProgressStore, sheets domain.SpreadsheetService, kv domain.KeyValueStore, clock domain.Clock, logger *slog.Logger) *Container {
	c := &Container{
		Progress:      progress,
		Sheets:        sheets,
		KV:            kv,
		Clock:         clock,
		TaskLogger:    domain.NopLogger{},
		ConfigLoader:  config.NewLoader(cfg.DataDir),
		ConfigManager: config.NewManager(cfg.DataDir),
		Logger:        logger,
		AppConfig:     domain.NewDefaultConfig(),
		Config:        cfg,
		Initialized:   true,
	}
	c.wire()
	return c
}

// wire builds the catalog and workflow modules and restores their durable state.
func (c *Container) wire() {
	c.Catalog = catalog.New(c.Sheets, c.KV, c.TaskLogger, c.Clock)
	c.Catalog.SetLocale(c.AppConfig.Catalog.Locale)

	c.Workflow = workflow.New(workflow.Deps{
		Progress:   c.Progress,
		KV:         c.KV,
		Clock:      c.Clock,
		Logger:     c.TaskLogger,
		StorageKey: c.AppConfig.Workflow.StorageKey,
	})

	if err := c.Catalog.Restore(); err != nil {
		c.Logger.Warn("restore catalog", "error", err)
	}
	if err := c.Workflow.Restore(); err != nil {
		c.Logger.Warn("restore workflow", "error", err)
	}
}

// Close releases the stores and log files.
func (c *Container) Close() error {
	var errs []error
	for _, cl := range c.closers {
		errs = append(errs, cl.Close())
	}
	c.closers = nil
	return errors.Join(errs...)
}

func newSheets(cfg domain.SheetsConfig) domain.SpreadsheetService {
	if cfg.Backend == domain.SheetsBackendCSV {
		return csvsheet.New(nil)
	}
	return sheets.New(sheets.Options{
		APIKey:          cfg.APIKey,
		CredentialsFile: cfg.CredentialsFile,
		SheetRange:      cfg.SheetRange,
	})
}

func newProgressStore(backend, dataDir string) (domain.ProgressStore, io.Closer, error) {
	if backend == domain.StoreBackendSQLite {
		store, err := sqlitestore.New(domain.SQLitePath(dataDir))
		if err != nil {
			return nil, nil, fmt.Errorf("open progress database: %w", err)
		}
		return store, store, nil
	}
	return progressstore.New(domain.ProgressDir(dataDir)), nil, nil
}

// dataDir returns the workspace data directory, or "" before init.
func (c *Container) dataDir() string {
	if !c.Initialized {
		return ""
	}
	return c.Config.DataDir
}

// UseCase factory methods

// InitWorkspaceUseCase returns a new InitWorkspace use case.
func (c *Container) InitWorkspaceUseCase() *usecase.InitWorkspace {
	return usecase.NewInitWorkspace(c.ConfigManager)
}

// InitConfigUseCase returns a new InitConfig use case.
func (c *Container) InitConfigUseCase() *usecase.InitConfig {
	return usecase.NewInitConfig(c.ConfigManager, c.dataDir())
}

// ShowConfigUseCase returns a new ShowConfig use case.
func (c *Container) ShowConfigUseCase() *usecase.ShowConfig {
	return usecase.NewShowConfig(c.ConfigManager, c.ConfigLoader, c.KV)
}

// ShowLogsUseCase returns a new ShowLogs use case.
func (c *Container) ShowLogsUseCase() *usecase.ShowLogs {
	return usecase.NewShowLogs(c.Config.DataDir)
}

// StartTaskUseCase returns a new StartTask use case.
func (c *Container) StartTaskUseCase() *usecase.StartTask {
	return usecase.NewStartTask(c.Catalog, c.Workflow, c.TaskLogger)
}

// GenerateReportUseCase returns a new GenerateReport use case.
func (c *Container) GenerateReportUseCase() *usecase.GenerateReport {
	return usecase.NewGenerateReport(c.Workflow, c.Clock)
}

// CompleteTaskUseCase returns a new CompleteTask use case.
func (c *Container) CompleteTaskUseCase() *usecase.CompleteTask {
	return usecase.NewCompleteTask(c.Catalog, c.Workflow)
}

// ExportProgressUseCase returns a new ExportProgress use case.
func (c *Container) ExportProgressUseCase() *usecase.ExportProgress {
	return usecase.NewExportProgress(c.Progress)
}

// ImportProgressUseCase returns a new ImportProgress use case.
func (c *Container) ImportProgressUseCase() *usecase.ImportProgress {
	return usecase.NewImportProgress(c.Progress)
}
