// Package app wires configuration, logging, storage, and services into a
// single application core shared by the server binary and its tests.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rjmcleod/finch/internal/common"
	"github.com/rjmcleod/finch/internal/interfaces"
	"github.com/rjmcleod/finch/internal/services/holdings"
	"github.com/rjmcleod/finch/internal/services/ledger"
	"github.com/rjmcleod/finch/internal/services/plan"
	"github.com/rjmcleod/finch/internal/services/projection"
	"github.com/rjmcleod/finch/internal/storage"
)

// SchemaVersion identifies the on-disk data layout. Bumped when a stored
// shape changes in a way that needs migration.
const SchemaVersion = "1"

// System KV keys stamped at startup.
const (
	SchemaVersionKey = "schema_version"
	LastStartupKey   = "last_startup"
)

// App holds all initialized services and storage.
type App struct {
	Config            *common.Config
	Logger            *common.Logger
	Storage           interfaces.StorageManager
	ProjectionService interfaces.ProjectionService
	LedgerService     interfaces.LedgerService
	HoldingsService   interfaces.HoldingsService
	PlanService       interfaces.PlanService
	StartupTime       time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes configuration, storage, and all services.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	binDir := getBinaryDir()

	// Config resolution: provided path, FINCH_CONFIG, binary dir, then
	// the development fallback.
	if configPath == "" {
		configPath = os.Getenv("FINCH_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "finch.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/finch.toml"
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative storage paths to the binary directory
	if config.Storage.Internal.Path != "" && !filepath.IsAbs(config.Storage.Internal.Path) {
		config.Storage.Internal.Path = filepath.Join(binDir, config.Storage.Internal.Path)
	}
	if config.Storage.Finance.Path != "" && !filepath.IsAbs(config.Storage.Finance.Path) {
		config.Storage.Finance.Path = filepath.Join(binDir, config.Storage.Finance.Path)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	storageManager, err := storage.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := stampStartupState(storageManager.KeyValueStore(), logger, startupStart); err != nil {
		storageManager.Close()
		return nil, err
	}

	holdingsService := holdings.NewService(storageManager, logger)
	ledgerService := ledger.NewService(storageManager, holdingsService, logger)
	projectionService := projection.NewService(storageManager, config, logger)
	planService := plan.NewService(storageManager, logger)

	a := &App{
		Config:            config,
		Logger:            logger,
		Storage:           storageManager,
		ProjectionService: projectionService,
		LedgerService:     ledgerService,
		HoldingsService:   holdingsService,
		PlanService:       planService,
		StartupTime:       startupStart,
	}

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// stampStartupState records the schema version and startup time in the
// system KV area. A first run writes the current schema version; a stored
// version that differs is logged loudly rather than migrated, since no
// migration exists yet for any older layout.
func stampStartupState(kv interfaces.KeyValueStore, logger *common.Logger, startedAt time.Time) error {
	ctx := context.Background()

	stored, err := kv.GetSystemKV(ctx, SchemaVersionKey)
	switch {
	case err != nil:
		if err := kv.SetSystemKV(ctx, SchemaVersionKey, SchemaVersion); err != nil {
			return fmt.Errorf("failed to stamp schema version: %w", err)
		}
		logger.Info().Str("schema_version", SchemaVersion).Msg("Schema version initialized")
	case stored != SchemaVersion:
		logger.Warn().
			Str("stored", stored).
			Str("expected", SchemaVersion).
			Msg("Schema version mismatch; data may predate this build")
	}

	if err := kv.SetSystemKV(ctx, LastStartupKey, startedAt.UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to record startup time: %w", err)
	}
	return nil
}

// Close releases all resources held by the App.
func (a *App) Close() {
	if a.Storage != nil {
		a.Storage.Close()
		a.Storage = nil
	}
}
