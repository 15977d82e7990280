package app

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/Iamcalix/quickbooksupload/internal/config"
	"github.com/Iamcalix/quickbooksupload/internal/directory"
	"github.com/Iamcalix/quickbooksupload/internal/export"
	"github.com/Iamcalix/quickbooksupload/internal/service"
	"github.com/Iamcalix/quickbooksupload/internal/store"
)

type App struct {
	Config  *config.Config
	Logger  *log.Logger
	Store   *store.Store
	Cache   *directory.Cache // nil when no directory is configured
	Imports *service.ImportService
	Export  export.Options
}

// NewApp opens the database and wires the services, then returns the App
// with a cleanup func that closes the database.
func NewApp(cfg *config.Config, logger *log.Logger) (*App, func(), error) {
	keys, err := cfg.DedupKeys()
	if err != nil {
		return nil, nil, err
	}

	dbStore, err := store.NewStore(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	var (
		cache    *directory.Cache
		mappings service.MappingCache
	)
	if cfg.Directory.Path != "" {
		cache = directory.NewCache(directory.NewFileSource(cfg.Directory.Path), logger,
			directory.WithTTL(cfg.Directory.TTL))
		mappings = cache
	}

	imports := service.NewImportService(dbStore, mappings, service.Options{
		DateSeparator:  cfg.Parser.CRDBDateSeparator,
		DedupChunkSize: cfg.Dedup.ChunkSize,
		WriteChunkSize: cfg.Store.WriteChunkSize,
		Keys:           keys,
	}, logger)

	cleanup := func() {
		if err := dbStore.Close(); err != nil {
			logger.Error("closing database", "err", err)
		}
	}

	return &App{
		Config:  cfg,
		Logger:  logger,
		Store:   dbStore,
		Cache:   cache,
		Imports: imports,
		Export: export.Options{
			CountryCode:  cfg.Export.CountryCode,
			ExchangeRate: cfg.Export.ExchangeRate,
		},
	}, cleanup, nil
}
