package main

import (
	"context"

	"github.com/goliatone/go-storefront"
	"github.com/goliatone/go-storefront/repository/mongodb"
)

// backend is the persistence selected by store.driver
type backend struct {
	stores  storefront.Stores
	migrate func(ctx context.Context) error
	close   func() error
}

func openBackend(ctx context.Context, cfg storefront.StoreConfig, logger storefront.Logger) (*backend, error) {
	if cfg.Driver == storefront.StoreMongo {
		store, err := mongodb.Open(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return &backend{
			stores:  store,
			migrate: store.Migrate,
			close:   func() error { return store.Close(context.Background()) },
		}, nil
	}

	db, err := storefront.OpenDatabase(cfg)
	if err != nil {
		return nil, err
	}

	manager := storefront.NewRepositoryManager(db)
	manager.MustValidate()

	return &backend{
		stores:  manager,
		migrate: manager.Migrate,
		close:   manager.Close,
	}, nil
}

// bootstrap loads the configuration and opens the store
func bootstrap(ctx context.Context, configPath string) (*storefront.Config, *storefront.LogrusLogger, *backend, error) {
	cfg, err := storefront.LoadConfig(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	logger := storefront.NewLogrusLogger(cfg.LogLevel, cfg.LogFormat)

	be, err := openBackend(ctx, cfg.Store, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	return cfg, logger, be, nil
}
