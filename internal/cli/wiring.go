package cli

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"visa-checker/internal/app"
	"visa-checker/internal/catalogs"
	"visa-checker/internal/config"
	"visa-checker/internal/infra/file"
	"visa-checker/internal/infra/memory"
	"visa-checker/internal/infra/postgres"
	"visa-checker/internal/wizard"
)

const defaultCatalogTTL = 10 * time.Minute

// catalogLoader chains the configured catalog sources: Postgres, then the
// YAML directory, then the built-in catalogs. The returned func releases the
// Postgres pool, if any.
func catalogLoader(ctx context.Context, cfg config.Config) (memory.CatalogLoader, func(), error) {
	var chain memory.FallbackLoader
	closer := func() {}

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, closer, err
		}
		closer = pool.Close
		chain = append(chain, postgres.NewCatalogLoader(pool))
	}
	if cfg.Catalog.Dir != "" {
		chain = append(chain, file.NewCatalogLoader(cfg.Catalog.Dir))
	}
	chain = append(chain, memory.NewStaticCatalogLoader(catalogs.Builtins()...))
	return chain, closer, nil
}

func defaultCatalogID(cfg config.Config) string {
	if cfg.Catalog.Default != "" {
		return cfg.Catalog.Default
	}
	return catalogs.DefaultID
}

// localService builds a single-process service for the terminal commands.
func localService(ctx context.Context, cfg config.Config, delay time.Duration) (*app.WizardService, func(), error) {
	loader, closer, err := catalogLoader(ctx, cfg)
	if err != nil {
		return nil, closer, err
	}
	repo := memory.NewCatalogRepository(loader, config.Duration(cfg.Catalog.TTL, defaultCatalogTTL))
	service := app.NewWizardService(memory.NewSessionStore(), repo, cfg.Presenter(), app.WithAdvanceDelay(delay))
	return service, closer, nil
}

func advanceDelay(cfg config.Config) time.Duration {
	return config.Duration(cfg.Wizard.AdvanceDelay, wizard.DefaultAdvanceDelay)
}

// newRedisClient connects to the configured Redis. The server caches catalogs
// there; the importer invalidates them.
func newRedisClient(cfg config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}
