package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"visa-checker/internal/catalogs"
	"visa-checker/internal/config"
	"visa-checker/internal/domain"
	"visa-checker/internal/infra/file"
	"visa-checker/internal/infra/postgres"
	redisstore "visa-checker/internal/infra/redis"
)

// NewCatalogCmd groups catalog maintenance commands.
func NewCatalogCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage question catalogs",
	}
	cmd.AddCommand(newCatalogImportCmd(configPath), newCatalogListCmd(configPath))
	return cmd
}

func newCatalogImportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>...",
		Short: "Validate YAML catalogs and store them in Postgres",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			ctx := cmd.Context()

			// Validate everything before touching the database.
			parsed := make([]domain.Catalog, 0, len(args))
			for _, path := range args {
				catalog, err := file.ReadCatalogFile(path)
				if err != nil {
					return err
				}
				parsed = append(parsed, catalog)
			}

			db := postgres.Open(cfg.Postgres.URL)
			defer db.Close()
			if err := postgres.Migrate(ctx, db); err != nil {
				return err
			}
			var cache catalogInvalidator
			if cfg.Redis.Addr != "" {
				client := newRedisClient(cfg)
				defer client.Close()
				cache = redisstore.NewCatalogRepository(client, nil, 0)
			}
			return importCatalogs(ctx, postgres.NewCatalogWriter(db), cache, parsed, args)
		},
	}
}

type catalogUpserter interface {
	Upsert(ctx context.Context, catalog domain.Catalog) error
}

type catalogInvalidator interface {
	Invalidate(ctx context.Context, catalogID string) error
}

// importCatalogs stores each catalog and drops its cached copy so running
// servers pick up the new version on the next read. cache may be nil.
func importCatalogs(ctx context.Context, writer catalogUpserter, cache catalogInvalidator, parsed []domain.Catalog, sources []string) error {
	for i, catalog := range parsed {
		if err := writer.Upsert(ctx, catalog); err != nil {
			return err
		}
		if cache != nil {
			if err := cache.Invalidate(ctx, catalog.ID()); err != nil {
				return fmt.Errorf("catalog %s stored but cache not invalidated: %w", catalog.ID(), err)
			}
		}
		log.Printf("imported catalog %s (%d questions) from %s", catalog.ID(), catalog.Len(), sources[i])
	}
	return nil
}

func newCatalogListCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored and built-in catalogs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, c := range catalogs.Builtins() {
				fmt.Fprintf(out, "%s\tbuilt-in\t%d questions\n", c.ID(), c.Len())
			}
			if cfg.Postgres.URL == "" {
				return nil
			}
			db := postgres.Open(cfg.Postgres.URL)
			defer db.Close()
			ids, err := postgres.NewCatalogWriter(db).List(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintf(out, "%s\tpostgres\n", id)
			}
			return nil
		},
	}
}
