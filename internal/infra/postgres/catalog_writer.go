package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"visa-checker/internal/domain"
	"visa-checker/internal/infra/postgres/migrations"
)

// Open returns a bun handle on dsn.
func Open(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// Migrate applies all pending schema migrations.
func Migrate(ctx context.Context, db *bun.DB) error {
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// CatalogRow is the catalogs table as bun sees it.
type CatalogRow struct {
	bun.BaseModel `bun:"table:catalogs"`

	ID   string          `bun:"id,pk"`
	Data json.RawMessage `bun:"data,type:jsonb"`
}

// CatalogWriter stores catalogs.
type CatalogWriter struct {
	db *bun.DB
}

func NewCatalogWriter(db *bun.DB) *CatalogWriter {
	return &CatalogWriter{db: db}
}

// Upsert inserts or replaces a catalog by id.
func (w *CatalogWriter) Upsert(ctx context.Context, catalog domain.Catalog) error {
	data, err := json.Marshal(catalog.Definition())
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	row := &CatalogRow{ID: catalog.ID(), Data: data}
	_, err = w.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("updated_at = now()").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert catalog %s: %w", catalog.ID(), err)
	}
	return nil
}

// List returns the ids of stored catalogs.
func (w *CatalogWriter) List(ctx context.Context) ([]string, error) {
	var ids []string
	if err := w.db.NewSelect().Model((*CatalogRow)(nil)).Column("id").Order("id").Scan(ctx, &ids); err != nil {
		return nil, fmt.Errorf("list catalogs: %w", err)
	}
	return ids, nil
}
