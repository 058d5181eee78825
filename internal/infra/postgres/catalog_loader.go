package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"visa-checker/internal/domain"
)

// CatalogLoader loads catalog JSONB from Postgres.
type CatalogLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogLoader(pool *pgxpool.Pool) *CatalogLoader {
	return &CatalogLoader{pool: pool}
}

func (l *CatalogLoader) LoadCatalog(ctx context.Context, catalogID string) (domain.Catalog, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM catalogs WHERE id=$1`, catalogID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Catalog{}, fmt.Errorf("%w: %s", domain.ErrCatalogNotFound, catalogID)
	}
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("load catalog: %w", err)
	}
	return decodeCatalog(catalogID, raw)
}

func decodeCatalog(catalogID string, raw []byte) (domain.Catalog, error) {
	var def domain.CatalogDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return domain.Catalog{}, fmt.Errorf("unmarshal catalog: %w", err)
	}
	if def.ID == "" {
		def.ID = catalogID
	}
	if def.ID != catalogID {
		return domain.Catalog{}, fmt.Errorf("%w: row %s declares id %q", domain.ErrInvalidCatalog, catalogID, def.ID)
	}
	return domain.NewCatalog(def)
}
