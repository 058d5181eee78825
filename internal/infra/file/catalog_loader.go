package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"visa-checker/internal/domain"
)

// CatalogLoader reads catalogs from YAML files named {id}.yaml or {id}.yml
// in a directory.
type CatalogLoader struct {
	dir string
}

func NewCatalogLoader(dir string) *CatalogLoader {
	return &CatalogLoader{dir: dir}
}

func (l *CatalogLoader) LoadCatalog(_ context.Context, catalogID string) (domain.Catalog, error) {
	if catalogID == "" || strings.ContainsAny(catalogID, `/\`) || strings.Contains(catalogID, "..") {
		return domain.Catalog{}, fmt.Errorf("%w: %q", domain.ErrCatalogNotFound, catalogID)
	}
	for _, ext := range []string{".yaml", ".yml"} {
		c, err := ReadCatalogFile(filepath.Join(l.dir, catalogID+ext))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return domain.Catalog{}, err
		}
		if c.ID() != catalogID {
			return domain.Catalog{}, fmt.Errorf("%w: file %s declares id %q", domain.ErrInvalidCatalog, catalogID+ext, c.ID())
		}
		return c, nil
	}
	return domain.Catalog{}, fmt.Errorf("%w: %s", domain.ErrCatalogNotFound, catalogID)
}

// ReadCatalogFile parses and validates a single YAML catalog.
func ReadCatalogFile(path string) (domain.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Catalog{}, err
	}
	var def domain.CatalogDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return domain.Catalog{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return domain.NewCatalog(def)
}
