package schema

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"strings"
)

//go:embed tenantmigrations/*.sql
var tenantMigrationsFS embed.FS

// FromFS loads a migration set from dir, expecting files named
// NNNN_description.sql, ordered by the numeric version prefix.
func FromFS(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations dir %q: %w", dir, err)
	}

	migrations := make([]Migration, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		version, name, err := parseFilename(entry.Name())
		if err != nil {
			return nil, err
		}
		raw, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %q: %w", entry.Name(), err)
		}
		migrations = append(migrations, Migration{
			Version: version,
			Name:    name,
			SQL:     string(raw),
		})
	}

	return orderedSet(migrations)
}

// TenantMigrations is the full migration set targeted at newly provisioned
// tenant schemas. Existing tenants pick up new versions on the next run.
func TenantMigrations() ([]Migration, error) {
	return FromFS(tenantMigrationsFS, "tenantmigrations")
}

func parseFilename(filename string) (int64, string, error) {
	base := strings.TrimSuffix(filename, ".sql")
	idx := strings.Index(base, "_")
	if idx <= 0 {
		return 0, "", fmt.Errorf("migration filename %q must look like NNNN_description.sql", filename)
	}
	version, err := strconv.ParseInt(base[:idx], 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("migration filename %q has non-numeric version: %w", filename, err)
	}
	return version, base[idx+1:], nil
}
