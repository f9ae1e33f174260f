// Package migrations holds the SQLite schema as numbered forward-only
// <version>_<name>.up.sql files. Each file records its own version in
// schema_migrations.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"slices"
	"strings"
)

//go:embed *.up.sql
var files embed.FS

// Migration is one numbered up step.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Pending returns the up migrations newer than applied, oldest first.
func Pending(applied int) ([]Migration, error) {
	return pending(files, applied)
}

func pending(fsys fs.FS, applied int) ([]Migration, error) {
	names, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil, err
	}

	var out []Migration
	for _, name := range names {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			return nil, fmt.Errorf("migration %s: name must start with a version number", name)
		}
		if version <= applied {
			continue
		}
		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		out = append(out, Migration{
			Version: version,
			Name:    strings.TrimSuffix(name, ".up.sql"),
			SQL:     string(body),
		})
	}

	slices.SortFunc(out, func(a, b Migration) int { return a.Version - b.Version })
	for i := 1; i < len(out); i++ {
		if out[i].Version == out[i-1].Version {
			return nil, fmt.Errorf("migrations %s and %s share version %d", out[i-1].Name, out[i].Name, out[i].Version)
		}
	}
	return out, nil
}
