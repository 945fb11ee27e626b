package migration

import (
	"path"
	"strconv"
	"strings"
	"time"
)

// Options selects the migration action. It is built once from configuration.
type Options struct {
	// MigrationName is optional: empty means "all" when applying and
	// "last" when reverting.
	MigrationName string
	Revert        bool
}

// Migration identifies one schema version step known to the engine.
type Migration struct {
	Version int64
	// Name is the migration file name without its extension, e.g. 00002_add_orders.
	Name string
	// AppliedAt is zero for pending migrations.
	AppliedAt time.Time
}

// Applied reports whether the engine recorded the migration as applied.
func (m Migration) Applied() bool { return !m.AppliedAt.IsZero() }

// Matches reports whether name identifies m, either by its full name or by
// its bare version number ("2" and "00002" both match version 2).
func (m Migration) Matches(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	if name == m.Name {
		return true
	}
	v, err := strconv.ParseInt(name, 10, 64)
	return err == nil && v == m.Version
}

// Find returns the index of the migration identified by name, or -1.
func Find(list []Migration, name string) int {
	for i, m := range list {
		if m.Matches(name) {
			return i
		}
	}
	return -1
}

func nameFromPath(p string) string {
	base := path.Base(strings.ReplaceAll(p, `\`, "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}
