package status

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/loykin/dolphin/internal/migration"
)

// Status display constants
const (
	defaultHistoryLimit = 10 // Default number of applied entries to show
)

// Lister is the read side of a migration engine.
type Lister interface {
	Applied(ctx context.Context) ([]migration.Migration, error)
	Pending(ctx context.Context) ([]migration.Migration, error)
}

// Item is a single migration as reported to users.
// AppliedAt is an RFC3339 timestamp in UTC, empty for pending migrations.
type Item struct {
	Version   int64  `json:"version"`
	Name      string `json:"name"`
	Applied   bool   `json:"applied"`
	AppliedAt string `json:"appliedAt,omitempty"`
}

// Info aggregates status information: current version, applied and pending lists.
type Info struct {
	Version int64  `json:"version"`
	Applied []Item `json:"applied"`
	Pending []Item `json:"pending"`
}

// FromEngine collects status information from an opened engine.
func FromEngine(ctx context.Context, l Lister) (Info, error) {
	applied, err := l.Applied(ctx)
	if err != nil {
		return Info{}, err
	}
	pending, err := l.Pending(ctx)
	if err != nil {
		return Info{}, err
	}
	info := Info{Applied: toItems(applied), Pending: toItems(pending)}
	if n := len(applied); n > 0 {
		info.Version = applied[n-1].Version
	}
	return info, nil
}

func toItems(list []migration.Migration) []Item {
	items := make([]Item, 0, len(list))
	for _, m := range list {
		it := Item{Version: m.Version, Name: m.Name, Applied: m.Applied()}
		if it.Applied {
			it.AppliedAt = m.AppliedAt.UTC().Format(time.RFC3339)
		}
		items = append(items, it)
	}
	return items
}

// All returns applied then pending migrations, which is version order.
func (i Info) All() []Item {
	return append(append([]Item{}, i.Applied...), i.Pending...)
}

// Find returns the migration identified by name (full name or version).
func (i Info) Find(name string) (Item, bool) {
	for _, it := range i.All() {
		m := migration.Migration{Version: it.Version, Name: it.Name}
		if m.Matches(name) {
			return it, true
		}
	}
	return Item{}, false
}

// FormatHuman returns a human-friendly multiline string for CLI output.
// pending=false prints only current version and applied versions;
// pending=true additionally lists the pending migrations by name.
func (i Info) FormatHuman(pending bool) string {
	base := fmt.Sprintf("current: %d\napplied: %v\n", i.Version, versions(i.Applied))
	if !pending {
		return base
	}
	if len(i.Pending) == 0 {
		return base + "pending: \n"
	}
	var b strings.Builder
	b.WriteString(base + "pending:\n")
	for _, p := range i.Pending {
		fmt.Fprintf(&b, "v=%d %s\n", p.Version, p.Name)
	}
	return b.String()
}

// FormatHumanWithLimit prints status like FormatHuman and then the applied
// migrations newest-first up to limit. If all=true every applied migration
// is printed and limit is ignored. Default behavior when limit<=0 is 10.
func (i Info) FormatHumanWithLimit(pending bool, limit int, all bool) string {
	base := i.FormatHuman(pending)
	if len(i.Applied) == 0 {
		return base + "history: \n"
	}
	rev := make([]Item, len(i.Applied))
	for idx := range i.Applied {
		rev[len(i.Applied)-1-idx] = i.Applied[idx]
	}
	items := rev
	if !all {
		if limit <= 0 {
			limit = defaultHistoryLimit
		}
		if len(items) > limit {
			items = items[:limit]
		}
	}
	var b strings.Builder
	b.WriteString(base + "history:\n")
	for _, h := range items {
		fmt.Fprintf(&b, "v=%d %s at=%s\n", h.Version, h.Name, h.AppliedAt)
	}
	return b.String()
}

func versions(items []Item) []int64 {
	out := make([]int64, 0, len(items))
	for _, it := range items {
		out = append(out, it.Version)
	}
	return out
}
