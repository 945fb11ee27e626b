package migration

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"

	"github.com/loykin/dolphin/internal/common"
	"github.com/loykin/dolphin/internal/retry"
)

// GooseEngine drives github.com/pressly/goose/v3. It owns db and closes it.
type GooseEngine struct {
	db       *sql.DB
	provider *goose.Provider
	logger   *common.Logger
	retry    *retry.Config
}

// NewGooseEngine builds an engine over the migration files in fsys (root level
// *.sql and registered Go migrations). On error the caller still owns db.
func NewGooseEngine(db *sql.DB, dialect goose.Dialect, fsys fs.FS, logger *common.Logger) (*GooseEngine, error) {
	if logger == nil {
		logger = common.GetLogger()
	}
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise migration engine: %w", err)
	}
	return &GooseEngine{
		db:       db,
		provider: provider,
		logger:   logger.WithComponent("engine").WithDriver(string(dialect)),
		retry:    retry.DefaultRetryConfig(),
	}, nil
}

// Ping checks connectivity, retrying transient failures.
func (g *GooseEngine) Ping(ctx context.Context) error {
	return pingDB(ctx, g.db, g.retry, g.logger)
}

func pingDB(ctx context.Context, db *sql.DB, cfg *retry.Config, logger *common.Logger) error {
	return retry.Do(ctx, cfg, logger, func(ctx context.Context) error {
		return db.PingContext(ctx)
	})
}

// Applied lists applied migrations by ascending version.
func (g *GooseEngine) Applied(ctx context.Context) ([]Migration, error) {
	applied, _, err := g.status(ctx)
	return applied, err
}

// Pending lists pending migrations by ascending version.
func (g *GooseEngine) Pending(ctx context.Context) ([]Migration, error) {
	_, pending, err := g.status(ctx)
	return pending, err
}

func (g *GooseEngine) status(ctx context.Context) (applied, pending []Migration, err error) {
	statuses, err := g.provider.Status(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read migration status: %w", err)
	}
	for _, s := range statuses {
		m := Migration{Version: s.Source.Version, Name: nameFromPath(s.Source.Path)}
		switch s.State {
		case goose.StateApplied:
			m.AppliedAt = s.AppliedAt
			applied = append(applied, m)
		case goose.StatePending:
			pending = append(pending, m)
		}
	}
	return applied, pending, nil
}

// ApplyAll applies every pending migration.
func (g *GooseEngine) ApplyAll(ctx context.Context) error {
	results, err := g.provider.Up(ctx)
	g.logResults(results)
	return err
}

// ApplyTo applies pending migrations up to and including target.
func (g *GooseEngine) ApplyTo(ctx context.Context, target Migration) error {
	results, err := g.provider.UpTo(ctx, target.Version)
	g.logResults(results)
	return err
}

// RevertTo runs down migrations until version is the newest applied one.
func (g *GooseEngine) RevertTo(ctx context.Context, version int64) error {
	results, err := g.provider.DownTo(ctx, version)
	g.logResults(results)
	return err
}

func (g *GooseEngine) logResults(results []*goose.MigrationResult) {
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		g.logger.Debug("migration step finished",
			"migration", nameFromPath(r.Source.Path),
			"direction", r.Direction,
			"duration", r.Duration,
			"empty", r.Empty)
	}
}

// Close releases the provider and the database handle.
func (g *GooseEngine) Close() error {
	return g.provider.Close()
}
