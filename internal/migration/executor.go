package migration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/loykin/dolphin/internal/apperr"
	"github.com/loykin/dolphin/internal/common"
)

// Executor resolves Options into engine calls. Apply walks forward through the
// pending prefix one migration at a time; revert jumps straight to a target.
type Executor struct {
	engine  Engine
	options Options
	logger  *common.Logger
}

// NewExecutor creates an executor bound to one engine and one set of options.
func NewExecutor(engine Engine, options Options, logger *common.Logger) *Executor {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &Executor{
		engine:  engine,
		options: options,
		logger:  logger.WithComponent("executor"),
	}
}

// Execute checks connectivity and then applies or reverts migrations.
// Cancellation yields an apperr.KindCancelled error wrapping the context error.
func (e *Executor) Execute(ctx context.Context) error {
	err := e.execute(ctx)
	if err == nil {
		return nil
	}
	if cause := cancellation(ctx, err); cause != nil {
		e.logger.Warn("migration operation was cancelled", "error", err)
		return apperr.Wrap(apperr.KindCancelled, cause, "migration operation was cancelled")
	}
	e.logger.Error("error occurred while running migrations", "error", err)
	return err
}

func cancellation(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func (e *Executor) execute(ctx context.Context) error {
	if err := e.engine.Ping(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	e.logger.Info("successfully connected to database")

	if e.options.Revert {
		return e.revert(ctx)
	}
	return e.apply(ctx)
}

func (e *Executor) apply(ctx context.Context) error {
	name := strings.TrimSpace(e.options.MigrationName)
	if name == "" {
		e.logger.Info("applying all pending migrations")
		if err := e.engine.ApplyAll(ctx); err != nil {
			return fmt.Errorf("failed to apply pending migrations: %w", err)
		}
		e.logger.Info("successfully applied all pending migrations")
		return nil
	}

	e.logger.Info("applying migration", "migration", name)
	pending, err := e.engine.Pending(ctx)
	if err != nil {
		return err
	}
	idx := Find(pending, name)
	if idx < 0 {
		return apperr.New(apperr.KindMigrationNotFound, "Migration '%s' not found in pending migrations", name)
	}

	for _, m := range pending[:idx+1] {
		if err := ctx.Err(); err != nil {
			return err
		}
		step := e.logger.WithMigration(m.Name)
		step.Info("applying migration step", "version", m.Version)
		if err := e.engine.ApplyTo(ctx, m); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", m.Name, err)
		}
		step.Info("applied migration step", "version", m.Version)
	}

	e.logger.Info("successfully applied migration", "migration", name, "steps", idx+1)
	return nil
}

func (e *Executor) revert(ctx context.Context) error {
	name := strings.TrimSpace(e.options.MigrationName)
	if name == "" {
		e.logger.Info("reverting last migration")
		applied, err := e.engine.Applied(ctx)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			e.logger.Info("no migrations to revert")
			return nil
		}
		last := applied[len(applied)-1]
		var target int64
		if len(applied) > 1 {
			target = applied[len(applied)-2].Version
		}
		step := e.logger.WithMigration(last.Name)
		step.Info("reverting migration step", "version", last.Version, "target_version", target)
		if err := e.engine.RevertTo(ctx, target); err != nil {
			return fmt.Errorf("failed to revert migration %s: %w", last.Name, err)
		}
		step.Info("successfully reverted last migration")
		return nil
	}

	e.logger.Info("reverting to migration", "migration", name)
	applied, err := e.engine.Applied(ctx)
	if err != nil {
		return err
	}
	idx := Find(applied, name)
	if idx < 0 {
		return apperr.New(apperr.KindMigrationNotFound, "Migration '%s' not found in applied migrations", name)
	}
	target := applied[idx]
	for i := len(applied) - 1; i > idx; i-- {
		e.logger.WithMigration(applied[i].Name).Info("reverting migration step", "version", applied[i].Version)
	}
	if err := e.engine.RevertTo(ctx, target.Version); err != nil {
		return fmt.Errorf("failed to revert to migration %s: %w", target.Name, err)
	}
	e.logger.Info("successfully reverted to migration", "migration", target.Name)
	return nil
}
