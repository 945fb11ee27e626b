package migration

import "context"

// Engine is the migration-execution capability the executor drives.
// Implementations own the schema ledger; every call must observe ctx.
type Engine interface {
	// Ping verifies the target database is reachable.
	Ping(ctx context.Context) error
	// Applied lists applied migrations in application order.
	Applied(ctx context.Context) ([]Migration, error)
	// Pending lists migrations not yet applied, in the order they would run.
	Pending(ctx context.Context) ([]Migration, error)
	// ApplyAll applies every pending migration.
	ApplyAll(ctx context.Context) error
	// ApplyTo applies pending migrations up to and including target.
	ApplyTo(ctx context.Context, target Migration) error
	// RevertTo rolls back every applied migration newer than version.
	// The migration at version stays applied; version 0 reverts everything.
	RevertTo(ctx context.Context, version int64) error
	Close() error
}
