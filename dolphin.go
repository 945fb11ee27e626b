// Package dolphin applies and reverts goose schema migrations and hosts a
// small HTTP API over the migration ledger.
package dolphin

import (
	"context"
	"io/fs"

	"github.com/loykin/dolphin/internal/apperr"
	"github.com/loykin/dolphin/internal/common"
	"github.com/loykin/dolphin/internal/config"
	"github.com/loykin/dolphin/internal/database"
	"github.com/loykin/dolphin/internal/migration"
	"github.com/loykin/dolphin/pkg/status"
)

// Re-export commonly used types for public API

// Options selects apply/revert and an optional target migration.
type Options = migration.Options

// Migration identifies one schema version step.
type Migration = migration.Migration

// Engine is the migration capability driven by Migrate.
type Engine = migration.Engine

// Descriptor identifies the target database.
type Descriptor = database.Descriptor

// Settings is a validated runner configuration.
type Settings = config.Settings

// ConfigSource is any key lookup, e.g. *viper.Viper.
type ConfigSource = config.Source

// Status aggregates the current version with applied and pending migrations.
type Status = status.Info

// Logger is the structured logger used throughout dolphin.
type Logger = common.Logger

type LogLevel = common.LogLevel

const (
	LogLevelError = common.LogLevelError
	LogLevelWarn  = common.LogLevelWarn
	LogLevelInfo  = common.LogLevelInfo
	LogLevelDebug = common.LogLevelDebug
)

// NewLogger creates a text logger on stdout.
func NewLogger(level LogLevel) *Logger { return common.NewLogger(level) }

// NewJSONLogger creates a JSON logger on stdout.
func NewJSONLogger(level LogLevel) *Logger { return common.NewJSONLogger(level) }

// SetDefaultLogger replaces the package-wide default logger.
func SetDefaultLogger(l *Logger) { common.SetDefaultLogger(l) }

// EnableMasking toggles masking of passwords and tokens in log output.
func EnableMasking(enabled bool) { common.EnableMasking(enabled) }

// LoadSettings validates src and builds runner settings.
func LoadSettings(src ConfigSource) (Settings, error) { return config.Load(src) }

// Open connects to the database described by desc and builds a goose engine
// over the migration files in fsys. The engine owns the connection.
func Open(desc Descriptor, fsys fs.FS, logger *Logger) (Engine, error) {
	db, dialect, err := database.Open(desc)
	if err != nil {
		return nil, err
	}
	engine, err := migration.NewGooseEngine(db, dialect.Goose, fsys, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return engine, nil
}

// Migrate applies or reverts migrations according to opts.
func Migrate(ctx context.Context, engine Engine, opts Options, logger *Logger) error {
	return migration.NewExecutor(engine, opts, logger).Execute(ctx)
}

// CurrentStatus reports the engine's applied and pending migrations.
func CurrentStatus(ctx context.Context, engine Engine) (Status, error) {
	return status.FromEngine(ctx, engine)
}

// IsMigrationNotFound reports whether err means the named migration was not
// in the relevant applied or pending set.
func IsMigrationNotFound(err error) bool { return apperr.Is(err, apperr.KindMigrationNotFound) }

// IsConfigurationError reports whether err comes from settings validation.
func IsConfigurationError(err error) bool { return apperr.Is(err, apperr.KindConfiguration) }

// IsCancelled reports whether err is a timeout or cancellation.
func IsCancelled(err error) bool { return apperr.Is(err, apperr.KindCancelled) }
