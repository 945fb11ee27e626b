// Package runner is the migration process boundary: it validates settings,
// bounds the run with a timeout and maps the outcome to an exit code.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/loykin/dolphin/internal/apperr"
	"github.com/loykin/dolphin/internal/common"
	"github.com/loykin/dolphin/internal/config"
	"github.com/loykin/dolphin/internal/constants"
	"github.com/loykin/dolphin/internal/database"
	"github.com/loykin/dolphin/internal/migration"
)

// ExitCode is the process exit status.
type ExitCode int

const (
	ExitOK      ExitCode = 0
	ExitFailure ExitCode = 1
)

// OpenFunc builds the engine for validated settings. The caller closes it.
type OpenFunc func(settings config.Settings, logger *common.Logger) (migration.Engine, error)

// Deps are the explicit inputs of one migration run.
type Deps struct {
	Options migration.Options
	Logger  *common.Logger
	Engine  migration.Engine
}

// Execute runs the executor for deps under ctx.
func Execute(ctx context.Context, deps Deps) error {
	return migration.NewExecutor(deps.Engine, deps.Options, deps.Logger).Execute(ctx)
}

// Runner wires configuration, engine and executor for a single invocation.
type Runner struct {
	Timeout time.Duration
	// Stderr receives the one-line failure diagnostic.
	Stderr io.Writer
	Logger *common.Logger
	Open   OpenFunc
}

// New returns a Runner with production defaults.
func New(logger *common.Logger) *Runner {
	return &Runner{
		Timeout: constants.DefaultMigrationTimeout,
		Stderr:  os.Stderr,
		Logger:  logger,
		Open:    OpenGoose,
	}
}

// OpenGoose opens the configured database and a goose engine over the
// migrations directory.
func OpenGoose(settings config.Settings, logger *common.Logger) (migration.Engine, error) {
	info, err := os.Stat(settings.MigrationsDir)
	if err != nil {
		return nil, fmt.Errorf("migrations directory %s: %w", settings.MigrationsDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("migrations directory %s is not a directory", settings.MigrationsDir)
	}

	db, dialect, err := database.Open(settings.Descriptor)
	if err != nil {
		return nil, err
	}
	logger.Debug("opened database", "target", settings.Descriptor.String(), "dialect", dialect.Name)

	engine, err := migration.NewGooseEngine(db, dialect.Goose, os.DirFS(settings.MigrationsDir), logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return engine, nil
}

// Run executes one migration run and reports the outcome on Stderr.
func (r *Runner) Run(ctx context.Context, src config.Source) ExitCode {
	logger := r.logger()

	settings, err := config.Load(src)
	if err != nil {
		r.fail(err)
		return ExitFailure
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout())
	defer cancel()

	err = r.run(ctx, settings, logger)
	if err == nil {
		logger.Info("migration run completed successfully")
		return ExitOK
	}
	r.fail(err)
	return ExitFailure
}

func (r *Runner) run(ctx context.Context, settings config.Settings, logger *common.Logger) error {
	logger.Info("starting migration run",
		"target", settings.Descriptor.String(),
		"migration", settings.Options.MigrationName,
		"revert", settings.Options.Revert)

	engine, err := r.open()(settings, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := engine.Close(); cerr != nil {
			logger.Warn("failed to close migration engine", "error", cerr)
		}
	}()

	return Execute(ctx, Deps{Options: settings.Options, Logger: logger, Engine: engine})
}

// Message renders err as the one-line diagnostic written to stderr.
func (r *Runner) Message(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "Operation timed out after " + strconv.FormatFloat(r.timeout().Seconds(), 'f', -1, 64) + " seconds"
	case apperr.Is(err, apperr.KindCancelled):
		return "Operation cancelled"
	case apperr.Is(err, apperr.KindConfiguration):
		return "Configuration error: " + err.Error()
	case apperr.Is(err, apperr.KindMigrationNotFound):
		return "Migration error: " + err.Error()
	default:
		return "Unexpected error: " + common.MaskSensitiveData(err.Error())
	}
}

func (r *Runner) fail(err error) {
	_, _ = fmt.Fprintln(r.stderr(), r.Message(err))
}

func (r *Runner) timeout() time.Duration {
	if r.Timeout <= 0 {
		return constants.DefaultMigrationTimeout
	}
	return r.Timeout
}

func (r *Runner) stderr() io.Writer {
	if r.Stderr == nil {
		return os.Stderr
	}
	return r.Stderr
}

func (r *Runner) logger() *common.Logger {
	if r.Logger == nil {
		return common.GetLogger().WithComponent("runner")
	}
	return r.Logger.WithComponent("runner")
}

func (r *Runner) open() OpenFunc {
	if r.Open == nil {
		return OpenGoose
	}
	return r.Open
}
