package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/loykin/dolphin/internal/common"
	"github.com/loykin/dolphin/internal/config"
	"github.com/loykin/dolphin/internal/constants"
	"github.com/loykin/dolphin/internal/runner"
)

// exitCodeError carries a non-zero exit code whose diagnostic was already printed.
type exitCodeError struct {
	code runner.ExitCode
}

func (e *exitCodeError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func newRootCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dolphin-migrate [key=value ...]",
		Short: "Apply or revert database schema migrations",
		Long: `Apply or revert database schema migrations.

Without --migration-name every pending migration is applied (or, with
--revert, the last applied migration is rolled back). Settings may be given
as flags, as key=value arguments or as DOLPHIN_* environment variables.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			stderr := cmd.ErrOrStderr()
			if err := applyArgs(v, args); err != nil {
				_, _ = fmt.Fprintf(stderr, "Configuration error: %v\n", err)
				return &exitCodeError{code: runner.ExitFailure}
			}
			logger, err := setupLogging(v, cmd.OutOrStdout())
			if err != nil {
				_, _ = fmt.Fprintf(stderr, "Configuration error: %v\n", err)
				return &exitCodeError{code: runner.ExitFailure}
			}

			r := runner.New(logger)
			r.Stderr = stderr
			if code := r.Run(cmd.Context(), v); code != runner.ExitOK {
				return &exitCodeError{code: code}
			}
			return nil
		},
	}

	// Defaults
	v.SetDefault(config.KeyDriver, constants.DefaultDriver)
	v.SetDefault(config.KeyMigrationsDir, constants.DefaultMigrationsDir)
	v.SetDefault(config.KeyTrustServerCertificate, true)
	v.SetDefault(config.KeyLogLevel, "info")
	v.SetDefault(config.KeyLogFormat, "text")

	// Environment variables support: DOLPHIN_SERVER, DOLPHIN_MIGRATION_NAME, ...
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	flags := cmd.PersistentFlags()
	flags.String(config.KeyServer, "", "database server host")
	flags.String(config.KeyDatabase, "", "database name (file path for sqlite)")
	flags.String(config.KeyUsername, "", "database user")
	flags.String(config.KeyPassword, "", "database password")
	flags.String(config.KeyMigrationName, "", "target migration (name or version); empty means all when applying, last when reverting")
	flags.Bool(config.KeyRevert, false, "revert instead of apply")
	flags.String(config.KeyDriver, v.GetString(config.KeyDriver), "database driver: sqlserver, postgres, mysql or sqlite")
	flags.Int(config.KeyPort, 0, "database port (0 = driver default)")
	flags.Bool(config.KeyTrustServerCertificate, v.GetBool(config.KeyTrustServerCertificate), "skip TLS certificate validation (sqlserver)")
	flags.String(config.KeyMigrationsDir, v.GetString(config.KeyMigrationsDir), "directory holding goose migration files")
	flags.String(config.KeyLogLevel, v.GetString(config.KeyLogLevel), "log level: error, warn, info, debug")
	flags.String(config.KeyLogFormat, v.GetString(config.KeyLogFormat), "log format: text, json, color")
	_ = v.BindPFlags(flags)

	cmd.AddCommand(newStatusCmd(v))
	return cmd
}

func setupLogging(v *viper.Viper, out io.Writer) (*common.Logger, error) {
	level, err := common.ParseLevel(v.GetString(config.KeyLogLevel))
	if err != nil {
		return nil, err
	}
	format, err := common.ParseFormat(v.GetString(config.KeyLogFormat))
	if err != nil {
		return nil, err
	}
	logger := common.New(out, level, format)
	common.SetDefaultLogger(logger)
	return logger, nil
}

// exitCode maps a command error to the process exit status.
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return int(runner.ExitOK)
	}
	var ec *exitCodeError
	if errors.As(err, &ec) {
		return int(ec.code)
	}
	_, _ = fmt.Fprintf(stderr, "Configuration error: %v\n", err)
	return int(runner.ExitFailure)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(viper.New()).ExecuteContext(ctx)
	stop()
	exitHandler.Exit(exitCode(err, os.Stderr))
}
