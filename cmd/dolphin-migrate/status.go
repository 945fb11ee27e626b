package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/loykin/dolphin/internal/config"
	"github.com/loykin/dolphin/internal/constants"
	"github.com/loykin/dolphin/internal/runner"
	"github.com/loykin/dolphin/pkg/status"
)

func newStatusCmd(v *viper.Viper) *cobra.Command {
	var (
		history      bool
		historyAll   bool
		historyLimit int
	)
	cmd := &cobra.Command{
		Use:   "status [key=value ...]",
		Short: "Show current migration version, applied and pending migrations",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stderr := cmd.ErrOrStderr()
			if err := applyArgs(v, args); err != nil {
				_, _ = fmt.Fprintf(stderr, "Configuration error: %v\n", err)
				return &exitCodeError{code: runner.ExitFailure}
			}
			logger, err := setupLogging(v, stderr)
			if err != nil {
				_, _ = fmt.Fprintf(stderr, "Configuration error: %v\n", err)
				return &exitCodeError{code: runner.ExitFailure}
			}
			settings, err := config.Load(v)
			if err != nil {
				_, _ = fmt.Fprintf(stderr, "Configuration error: %v\n", err)
				return &exitCodeError{code: runner.ExitFailure}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), constants.DefaultMigrationTimeout)
			defer cancel()

			engine, err := runner.OpenGoose(settings, logger)
			if err != nil {
				_, _ = fmt.Fprintf(stderr, "Unexpected error: %v\n", err)
				return &exitCodeError{code: runner.ExitFailure}
			}
			defer func() { _ = engine.Close() }()

			info, err := status.FromEngine(ctx, engine)
			if err != nil {
				_, _ = fmt.Fprintf(stderr, "Unexpected error: %v\n", err)
				return &exitCodeError{code: runner.ExitFailure}
			}
			out := info.FormatHuman(true)
			if history {
				out = info.FormatHumanWithLimit(true, historyLimit, historyAll)
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&history, "history", false, "also list applied migrations newest-first")
	cmd.Flags().BoolVar(&historyAll, "history-all", false, "list every applied migration (ignores --history-limit)")
	cmd.Flags().IntVar(&historyLimit, "history-limit", 10, "number of applied migrations to list")
	return cmd
}
