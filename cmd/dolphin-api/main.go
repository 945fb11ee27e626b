package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/loykin/dolphin/internal/api"
	"github.com/loykin/dolphin/internal/api/controllers"
	"github.com/loykin/dolphin/internal/common"
	"github.com/loykin/dolphin/internal/constants"
	"github.com/loykin/dolphin/internal/database"
	"github.com/loykin/dolphin/internal/migration"
)

// overrideKeys map viper keys to api.Overrides fields.
var overrideKeys = []string{"addr", "environment", "allowed_origins", "log_level", "log_format"}

func newRootCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dolphin-api",
		Short:         "Serve the dolphin HTTP API",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			logger, err := cfg.Logging.NewLogger(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			common.SetDefaultLogger(logger)
			return serve(cmd.Context(), cfg, logger)
		},
	}

	// Environment variables support: DOLPHIN_API_ADDR, DOLPHIN_API_ALLOWED_ORIGINS, ...
	v.SetEnvPrefix(constants.APIEnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	flags := cmd.Flags()
	flags.String("config", "", "path to a YAML config file")
	flags.String("addr", constants.DefaultAPIAddr, "listen address")
	flags.String("environment", constants.EnvironmentProduction, "development or production")
	flags.StringSlice("allowed-origins", nil, "CORS allowed origins (absolute http(s) URLs)")
	flags.String("log-level", "info", "log level: error, warn, info, debug")
	flags.String("log-format", "text", "log format: text, json, color")
	_ = v.BindPFlag("config", flags.Lookup("config"))
	_ = v.BindPFlag("addr", flags.Lookup("addr"))
	_ = v.BindPFlag("environment", flags.Lookup("environment"))
	_ = v.BindPFlag("allowed_origins", flags.Lookup("allowed-origins"))
	_ = v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = v.BindPFlag("log_format", flags.Lookup("log-format"))
	return cmd
}

// loadConfig layers explicitly set flags and environment variables over the
// optional config file.
func loadConfig(v *viper.Viper) (api.Config, error) {
	cfg := api.DefaultConfig()
	if path := strings.TrimSpace(v.GetString("config")); path != "" {
		loaded, err := api.LoadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to load configuration file '%s': %w", path, err)
		}
		cfg = loaded
	}
	overrides := map[string]any{}
	for _, key := range overrideKeys {
		if v.IsSet(key) {
			overrides[key] = v.Get(key)
		}
	}
	if err := cfg.ApplyOverrides(overrides); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func serve(ctx context.Context, cfg api.Config, logger *common.Logger) error {
	var opts []api.Option
	if cfg.Database != nil {
		engine, err := openEngine(*cfg.Database, logger)
		if err != nil {
			return err
		}
		defer func() { _ = engine.Close() }()
		opts = append(opts,
			api.WithController(controllers.NewMigrationsController(engine)),
			api.WithHealthCheck("database", engine.Ping),
		)
	}

	srv, err := api.New(cfg, logger, opts...)
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx)
}

func openEngine(dc api.DatabaseConfig, logger *common.Logger) (*migration.GooseEngine, error) {
	db, dialect, err := database.Open(dc.Descriptor())
	if err != nil {
		return nil, err
	}
	engine, err := migration.NewGooseEngine(db, dialect.Goose, os.DirFS(dc.Dir()), logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return engine, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(viper.New()).ExecuteContext(ctx)
	stop()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
