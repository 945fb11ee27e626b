package main

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/loykin/dolphin/internal/config"
)

// knownKeys are the settings accepted as flags, key=value arguments and
// DOLPHIN_* environment variables.
var knownKeys = []string{
	config.KeyServer,
	config.KeyDatabase,
	config.KeyUsername,
	config.KeyPassword,
	config.KeyMigrationName,
	config.KeyRevert,
	config.KeyDriver,
	config.KeyPort,
	config.KeyTrustServerCertificate,
	config.KeyMigrationsDir,
	config.KeyLogLevel,
	config.KeyLogFormat,
}

func isKnownKey(key string) bool {
	for _, k := range knownKeys {
		if k == key {
			return true
		}
	}
	return false
}

// applyArgs stores positional key=value arguments in v. Keys are matched
// case-insensitively and underscores are accepted for dashes.
func applyArgs(v *viper.Viper, args []string) error {
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("argument %q is not in key=value form", arg)
		}
		key = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(strings.TrimLeft(key, "-"))), "_", "-")
		if !isKnownKey(key) {
			return fmt.Errorf("unknown configuration key %q", key)
		}
		v.Set(key, value)
	}
	return nil
}
