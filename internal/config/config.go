// Package config validates migration runner settings and turns them into a
// connection descriptor and migration options.
package config

import (
	"strconv"
	"strings"

	"github.com/loykin/dolphin/internal/apperr"
	"github.com/loykin/dolphin/internal/constants"
	"github.com/loykin/dolphin/internal/database"
	"github.com/loykin/dolphin/internal/migration"
	"github.com/loykin/dolphin/internal/util"
)

// Configuration keys.
const (
	KeyServer                 = "server"
	KeyDatabase               = "database"
	KeyUsername               = "username"
	KeyPassword               = "password"
	KeyMigrationName          = "migration-name"
	KeyRevert                 = "revert"
	KeyDriver                 = "driver"
	KeyPort                   = "port"
	KeyTrustServerCertificate = "trust-server-certificate"
	KeyMigrationsDir          = "migrations-dir"
	KeyLogLevel               = "log-level"
	KeyLogFormat              = "log-format"
)

// RequiredKeys are checked in this order.
var RequiredKeys = []string{KeyServer, KeyDatabase, KeyUsername, KeyPassword}

// Source is a key lookup; *viper.Viper satisfies it.
type Source interface {
	GetString(key string) string
}

// MapSource is a Source over a plain map.
type MapSource map[string]string

func (m MapSource) GetString(key string) string { return m[key] }

// Settings is everything the runner needs after validation.
type Settings struct {
	Descriptor    database.Descriptor
	Options       migration.Options
	MigrationsDir string
}

// MissingKeys returns every required key whose value is empty or blank.
func MissingKeys(src Source) []string {
	var missing []string
	for _, key := range RequiredKeys {
		if _, ok := util.TrimEmptyCheck(src.GetString(key)); !ok {
			missing = append(missing, key)
		}
	}
	return missing
}

// Validate fails with a configuration error naming all missing required keys.
func Validate(src Source) error {
	if missing := MissingKeys(src); len(missing) > 0 {
		return apperr.New(apperr.KindConfiguration,
			"Missing required configuration settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Load validates src and builds Settings from it.
func Load(src Source) (Settings, error) {
	if err := Validate(src); err != nil {
		return Settings{}, err
	}

	revert, err := parseBool(src, KeyRevert, false)
	if err != nil {
		return Settings{}, err
	}
	trust, err := parseBool(src, KeyTrustServerCertificate, true)
	if err != nil {
		return Settings{}, err
	}
	port, err := parsePort(src)
	if err != nil {
		return Settings{}, err
	}

	desc := database.Descriptor{
		Driver:                 util.TrimWithDefault(src.GetString(KeyDriver), constants.DefaultDriver),
		Server:                 strings.TrimSpace(src.GetString(KeyServer)),
		Database:               strings.TrimSpace(src.GetString(KeyDatabase)),
		Username:               strings.TrimSpace(src.GetString(KeyUsername)),
		Password:               src.GetString(KeyPassword),
		Port:                   port,
		TrustServerCertificate: trust,
	}
	if _, err := desc.Dialect(); err != nil {
		return Settings{}, apperr.Wrap(apperr.KindConfiguration, err, "invalid driver")
	}

	return Settings{
		Descriptor: desc,
		Options: migration.Options{
			MigrationName: strings.TrimSpace(src.GetString(KeyMigrationName)),
			Revert:        revert,
		},
		MigrationsDir: util.TrimWithDefault(src.GetString(KeyMigrationsDir), constants.DefaultMigrationsDir),
	}, nil
}

func parseBool(src Source, key string, def bool) (bool, error) {
	raw := strings.TrimSpace(src.GetString(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperr.New(apperr.KindConfiguration, "Invalid value for %s: %q is not a boolean", key, raw)
	}
	return v, nil
}

func parsePort(src Source) (int, error) {
	raw := strings.TrimSpace(src.GetString(KeyPort))
	if raw == "" || raw == "0" {
		return 0, nil
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port < 1 || port > 65535 {
		return 0, apperr.New(apperr.KindConfiguration, "Invalid value for %s: %q is not a TCP port", KeyPort, raw)
	}
	return port, nil
}
