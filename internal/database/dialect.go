package database

import (
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/loykin/dolphin/internal/constants"
	"github.com/loykin/dolphin/internal/util"
)

// Dialect ties a driver key to its database/sql driver and goose dialect.
type Dialect struct {
	// Name is the canonical driver key (sqlserver, postgres, mysql, sqlite).
	Name string
	// DriverName is the database/sql driver registered by the driver package.
	DriverName string
	// Goose is the dialect the migration engine speaks.
	Goose       goose.Dialect
	DefaultPort int
}

var (
	SQLServer = Dialect{Name: "sqlserver", DriverName: "sqlserver", Goose: goose.DialectMSSQL, DefaultPort: constants.DefaultSQLServerPort}
	Postgres  = Dialect{Name: "postgres", DriverName: "pgx", Goose: goose.DialectPostgres, DefaultPort: constants.DefaultPostgresPort}
	MySQL     = Dialect{Name: "mysql", DriverName: "mysql", Goose: goose.DialectMySQL, DefaultPort: constants.DefaultMySQLPort}
	SQLite    = Dialect{Name: "sqlite", DriverName: "sqlite", Goose: goose.DialectSQLite3}
)

// Lookup resolves a driver key or one of its aliases.
func Lookup(driver string) (Dialect, error) {
	switch util.TrimAndLower(driver) {
	case "sqlserver", "mssql", "":
		return SQLServer, nil
	case "postgres", "postgresql", "pg", "pgx":
		return Postgres, nil
	case "mysql", "mariadb":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver: %s (valid: sqlserver, postgres, mysql, sqlite)", driver)
	}
}
