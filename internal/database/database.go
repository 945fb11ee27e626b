// Package database opens connection pools for the supported migration targets.
package database

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"

	"github.com/loykin/dolphin/internal/constants"
)

// Open opens a pool for the descriptor. It does not ping: the connectivity
// check belongs to the caller so it runs under the caller's deadline.
func Open(desc Descriptor) (*sql.DB, Dialect, error) {
	dialect, err := desc.Dialect()
	if err != nil {
		return nil, Dialect{}, err
	}
	dsn, err := desc.ConnectionString()
	if err != nil {
		return nil, Dialect{}, err
	}
	db, err := sql.Open(dialect.DriverName, dsn)
	if err != nil {
		return nil, Dialect{}, fmt.Errorf("failed to open %s connection: %w", dialect.Name, err)
	}
	configurePool(db, dialect)
	return db, dialect, nil
}

func configurePool(db *sql.DB, dialect Dialect) {
	if dialect.Name == SQLite.Name {
		db.SetMaxOpenConns(constants.DefaultSQLiteMaxConns)
		db.SetMaxIdleConns(constants.DefaultSQLiteMaxConns)
		return
	}
	db.SetMaxOpenConns(constants.DefaultMaxConnections)
	db.SetMaxIdleConns(constants.DefaultMaxIdleConns)
	db.SetConnMaxLifetime(constants.DefaultMaxConnLifetime)
	db.SetConnMaxIdleTime(constants.DefaultMaxIdleTime)
}
