package database

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/loykin/dolphin/internal/common"
	"github.com/loykin/dolphin/internal/constants"
)

// Descriptor identifies the target database. Server, Database, Username and
// Password are required; they are combined into a driver specific
// connection string and never validated beyond presence.
type Descriptor struct {
	Driver   string
	Server   string
	Database string
	Username string
	Password string
	// Port overrides the dialect default when non-zero.
	Port int
	// TrustServerCertificate skips TLS verification on SQL Server.
	TrustServerCertificate bool
}

// Dialect resolves the descriptor's driver.
func (d Descriptor) Dialect() (Dialect, error) {
	return Lookup(d.Driver)
}

// ConnectionString assembles the driver specific connection string.
func (d Descriptor) ConnectionString() (string, error) {
	dialect, err := d.Dialect()
	if err != nil {
		return "", err
	}
	switch dialect.Name {
	case SQLServer.Name:
		return d.sqlServerString(), nil
	case Postgres.Name:
		return d.postgresURL(dialect), nil
	case MySQL.Name:
		return d.mysqlDSN(dialect), nil
	case SQLite.Name:
		return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", d.Database), nil
	default:
		return "", fmt.Errorf("no connection string format for driver %s", dialect.Name)
	}
}

func (d Descriptor) sqlServerString() string {
	parts := []string{
		"Server=" + adoValue(d.Server),
		"Database=" + adoValue(d.Database),
		"User Id=" + adoValue(d.Username),
		"Password=" + adoValue(d.Password),
	}
	if d.Port != 0 {
		parts = append(parts, "Port="+strconv.Itoa(d.Port))
	}
	if d.TrustServerCertificate {
		parts = append(parts, "TrustServerCertificate=True")
	}
	return strings.Join(parts, ";")
}

// adoValue quotes values that would otherwise break key=value; parsing.
func adoValue(v string) string {
	if !strings.ContainsAny(v, `;"'`) {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

func (d Descriptor) hostPort(dialect Dialect) string {
	port := d.Port
	if port == 0 {
		port = dialect.DefaultPort
	}
	return net.JoinHostPort(d.Server, strconv.Itoa(port))
}

func (d Descriptor) postgresURL(dialect Dialect) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.Username, d.Password),
		Host:     d.hostPort(dialect),
		Path:     "/" + d.Database,
		RawQuery: "sslmode=" + constants.DefaultPostgresSSLMode,
	}
	return u.String()
}

func (d Descriptor) mysqlDSN(dialect Dialect) string {
	cfg := mysql.NewConfig()
	cfg.User = d.Username
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = d.hostPort(dialect)
	cfg.DBName = d.Database
	cfg.ParseTime = true
	cfg.MultiStatements = true
	return cfg.FormatDSN()
}

// String renders the descriptor for logs with the password masked.
func (d Descriptor) String() string {
	return fmt.Sprintf("driver=%s server=%s database=%s username=%s password=%s",
		d.Driver, d.Server, d.Database, d.Username, common.MaskedValue)
}
