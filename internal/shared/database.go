package shared

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect names the SQL flavour a repository must speak. The value doubles as
// the database/sql driver name.
type Dialect string

const (
	DialectSQLite Dialect = "sqlite3"
	DialectMySQL  Dialect = "mysql"
)

// ParseDialect maps a configured driver name onto a [Dialect].
func ParseDialect(driver string) (Dialect, error) {
	switch driver {
	case "", "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "mysql":
		return DialectMySQL, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}

// DSN builds the data source name for the configured driver.
func (c DatabaseConfig) DSN() (Dialect, string, error) {
	dialect, err := ParseDialect(c.Driver)
	if err != nil {
		return "", "", err
	}

	if dialect == DialectSQLite {
		return dialect, ExpandPath(c.Path), nil
	}

	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.DBName = c.Name
	mc.ParseTime = true
	mc.Loc = time.UTC
	if c.SocketPath != "" {
		mc.Net = "unix"
		mc.Addr = c.SocketPath
	} else {
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	}
	return dialect, mc.FormatDSN(), nil
}

// NewDatabase opens a connection with the given driver and checks it with a ping.
//
// For sqlite3 the dsn is a file path and can be ":memory:" for an in-memory
// database. In-memory databases are pinned to a single connection since every
// sqlite connection would otherwise see its own empty database.
func NewDatabase(dialect Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dialect == DialectSQLite && dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// OpenDatabase opens and configures the database described by c.
func OpenDatabase(c DatabaseConfig) (*sql.DB, Dialect, error) {
	dialect, dsn, err := c.DSN()
	if err != nil {
		return nil, "", err
	}

	db, err := NewDatabase(dialect, dsn)
	if err != nil {
		return nil, "", err
	}

	if dsn != ":memory:" {
		ConfigureDatabase(db, c.MaxOpenConns, c.MaxIdleConns)
	}
	return db, dialect, nil
}

// ConfigureDatabase sets connection pool settings for the database.
// Non-positive values leave the driver defaults in place.
func ConfigureDatabase(db *sql.DB, maxOpenConns, maxIdleConns int) {
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if maxIdleConns > 0 {
		db.SetMaxIdleConns(maxIdleConns)
	}
	db.SetConnMaxLifetime(30 * time.Minute)
}
