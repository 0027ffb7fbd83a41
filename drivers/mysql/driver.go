// Package mysql is the concrete driver.Driver implementation for MySQL,
// grounded on the teacher's drivers/mysql package — same sql.Open/DSN
// wiring, same DESCRIBE/SHOW INDEX introspection idiom, generalized from
// a single hand-rolled *MySQLDB type to the narrower driver.Connection
// surface the rest of this module drives against.
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/rediwo/mysqlorm/driver"
)

// Driver opens MySQL connections via github.com/go-sql-driver/mysql.
type Driver struct{}

// New returns the MySQL driver.Driver implementation.
func New() *Driver { return &Driver{} }

func (d *Driver) Name() string { return "mysql" }

func (d *Driver) Capabilities() driver.Capabilities { return capabilities }

func (d *Driver) Open(ctx context.Context, cfg driver.Config) (driver.Connection, error) {
	db, err := sql.Open("mysql", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &connection{eq: db, db: db}, nil
}
