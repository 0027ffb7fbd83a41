// Package driver defines the narrow connection surface the session and
// query builder consume (spec §6.1). It deliberately excludes anything
// driver-specific beyond this interface — dialect quirks, connection
// pooling tuning, and DSN parsing live in drivers/mysql, grounded on the
// teacher's database/ and drivers/mysql packages.
package driver

import (
	"context"
	"time"
)

// BindType is the explicit SQL binding type passed to Statement.BindValue,
// matching params.Type's vocabulary (STR, INT, BOOL, NULL, LOB).
type BindType string

const (
	BindString BindType = "STR"
	BindInt    BindType = "INT"
	BindBool   BindType = "BOOL"
	BindNull   BindType = "NULL"
	BindLOB    BindType = "LOB"
)

// Config describes how to reach a MySQL server, kept close to the
// teacher's types.Config shape.
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	Params          map[string]string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// ForeignKeyInfo is one row of Connection.ListForeignKeys output.
type ForeignKeyInfo struct {
	ConstraintName   string
	Column           string
	ReferencedTable  string
	ReferencedColumn string
	OnDelete         string
	OnUpdate         string
}

// IndexInfo is one row of Connection.ListIndexes output.
type IndexInfo struct {
	Name    string
	Columns []string
	Unique  bool
}

// ColumnInfo is one row of Connection.DescribeTable output.
type ColumnInfo struct {
	Name          string
	Type          string
	Length        int
	Scale         int
	Unsigned      bool
	Nullable      bool
	Default       *string
	Extra         string
	Key           string
	AutoIncrement bool
}

// Statement is a prepared statement awaiting bound parameter values.
type Statement interface {
	BindValue(nameOrPosition any, value any, typ BindType) error
	Close() error
}

// ResultCursor streams rows back from a query.
type ResultCursor interface {
	FetchOne(ctx context.Context) (map[string]any, error)
	FetchAll(ctx context.Context) ([]map[string]any, error)
	Close() error
}

// Connection is one live database connection or transaction, the surface
// the session and query builder drive (spec §6.1).
type Connection interface {
	Prepare(ctx context.Context, sql string) (Statement, error)
	Exec(ctx context.Context, sql string, params ...any) (AffectedRows, error)
	Query(ctx context.Context, sql string, params ...any) (ResultCursor, error)

	Begin(ctx context.Context) (Transaction, error)

	LastInsertID() (int64, error)

	ListTables(ctx context.Context) ([]string, error)
	DescribeTable(ctx context.Context, table string) ([]ColumnInfo, error)
	ListForeignKeys(ctx context.Context, table string) ([]ForeignKeyInfo, error)
	ListIndexes(ctx context.Context, table string) ([]IndexInfo, error)

	Close() error
}

// Transaction extends Connection with commit/rollback and nested
// savepoints. Savepoint support is advertised via Capabilities and only
// used when the underlying driver reports it (spec §9's open question on
// nested-transaction semantics).
type Transaction interface {
	Connection
	Commit() error
	Rollback() error
	Savepoint(ctx context.Context, name string) error
	ReleaseSavepoint(ctx context.Context, name string) error
	RollbackToSavepoint(ctx context.Context, name string) error
}

// AffectedRows is the result of a non-query statement.
type AffectedRows struct {
	RowsAffected int64
	LastInsertID int64
}

// Capabilities advertises which optional driver features are available so
// the unit of work and migrator can degrade gracefully rather than fail.
type Capabilities struct {
	SupportsSavepoints    bool
	SupportsForeignKeys   bool
	SupportsJSON          bool
	SupportsCheckConstraints bool
	MaxIdentifierLength   int
}

// Driver opens connections for one database dialect. drivers/mysql is the
// sole implementation in this core.
type Driver interface {
	Open(ctx context.Context, cfg Config) (Connection, error)
	Capabilities() Capabilities
	Name() string
}
