package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rediwo/mysqlorm/driver"
)

// execQueryer is the subset of *sql.DB and *sql.Tx this package drives
// against — letting connection and transaction share one implementation
// of Exec/Query/introspection regardless of which one backs them.
type execQueryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// connection wraps a *sql.DB, grounded on the teacher's MySQLDB in
// drivers/mysql/driver.go. db is non-nil only on the top-level connection
// returned by Driver.Open — it backs Begin, which has no meaning inside an
// already-open transaction. The schema lookups run through eq.
type connection struct {
	eq execQueryer
	db *sql.DB
}

func (c *connection) Prepare(ctx context.Context, query string) (driver.Statement, error) {
	stmt, err := c.eq.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("prepare: %w", err)
	}
	return &statement{stmt: stmt, args: make(map[any]any)}, nil
}

func (c *connection) Exec(ctx context.Context, query string, params ...any) (driver.AffectedRows, error) {
	result, err := c.eq.ExecContext(ctx, query, params...)
	if err != nil {
		return driver.AffectedRows{}, fmt.Errorf("exec: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		rowsAffected = 0
	}
	lastInsertID, err := result.LastInsertId()
	if err != nil {
		lastInsertID = 0
	}
	return driver.AffectedRows{RowsAffected: rowsAffected, LastInsertID: lastInsertID}, nil
}

func (c *connection) Query(ctx context.Context, query string, params ...any) (driver.ResultCursor, error) {
	rows, err := c.eq.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return &rowCursor{rows: rows}, nil
}

func (c *connection) Begin(ctx context.Context) (driver.Transaction, error) {
	if c.db == nil {
		return nil, fmt.Errorf("cannot begin a transaction within a transaction")
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	return &transaction{connection: connection{eq: tx}, tx: tx}, nil
}

// LastInsertID is not tracked on the connection: it always returns 0 and
// an error. The auto-increment id of an insert is the AffectedRows.LastInsertID
// that Exec returns; this method exists only to satisfy the Connection
// surface.
func (c *connection) LastInsertID() (int64, error) {
	return 0, fmt.Errorf("LastInsertID: use the AffectedRows returned by Exec instead")
}

func (c *connection) ListTables(ctx context.Context) ([]string, error) {
	rows, err := c.eq.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list tables: scan: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// DescribeTable reads column metadata via DESCRIBE, grounded on the
// teacher's drivers/mysql/migrator.go getColumns.
func (c *connection) DescribeTable(ctx context.Context, table string) ([]driver.ColumnInfo, error) {
	rows, err := c.eq.QueryContext(ctx, fmt.Sprintf("DESCRIBE `%s`", table))
	if err != nil {
		return nil, fmt.Errorf("describe table %s: %w", table, err)
	}
	defer rows.Close()

	var columns []driver.ColumnInfo
	for rows.Next() {
		var field, dataType, null, key, extra string
		var defaultVal sql.NullString
		if err := rows.Scan(&field, &dataType, &null, &key, &defaultVal, &extra); err != nil {
			return nil, fmt.Errorf("describe table %s: scan: %w", table, err)
		}
		col := driver.ColumnInfo{
			Name:          field,
			Nullable:      null == "YES",
			Extra:         extra,
			Key:           key,
			AutoIncrement: strings.Contains(extra, "auto_increment"),
		}
		if defaultVal.Valid {
			v := defaultVal.String
			col.Default = &v
		}
		col.Type, col.Length, col.Scale, col.Unsigned = parseColumnType(dataType)
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// ListForeignKeys has no teacher precedent — drivers/mysql/migrator.go's
// GetTableInfo explicitly skips foreign-key introspection as "more
// complex". information_schema.KEY_COLUMN_USAGE names the referencing
// column and target; REFERENTIAL_CONSTRAINTS carries the ON DELETE/ON
// UPDATE actions the reconciler needs to detect a changed rule.
func (c *connection) ListForeignKeys(ctx context.Context, table string) ([]driver.ForeignKeyInfo, error) {
	const q = `
SELECT kcu.CONSTRAINT_NAME, kcu.COLUMN_NAME, kcu.REFERENCED_TABLE_NAME, kcu.REFERENCED_COLUMN_NAME,
       rc.DELETE_RULE, rc.UPDATE_RULE
FROM information_schema.KEY_COLUMN_USAGE kcu
JOIN information_schema.REFERENTIAL_CONSTRAINTS rc
  ON rc.CONSTRAINT_SCHEMA = kcu.CONSTRAINT_SCHEMA AND rc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
WHERE kcu.TABLE_SCHEMA = DATABASE() AND kcu.TABLE_NAME = ? AND kcu.REFERENCED_TABLE_NAME IS NOT NULL`

	rows, err := c.eq.QueryContext(ctx, q, table)
	if err != nil {
		return nil, fmt.Errorf("list foreign keys %s: %w", table, err)
	}
	defer rows.Close()

	var fks []driver.ForeignKeyInfo
	for rows.Next() {
		var fk driver.ForeignKeyInfo
		var refTable, refColumn sql.NullString
		if err := rows.Scan(&fk.ConstraintName, &fk.Column, &refTable, &refColumn, &fk.OnDelete, &fk.OnUpdate); err != nil {
			return nil, fmt.Errorf("list foreign keys %s: scan: %w", table, err)
		}
		fk.ReferencedTable = refTable.String
		fk.ReferencedColumn = refColumn.String
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

// ListIndexes reads SHOW INDEX FROM, grounded on the teacher's
// drivers/mysql/migrator.go getIndexes — the PRIMARY key is skipped since
// it is already represented by each ColumnDescriptor's own primary-key
// flag, not as a separate IndexInfo.
func (c *connection) ListIndexes(ctx context.Context, table string) ([]driver.IndexInfo, error) {
	rows, err := c.eq.QueryContext(ctx, fmt.Sprintf("SHOW INDEX FROM `%s`", table))
	if err != nil {
		return nil, fmt.Errorf("list indexes %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("list indexes %s: columns: %w", table, err)
	}

	order := make([]string, 0, 8)
	byName := make(map[string]*driver.IndexInfo)
	for rows.Next() {
		raw := make(map[string]any, len(cols))
		if err := scanRowInto(rows, cols, raw); err != nil {
			return nil, fmt.Errorf("list indexes %s: scan: %w", table, err)
		}
		keyName := asString(raw["Key_name"])
		if keyName == "PRIMARY" {
			continue
		}
		idx, ok := byName[keyName]
		if !ok {
			idx = &driver.IndexInfo{Name: keyName, Unique: asString(raw["Non_unique"]) == "0"}
			byName[keyName] = idx
			order = append(order, keyName)
		}
		idx.Columns = append(idx.Columns, asString(raw["Column_name"]))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	indexes := make([]driver.IndexInfo, 0, len(order))
	for _, name := range order {
		indexes = append(indexes, *byName[name])
	}
	return indexes, nil
}

func (c *connection) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// rowCursor adapts *sql.Rows to driver.ResultCursor.
type rowCursor struct {
	rows    *sql.Rows
	columns []string
}

func (r *rowCursor) ensureColumns() error {
	if r.columns != nil {
		return nil
	}
	cols, err := r.rows.Columns()
	if err != nil {
		return err
	}
	r.columns = cols
	return nil
}

func (r *rowCursor) FetchOne(ctx context.Context) (map[string]any, error) {
	if err := r.ensureColumns(); err != nil {
		return nil, err
	}
	if !r.rows.Next() {
		return nil, r.rows.Err()
	}
	row := make(map[string]any, len(r.columns))
	if err := scanRowInto(r.rows, r.columns, row); err != nil {
		return nil, err
	}
	return row, nil
}

func (r *rowCursor) FetchAll(ctx context.Context) ([]map[string]any, error) {
	if err := r.ensureColumns(); err != nil {
		return nil, err
	}
	var all []map[string]any
	for r.rows.Next() {
		row := make(map[string]any, len(r.columns))
		if err := scanRowInto(r.rows, r.columns, row); err != nil {
			return nil, err
		}
		all = append(all, row)
	}
	return all, r.rows.Err()
}

func (r *rowCursor) Close() error { return r.rows.Close() }

// scanRowInto scans the current row into dest keyed by column name,
// normalizing []byte (MySQL's wire representation for most non-numeric
// types) to string so callers never have to type-switch on []byte.
func scanRowInto(rows *sql.Rows, columns []string, dest map[string]any) error {
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return err
	}
	for i, col := range columns {
		if b, ok := values[i].([]byte); ok {
			dest[col] = string(b)
		} else {
			dest[col] = values[i]
		}
	}
	return nil
}

// parseColumnType splits a DESCRIBE type string such as "int(11) unsigned"
// or "decimal(10,2)" into the raw type (kept verbatim, including its
// length/precision, since migrate.typesEquivalent normalizes case and
// whitespace itself) plus the length/scale/unsigned facets callers that
// want them structured can use.
func parseColumnType(raw string) (typ string, length int, scale int, unsigned bool) {
	typ = raw
	unsigned = strings.Contains(strings.ToLower(raw), "unsigned")

	open := strings.IndexByte(raw, '(')
	closeParen := strings.IndexByte(raw, ')')
	if open < 0 || closeParen < open {
		return typ, 0, 0, unsigned
	}
	inside := raw[open+1 : closeParen]
	parts := strings.SplitN(inside, ",", 2)
	fmt.Sscanf(strings.TrimSpace(parts[0]), "%d", &length)
	if len(parts) == 2 {
		fmt.Sscanf(strings.TrimSpace(parts[1]), "%d", &scale)
	}
	return typ, length, scale, unsigned
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}
