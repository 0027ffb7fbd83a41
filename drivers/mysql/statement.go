package mysql

import (
	"database/sql"

	"github.com/rediwo/mysqlorm/driver"
)

// statement implements driver.Statement over a *sql.Stmt. It exists to
// satisfy the Connection.Prepare surface (spec §6.1); the session and
// unit of work drive everything through Connection.Exec/Query directly
// and never reach for it, the same way Statement.Prepare sits unused in
// the teacher's own test doubles.
type statement struct {
	stmt *sql.Stmt
	args map[any]any
}

func (s *statement) BindValue(nameOrPosition any, value any, typ driver.BindType) error {
	s.args[nameOrPosition] = value
	return nil
}

func (s *statement) Close() error { return s.stmt.Close() }
