package mysql

import (
	"context"
	"database/sql"
	"fmt"
)

// transaction implements driver.Transaction over a *sql.Tx, grounded on
// the teacher's MySQLTransaction in this file's prior revision — same
// Commit/Rollback delegation and the same raw-SQL SAVEPOINT idiom, since
// database/sql exposes no savepoint primitive of its own.
type transaction struct {
	connection
	tx *sql.Tx
}

func (t *transaction) Commit() error   { return t.tx.Commit() }
func (t *transaction) Rollback() error { return t.tx.Rollback() }

func (t *transaction) Savepoint(ctx context.Context, name string) error {
	if _, err := t.tx.ExecContext(ctx, fmt.Sprintf("SAVEPOINT `%s`", name)); err != nil {
		return fmt.Errorf("savepoint %s: %w", name, err)
	}
	return nil
}

func (t *transaction) ReleaseSavepoint(ctx context.Context, name string) error {
	if _, err := t.tx.ExecContext(ctx, fmt.Sprintf("RELEASE SAVEPOINT `%s`", name)); err != nil {
		return fmt.Errorf("release savepoint %s: %w", name, err)
	}
	return nil
}

func (t *transaction) RollbackToSavepoint(ctx context.Context, name string) error {
	if _, err := t.tx.ExecContext(ctx, fmt.Sprintf("ROLLBACK TO SAVEPOINT `%s`", name)); err != nil {
		return fmt.Errorf("rollback to savepoint %s: %w", name, err)
	}
	return nil
}
