package orm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rediwo/mysqlorm/driver"
	"github.com/rediwo/mysqlorm/logger"
	"github.com/rediwo/mysqlorm/metadata"
	"github.com/rediwo/mysqlorm/uow"
)

type ormAuthor struct {
	metadata.Entity `orm:"table=orm_authors"`
	ID              int64 `orm:"pk,autoincrement"`
	Name            string
}

type fakeCursor struct{ rows []map[string]any }

func (c *fakeCursor) FetchOne(ctx context.Context) (map[string]any, error) {
	if len(c.rows) == 0 {
		return nil, nil
	}
	row := c.rows[0]
	c.rows = c.rows[1:]
	return row, nil
}
func (c *fakeCursor) FetchAll(ctx context.Context) ([]map[string]any, error) { return c.rows, nil }
func (c *fakeCursor) Close() error                                          { return nil }

// fakeConn is a minimal driver.Transaction/Connection double: Begin
// returns itself, mirroring uow.Planner's test doubles, so it can back
// both the bare-connection and explicit-transaction paths through
// EntityManager.
type fakeConn struct {
	execCalls []string
	nextID    int64
	rows      []map[string]any
}

func (c *fakeConn) Prepare(ctx context.Context, sql string) (driver.Statement, error) { return nil, nil }
func (c *fakeConn) Exec(ctx context.Context, sql string, params ...any) (driver.AffectedRows, error) {
	c.execCalls = append(c.execCalls, sql)
	c.nextID++
	return driver.AffectedRows{RowsAffected: 1, LastInsertID: c.nextID}, nil
}
func (c *fakeConn) Query(ctx context.Context, sql string, params ...any) (driver.ResultCursor, error) {
	return &fakeCursor{rows: c.rows}, nil
}
func (c *fakeConn) Begin(ctx context.Context) (driver.Transaction, error) { return c, nil }
func (c *fakeConn) LastInsertID() (int64, error)                         { return c.nextID, nil }
func (c *fakeConn) ListTables(ctx context.Context) ([]string, error)     { return nil, nil }
func (c *fakeConn) DescribeTable(ctx context.Context, table string) ([]driver.ColumnInfo, error) {
	return nil, nil
}
func (c *fakeConn) ListForeignKeys(ctx context.Context, table string) ([]driver.ForeignKeyInfo, error) {
	return nil, nil
}
func (c *fakeConn) ListIndexes(ctx context.Context, table string) ([]driver.IndexInfo, error) {
	return nil, nil
}
func (c *fakeConn) Close() error                                            { return nil }
func (c *fakeConn) Commit() error                                           { return nil }
func (c *fakeConn) Rollback() error                                        { return nil }
func (c *fakeConn) Savepoint(ctx context.Context, name string) error        { return nil }
func (c *fakeConn) ReleaseSavepoint(ctx context.Context, name string) error { return nil }
func (c *fakeConn) RollbackToSavepoint(ctx context.Context, name string) error {
	return nil
}

func newTestManager(conn *fakeConn) *EntityManager {
	registry := metadata.New()
	_, err := registry.RegisterTypes(&ormAuthor{})
	if err != nil {
		panic(err)
	}
	caps := driver.Capabilities{SupportsSavepoints: true}
	return New(conn, caps, registry, uow.Options{}, logger.NewNullLogger())
}

func TestEntityManager_PersistAndFlush(t *testing.T) {
	conn := &fakeConn{}
	em := newTestManager(conn)

	a := &ormAuthor{Name: "Ada"}
	require.NoError(t, em.Persist(a))
	require.NoError(t, em.Flush(context.Background()))

	assert.Equal(t, int64(1), a.ID)
	assert.NotEmpty(t, conn.execCalls)
}

func TestEntityManager_Find_ReturnsNilOnMiss(t *testing.T) {
	conn := &fakeConn{rows: nil}
	em := newTestManager(conn)

	got, err := em.Find(context.Background(), &ormAuthor{}, int64(42))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEntityManager_Clear_ResetsTracking(t *testing.T) {
	conn := &fakeConn{}
	em := newTestManager(conn)

	a := &ormAuthor{Name: "Ada"}
	require.NoError(t, em.Persist(a))

	em.Clear()
	require.NoError(t, em.Flush(context.Background()))
	assert.Empty(t, conn.execCalls, "Clear must drop pending NEW entities from tracking")
}

func TestEntityManager_Transaction_ExclusivityAndExecuteRaw(t *testing.T) {
	conn := &fakeConn{}
	em := newTestManager(conn)

	require.NoError(t, em.BeginTransaction(context.Background()))
	assert.Error(t, em.BeginTransaction(context.Background()), "a second BeginTransaction must fail while one is open")

	_, err := em.ExecuteRaw(context.Background(), "SELECT 1")
	require.NoError(t, err)

	assert.Error(t, em.Flush(context.Background()), "Flush must refuse to run inside an explicit transaction")

	require.NoError(t, em.Commit())
	assert.Error(t, em.Rollback(), "Rollback after Commit must fail: no active transaction")
}

func TestEntityManager_CreateMany(t *testing.T) {
	conn := &fakeConn{}
	em := newTestManager(conn)

	authors := []any{&ormAuthor{Name: "Ada"}, &ormAuthor{Name: "Grace"}}
	require.NoError(t, em.CreateMany(context.Background(), authors))
	assert.NotEmpty(t, conn.execCalls)
}

func TestEntityManager_GetRepository(t *testing.T) {
	conn := &fakeConn{}
	em := newTestManager(conn)

	repo := em.GetRepository(&ormAuthor{})
	a := &ormAuthor{Name: "Ada"}
	require.NoError(t, repo.Persist(a))
	require.NoError(t, em.Flush(context.Background()))
	assert.Equal(t, int64(1), a.ID)

	sel, err := repo.Select()
	require.NoError(t, err)
	sqlText, _ := sel.ToSQL()
	assert.Contains(t, sqlText, "orm_authors")
}
