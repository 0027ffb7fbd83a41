package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rediwo/mysqlorm/driver"
	"github.com/rediwo/mysqlorm/metadata"
	"github.com/rediwo/mysqlorm/query"
)

type sessAuthor struct {
	metadata.Entity `orm:"table=sess_authors"`
	ID              int64  `orm:"pk,autoincrement"`
	Name            string
}

type sessBook struct {
	metadata.Entity `orm:"table=sess_books"`
	ID              int64  `orm:"pk,autoincrement"`
	Title           string
	Price           float64
	Cover           []byte
	Author          *sessAuthor `orm:"relation=manyToOne,cascade=persist"`
}

// fakeCursor replays a fixed set of rows.
type fakeCursor struct {
	rows []map[string]any
	i    int
}

func (c *fakeCursor) FetchOne(ctx context.Context) (map[string]any, error) {
	if c.i >= len(c.rows) {
		return nil, nil
	}
	row := c.rows[c.i]
	c.i++
	return row, nil
}

func (c *fakeCursor) FetchAll(ctx context.Context) ([]map[string]any, error) {
	rest := c.rows[c.i:]
	c.i = len(c.rows)
	return rest, nil
}

func (c *fakeCursor) Close() error { return nil }

// fakeConn implements driver.Connection, returning canned rows from Query
// and recording the last Exec/Query call for assertions.
type fakeConn struct {
	queryRows  []map[string]any
	lastSQL    string
	lastArgs   []any
	execResult driver.AffectedRows
}

func (c *fakeConn) Prepare(ctx context.Context, sql string) (driver.Statement, error) { return nil, nil }

func (c *fakeConn) Exec(ctx context.Context, sql string, params ...any) (driver.AffectedRows, error) {
	c.lastSQL, c.lastArgs = sql, params
	return c.execResult, nil
}

func (c *fakeConn) Query(ctx context.Context, sql string, params ...any) (driver.ResultCursor, error) {
	c.lastSQL, c.lastArgs = sql, params
	return &fakeCursor{rows: c.queryRows}, nil
}

func (c *fakeConn) Begin(ctx context.Context) (driver.Transaction, error) { return nil, nil }
func (c *fakeConn) LastInsertID() (int64, error)                         { return 0, nil }
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
func (c *fakeConn) Close() error { return nil }

func newTestSession(conn *fakeConn) *Session {
	registry := metadata.New()
	factory := query.NewFactory(registry)
	return New(registry, factory, conn, nil)
}

func TestSession_FindHydratesAndCaches(t *testing.T) {
	conn := &fakeConn{queryRows: []map[string]any{{"ID": int64(1), "Title": "Go in Practice", "Price": 9.5, "Cover": []byte("x")}}}
	s := newTestSession(conn)

	got, err := s.Find(context.Background(), &sessBook{}, int64(1))
	require.NoError(t, err)
	require.NotNil(t, got)
	book := got.(*sessBook)
	assert.Equal(t, "Go in Practice", book.Title)
	assert.Contains(t, conn.lastSQL, "sess_books")

	// second Find for the same key must not re-query.
	conn.queryRows = nil
	again, err := s.Find(context.Background(), &sessBook{}, int64(1))
	require.NoError(t, err)
	assert.Same(t, got, again)
}

func TestSession_FindMissingRowReturnsNil(t *testing.T) {
	conn := &fakeConn{queryRows: nil}
	s := newTestSession(conn)

	got, err := s.Find(context.Background(), &sessBook{}, int64(99))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSession_PersistCascadesToRelatedEntity(t *testing.T) {
	s := newTestSession(&fakeConn{})
	author := &sessAuthor{Name: "Ada"}
	book := &sessBook{Title: "Notes", Author: author}

	require.NoError(t, s.Persist(book))

	bookME := s.tracked[pointerIdentity(book)]
	authorME := s.tracked[pointerIdentity(author)]
	require.NotNil(t, bookME)
	require.NotNil(t, authorME)
	assert.Equal(t, New, bookME.State)
	assert.Equal(t, New, authorME.State)
}

func TestSession_PersistIsNoOpForManaged(t *testing.T) {
	s := newTestSession(&fakeConn{})
	book := &sessBook{ID: 1, Title: "Already here"}
	d, err := s.registry.Describe(entityType(book))
	require.NoError(t, err)
	me := newManagedEntity(book, d, Managed)
	me.snapshotNow()
	s.tracked[pointerIdentity(book)] = me

	require.NoError(t, s.Persist(book))
	assert.Equal(t, Managed, s.tracked[pointerIdentity(book)].State)
}

func TestSession_PersistRemovedEntityIsIllegalTransition(t *testing.T) {
	s := newTestSession(&fakeConn{})
	book := &sessBook{ID: 1}
	d, _ := s.registry.Describe(entityType(book))
	me := newManagedEntity(book, d, Removed)
	s.tracked[pointerIdentity(book)] = me

	err := s.Persist(book)
	require.Error(t, err)
}

func TestSession_RemoveRequiresManaged(t *testing.T) {
	s := newTestSession(&fakeConn{})
	book := &sessBook{ID: 1}

	err := s.Remove(book)
	require.Error(t, err)

	require.NoError(t, s.Persist(book))
	err = s.Remove(book) // still NEW, not MANAGED
	require.Error(t, err)
}

func TestSession_ComputeChangeSet_ScalarAndFloatAndBlob(t *testing.T) {
	s := newTestSession(&fakeConn{})
	book := &sessBook{ID: 1, Title: "v1", Price: 10.0, Cover: []byte("abc")}
	d, _ := s.registry.Describe(entityType(book))
	me := newManagedEntity(book, d, Managed)
	me.snapshotNow()
	s.tracked[pointerIdentity(book)] = me

	cs := s.ComputeChangeSet(me)
	assert.True(t, cs.IsEmpty())

	book.Title = "v2"
	book.Cover = []byte("abd")
	cs = s.ComputeChangeSet(me)
	assert.False(t, cs.IsEmpty())
	assert.Equal(t, "v2", cs.Dirty["Title"])
	assert.Contains(t, cs.Dirty, "Cover")
	assert.NotContains(t, cs.Dirty, "Price")
}

func TestSession_ComputeChangeSet_DeferredForNewRelatedEntity(t *testing.T) {
	s := newTestSession(&fakeConn{})
	book := &sessBook{ID: 1, Title: "v1"}
	d, _ := s.registry.Describe(entityType(book))
	me := newManagedEntity(book, d, Managed)
	me.snapshotNow()
	s.tracked[pointerIdentity(book)] = me

	author := &sessAuthor{Name: "New Author"}
	require.NoError(t, s.Persist(author))
	book.Author = author

	cs := s.ComputeChangeSet(me)
	require.Contains(t, cs.Deferred, "Author")
	assert.NotContains(t, cs.Dirty, "Author")
}

func TestSession_AssignKeyAndDetach(t *testing.T) {
	s := newTestSession(&fakeConn{})
	book := &sessBook{Title: "fresh"}
	require.NoError(t, s.Persist(book))
	me := s.tracked[pointerIdentity(book)]

	s.AssignKey(me, 42)
	assert.Equal(t, int64(42), book.ID)
	assert.Equal(t, Managed, me.State)

	found, ok := s.identity.get(entityType(book), []any{int64(42)})
	require.True(t, ok)
	assert.Same(t, me, found)

	s.Detach(me)
	assert.Equal(t, Detached, me.State)
	_, ok = s.identity.get(entityType(book), []any{int64(42)})
	assert.False(t, ok)
}
