package query

import (
	"testing"

	"github.com/rediwo/mysqlorm/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type qtUser struct {
	metadata.Entity `orm:"table=users"`
	ID              int64  `orm:"pk,autoincrement,type=bigint"`
	Name            string `orm:"type=varchar,length=255"`
	Email           string `orm:"type=varchar,length=255,unique"`
	Active          bool   `orm:"type=boolean"`
}

func newFactory(t *testing.T) *Factory {
	t.Helper()
	return NewFactory(metadata.New())
}

func TestSelectBuilder_Basic(t *testing.T) {
	f := newFactory(t)
	b, err := f.Select(qtUser{})
	require.NoError(t, err)

	sql, args := b.Where(Eq("Name", "alice")).ToSQL()
	assert.Equal(t, "SELECT * FROM `users` WHERE `Name` = ?", sql)
	assert.Equal(t, []any{"alice"}, args)
}

func TestSelectBuilder_JoinAndOrder(t *testing.T) {
	f := newFactory(t)
	b, err := f.Select(qtUser{})
	require.NoError(t, err)

	sql, args := b.
		Join(LeftJoin, "posts", "p", "p.author_id = users.`ID`").
		Where(Eq("Active", true)).
		AddOrderBy("`Name`", Asc).
		Limit(10).
		Offset(5).
		ToSQL()

	assert.Contains(t, sql, "LEFT JOIN `posts` AS `p` ON p.author_id = users.`ID`")
	assert.Contains(t, sql, "WHERE `Active` = ?")
	assert.Contains(t, sql, "ORDER BY `Name` ASC")
	assert.Contains(t, sql, "LIMIT 10")
	assert.Contains(t, sql, "OFFSET 5")
	assert.Equal(t, []any{true}, args)
}

func TestSelectBuilder_GroupAndOrConditions(t *testing.T) {
	f := newFactory(t)
	b, err := f.Select(qtUser{})
	require.NoError(t, err)

	sql, args := b.Where(GroupOr(Eq("Name", "alice"), Eq("Name", "bob"))).ToSQL()
	assert.Equal(t, "SELECT * FROM `users` WHERE (`Name` = ? OR `Name` = ?)", sql)
	assert.Equal(t, []any{"alice", "bob"}, args)
}

func TestSelectBuilder_Union(t *testing.T) {
	f := newFactory(t)
	left, err := f.Select(qtUser{})
	require.NoError(t, err)
	right, err := f.Select(qtUser{})
	require.NoError(t, err)

	sql, args := left.Where(Eq("Active", true)).UnionAll(right.Where(Eq("Active", false))).ToSQL()
	assert.Contains(t, sql, "UNION ALL")
	assert.Equal(t, []any{true, false}, args)
}

func TestSelectBuilder_CloneIsIndependent(t *testing.T) {
	f := newFactory(t)
	base, err := f.Select(qtUser{})
	require.NoError(t, err)

	withLimit := base.Limit(5)
	sqlBase, _ := base.ToSQL()
	sqlLimited, _ := withLimit.ToSQL()

	assert.NotContains(t, sqlBase, "LIMIT")
	assert.Contains(t, sqlLimited, "LIMIT 5")
}

func TestInsertBuilder_SingleRow(t *testing.T) {
	f := newFactory(t)
	b, err := f.Insert(qtUser{})
	require.NoError(t, err)

	sql, args, err := b.Values(map[string]any{"Name": "alice", "Email": "a@example.com"}).ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO `users` (`Email`, `Name`) VALUES (?, ?)", sql)
	assert.Equal(t, []any{"a@example.com", "alice"}, args)
}

func TestInsertBuilder_MultiRow(t *testing.T) {
	f := newFactory(t)
	b, err := f.Insert(qtUser{})
	require.NoError(t, err)

	b = b.Values(map[string]any{"Name": "alice"}).Values(map[string]any{"Name": "bob"})
	sql, args, err := b.ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO `users` (`Name`) VALUES (?), (?)", sql)
	assert.Equal(t, []any{"alice", "bob"}, args)
}

func TestInsertBuilder_NoRowsIsError(t *testing.T) {
	f := newFactory(t)
	b, err := f.Insert(qtUser{})
	require.NoError(t, err)
	_, _, err = b.ToSQL()
	assert.Error(t, err)
}

func TestInsertBuilder_OnDuplicateKeyUpdate(t *testing.T) {
	f := newFactory(t)
	b, err := f.Insert(qtUser{})
	require.NoError(t, err)

	sql, _, err := b.Values(map[string]any{"Name": "alice"}).OnDuplicateKeyUpdate("Name").ToSQL()
	require.NoError(t, err)
	assert.Contains(t, sql, "ON DUPLICATE KEY UPDATE `Name` = VALUES(`Name`)")
}

func TestUpdateBuilder_RequiresWhereOrOptIn(t *testing.T) {
	f := newFactory(t)
	b, err := f.Update(qtUser{})
	require.NoError(t, err)

	_, _, err = b.Set("Name", "alice").ToSQL()
	assert.Error(t, err)

	sql, args, err := b.Set("Name", "alice").AllowUnsafe().ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "UPDATE `users` SET `Name` = ?", sql)
	assert.Equal(t, []any{"alice"}, args)
}

func TestUpdateBuilder_WithWhere(t *testing.T) {
	f := newFactory(t)
	b, err := f.Update(qtUser{})
	require.NoError(t, err)

	sql, args, err := b.Set("Active", false).Where(Eq("ID", int64(1))).ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "UPDATE `users` SET `Active` = ? WHERE `ID` = ?", sql)
	assert.Equal(t, []any{false, int64(1)}, args)
}

func TestDeleteBuilder_RequiresWhereOrOptIn(t *testing.T) {
	f := newFactory(t)
	b, err := f.Delete(qtUser{})
	require.NoError(t, err)

	_, _, err = b.ToSQL()
	assert.Error(t, err)

	sql, _, err := b.AllowUnsafe().ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM `users`", sql)
}

func TestDeleteBuilder_WithWhere(t *testing.T) {
	f := newFactory(t)
	b, err := f.Delete(qtUser{})
	require.NoError(t, err)

	sql, args, err := b.Where(Eq("ID", int64(7))).ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM `users` WHERE `ID` = ?", sql)
	assert.Equal(t, []any{int64(7)}, args)
}

func TestAggregateBuilder_CountGroupBy(t *testing.T) {
	f := newFactory(t)
	b, err := f.Aggregate(qtUser{})
	require.NoError(t, err)

	sql, _, err := b.Add(Count, "*", "total").GroupBy("Active").ToSQL()
	require.NoError(t, err)
	assert.Contains(t, sql, "COUNT(*) AS `total`")
	assert.Contains(t, sql, "GROUP BY `Active`")
}

func TestRawBuilder_PassesThroughUnchanged(t *testing.T) {
	f := newFactory(t)
	b := f.Raw("SELECT 1 WHERE ? = ?", 1, 1)
	sql, args := b.ToSQL()
	assert.Equal(t, "SELECT 1 WHERE ? = ?", sql)
	assert.Equal(t, []any{1, 1}, args)
}

func TestCondition_Not(t *testing.T) {
	f := newFactory(t)
	b, err := f.Select(qtUser{})
	require.NoError(t, err)

	sql, _ := b.Where(Not(IsNull("Email"))).ToSQL()
	assert.Contains(t, sql, "NOT (`Email` IS NULL)")
}
