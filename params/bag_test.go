package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBag_AddAutoNumbers(t *testing.T) {
	b := New()
	p1 := b.Add("alice")
	p2 := b.Add(42)
	p3 := b.Add(nil)

	assert.Equal(t, ":param1", p1)
	assert.Equal(t, ":param2", p2)
	assert.Equal(t, ":param3", p3)
	assert.Equal(t, []any{"alice", 42, nil}, b.Values())
}

func TestBag_DetectType(t *testing.T) {
	b := New()
	b.Add("s")
	b.Add(1)
	b.Add(true)
	b.Add(nil)
	b.Add([]byte("blob"))
	b.Add(3.14)

	names := b.Names()
	require.Len(t, names, 6)
	types := make([]Type, 0, len(names))
	for _, n := range names {
		types = append(types, b.values[n].Type)
	}
	assert.Equal(t, []Type{TypeString, TypeInt, TypeBool, TypeNull, TypeLOB, TypeString}, types)
}

func TestBag_AddNamedOverwriteLastWriteWins(t *testing.T) {
	b := New()
	b.AddNamed("email", "first@example.com")
	b.AddNamed("email", "second@example.com")

	require.Equal(t, 1, b.Len())
	assert.Equal(t, "second@example.com", b.values["email"].Value)
}

func TestBag_MergeRenamesRightHandAutoCounters(t *testing.T) {
	left := New()
	left.Add("a")
	left.Add("b")

	right := New()
	right.Add("c")
	right.Add("d")

	merged := left.Merge(right)

	assert.Equal(t, []string{"param1", "param2", "param3", "param4"}, merged.Names())
	assert.Equal(t, []any{"a", "b", "c", "d"}, merged.Values())
}

func TestBag_MergeNameCollisionRightWins(t *testing.T) {
	left := New()
	left.AddNamed("status", "pending")

	right := New()
	right.AddNamed("status", "active")

	merged := left.Merge(right)

	require.Equal(t, 1, merged.Len())
	assert.Equal(t, "active", merged.values["status"].Value)
}

type fakeStatement struct {
	bound []string
}

func (f *fakeStatement) BindValue(placeholder string, value any, typ Type) error {
	f.bound = append(f.bound, placeholder)
	return nil
}

func TestBag_BindIteratesInsertionOrder(t *testing.T) {
	b := New()
	b.Add("x")
	b.AddNamed("named", "y")
	b.Add("z")

	stmt := &fakeStatement{}
	require.NoError(t, b.Bind(stmt))
	assert.Equal(t, []string{":param1", ":named", ":param2"}, stmt.bound)
}

func TestBag_Clear(t *testing.T) {
	b := New()
	b.Add("x")
	b.Clear()

	assert.Equal(t, 0, b.Len())
	p := b.Add("y")
	assert.Equal(t, ":param1", p, "counter resets on clear")
}
