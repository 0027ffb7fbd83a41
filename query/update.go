package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rediwo/mysqlorm/metadata"
	"github.com/rediwo/mysqlorm/ormerr"
	"github.com/rediwo/mysqlorm/params"
	"github.com/rediwo/mysqlorm/sqlfmt"
)

// UpdateBuilder builds a parameterised UPDATE. A WHERE-less update
// requires an explicit AllowUnsafe() opt-in, per spec §4.4/§7's
// UnsafeMutation guard.
type UpdateBuilder struct {
	descriptor *metadata.EntityDescriptor
	set        map[string]any
	where      Condition
	allowUnsafe bool
	limit      *int
}

func newUpdateBuilder(d *metadata.EntityDescriptor) *UpdateBuilder {
	return &UpdateBuilder{descriptor: d, set: make(map[string]any)}
}

func (b *UpdateBuilder) clone() *UpdateBuilder {
	cp := *b
	cp.set = make(map[string]any, len(b.set))
	for k, v := range b.set {
		cp.set[k] = v
	}
	return &cp
}

// Set assigns a new value to a single property for the update.
func (b *UpdateBuilder) Set(property string, value any) *UpdateBuilder {
	cp := b.clone()
	cp.set[property] = value
	return cp
}

// SetMap merges the given property/value pairs into the update.
func (b *UpdateBuilder) SetMap(values map[string]any) *UpdateBuilder {
	cp := b.clone()
	for k, v := range values {
		cp.set[k] = v
	}
	return cp
}

// Where replaces the WHERE tree.
func (b *UpdateBuilder) Where(c Condition) *UpdateBuilder {
	cp := b.clone()
	cp.where = c
	return cp
}

// AllowUnsafe opts into a WHERE-less update, otherwise refused with
// ormerr.UnsafeMutation at render time.
func (b *UpdateBuilder) AllowUnsafe() *UpdateBuilder {
	cp := b.clone()
	cp.allowUnsafe = true
	return cp
}

// Limit caps the number of rows updated (MySQL's single-table UPDATE
// extension).
func (b *UpdateBuilder) Limit(n int) *UpdateBuilder {
	cp := b.clone()
	cp.limit = &n
	return cp
}

// ToSQL renders the builder into SQL text and its positional argument list.
func (b *UpdateBuilder) ToSQL() (string, []any, error) {
	bag := params.New()
	sql, err := b.render(bag)
	if err != nil {
		return "", nil, err
	}
	return sql, bag.Values(), nil
}

func (b *UpdateBuilder) render(bag *params.Bag) (string, error) {
	if len(b.set) == 0 {
		return "", ormerr.New(ormerr.MappingError, "update %s: no columns to set", b.descriptor.ClassName)
	}
	if b.where.IsZero() && !b.allowUnsafe {
		return "", ormerr.New(ormerr.UnsafeMutation,
			"update on %s has no WHERE clause; call AllowUnsafe() to permit a full-table update",
			b.descriptor.TableName).WithEntity(b.descriptor.ClassName, nil)
	}

	properties := make([]string, 0, len(b.set))
	for k := range b.set {
		properties = append(properties, k)
	}
	sort.Strings(properties)

	assignments := make([]string, len(properties))
	for i, p := range properties {
		col, err := resolveColumn(b.descriptor, p)
		if err != nil {
			return "", err
		}
		bag.Add(b.set[p])
		assignments[i] = fmt.Sprintf("%s = ?", sqlfmt.FormatIdentifier(col))
	}

	sql := fmt.Sprintf("UPDATE %s SET %s", sqlfmt.FormatIdentifier(b.descriptor.TableName), strings.Join(assignments, ", "))
	if !b.where.IsZero() {
		sql += " WHERE " + b.where.toSQL(bag)
	}
	if b.limit != nil {
		sql += fmt.Sprintf(" LIMIT %d", *b.limit)
	}
	return sql, nil
}
