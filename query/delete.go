package query

import (
	"fmt"

	"github.com/rediwo/mysqlorm/metadata"
	"github.com/rediwo/mysqlorm/ormerr"
	"github.com/rediwo/mysqlorm/params"
	"github.com/rediwo/mysqlorm/sqlfmt"
)

// DeleteBuilder builds a parameterised DELETE. Like UpdateBuilder, a
// WHERE-less delete requires AllowUnsafe().
type DeleteBuilder struct {
	descriptor  *metadata.EntityDescriptor
	where       Condition
	allowUnsafe bool
	limit       *int
}

func newDeleteBuilder(d *metadata.EntityDescriptor) *DeleteBuilder {
	return &DeleteBuilder{descriptor: d}
}

func (b *DeleteBuilder) clone() *DeleteBuilder {
	cp := *b
	return &cp
}

// Where replaces the WHERE tree.
func (b *DeleteBuilder) Where(c Condition) *DeleteBuilder {
	cp := b.clone()
	cp.where = c
	return cp
}

// AllowUnsafe opts into a WHERE-less delete.
func (b *DeleteBuilder) AllowUnsafe() *DeleteBuilder {
	cp := b.clone()
	cp.allowUnsafe = true
	return cp
}

// Limit caps the number of rows deleted.
func (b *DeleteBuilder) Limit(n int) *DeleteBuilder {
	cp := b.clone()
	cp.limit = &n
	return cp
}

// ToSQL renders the builder into SQL text and its positional argument list.
func (b *DeleteBuilder) ToSQL() (string, []any, error) {
	bag := params.New()
	sql, err := b.render(bag)
	if err != nil {
		return "", nil, err
	}
	return sql, bag.Values(), nil
}

func (b *DeleteBuilder) render(bag *params.Bag) (string, error) {
	if b.where.IsZero() && !b.allowUnsafe {
		return "", ormerr.New(ormerr.UnsafeMutation,
			"delete on %s has no WHERE clause; call AllowUnsafe() to permit a full-table delete",
			b.descriptor.TableName).WithEntity(b.descriptor.ClassName, nil)
	}
	sql := fmt.Sprintf("DELETE FROM %s", sqlfmt.FormatIdentifier(b.descriptor.TableName))
	if !b.where.IsZero() {
		sql += " WHERE " + b.where.toSQL(bag)
	}
	if b.limit != nil {
		sql += fmt.Sprintf(" LIMIT %d", *b.limit)
	}
	return sql, nil
}
