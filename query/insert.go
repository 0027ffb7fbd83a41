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

// InsertBuilder builds a parameterised INSERT, supporting both a
// values-mapping form and a columns-plus-sub-select form, and multi-row
// insert via repeated value sets under a single statement (spec §4.4).
type InsertBuilder struct {
	descriptor *metadata.EntityDescriptor
	rows       []map[string]any

	columns  []string
	subquery *SelectBuilder

	onDuplicateUpdate []string
}

func newInsertBuilder(d *metadata.EntityDescriptor) *InsertBuilder {
	return &InsertBuilder{descriptor: d}
}

func (b *InsertBuilder) clone() *InsertBuilder {
	cp := *b
	cp.rows = append([]map[string]any(nil), b.rows...)
	cp.columns = append([]string(nil), b.columns...)
	cp.onDuplicateUpdate = append([]string(nil), b.onDuplicateUpdate...)
	return &cp
}

// Values appends one row, keyed by property name, to the multi-row insert.
func (b *InsertBuilder) Values(row map[string]any) *InsertBuilder {
	cp := b.clone()
	cp.rows = append(cp.rows, row)
	return cp
}

// FromSelect switches to the columns-plus-sub-select form: INSERT INTO
// table (columns...) SELECT ... Mutually exclusive with Values.
func (b *InsertBuilder) FromSelect(columns []string, sub *SelectBuilder) *InsertBuilder {
	cp := b.clone()
	cp.columns = columns
	cp.subquery = sub
	return cp
}

// OnDuplicateKeyUpdate appends an upsert clause updating the given
// property names to their inserted values on a unique-key conflict.
func (b *InsertBuilder) OnDuplicateKeyUpdate(properties ...string) *InsertBuilder {
	cp := b.clone()
	cp.onDuplicateUpdate = append(cp.onDuplicateUpdate, properties...)
	return cp
}

// ToSQL renders the builder into SQL text and its positional argument list.
func (b *InsertBuilder) ToSQL() (string, []any, error) {
	bag := params.New()
	sql, err := b.render(bag)
	if err != nil {
		return "", nil, err
	}
	return sql, bag.Values(), nil
}

func (b *InsertBuilder) render(bag *params.Bag) (string, error) {
	table := sqlfmt.FormatIdentifier(b.descriptor.TableName)

	if b.subquery != nil {
		cols := make([]string, len(b.columns))
		for i, c := range b.columns {
			dbCol, err := resolveColumn(b.descriptor, c)
			if err != nil {
				return "", err
			}
			cols[i] = sqlfmt.FormatIdentifier(dbCol)
		}
		subSQL, subArgs := b.subquery.ToSQL()
		for _, a := range subArgs {
			bag.Add(a)
		}
		return fmt.Sprintf("INSERT INTO %s (%s) %s", table, strings.Join(cols, ", "), subSQL), nil
	}

	if len(b.rows) == 0 {
		return "", ormerr.New(ormerr.MappingError, "insert into %s: no rows to insert", b.descriptor.ClassName)
	}

	properties := make([]string, 0, len(b.rows[0]))
	for k := range b.rows[0] {
		properties = append(properties, k)
	}
	sort.Strings(properties)

	dbColumns := make([]string, len(properties))
	for i, p := range properties {
		col, err := resolveColumn(b.descriptor, p)
		if err != nil {
			return "", err
		}
		dbColumns[i] = sqlfmt.FormatIdentifier(col)
	}

	valueGroups := make([]string, len(b.rows))
	for i, row := range b.rows {
		placeholders := make([]string, len(properties))
		for j, p := range properties {
			v, ok := row[p]
			if !ok {
				return "", ormerr.New(ormerr.MappingError,
					"insert into %s: row %d missing value for %q (all rows in one statement must share the same column set)",
					b.descriptor.ClassName, i, p)
			}
			bag.Add(v)
			placeholders[j] = "?"
		}
		valueGroups[i] = "(" + strings.Join(placeholders, ", ") + ")"
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		table, strings.Join(dbColumns, ", "), strings.Join(valueGroups, ", "))

	if len(b.onDuplicateUpdate) > 0 {
		updates := make([]string, len(b.onDuplicateUpdate))
		for i, p := range b.onDuplicateUpdate {
			col, err := resolveColumn(b.descriptor, p)
			if err != nil {
				return "", err
			}
			ident := sqlfmt.FormatIdentifier(col)
			updates[i] = fmt.Sprintf("%s = VALUES(%s)", ident, ident)
		}
		sql += " ON DUPLICATE KEY UPDATE " + strings.Join(updates, ", ")
	}

	return sql, nil
}
