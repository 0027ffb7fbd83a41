package query

import (
	"fmt"
	"strings"

	"github.com/rediwo/mysqlorm/metadata"
	"github.com/rediwo/mysqlorm/params"
	"github.com/rediwo/mysqlorm/sqlfmt"
)

// OrderDirection is ASC or DESC for an ORDER BY entry.
type OrderDirection string

const (
	Asc  OrderDirection = "ASC"
	Desc OrderDirection = "DESC"
)

type selectItem struct {
	expr  string
	alias string
}

type orderItem struct {
	expr string
	dir  OrderDirection
}

type cte struct {
	name      string
	recursive bool
	sql       string
	args      []any
}

// SelectBuilder builds a parameterised SELECT statement. It follows the
// teacher's SelectQueryImpl clone-on-write pattern: every clause-adding
// method returns a new, independent builder rather than mutating the
// receiver, so a partially-built query can be safely reused as a template.
type SelectBuilder struct {
	descriptor *metadata.EntityDescriptor
	alias      string

	columns  []selectItem
	distinct bool

	joins []joinClause

	where   Condition
	groupBy []string
	having  Condition
	orderBy []orderItem

	limit  *int
	offset *int

	unions   []unionArm
	ctes     []cte
}

type unionArm struct {
	all     bool
	builder *SelectBuilder
}

func newSelectBuilder(d *metadata.EntityDescriptor) *SelectBuilder {
	return &SelectBuilder{
		descriptor: d,
		alias:      d.TableName,
		columns:    []selectItem{{expr: "*"}},
	}
}

func (b *SelectBuilder) clone() *SelectBuilder {
	cp := *b
	cp.columns = append([]selectItem(nil), b.columns...)
	cp.joins = append([]joinClause(nil), b.joins...)
	cp.groupBy = append([]string(nil), b.groupBy...)
	cp.orderBy = append([]orderItem(nil), b.orderBy...)
	cp.unions = append([]unionArm(nil), b.unions...)
	cp.ctes = append([]cte(nil), b.ctes...)
	return &cp
}

// As overrides the table alias (default: the table name).
func (b *SelectBuilder) As(alias string) *SelectBuilder {
	cp := b.clone()
	cp.alias = alias
	return cp
}

// Columns replaces the selected expression list. Each entry may be
// "expr" or "expr AS alias"; duplicates are preserved in order, and "*"
// is allowed.
func (b *SelectBuilder) Columns(exprs ...string) *SelectBuilder {
	cp := b.clone()
	cp.columns = make([]selectItem, len(exprs))
	for i, e := range exprs {
		cp.columns[i] = selectItem{expr: e}
	}
	return cp
}

// ColumnAs appends one aliased expression to the selected list.
func (b *SelectBuilder) ColumnAs(expr, alias string) *SelectBuilder {
	cp := b.clone()
	cp.columns = append(cp.columns, selectItem{expr: expr, alias: alias})
	return cp
}

// Distinct marks the query DISTINCT.
func (b *SelectBuilder) Distinct() *SelectBuilder {
	cp := b.clone()
	cp.distinct = true
	return cp
}

// Join adds an INNER/LEFT/RIGHT join against another table with a
// boolean ON-expression. on's positional `?` markers are resolved in the
// join's positional order, ahead of the WHERE clause's parameters, per
// spec §4.4.
func (b *SelectBuilder) Join(kind JoinKind, table, alias, on string, onArgs ...any) *SelectBuilder {
	cp := b.clone()
	cp.joins = append(cp.joins, joinClause{kind: kind, table: table, alias: alias, on: Raw(on, onArgs...)})
	return cp
}

// Where replaces the WHERE tree.
func (b *SelectBuilder) Where(c Condition) *SelectBuilder {
	cp := b.clone()
	cp.where = c
	return cp
}

// AndWhere combines the current WHERE tree with c using AND.
func (b *SelectBuilder) AndWhere(c Condition) *SelectBuilder {
	cp := b.clone()
	if cp.where.IsZero() {
		cp.where = c
	} else {
		cp.where = GroupAnd(cp.where, c)
	}
	return cp
}

// GroupBy replaces the GROUP BY expression list.
func (b *SelectBuilder) GroupBy(exprs ...string) *SelectBuilder {
	cp := b.clone()
	cp.groupBy = exprs
	return cp
}

// Having replaces the HAVING tree.
func (b *SelectBuilder) Having(c Condition) *SelectBuilder {
	cp := b.clone()
	cp.having = c
	return cp
}

// AddOrderBy appends one ORDER BY entry; later calls append, per spec §4.4.
func (b *SelectBuilder) AddOrderBy(expr string, dir OrderDirection) *SelectBuilder {
	cp := b.clone()
	cp.orderBy = append(cp.orderBy, orderItem{expr: expr, dir: dir})
	return cp
}

// Limit sets a non-negative row limit.
func (b *SelectBuilder) Limit(n int) *SelectBuilder {
	cp := b.clone()
	cp.limit = &n
	return cp
}

// Offset sets a non-negative row offset.
func (b *SelectBuilder) Offset(n int) *SelectBuilder {
	cp := b.clone()
	cp.offset = &n
	return cp
}

// Union appends other as a UNION (deduplicating) arm. ORDER BY and LIMIT
// set on the receiver apply to the combined result, per spec §4.4.
func (b *SelectBuilder) Union(other *SelectBuilder) *SelectBuilder {
	cp := b.clone()
	cp.unions = append(cp.unions, unionArm{all: false, builder: other})
	return cp
}

// UnionAll appends other as a UNION ALL arm.
func (b *SelectBuilder) UnionAll(other *SelectBuilder) *SelectBuilder {
	cp := b.clone()
	cp.unions = append(cp.unions, unionArm{all: true, builder: other})
	return cp
}

// With attaches a named (optionally recursive) CTE, referenceable by name
// within the main query's FROM/JOIN clauses.
func (b *SelectBuilder) With(name string, recursive bool, sub *SelectBuilder) *SelectBuilder {
	sql, args := sub.ToSQL()
	cp := b.clone()
	cp.ctes = append(cp.ctes, cte{name: name, recursive: recursive, sql: sql, args: args})
	return cp
}

// ToSQL renders the builder into SQL text and its positional argument
// list, per spec §4.4's `toSQL() -> (sql, parameters)`.
func (b *SelectBuilder) ToSQL() (string, []any) {
	bag := params.New()
	sql := b.render(bag)
	return sql, bag.Values()
}

func (b *SelectBuilder) render(bag *params.Bag) string {
	var sb strings.Builder

	if len(b.ctes) > 0 {
		recursive := false
		parts := make([]string, len(b.ctes))
		for i, c := range b.ctes {
			if c.recursive {
				recursive = true
			}
			for _, a := range c.args {
				bag.Add(a)
			}
			parts[i] = fmt.Sprintf("%s AS (%s)", sqlfmt.FormatIdentifier(c.name), c.sql)
		}
		if recursive {
			sb.WriteString("WITH RECURSIVE ")
		} else {
			sb.WriteString("WITH ")
		}
		sb.WriteString(strings.Join(parts, ", "))
		sb.WriteString(" ")
	}

	sb.WriteString("SELECT ")
	if b.distinct {
		sb.WriteString("DISTINCT ")
	}
	cols := make([]string, len(b.columns))
	for i, c := range b.columns {
		if c.alias != "" {
			cols[i] = sqlfmt.FormatAlias(c.expr, c.alias)
		} else {
			cols[i] = c.expr
		}
	}
	sb.WriteString(strings.Join(cols, ", "))

	sb.WriteString(" FROM ")
	sb.WriteString(sqlfmt.FormatIdentifier(b.descriptor.TableName))
	if b.alias != "" && b.alias != b.descriptor.TableName {
		sb.WriteString(" AS ")
		sb.WriteString(sqlfmt.FormatIdentifier(b.alias))
	}

	for _, j := range b.joins {
		sb.WriteString(" ")
		sb.WriteString(string(j.kind))
		sb.WriteString(" ")
		sb.WriteString(sqlfmt.FormatIdentifier(j.table))
		sb.WriteString(" AS ")
		sb.WriteString(sqlfmt.FormatIdentifier(j.alias))
		sb.WriteString(" ON ")
		sb.WriteString(j.on.toSQL(bag))
	}

	if !b.where.IsZero() {
		sb.WriteString(" WHERE ")
		sb.WriteString(b.where.toSQL(bag))
	}

	if len(b.groupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(b.groupBy, ", "))
	}

	if !b.having.IsZero() {
		sb.WriteString(" HAVING ")
		sb.WriteString(b.having.toSQL(bag))
	}

	var tail strings.Builder
	if len(b.orderBy) > 0 {
		parts := make([]string, len(b.orderBy))
		for i, o := range b.orderBy {
			parts[i] = o.expr + " " + string(o.dir)
		}
		tail.WriteString(" ORDER BY ")
		tail.WriteString(strings.Join(parts, ", "))
	}

	if b.limit != nil {
		tail.WriteString(fmt.Sprintf(" LIMIT %d", *b.limit))
	}
	if b.offset != nil {
		tail.WriteString(fmt.Sprintf(" OFFSET %d", *b.offset))
	}

	base := sb.String()
	if len(b.unions) == 0 {
		return base + tail.String()
	}

	result := base
	for _, u := range b.unions {
		armSQL, armArgs := u.builder.ToSQL()
		for _, a := range armArgs {
			bag.Add(a)
		}
		if u.all {
			result += " UNION ALL " + armSQL
		} else {
			result += " UNION " + armSQL
		}
	}
	return result + tail.String()
}
