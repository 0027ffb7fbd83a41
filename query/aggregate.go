package query

import (
	"fmt"

	"github.com/rediwo/mysqlorm/metadata"
	"github.com/rediwo/mysqlorm/ormerr"
	"github.com/rediwo/mysqlorm/sqlfmt"
)

// AggregateFunc is a supported aggregate function (spec's supplemented
// aggregation-query feature, grounded on the teacher's
// query/aggregation_query.go).
type AggregateFunc string

const (
	Count AggregateFunc = "COUNT"
	Sum   AggregateFunc = "SUM"
	Avg   AggregateFunc = "AVG"
	Min   AggregateFunc = "MIN"
	Max   AggregateFunc = "MAX"
)

type aggregateItem struct {
	fn    AggregateFunc
	col   string
	alias string
}

// AggregateBuilder composes one or more aggregate expressions over an
// entity's table, with optional grouping, filtering, and having. It
// delegates rendering to an embedded SelectBuilder once the aggregate
// expression list has been translated to plain SELECT columns.
type AggregateBuilder struct {
	descriptor *metadata.EntityDescriptor
	aggregates []aggregateItem
	groupBy    []string
	where      Condition
	having     Condition
}

func newAggregateBuilder(d *metadata.EntityDescriptor) *AggregateBuilder {
	return &AggregateBuilder{descriptor: d}
}

func (b *AggregateBuilder) clone() *AggregateBuilder {
	cp := *b
	cp.aggregates = append([]aggregateItem(nil), b.aggregates...)
	cp.groupBy = append([]string(nil), b.groupBy...)
	return &cp
}

// Add appends one aggregate expression, e.g. Add(Count, "*", "total") or
// Add(Sum, "amount", "total_amount"). column may be "*" only for Count.
func (b *AggregateBuilder) Add(fn AggregateFunc, column, alias string) *AggregateBuilder {
	cp := b.clone()
	cp.aggregates = append(cp.aggregates, aggregateItem{fn: fn, col: column, alias: alias})
	return cp
}

// GroupBy sets the grouping property list (resolved to database column
// names at render time).
func (b *AggregateBuilder) GroupBy(properties ...string) *AggregateBuilder {
	cp := b.clone()
	cp.groupBy = properties
	return cp
}

// Where sets the row filter applied before aggregation.
func (b *AggregateBuilder) Where(c Condition) *AggregateBuilder {
	cp := b.clone()
	cp.where = c
	return cp
}

// Having sets the group filter applied after aggregation.
func (b *AggregateBuilder) Having(c Condition) *AggregateBuilder {
	cp := b.clone()
	cp.having = c
	return cp
}

// ToSQL renders the builder into SQL text and its positional argument list.
func (b *AggregateBuilder) ToSQL() (string, []any, error) {
	if len(b.aggregates) == 0 {
		return "", nil, ormerr.New(ormerr.MappingError, "aggregate query on %s has no aggregate expressions", b.descriptor.ClassName)
	}

	sel := newSelectBuilder(b.descriptor)

	groupExprs := make([]string, 0, len(b.groupBy))
	for _, p := range b.groupBy {
		col, err := resolveColumn(b.descriptor, p)
		if err != nil {
			return "", nil, err
		}
		groupExprs = append(groupExprs, sqlfmt.FormatIdentifier(col))
	}

	items := make([]selectItem, 0, len(groupExprs)+len(b.aggregates))
	for _, g := range groupExprs {
		items = append(items, selectItem{expr: g})
	}
	for _, agg := range b.aggregates {
		var colExpr string
		if agg.col == "*" {
			colExpr = "*"
		} else {
			dbCol, err := resolveColumn(b.descriptor, agg.col)
			if err != nil {
				return "", nil, err
			}
			colExpr = sqlfmt.FormatIdentifier(dbCol)
		}
		items = append(items, selectItem{
			expr:  fmt.Sprintf("%s(%s)", agg.fn, colExpr),
			alias: agg.alias,
		})
	}
	sel.columns = items
	sel.groupBy = groupExprs
	sel.where = b.where
	sel.having = b.having

	sql, args := sel.ToSQL()
	return sql, args, nil
}
