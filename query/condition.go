// Package query implements the Query Builder of spec §4.4: a factory
// dispensing SELECT/INSERT/UPDATE/DELETE sub-builders plus a raw-SQL
// adapter, all sharing a params.Bag and the sqlfmt formatting utilities.
// It is grounded on the teacher's query/ package (select_query.go,
// insert_query.go, update_query.go, delete_query.go, join_builder.go,
// raw_query.go), generalized from model-name-string-keyed builders to
// metadata.EntityDescriptor-keyed ones, and using the immutable
// clone-on-write pattern of the teacher's SelectQueryImpl throughout.
package query

import (
	"fmt"
	"strings"

	"github.com/rediwo/mysqlorm/params"
	"github.com/rediwo/mysqlorm/sqlfmt"
)

// BoolOp joins condition groups.
type BoolOp string

const (
	And BoolOp = "AND"
	Or  BoolOp = "OR"
)

// Condition is a node in the WHERE/HAVING tree: either a leaf boolean
// fragment with its own local parameters, or a group of child conditions
// joined by And/Or.
type Condition struct {
	leaf     string
	leafArgs []any

	op       BoolOp
	children []Condition
	negate   bool
}

// Raw builds a leaf condition from a free-form boolean SQL fragment.
// Positional `?` markers are resolved against args in order; named
// `:name` markers are resolved by looking up args as alternating
// name/value pairs is not supported here — callers needing named markers
// should pre-bind via a params.Bag and pass the resulting `:paramN`
// placeholders directly in expr.
func Raw(expr string, args ...any) Condition {
	return Condition{leaf: expr, leafArgs: args}
}

// Eq, NotEq, Gt, Gte, Lt, Lte, Like, In, NotIn, IsNull, IsNotNull are the
// common leaf-condition constructors used by callers building conditions
// against a column name rather than a raw fragment.
func Eq(column string, value any) Condition {
	return Raw(fmt.Sprintf("%s = ?", sqlfmt.FormatIdentifier(column)), value)
}

func NotEq(column string, value any) Condition {
	return Raw(fmt.Sprintf("%s <> ?", sqlfmt.FormatIdentifier(column)), value)
}

func Gt(column string, value any) Condition {
	return Raw(fmt.Sprintf("%s > ?", sqlfmt.FormatIdentifier(column)), value)
}

func Gte(column string, value any) Condition {
	return Raw(fmt.Sprintf("%s >= ?", sqlfmt.FormatIdentifier(column)), value)
}

func Lt(column string, value any) Condition {
	return Raw(fmt.Sprintf("%s < ?", sqlfmt.FormatIdentifier(column)), value)
}

func Lte(column string, value any) Condition {
	return Raw(fmt.Sprintf("%s <= ?", sqlfmt.FormatIdentifier(column)), value)
}

func Like(column string, pattern string) Condition {
	return Raw(fmt.Sprintf("%s LIKE ?", sqlfmt.FormatIdentifier(column)), pattern)
}

func In(column string, values ...any) Condition {
	placeholders := make([]string, len(values))
	for i := range values {
		placeholders[i] = "?"
	}
	return Raw(fmt.Sprintf("%s IN (%s)", sqlfmt.FormatIdentifier(column), strings.Join(placeholders, ", ")), values...)
}

func NotIn(column string, values ...any) Condition {
	placeholders := make([]string, len(values))
	for i := range values {
		placeholders[i] = "?"
	}
	return Raw(fmt.Sprintf("%s NOT IN (%s)", sqlfmt.FormatIdentifier(column), strings.Join(placeholders, ", ")), values...)
}

func IsNull(column string) Condition {
	return Raw(fmt.Sprintf("%s IS NULL", sqlfmt.FormatIdentifier(column)))
}

func IsNotNull(column string) Condition {
	return Raw(fmt.Sprintf("%s IS NOT NULL", sqlfmt.FormatIdentifier(column)))
}

// GroupAnd/GroupOr combine child conditions with an AND/OR group.
func GroupAnd(children ...Condition) Condition {
	return Condition{op: And, children: children}
}

func GroupOr(children ...Condition) Condition {
	return Condition{op: Or, children: children}
}

// Not negates a condition, wrapping its SQL in NOT(...).
func Not(c Condition) Condition {
	c.negate = true
	return c
}

// IsZero reports whether a Condition is the empty zero value (no leaf, no
// children) — useful for callers that build conditions conditionally.
func (c Condition) IsZero() bool {
	return c.leaf == "" && len(c.children) == 0
}

// toSQL renders the condition tree against bag, resolving each leaf's
// positional `?` markers into bag-assigned named placeholders in the
// leaf's local order (spec §4.4: "resolved against a local parameter list
// at append time").
func (c Condition) toSQL(bag *params.Bag) string {
	var sql string
	if c.leaf != "" {
		sql = substitutePositional(c.leaf, c.leafArgs, bag)
	} else if len(c.children) > 0 {
		parts := make([]string, 0, len(c.children))
		for _, child := range c.children {
			if child.IsZero() {
				continue
			}
			parts = append(parts, child.toSQL(bag))
		}
		if len(parts) == 0 {
			return ""
		}
		joiner := " " + string(c.op) + " "
		sql = "(" + strings.Join(parts, joiner) + ")"
	} else {
		return ""
	}
	if c.negate {
		return "NOT (" + sql + ")"
	}
	return sql
}

// substitutePositional rewrites expr's positional `?` markers one-for-one,
// recording each resolved value into bag in the same left-to-right order
// so the final rendered SQL's `?` occurrences line up with bag.Values().
// MySQL's wire protocol (and go-sql-driver/mysql) binds purely
// positionally, so the SQL text keeps plain `?` markers; the bag's named
// placeholders exist for drivers that bind by name and for the merge
// semantics of spec §4.2.
func substitutePositional(expr string, args []any, bag *params.Bag) string {
	var b strings.Builder
	argIdx := 0
	for i := 0; i < len(expr); i++ {
		if expr[i] == '?' && argIdx < len(args) {
			bag.Add(args[argIdx])
			b.WriteByte('?')
			argIdx++
			continue
		}
		b.WriteByte(expr[i])
	}
	return b.String()
}
