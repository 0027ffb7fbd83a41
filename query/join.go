package query

// JoinKind is the SQL join flavor (spec §4.4: INNER/LEFT/RIGHT).
type JoinKind string

const (
	InnerJoin JoinKind = "INNER JOIN"
	LeftJoin  JoinKind = "LEFT JOIN"
	RightJoin JoinKind = "RIGHT JOIN"
)

type joinClause struct {
	kind  JoinKind
	table string
	alias string
	on    Condition
}
