// Package uow implements the Unit of Work / Flush Planner of spec §4.7:
// turning a session's {NEW, dirty-MANAGED, REMOVED} entities into an
// ordered, batched SQL programme executed inside one transaction. The
// teacher has no equivalent — it issues one statement per call with no
// change tracking — so the topological-sort idiom is grounded on
// base/schema_sorter.go's DFS-with-recursion-stack cycle detection, and
// the batching/transaction-scoped execution idiom on
// base/transaction_utils.go and drivers/mysql/transaction.go.
package uow

import (
	"github.com/rediwo/mysqlorm/session"
)

// Options tunes one Flush call.
type Options struct {
	// MaxBatchSize caps how many rows one multi-row INSERT statement may
	// carry, bounding the total bound-parameter count per statement (spec
	// §4.7 step 5). Zero means DefaultMaxBatchSize.
	MaxBatchSize int
}

const DefaultMaxBatchSize = 500

func (o Options) batchSize() int {
	if o.MaxBatchSize > 0 {
		return o.MaxBatchSize
	}
	return DefaultMaxBatchSize
}

// linkDelta is one added or removed many-to-many join row. related is the
// raw related entity pointer rather than a *session.ManagedEntity: the
// collection may reference an entity this flush never inserts or updates
// (e.g. an already-persisted tag attached to a new post), so only its
// primary key is needed at execution time. That key is read through the
// session's tracking (relatedPrimaryKey), so a related entity the session
// does not track fails the flush with a MappingError.
type linkDelta struct {
	owner       *session.ManagedEntity
	related     any
	joinTable   string
	joinColumn  string
	inverseJoin string
}

// insertRow is one classified NEW entity, together with which owning FK
// properties were nulled to break an insert cycle and must be patched by
// a deferred UPDATE once their target is inserted.
type insertRow struct {
	entity   *session.ManagedEntity
	deferred []string // relation property names nulled out for this insert
}

// plan groups the fully classified, ordered, batched pieces of one flush.
// Planner.Flush computes the same pieces as local variables and does not
// build a plan value.
type plan struct {
	inserts      []insertRow
	dirty        []*session.ManagedEntity
	changeSets   map[*session.ManagedEntity]*session.ChangeSet
	deletes      []*session.ManagedEntity
	unlinkDeltas []linkDelta
	linkDeltas   []linkDelta
}
