package uow

import (
	"github.com/rediwo/mysqlorm/metadata"
	"github.com/rediwo/mysqlorm/ormerr"
	"github.com/rediwo/mysqlorm/session"
)

// depEdge records one NEW entity's dependency on another NEW entity's
// insert completing first, via an owning foreign key.
type depEdge struct {
	target   *session.ManagedEntity
	property string
	nullable bool
}

// insertNode mirrors base/schema_sorter.go's SchemaNode: a DFS
// visited/in-stack pair used for cycle-safe topological sort.
type insertNode struct {
	entity   *session.ManagedEntity
	edges    []depEdge
	visited  bool
	inStack  bool
}

func buildInsertDependencies(news []*session.ManagedEntity, sess *session.Session) map[*session.ManagedEntity]*insertNode {
	nodes := make(map[*session.ManagedEntity]*insertNode, len(news))
	for _, me := range news {
		nodes[me] = &insertNode{entity: me}
	}
	for _, me := range news {
		for _, prop := range owningRelationProperties(me.Descriptor) {
			related, ok := me.Descriptor.GetProperty(me.Entity, prop)
			if !ok || related == nil {
				continue
			}
			relatedME, ok := sess.Lookup(related)
			if !ok || relatedME.State != session.New || relatedME == me {
				continue
			}
			fk := me.Descriptor.ForeignKeys[prop]
			nodes[me].edges = append(nodes[me].edges, depEdge{target: relatedME, property: prop, nullable: fk.Nullable})
		}
	}
	return nodes
}

func owningRelationProperties(d *metadata.EntityDescriptor) []string {
	var props []string
	for name, rel := range d.ManyToOne {
		if rel.OwningSide {
			props = append(props, name)
		}
	}
	for name, rel := range d.OneToOne {
		if rel.OwningSide {
			props = append(props, name)
		}
	}
	return props
}

// topoSortInserts orders NEW entities so every insert follows the inserts
// of the entities it owning-side references, breaking any cycle at a
// nullable FK by deferring that column to a follow-up UPDATE (spec §4.7
// step 4). It fails with ormerr.UnresolvableInsertCycle if a detected
// cycle contains no nullable FK to break.
func topoSortInserts(news []*session.ManagedEntity, sess *session.Session) ([]insertRow, error) {
	nodes := buildInsertDependencies(news, sess)
	deferred := make(map[*session.ManagedEntity][]string)

	for {
		order, cycle := attemptTopoSort(news, nodes)
		if cycle == nil {
			rows := make([]insertRow, len(order))
			for i, me := range order {
				rows[i] = insertRow{entity: me, deferred: deferred[me]}
			}
			return rows, nil
		}

		broke := false
		for _, me := range cycle {
			node := nodes[me]
			for i, edge := range node.edges {
				if !edge.nullable {
					continue
				}
				node.edges = append(node.edges[:i:i], node.edges[i+1:]...)
				deferred[me] = append(deferred[me], edge.property)
				broke = true
				break
			}
			if broke {
				break
			}
		}
		if !broke {
			return nil, ormerr.New(ormerr.UnresolvableInsertCycle,
				"insert cycle among %d entities has no nullable foreign key to break", len(cycle))
		}
	}
}

// attemptTopoSort runs one DFS pass. On success it returns the insert
// order; on a cycle it returns the cycle's member entities (in discovery
// order) and a nil order.
func attemptTopoSort(news []*session.ManagedEntity, nodes map[*session.ManagedEntity]*insertNode) ([]*session.ManagedEntity, []*session.ManagedEntity) {
	for _, n := range nodes {
		n.visited = false
		n.inStack = false
	}

	var order []*session.ManagedEntity
	var cycle []*session.ManagedEntity
	cycleClosed := false

	var visit func(me *session.ManagedEntity) bool // true if a cycle was found
	visit = func(me *session.ManagedEntity) bool {
		node := nodes[me]
		if node.visited {
			return false
		}
		if node.inStack {
			cycle = append(cycle, me)
			return true
		}
		node.inStack = true
		for _, edge := range node.edges {
			if visit(edge.target) {
				if !cycleClosed {
					cycle = append(cycle, me)
					if me == cycle[0] {
						cycleClosed = true
					}
				}
				return true
			}
		}
		node.inStack = false
		node.visited = true
		order = append(order, me)
		return false
	}

	for _, me := range news {
		if nodes[me].visited {
			continue
		}
		if visit(me) {
			return nil, cycle
		}
	}
	return order, nil
}
