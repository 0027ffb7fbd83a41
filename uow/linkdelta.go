package uow

import (
	"github.com/rediwo/mysqlorm/session"
)

// computeLinkDeltas walks every owning-side ManyToMany relation on every
// entity it is given (Planner.Flush passes every NEW or MANAGED one) and diffs its current collection
// against the last snapshot by identity, producing the added (link) and
// removed (unlink) join-row deltas of spec §4.7 step 2. The inverse side
// of a bidirectional many-to-many is skipped — it shares the same join
// table and would otherwise double the link rows.
func computeLinkDeltas(entities []*session.ManagedEntity) (links, unlinks []linkDelta) {
	for _, me := range entities {
		for prop, rel := range me.Descriptor.ManyToMany {
			if !rel.OwningSide {
				continue
			}
			currentSet := byPointer(me.CurrentCollection(prop))
			previousSet := byPointer(me.SnapshotCollection(prop))

			for ptr, related := range currentSet {
				if _, existed := previousSet[ptr]; !existed {
					links = append(links, linkDelta{owner: me, related: related,
						joinTable: rel.JoinTable, joinColumn: rel.JoinProperty, inverseJoin: rel.InverseJoin})
				}
			}
			for ptr, related := range previousSet {
				if _, still := currentSet[ptr]; !still {
					unlinks = append(unlinks, linkDelta{owner: me, related: related,
						joinTable: rel.JoinTable, joinColumn: rel.JoinProperty, inverseJoin: rel.InverseJoin})
				}
			}
		}
	}
	return links, unlinks
}

func byPointer(elements []any) map[uintptr]any {
	out := make(map[uintptr]any, len(elements))
	for _, e := range elements {
		out[session.PointerIdentity(e)] = e
	}
	return out
}
