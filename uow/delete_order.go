package uow

import (
	"github.com/rediwo/mysqlorm/metadata"
	"github.com/rediwo/mysqlorm/session"
)

// sortDeletesByDependency orders the DELETE bucket so that any entity type
// referenced by another deleted type through an ON DELETE RESTRICT/NO
// ACTION foreign key is deleted after its referrer (spec §4.7 step 3's
// "delete the referrer first"). Ordering is computed per entity type
// rather than per instance: this flush only reorders across types that are
// themselves present in the delete set, since a live reference from a type
// not being deleted is a genuine constraint violation for the database to
// report, not something a reordering can resolve.
func sortDeletesByDependency(deletes []*session.ManagedEntity) []*session.ManagedEntity {
	if len(deletes) == 0 {
		return nil
	}

	byClass := make(map[string][]*session.ManagedEntity)
	var classOrder []string
	descriptors := make(map[string]*metadata.EntityDescriptor)
	for _, me := range deletes {
		name := me.Descriptor.ClassName
		if _, seen := byClass[name]; !seen {
			classOrder = append(classOrder, name)
			descriptors[name] = me.Descriptor
		}
		byClass[name] = append(byClass[name], me)
	}

	// referrers[target] = classes that must be deleted before target
	referrers := make(map[string][]string)
	for name, d := range descriptors {
		for _, fk := range d.ForeignKeys {
			if fk.OnDelete != metadata.ActionRestrict && fk.OnDelete != metadata.ActionNoAction {
				continue
			}
			if _, present := byClass[fk.ReferencedEntity]; !present {
				continue
			}
			referrers[fk.ReferencedEntity] = append(referrers[fk.ReferencedEntity], name)
		}
	}

	visited := make(map[string]bool)
	inStack := make(map[string]bool)
	var classSorted []string

	var visit func(name string)
	visit = func(name string) {
		if visited[name] || inStack[name] {
			return
		}
		inStack[name] = true
		for _, referrer := range referrers[name] {
			visit(referrer)
		}
		inStack[name] = false
		visited[name] = true
		classSorted = append(classSorted, name)
	}
	for _, name := range classOrder {
		visit(name)
	}

	out := make([]*session.ManagedEntity, 0, len(deletes))
	for _, name := range classSorted {
		out = append(out, byClass[name]...)
	}
	return out
}
