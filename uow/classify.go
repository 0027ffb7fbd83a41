package uow

import (
	"github.com/rediwo/mysqlorm/session"
)

// classify splits every entity tracked by sess into the NEW, dirty-MANAGED,
// and REMOVED buckets of spec §4.7 step 2. Cascade-reachable NEW entities
// need no separate collection step here: Session.Persist already walked
// cascade-persist edges and attached them at persist time (spec §4.6), so
// they are already present in sess.Tracked().
func classify(sess *session.Session) ([]*session.ManagedEntity, []*session.ManagedEntity, map[*session.ManagedEntity]*session.ChangeSet, []*session.ManagedEntity) {
	var news, dirty, deletes []*session.ManagedEntity
	changeSets := make(map[*session.ManagedEntity]*session.ChangeSet)

	for _, me := range sess.Tracked() {
		switch me.State {
		case session.New:
			news = append(news, me)
		case session.Removed:
			deletes = append(deletes, me)
		case session.Managed:
			cs := sess.ComputeChangeSet(me)
			if !cs.IsEmpty() {
				dirty = append(dirty, me)
				changeSets[me] = cs
			}
		}
	}

	return news, dirty, changeSets, deletes
}
