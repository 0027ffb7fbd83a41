package session

import (
	"context"
	"reflect"

	"github.com/rediwo/mysqlorm/driver"
	"github.com/rediwo/mysqlorm/logger"
	"github.com/rediwo/mysqlorm/metadata"
	"github.com/rediwo/mysqlorm/ormerr"
	"github.com/rediwo/mysqlorm/query"
)

// Session is the identity-map-backed unit of tracked entities for one
// logical unit of work (spec §4.6). It is not itself thread-safe for
// concurrent calls from multiple goroutines against the same entity set;
// callers needing concurrent access should use one Session per goroutine,
// as the teacher's per-request database.Database handles do.
type Session struct {
	registry *metadata.Registry
	factory  *query.Factory
	conn     driver.Connection
	log      logger.Logger

	identity *identityMap
	tracked  map[uintptr]*ManagedEntity
}

// New builds a Session bound to conn, resolving entity descriptors through
// registry and rendering queries through factory.
func New(registry *metadata.Registry, factory *query.Factory, conn driver.Connection, log logger.Logger) *Session {
	return &Session{
		registry: registry,
		factory:  factory,
		conn:     conn,
		log:      log,
		identity: newIdentityMap(),
		tracked:  make(map[uintptr]*ManagedEntity),
	}
}

func pointerIdentity(entity any) uintptr {
	return reflect.ValueOf(entity).Pointer()
}

// PointerIdentity exposes pointer-identity comparison for external
// packages (the flush planner) that need to deduplicate or diff entity
// references without relying on deep equality.
func PointerIdentity(entity any) uintptr {
	return pointerIdentity(entity)
}

func entityType(entity any) reflect.Type {
	t := reflect.TypeOf(entity)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// Find looks key up against the identity map first; on a miss it emits a
// SELECT via the query builder, hydrates a new instance of entityTemplate's
// type, registers it as MANAGED with a fresh snapshot, and returns it.
// entityTemplate is only consulted for its Go type — a zero value pointer
// such as &User{} is the conventional argument. A missing row returns
// (nil, nil).
func (s *Session) Find(ctx context.Context, entityTemplate any, key any) (any, error) {
	t := entityType(entityTemplate)
	d, err := s.registry.Describe(t)
	if err != nil {
		return nil, err
	}

	keyValues := normalizeKey(key)
	if me, ok := s.identity.get(t, keyValues); ok {
		return me.Entity, nil
	}

	sel, err := s.factory.Select(entityTemplate)
	if err != nil {
		return nil, err
	}
	sel = sel.Where(pkCondition(d, keyValues))

	sql, args := sel.Limit(1).ToSQL()
	cursor, err := s.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, ormerr.Wrap(ormerr.ConnectionLost, err, "find %s", d.ClassName).WithSQL(sql, args)
	}
	defer cursor.Close()

	row, err := cursor.FetchOne(ctx)
	if err != nil {
		return nil, ormerr.Wrap(ormerr.ConnectionLost, err, "find %s: fetch row", d.ClassName).WithSQL(sql, args)
	}
	if row == nil {
		return nil, nil
	}

	entity := reflect.New(t).Interface()
	for _, col := range d.OrderedColumns() {
		if v, ok := row[col.Name]; ok {
			d.SetProperty(entity, col.PropertyName, v)
		}
	}

	me := newManagedEntity(entity, d, Managed)
	me.snapshotNow()
	s.identity.put(t, keyValues, me)
	s.tracked[pointerIdentity(entity)] = me

	return entity, nil
}

// Persist attaches entity to the session. A NEW entity is tracked with an
// empty snapshot and cascades to every related entity whose relation
// declares cascade-persist. An already-MANAGED entity is a no-op. A
// REMOVED entity cannot be re-persisted.
func (s *Session) Persist(entity any) error {
	ptr := pointerIdentity(entity)
	if me, ok := s.tracked[ptr]; ok {
		switch me.State {
		case Managed, New:
			return nil
		case Removed:
			return ormerr.New(ormerr.IllegalStateTransition,
				"cannot persist %s: entity is scheduled for removal", me.Descriptor.ClassName).
				WithEntity(me.Descriptor.ClassName, me.PrimaryKey())
		}
	}

	t := entityType(entity)
	d, err := s.registry.Describe(t)
	if err != nil {
		return err
	}

	me := newManagedEntity(entity, d, New)
	s.tracked[ptr] = me

	return s.cascadePersist(d, entity)
}

func (s *Session) cascadePersist(d *metadata.EntityDescriptor, entity any) error {
	for _, relMap := range []map[string]metadata.RelationDescriptor{d.OneToOne, d.OneToMany, d.ManyToOne, d.ManyToMany} {
		for prop, rel := range relMap {
			if !rel.CascadePersist {
				continue
			}
			value, ok := d.GetProperty(entity, prop)
			if !ok || value == nil {
				continue
			}
			for _, related := range relatedEntities(value) {
				if err := s.Persist(related); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// relatedEntities normalizes a relation property's value (a single pointer
// or a slice of pointers) into a flat list of non-nil entity pointers.
func relatedEntities(value any) []any {
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		return []any{value}
	}
	if rv.Kind() != reflect.Slice {
		return nil
	}
	out := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i)
		if elem.Kind() == reflect.Ptr && elem.IsNil() {
			continue
		}
		out = append(out, elem.Interface())
	}
	return out
}

// Remove schedules a MANAGED entity for deletion on the next flush. Only a
// MANAGED entity may be removed.
func (s *Session) Remove(entity any) error {
	ptr := pointerIdentity(entity)
	me, ok := s.tracked[ptr]
	if !ok || me.State != Managed {
		t := entityType(entity)
		return ormerr.New(ormerr.IllegalStateTransition,
			"cannot remove %s: entity is not managed by this session", t.Name())
	}
	me.State = Removed
	return nil
}

// Lookup returns the ManagedEntity wrapping entity, if this session
// tracks it, for flush-planner dependency analysis across related
// entities.
func (s *Session) Lookup(entity any) (*ManagedEntity, bool) {
	me, ok := s.tracked[pointerIdentity(entity)]
	return me, ok
}

// Tracked returns every ManagedEntity currently attached to the session,
// regardless of state — the input to the flush planner's classification
// step (spec §4.7 step 1).
func (s *Session) Tracked() []*ManagedEntity {
	out := make([]*ManagedEntity, 0, len(s.tracked))
	for _, me := range s.tracked {
		out = append(out, me)
	}
	return out
}

// AssignKey is called by the flush planner after an INSERT returns an
// auto-generated key: it writes the key into the entity, transitions it to
// MANAGED, snapshots it, and enters it into the identity map.
func (s *Session) AssignKey(me *ManagedEntity, autoIncrementID int64) {
	if pk, ok := me.Descriptor.PrimaryKey(); ok && pk.AutoIncrement {
		me.Descriptor.SetProperty(me.Entity, pk.PropertyName, autoIncrementID)
	}
	me.State = Managed
	me.snapshotNow()
	s.identity.put(entityType(me.Entity), me.PrimaryKey(), me)
}

// Refresh re-snapshots a surviving MANAGED entity after a successful
// UPDATE flush (spec §4.7 step 7).
func (s *Session) Refresh(me *ManagedEntity) {
	me.snapshotNow()
}

// Detach removes a REMOVED entity from the identity map and the tracked
// set after a successful DELETE flush (spec §4.7 step 7).
func (s *Session) Detach(me *ManagedEntity) {
	s.identity.delete(entityType(me.Entity), me.PrimaryKey())
	delete(s.tracked, pointerIdentity(me.Entity))
	me.State = Detached
}

func normalizeKey(key any) []any {
	if values, ok := key.([]any); ok {
		return values
	}
	return []any{key}
}

func pkCondition(d *metadata.EntityDescriptor, keyValues []any) query.Condition {
	if composite := d.CompositeKey(); len(composite) > 0 {
		parts := make([]query.Condition, len(composite))
		for i, prop := range composite {
			parts[i] = query.Eq(d.Columns[prop].Name, keyValues[i])
		}
		return query.GroupAnd(parts...)
	}
	pk, _ := d.PrimaryKey()
	return query.Eq(pk.Name, keyValues[0])
}
