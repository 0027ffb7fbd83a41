package session

import (
	"reflect"

	"github.com/rediwo/mysqlorm/metadata"
)

// ManagedEntity wraps one entity instance under a Session's management
// together with its lifecycle state and the property snapshot dirty
// checking compares against (spec §4.6).
type ManagedEntity struct {
	Entity     any
	Descriptor *metadata.EntityDescriptor
	State      State

	// snapshot holds the value every mapped column and relation property
	// had at the last sync point (hydration, flush, or initial persist).
	snapshot map[string]any
}

func newManagedEntity(entity any, d *metadata.EntityDescriptor, state State) *ManagedEntity {
	return &ManagedEntity{Entity: entity, Descriptor: d, State: state, snapshot: make(map[string]any)}
}

// snapshotNow captures the entity's current property values as the new
// baseline for future dirty checks.
func (m *ManagedEntity) snapshotNow() {
	for _, prop := range m.Descriptor.Properties() {
		if v, ok := m.Descriptor.GetProperty(m.Entity, prop); ok {
			m.snapshot[prop] = v
		}
	}
}

// PrimaryKey reads the entity's current primary key value(s).
func (m *ManagedEntity) PrimaryKey() []any {
	return m.Descriptor.PrimaryKeyValue(m.Entity)
}

// CurrentCollection reads a OneToMany/ManyToMany property's current
// elements as a flat list of entity pointers.
func (m *ManagedEntity) CurrentCollection(property string) []any {
	v, ok := m.Descriptor.GetProperty(m.Entity, property)
	if !ok {
		return nil
	}
	return toEntitySlice(v)
}

// SnapshotCollection reads the same property's elements as of the last
// sync point, for the flush planner's link/unlink delta computation
// (spec §4.7 step 2).
func (m *ManagedEntity) SnapshotCollection(property string) []any {
	return toEntitySlice(m.snapshot[property])
}

func toEntitySlice(v any) []any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
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
