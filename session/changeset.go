package session

import (
	"bytes"
	"math"
	"reflect"
	"time"
)

// ChangeSet is the result of dirty-checking one ManagedEntity at flush
// time (spec §4.6). Dirty holds every changed column property keyed by
// property name. Deferred holds relation/FK properties whose new value is
// itself a still-unpersisted NEW entity — these cannot be written until
// that entity's insert assigns it a key, so the flush planner defers them
// to a follow-up UPDATE (spec §4.7).
type ChangeSet struct {
	Dirty    map[string]any
	Deferred map[string]*ManagedEntity
}

// IsEmpty reports whether a MANAGED entity produced no changes at all, in
// which case the flush planner emits no UPDATE for it.
func (c *ChangeSet) IsEmpty() bool {
	return len(c.Dirty) == 0 && len(c.Deferred) == 0
}

// ComputeChangeSet compares me's current mapped property values against
// its last snapshot using the per-kind comparison rules of spec §4.6:
// integers/booleans/strings by equality, floating point bit-exact,
// date/time by instant, blobs by length then byte comparison, and related
// entities by identity-map identity rather than deep equality.
func (s *Session) ComputeChangeSet(me *ManagedEntity) *ChangeSet {
	cs := &ChangeSet{Dirty: make(map[string]any), Deferred: make(map[string]*ManagedEntity)}

	for name := range me.Descriptor.Columns {
		current, ok := me.Descriptor.GetProperty(me.Entity, name)
		if !ok {
			continue
		}
		if !valuesEqual(me.snapshot[name], current) {
			cs.Dirty[name] = current
		}
	}

	for name, rel := range me.Descriptor.OneToOne {
		s.checkRelationDirty(me, name, rel.OwningSide, cs)
	}
	for name, rel := range me.Descriptor.ManyToOne {
		s.checkRelationDirty(me, name, rel.OwningSide, cs)
	}

	return cs
}

func (s *Session) checkRelationDirty(me *ManagedEntity, property string, owningSide bool, cs *ChangeSet) {
	if !owningSide {
		return
	}
	current, ok := me.Descriptor.GetProperty(me.Entity, property)
	if !ok || isNilEntity(current) {
		if !isNilEntity(me.snapshot[property]) {
			cs.Dirty[property] = nil
		}
		return
	}
	if related, isNew := s.trackedState(current); isNew != nil {
		if *isNew == New {
			cs.Deferred[property] = related
			return
		}
	}
	if !sameEntityIdentity(me.snapshot[property], current) {
		cs.Dirty[property] = current
	}
}

// trackedState returns the ManagedEntity wrapping entity, if this session
// tracks it, along with its current state.
func (s *Session) trackedState(entity any) (*ManagedEntity, *State) {
	me, ok := s.tracked[pointerIdentity(entity)]
	if !ok {
		return nil, nil
	}
	st := me.State
	return me, &st
}

func isNilEntity(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}

// sameEntityIdentity compares two related-entity references by pointer
// identity, since two in-memory instances with the same primary key but
// different pointers still count as distinct per spec §4.6's identity-map
// rule (a MANAGED entity is always fetched once and shared).
func sameEntityIdentity(old, current any) bool {
	if isNilEntity(old) && isNilEntity(current) {
		return true
	}
	if isNilEntity(old) != isNilEntity(current) {
		return false
	}
	return reflect.ValueOf(old).Pointer() == reflect.ValueOf(current).Pointer()
}

func valuesEqual(old, current any) bool {
	if old == nil && current == nil {
		return true
	}
	if old == nil || current == nil {
		return false
	}

	if of, ok := toFloat64(old); ok {
		if cf, ok := toFloat64(current); ok {
			return math.Float64bits(of) == math.Float64bits(cf)
		}
	}

	if ot, ok := old.(time.Time); ok {
		if ct, ok := current.(time.Time); ok {
			return ot.Equal(ct)
		}
	}

	if ob, ok := toBytes(old); ok {
		if cb, ok := toBytes(current); ok {
			return len(ob) == len(cb) && bytes.Equal(ob, cb)
		}
	}

	return old == current
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func toBytes(v any) ([]byte, bool) {
	b, ok := v.([]byte)
	return b, ok
}
