package uow

import (
	"reflect"

	"github.com/rediwo/mysqlorm/metadata"
	"github.com/rediwo/mysqlorm/ormerr"
	"github.com/rediwo/mysqlorm/query"
	"github.com/rediwo/mysqlorm/session"
)

func isNilAny(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}

// relatedPrimaryKey resolves a relation property's current entity pointer
// to the scalar value its owning foreign-key column must carry, via the
// session's identity map — the related entity must already be tracked
// (persisted or loaded) by the time a flush needs its key.
func relatedPrimaryKey(sess *session.Session, owner *metadata.EntityDescriptor, property string, related any) (any, error) {
	if isNilAny(related) {
		return nil, nil
	}
	me, ok := sess.Lookup(related)
	if !ok {
		return nil, ormerr.New(ormerr.MappingError,
			"%s.%s references an entity not tracked by this session", owner.ClassName, property).
			WithEntity(owner.ClassName, nil)
	}
	pk := me.PrimaryKey()
	if len(pk) != 1 {
		return nil, ormerr.New(ormerr.MappingError,
			"%s.%s targets a composite-key entity, unsupported for owning foreign keys", owner.ClassName, property).
			WithEntity(owner.ClassName, nil)
	}
	return pk[0], nil
}

// resolveInsertValues builds the property/value map one insertRow writes:
// every non-auto-increment column plus every non-deferred owning relation
// property, the latter resolved from an entity pointer to its primary-key
// scalar (spec §4.7 step 5).
func resolveInsertValues(sess *session.Session, row insertRow) (map[string]any, error) {
	d := row.entity.Descriptor
	entity := row.entity.Entity

	deferredSet := make(map[string]bool, len(row.deferred))
	for _, p := range row.deferred {
		deferredSet[p] = true
	}

	values := make(map[string]any, len(d.Columns)+len(d.ForeignKeys))
	for name, col := range d.Columns {
		if col.AutoIncrement {
			continue
		}
		v, _ := d.GetProperty(entity, name)
		values[name] = v
	}
	for _, prop := range owningRelationProperties(d) {
		if deferredSet[prop] {
			continue
		}
		related, _ := d.GetProperty(entity, prop)
		pk, err := relatedPrimaryKey(sess, d, prop, related)
		if err != nil {
			return nil, err
		}
		values[prop] = pk
	}
	return values, nil
}

// resolveUpdateValue translates one dirty-checked property's raw value
// into what UpdateBuilder.Set expects: scalar columns pass through
// unchanged, relation properties resolve to the related entity's primary
// key.
func resolveUpdateValue(sess *session.Session, d *metadata.EntityDescriptor, property string, value any) (any, error) {
	if _, isRelation := d.Relation(property); isRelation {
		return relatedPrimaryKey(sess, d, property, value)
	}
	return value, nil
}

// updateSetMap merges a ChangeSet's immediately-dirty properties and its
// now-resolvable deferred relation properties (the related NEW entity has
// had its key assigned by the preceding insert phase) into one SET map.
func updateSetMap(sess *session.Session, d *metadata.EntityDescriptor, cs *session.ChangeSet) (map[string]any, error) {
	out := make(map[string]any, len(cs.Dirty)+len(cs.Deferred))
	for prop, v := range cs.Dirty {
		rv, err := resolveUpdateValue(sess, d, prop, v)
		if err != nil {
			return nil, err
		}
		out[prop] = rv
	}
	for prop, relatedME := range cs.Deferred {
		rv, err := resolveUpdateValue(sess, d, prop, relatedME.Entity)
		if err != nil {
			return nil, err
		}
		out[prop] = rv
	}
	return out, nil
}

// pkCondition builds the WHERE clause identifying entity's current row by
// primary key, single-column or composite.
func pkCondition(d *metadata.EntityDescriptor, entity any) query.Condition {
	values := d.PrimaryKeyValue(entity)
	if composite := d.CompositeKey(); len(composite) > 0 {
		parts := make([]query.Condition, len(composite))
		for i, prop := range composite {
			parts[i] = query.Eq(d.Columns[prop].Name, values[i])
		}
		return query.GroupAnd(parts...)
	}
	pk, _ := d.PrimaryKey()
	return query.Eq(pk.Name, values[0])
}
