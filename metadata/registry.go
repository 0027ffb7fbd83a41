package metadata

import (
	"reflect"
	"sort"
	"sync"

	"github.com/rediwo/mysqlorm/ormerr"
)

// Registry builds and caches EntityDescriptors. It has no back-edges to the
// cache layer, the query builder, or any managed entity, and is safe for
// concurrent use by multiple sessions (spec §4.1, §5): writes are
// serialised under a single RWMutex, reads proceed concurrently.
//
// Multiple Registry values may coexist in one process (spec §9's "global
// mutable state" note) — a Registry is owned by whatever scope constructs
// it (typically one per *orm.EntityManager), never a package-level singleton.
type Registry struct {
	mu       sync.RWMutex
	byType   map[reflect.Type]*EntityDescriptor
	byName   map[string]*EntityDescriptor
	building map[reflect.Type]bool
	depth    int
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		byType:   make(map[reflect.Type]*EntityDescriptor),
		byName:   make(map[string]*EntityDescriptor),
		building: make(map[reflect.Type]bool),
	}
}

func derefType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// Describe returns the EntityDescriptor for a Go entity type, building and
// caching it on first request. It fails with ormerr.UnknownEntity if the
// type has no embedded Entity marker, and with ormerr.MappingError if
// annotations are inconsistent. A failed build is never cached — later
// calls retry from scratch (spec §7).
func (r *Registry) Describe(t reflect.Type) (*EntityDescriptor, error) {
	t = derefType(t)

	r.mu.RLock()
	if d, ok := r.byType[t]; ok {
		r.mu.RUnlock()
		return d, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	if d, ok := r.byType[t]; ok {
		r.mu.Unlock()
		return d, nil
	}
	if r.building[t] {
		// Cyclic relation graph (e.g. User <-> Profile): hand back a stub
		// that will be populated in place once the outer build finishes.
		stub := &EntityDescriptor{ClassName: t.Name(), GoType: t}
		r.byType[t] = stub
		r.mu.Unlock()
		return stub, nil
	}
	r.building[t] = true
	r.depth++
	r.mu.Unlock()

	d, err := r.build(t)

	r.mu.Lock()
	delete(r.building, t)
	r.depth--
	outermost := r.depth == 0
	if err != nil {
		delete(r.byType, t)
		r.mu.Unlock()
		return nil, err
	}
	if stub, ok := r.byType[t]; ok && stub != d {
		*stub = *d
		d = stub
	} else {
		r.byType[t] = d
	}
	r.byName[d.ClassName] = d
	if outermost {
		r.fixupForeignKeyNamesLocked()
	}
	r.mu.Unlock()
	return d, nil
}

// GetDescriptor returns a previously built descriptor by class name,
// failing with ormerr.UnknownEntity if no such class was ever described.
func (r *Registry) GetDescriptor(className string) (*EntityDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[className]
	if !ok {
		return nil, ormerr.New(ormerr.UnknownEntity, "no entity descriptor registered for %q", className)
	}
	return d, nil
}

// GetAllDescriptors returns every known descriptor in deterministic
// class-name order.
func (r *Registry) GetAllDescriptors() []*EntityDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*EntityDescriptor, 0, len(r.byName))
	for _, d := range r.byName {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClassName < out[j].ClassName })
	return out
}

// RegisterTypes is the Go-idiomatic reading of spec §4.1's loadFromPath:
// Go has no runtime filesystem class loader, so discovery is explicit
// registration of a caller-supplied list of entity values (typically zero
// values, e.g. User{}) rather than a directory scan. Types lacking the
// Entity marker are silently skipped, exactly as loadFromPath skips
// unmarked classes.
func (r *Registry) RegisterTypes(entities ...any) (count int, err error) {
	for _, e := range entities {
		t := derefType(reflect.TypeOf(e))
		if _, ok := findMarkerField(t); !ok {
			continue
		}
		if _, err := r.Describe(t); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (r *Registry) fixupForeignKeyNamesLocked() {
	for _, d := range r.byType {
		for prop, fk := range d.ForeignKeys {
			if fk.ConstraintName != "" {
				continue
			}
			refTable := fk.ReferencedEntity
			if ref, ok := r.byName[fk.ReferencedEntity]; ok {
				refTable = ref.TableName
			}
			fk.ConstraintName = defaultConstraintName(d.TableName, columnForFK(d, prop), refTable)
			d.ForeignKeys[prop] = fk
		}
	}
}

func columnForFK(d *EntityDescriptor, property string) string {
	if rel, ok := d.Relation(property); ok {
		if rel.JoinProperty != "" {
			return rel.JoinProperty
		}
	}
	return property + "_id"
}
