package metadata

import "reflect"

// ColumnDescriptor is the immutable, reflection-derived description of one
// mapped scalar property (spec §3).
type ColumnDescriptor struct {
	PropertyName  string
	Name          string // database column name
	Type          ColumnType
	Length        int
	Scale         int
	Unsigned      bool
	Nullable      bool
	Default       any
	Extra         string // e.g. "auto_increment", "on update current_timestamp"
	Key           KeyRole
	Choices       []string // enum/set choices
	AutoIncrement bool
}

// ForeignKeyDescriptor is the immutable description of one owning-side
// foreign key (spec §3).
type ForeignKeyDescriptor struct {
	PropertyName      string
	ConstraintName    string
	ReferencedEntity  string // EntityDescriptor.ClassName of the target
	ReferencedColumn  string
	OnDelete          ReferentialAction
	OnUpdate          ReferentialAction
	Nullable          bool
}

// RelationDescriptor is the tagged-variant relation description (spec §3,
// §9). Fields not meaningful to Kind are left zero.
type RelationDescriptor struct {
	PropertyName    string
	Kind            RelationKind
	TargetEntity    string
	MappedBy        string // OneToMany: inverse property name on the target
	JoinTable       string // ManyToMany
	JoinProperty    string // ManyToMany: this side's join column
	InverseJoin     string // ManyToMany: target side's join column
	CascadePersist  bool
	CascadeRemove   bool
	OwningSide      bool // false only for the inverse end of a bidirectional relation
}

// accessor is a front-loaded, resolved-once read/write handle for one mapped
// property, per the design note on reflection-driven accessor discovery.
type accessor struct {
	fieldIndex []int // reflect field index path; always valid, used when no method override applies
	getMethod  int   // method index; -1 if unused
	getOnPtr   bool  // true if getMethod indexes into the pointer type's method set
	setMethod  int   // method index on the pointer type's method set; -1 if unused
}

// Get reads a mapped property's current value off entity, which must be a
// pointer to (or addressable value of) the entity's Go type.
func (a accessor) Get(entity reflect.Value) any {
	v := entity
	if v.Kind() == reflect.Ptr {
		if a.getMethod >= 0 && a.getOnPtr {
			return v.Method(a.getMethod).Call(nil)[0].Interface()
		}
		v = v.Elem()
	}
	if a.getMethod >= 0 && !a.getOnPtr {
		return v.Method(a.getMethod).Call(nil)[0].Interface()
	}
	return v.FieldByIndex(a.fieldIndex).Interface()
}

// Set writes value into entity's mapped property, which must be a pointer
// to the entity's Go type (setters and direct field writes both require
// addressability).
func (a accessor) Set(entity reflect.Value, value any) {
	if entity.Kind() != reflect.Ptr {
		panic("metadata: accessor.Set requires a pointer to the entity")
	}
	if a.setMethod >= 0 {
		entity.Method(a.setMethod).Call([]reflect.Value{coerce(value, entity.Method(a.setMethod).Type().In(0))})
		return
	}
	field := entity.Elem().FieldByIndex(a.fieldIndex)
	field.Set(coerce(value, field.Type()))
}

func coerce(value any, target reflect.Type) reflect.Value {
	v := reflect.ValueOf(value)
	if !v.IsValid() {
		return reflect.Zero(target)
	}
	if v.Type() == target {
		return v
	}
	if v.Type().ConvertibleTo(target) {
		return v.Convert(target)
	}
	return v
}

// Index describes a named index over one or more fields, optionally unique.
type Index struct {
	Name    string
	Fields  []string
	Unique  bool
}

// EntityDescriptor is the immutable, per-type metadata record built once by
// the Registry and shared read-only across sessions (spec §3, §4.1).
type EntityDescriptor struct {
	ClassName         string
	GoType            reflect.Type
	TableName         string
	RepositoryType    reflect.Type
	AutoIncrementSeed int64

	// Columns, ForeignKeys, and the four Relation maps are disjoint except
	// where a relation shares a property with an owning-side foreign key.
	Columns     map[string]ColumnDescriptor
	columnOrder []string // declaration order, mirrors Columns' insertion order

	ForeignKeys map[string]ForeignKeyDescriptor

	OneToOne   map[string]RelationDescriptor
	OneToMany  map[string]RelationDescriptor
	ManyToOne  map[string]RelationDescriptor
	ManyToMany map[string]RelationDescriptor

	accessors map[string]accessor

	primaryKeyProperty string // "" if composite
	compositeKey       []string
}

// OrderedColumns returns columns in declaration order (spec §3: "Key order
// is insertion order").
func (d *EntityDescriptor) OrderedColumns() []ColumnDescriptor {
	out := make([]ColumnDescriptor, 0, len(d.columnOrder))
	for _, name := range d.columnOrder {
		out = append(out, d.Columns[name])
	}
	return out
}

// PrimaryKey returns the single-column primary key descriptor, or ok=false
// if the entity has a composite key or none at all.
func (d *EntityDescriptor) PrimaryKey() (ColumnDescriptor, bool) {
	if d.primaryKeyProperty == "" {
		return ColumnDescriptor{}, false
	}
	col, ok := d.Columns[d.primaryKeyProperty]
	return col, ok
}

// CompositeKey returns the ordered property names forming a composite
// primary key, or nil if the entity has a single-column key.
func (d *EntityDescriptor) CompositeKey() []string {
	return d.compositeKey
}

// Relation looks a relation up across all four kind-maps, returning the
// kind it was found under.
func (d *EntityDescriptor) Relation(property string) (RelationDescriptor, bool) {
	for _, m := range []map[string]RelationDescriptor{d.OneToOne, d.OneToMany, d.ManyToOne, d.ManyToMany} {
		if r, ok := m[property]; ok {
			return r, true
		}
	}
	return RelationDescriptor{}, false
}

// ColumnByDBName finds a column descriptor by its database column name
// rather than its Go property name.
func (d *EntityDescriptor) ColumnByDBName(column string) (ColumnDescriptor, bool) {
	for _, c := range d.Columns {
		if c.Name == column {
			return c, true
		}
	}
	return ColumnDescriptor{}, false
}

// GetProperty reads property off entity (a pointer to the mapped Go type)
// via its cached accessor. property may name a column or a relation.
func (d *EntityDescriptor) GetProperty(entity any, property string) (any, bool) {
	a, ok := d.accessors[property]
	if !ok {
		return nil, false
	}
	return a.Get(reflect.ValueOf(entity)), true
}

// SetProperty writes value into property on entity (a pointer to the
// mapped Go type) via its cached accessor.
func (d *EntityDescriptor) SetProperty(entity any, property string, value any) bool {
	a, ok := d.accessors[property]
	if !ok {
		return false
	}
	a.Set(reflect.ValueOf(entity), value)
	return true
}

// PrimaryKeyValue reads the current primary key value(s) off entity. For a
// composite key, values are returned in CompositeKey() order.
func (d *EntityDescriptor) PrimaryKeyValue(entity any) []any {
	if d.compositeKey != nil {
		out := make([]any, 0, len(d.compositeKey))
		for _, prop := range d.compositeKey {
			v, _ := d.GetProperty(entity, prop)
			out = append(out, v)
		}
		return out
	}
	v, _ := d.GetProperty(entity, d.primaryKeyProperty)
	return []any{v}
}

// Properties returns every mapped column and relation property name, in no
// particular order.
func (d *EntityDescriptor) Properties() []string {
	out := make([]string, 0, len(d.accessors))
	for name := range d.accessors {
		out = append(out, name)
	}
	return out
}
