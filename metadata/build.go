package metadata

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/rediwo/mysqlorm/ormerr"
)

var entityMarkerType = reflect.TypeOf(Entity{})

func findMarkerField(t reflect.Type) (reflect.StructField, bool) {
	if t.Kind() != reflect.Struct {
		return reflect.StructField{}, false
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Type == entityMarkerType {
			return f, true
		}
	}
	return reflect.StructField{}, false
}

func defaultConstraintName(table, column, refTable string) string {
	return strings.ToLower(fmt.Sprintf("fk_%s_%s_%s", table, column, refTable))
}

// build reflects t into a fresh EntityDescriptor. The caller holds no lock
// during this call; concurrent builds of distinct types proceed in
// parallel, and cyclic references resolve through Registry.Describe's stub
// mechanism.
func (r *Registry) build(t reflect.Type) (*EntityDescriptor, error) {
	marker, ok := findMarkerField(t)
	if !ok {
		return nil, ormerr.New(ormerr.UnknownEntity, "%s has no embedded metadata.Entity marker", t.Name())
	}

	d := &EntityDescriptor{
		ClassName:   t.Name(),
		GoType:      t,
		TableName:   DefaultTableName(t.Name()),
		Columns:     make(map[string]ColumnDescriptor),
		ForeignKeys: make(map[string]ForeignKeyDescriptor),
		OneToOne:    make(map[string]RelationDescriptor),
		OneToMany:   make(map[string]RelationDescriptor),
		ManyToOne:   make(map[string]RelationDescriptor),
		ManyToMany:  make(map[string]RelationDescriptor),
		accessors:   make(map[string]accessor),
	}

	entityTokens := parseTag(marker.Tag.Get("orm"))
	if v, ok := tagValue(entityTokens, "table"); ok {
		d.TableName = v
	}
	if v, ok := tagValue(entityTokens, "autoincrement"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, ormerr.New(ormerr.MappingError, "%s: invalid autoincrement seed %q", d.ClassName, v)
		}
		d.AutoIncrementSeed = n
	}
	if v, ok := tagValue(entityTokens, "compositekey"); ok {
		d.compositeKey = strings.Split(v, "|")
	}
	if v, ok := tagValue(entityTokens, "repository"); ok {
		_ = v // repository binding is a name only in this core; resolved by the caller's DI
	}

	seenColumns := make(map[string]string) // db column name -> property, to catch duplicates

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Type == entityMarkerType {
			continue
		}
		if !f.IsExported() {
			continue
		}
		raw, tagged := f.Tag.Lookup("orm")
		if !tagged {
			continue
		}
		tokens := parseTag(raw)

		if _, isRelation := tagValue(tokens, "relation"); isRelation {
			if err := r.addRelation(d, f, tokens); err != nil {
				return nil, err
			}
			continue
		}

		if err := validateKeys(tokens, knownColumnKeys, d.ClassName, f.Name); err != nil {
			return nil, err
		}
		col, err := buildColumn(d.ClassName, f, tokens)
		if err != nil {
			return nil, err
		}
		if prior, dup := seenColumns[col.Name]; dup {
			return nil, ormerr.New(ormerr.MappingError,
				"%s: columns %s and %s both map to database column %q", d.ClassName, prior, f.Name, col.Name)
		}
		seenColumns[col.Name] = f.Name

		if col.Key == KeyPrimary {
			if d.primaryKeyProperty != "" {
				return nil, ormerr.New(ormerr.MappingError, "%s: more than one primary key column", d.ClassName)
			}
			d.primaryKeyProperty = f.Name
		}

		d.Columns[f.Name] = col
		d.columnOrder = append(d.columnOrder, f.Name)
		d.accessors[f.Name] = resolveAccessor(t, f, tokens)
	}

	if d.primaryKeyProperty == "" && len(d.compositeKey) == 0 {
		return nil, ormerr.New(ormerr.MappingError, "%s: no primary key declared", d.ClassName)
	}
	for _, p := range d.compositeKey {
		if _, ok := d.Columns[p]; !ok {
			return nil, ormerr.New(ormerr.MappingError, "%s: composite key field %q not found", d.ClassName, p)
		}
	}

	return d, nil
}

func buildColumn(className string, f reflect.StructField, tokens []tagToken) (ColumnDescriptor, error) {
	col := ColumnDescriptor{
		PropertyName: f.Name,
		Name:         f.Name,
		Nullable:     true,
	}
	if v, ok := tagValue(tokens, "column"); ok {
		col.Name = v
	}
	if v, ok := tagValue(tokens, "type"); ok {
		ct, err := NormalizeColumnType(v)
		if err != nil {
			return col, ormerr.New(ormerr.MappingError, "%s.%s: %v", className, f.Name, err)
		}
		col.Type = ct
	} else {
		col.Type = inferColumnType(f.Type)
	}
	if n, ok := tagInt(tokens, "length"); ok {
		col.Length = n
	}
	if n, ok := tagInt(tokens, "scale"); ok {
		col.Scale = n
	}
	col.Unsigned = tagFlag(tokens, "unsigned")
	if v, ok := tagValue(tokens, "nullable"); ok {
		col.Nullable = v != "false"
	}
	if tagFlag(tokens, "notnull") {
		col.Nullable = false
	}
	if v, ok := tagValue(tokens, "default"); ok {
		col.Default = v
	}
	if v, ok := tagValue(tokens, "extra"); ok {
		col.Extra = v
	}
	if v, ok := tagValue(tokens, "choices"); ok {
		col.Choices = strings.Split(v, "|")
	}
	col.Key = KeyNone
	if v, ok := tagValue(tokens, "key"); ok {
		col.Key = KeyRole(v)
	}
	if tagFlag(tokens, "pk") {
		col.Key = KeyPrimary
		col.Nullable = false
	}
	if tagFlag(tokens, "unique") && col.Key == KeyNone {
		col.Key = KeyUnique
	}
	if tagFlag(tokens, "autoincrement") {
		col.AutoIncrement = true
		if col.Extra == "" {
			col.Extra = "auto_increment"
		}
	}
	return col, nil
}

func inferColumnType(t reflect.Type) ColumnType {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch {
	case t == reflect.TypeOf(time.Time{}):
		return ColumnDateTime
	case t == reflect.TypeOf([]byte(nil)):
		return ColumnBlob
	}
	switch t.Kind() {
	case reflect.String:
		return ColumnVarChar
	case reflect.Int8, reflect.Int16:
		return ColumnSmallInt
	case reflect.Int32:
		return ColumnInt
	case reflect.Int, reflect.Int64:
		return ColumnBigInt
	case reflect.Uint8, reflect.Uint16:
		return ColumnSmallInt
	case reflect.Uint32:
		return ColumnInt
	case reflect.Uint, reflect.Uint64:
		return ColumnBigInt
	case reflect.Float32:
		return ColumnFloat
	case reflect.Float64:
		return ColumnDouble
	case reflect.Bool:
		return ColumnBoolean
	case reflect.Map, reflect.Slice, reflect.Struct:
		return ColumnJSON
	default:
		return ColumnVarChar
	}
}

func resolveAccessor(t reflect.Type, f reflect.StructField, tokens []tagToken) accessor {
	a := accessor{fieldIndex: f.Index, getMethod: -1, setMethod: -1}
	ptrType := reflect.PtrTo(t)
	if name, ok := tagValue(tokens, "getter"); ok {
		if m, ok := t.MethodByName(name); ok {
			a.getMethod = m.Index
			a.getOnPtr = false
		} else if m, ok := ptrType.MethodByName(name); ok {
			a.getMethod = m.Index
			a.getOnPtr = true
		}
	}
	if name, ok := tagValue(tokens, "setter"); ok {
		if m, ok := ptrType.MethodByName(name); ok {
			a.setMethod = m.Index
		}
	}
	return a
}

// addRelation classifies and records a OneToOne/OneToMany/ManyToOne/
// ManyToMany property, deriving its FK descriptor when it is the owning
// side (spec §4.1 step 5 and §3's "relations may share a property with a
// foreignKey when the relation is owning-side").
func (r *Registry) addRelation(d *EntityDescriptor, f reflect.StructField, tokens []tagToken) error {
	if err := validateKeys(tokens, knownRelationKeys, d.ClassName, f.Name); err != nil {
		return err
	}
	kindStr, _ := tagValue(tokens, "relation")
	kind := RelationKind(kindStr)

	targetType, isSlice := relationTargetType(f.Type)
	if targetType == nil {
		return ormerr.New(ormerr.MappingError, "%s.%s: relation field must be a pointer or slice of pointer to a struct", d.ClassName, f.Name)
	}
	switch kind {
	case RelationOneToMany, RelationManyToMany:
		if !isSlice {
			return ormerr.New(ormerr.MappingError, "%s.%s: %s relation must be a slice", d.ClassName, f.Name, kind)
		}
	case RelationOneToOne, RelationManyToOne:
		if isSlice {
			return ormerr.New(ormerr.MappingError, "%s.%s: %s relation must not be a slice", d.ClassName, f.Name, kind)
		}
	default:
		return ormerr.New(ormerr.MappingError, "%s.%s: unknown relation kind %q", d.ClassName, f.Name, kindStr)
	}

	target, err := r.Describe(targetType)
	if err != nil {
		return ormerr.New(ormerr.MappingError, "%s.%s: target entity invalid: %v", d.ClassName, f.Name, err)
	}

	rel := RelationDescriptor{
		PropertyName: f.Name,
		Kind:         kind,
		TargetEntity: target.ClassName,
	}
	if v, ok := tagValue(tokens, "mappedby"); ok {
		rel.MappedBy = v
	}
	if v, ok := tagValue(tokens, "cascade"); ok {
		for _, c := range strings.Split(v, "|") {
			switch c {
			case "persist":
				rel.CascadePersist = true
			case "remove":
				rel.CascadeRemove = true
			}
		}
	}
	rel.OwningSide = rel.MappedBy == ""

	switch kind {
	case RelationOneToMany:
		if rel.MappedBy == "" {
			return ormerr.New(ormerr.MappingError, "%s.%s: oneToMany requires mappedBy", d.ClassName, f.Name)
		}
		d.OneToMany[f.Name] = rel
	case RelationManyToMany:
		rel.JoinTable = defaultJoinTable(d.TableName, target.TableName)
		if v, ok := tagValue(tokens, "jointable"); ok {
			rel.JoinTable = v
		}
		rel.JoinProperty = CamelToSnakeCase(d.ClassName) + "_id"
		if v, ok := tagValue(tokens, "joinproperty"); ok {
			rel.JoinProperty = v
		}
		rel.InverseJoin = CamelToSnakeCase(target.ClassName) + "_id"
		if v, ok := tagValue(tokens, "inversejoin"); ok {
			rel.InverseJoin = v
		}
		d.ManyToMany[f.Name] = rel
	case RelationOneToOne:
		d.OneToOne[f.Name] = rel
		if rel.OwningSide {
			fk, err := buildRelationFK(d, f, tokens, target, true)
			if err != nil {
				return err
			}
			d.ForeignKeys[f.Name] = fk
		}
	case RelationManyToOne:
		d.ManyToOne[f.Name] = rel
		fk, err := buildRelationFK(d, f, tokens, target, false)
		if err != nil {
			return err
		}
		d.ForeignKeys[f.Name] = fk
	}
	d.accessors[f.Name] = resolveAccessor(d.GoType, f, tokens)
	return nil
}

func buildRelationFK(d *EntityDescriptor, f reflect.StructField, tokens []tagToken, target *EntityDescriptor, nullableDefault bool) (ForeignKeyDescriptor, error) {
	fk := ForeignKeyDescriptor{
		PropertyName:     f.Name,
		ReferencedEntity: target.ClassName,
		ReferencedColumn: "id",
		OnDelete:         ActionRestrict,
		OnUpdate:         ActionCascade,
		Nullable:         nullableDefault,
	}
	if pk, ok := target.PrimaryKey(); ok {
		fk.ReferencedColumn = pk.Name
	}
	if v, ok := tagValue(tokens, "ondelete"); ok {
		fk.OnDelete = ReferentialAction(strings.ToUpper(v))
	}
	if v, ok := tagValue(tokens, "onupdate"); ok {
		fk.OnUpdate = ReferentialAction(strings.ToUpper(v))
	}
	if v, ok := tagValue(tokens, "nullable"); ok {
		fk.Nullable = v != "false"
	}
	if v, ok := tagValue(tokens, "fkname"); ok {
		fk.ConstraintName = v
	}
	return fk, nil
}

func defaultJoinTable(a, b string) string {
	names := []string{a, b}
	if names[0] > names[1] {
		names[0], names[1] = names[1], names[0]
	}
	return names[0] + "_" + names[1]
}

func relationTargetType(t reflect.Type) (reflect.Type, bool) {
	if t.Kind() == reflect.Slice {
		elem := t.Elem()
		if elem.Kind() == reflect.Ptr && elem.Elem().Kind() == reflect.Struct {
			return elem.Elem(), true
		}
		if elem.Kind() == reflect.Struct {
			return elem, true
		}
		return nil, true
	}
	if t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct {
		return t.Elem(), false
	}
	return nil, false
}
