package migrate

import (
	"fmt"
	"strings"

	"github.com/rediwo/mysqlorm/metadata"
)

// desiredIndex is one index the descriptor model implies, either a
// single-column key (spec §3 ColumnDescriptor.Key) or a join-table lookup
// index synthesized for a many-to-many relation.
type desiredIndex struct {
	name    string
	columns []string
	unique  bool
}

// desiredForeignKey mirrors metadata.ForeignKeyDescriptor but resolved to
// concrete table/column names, so the reconciler never has to re-resolve a
// ReferencedEntity class name while diffing.
type desiredForeignKey struct {
	constraintName string
	column         string
	refTable       string
	refColumn      string
	onDelete       string
	onUpdate       string
}

// desiredTable is one table the descriptor-implied schema requires to
// exist: either a mapped entity's own table, or a synthesized many-to-many
// join table (spec §3: "ManyToMany: the join table plus the two join
// property names").
type desiredTable struct {
	name        string
	columns     map[string]metadata.ColumnDescriptor // keyed by DB column name
	columnOrder []string
	primaryKey  []string // DB column names, in order
	indexes     []desiredIndex
	foreignKeys []desiredForeignKey
}

func newDesiredTable(name string) *desiredTable {
	return &desiredTable{name: name, columns: make(map[string]metadata.ColumnDescriptor)}
}

func (dt *desiredTable) addColumn(col metadata.ColumnDescriptor) {
	if _, exists := dt.columns[col.Name]; !exists {
		dt.columnOrder = append(dt.columnOrder, col.Name)
	}
	dt.columns[col.Name] = col
}

// buildDesiredSchema derives every table the registry's descriptors imply:
// one per entity, plus one per owning-side many-to-many relation's join
// table. Entity tables are emitted in class-name order (Registry.GetAllDescriptors'
// order) so Plan output is deterministic across runs.
func buildDesiredSchema(registry *metadata.Registry) []*desiredTable {
	descriptors := registry.GetAllDescriptors()
	byClassName := make(map[string]*metadata.EntityDescriptor, len(descriptors))
	for _, d := range descriptors {
		byClassName[d.ClassName] = d
	}

	var tables []*desiredTable
	joinTablesSeen := make(map[string]bool)

	for _, d := range descriptors {
		tables = append(tables, entityDesiredTable(d, byClassName))

		for _, rel := range d.ManyToMany {
			if !rel.OwningSide || joinTablesSeen[rel.JoinTable] {
				continue
			}
			joinTablesSeen[rel.JoinTable] = true
			target, ok := byClassName[rel.TargetEntity]
			if !ok {
				continue
			}
			tables = append(tables, joinDesiredTable(d, rel, target))
		}
	}
	return tables
}

func entityDesiredTable(d *metadata.EntityDescriptor, byClassName map[string]*metadata.EntityDescriptor) *desiredTable {
	dt := newDesiredTable(d.TableName)
	for _, col := range d.OrderedColumns() {
		dt.addColumn(col)
		switch col.Key {
		case metadata.KeyUnique:
			dt.indexes = append(dt.indexes, desiredIndex{name: indexName(d.TableName, col.Name, true), columns: []string{col.Name}, unique: true})
		case metadata.KeyMultiple:
			dt.indexes = append(dt.indexes, desiredIndex{name: indexName(d.TableName, col.Name, false), columns: []string{col.Name}})
		}
	}
	if pk, ok := d.PrimaryKey(); ok {
		dt.primaryKey = []string{pk.Name}
	} else if composite := d.CompositeKey(); len(composite) > 0 {
		for _, prop := range composite {
			dt.primaryKey = append(dt.primaryKey, d.Columns[prop].Name)
		}
	}
	for prop, fk := range d.ForeignKeys {
		column := fk.ReferencedColumn
		if c, ok := d.Columns[prop]; ok {
			column = c.Name
		} else if rel, ok := d.Relation(prop); ok && rel.JoinProperty != "" {
			column = rel.JoinProperty
		} else {
			column = prop + "_id"
		}
		refDesc := byClassName[fk.ReferencedEntity]
		refTable := fk.ReferencedEntity
		if refDesc != nil {
			refTable = refDesc.TableName
		}

		// A ManyToOne/owning-side OneToOne relation has no explicit scalar
		// field backing its FK column — the relation field holds a pointer
		// to the related entity, not the raw key. Synthesize the physical
		// column here (type/length/unsigned mirrored from the referenced
		// primary key) if buildColumn never registered one under this name.
		if _, exists := dt.columns[column]; !exists {
			var refPK metadata.ColumnDescriptor
			if refDesc != nil {
				refPK, _ = refDesc.PrimaryKey()
			}
			dt.addColumn(metadata.ColumnDescriptor{
				Name: column, Type: refPK.Type, Length: refPK.Length,
				Unsigned: refPK.Unsigned, Nullable: fk.Nullable,
			})
		}

		dt.foreignKeys = append(dt.foreignKeys, desiredForeignKey{
			constraintName: fk.ConstraintName,
			column:         column,
			refTable:       refTable,
			refColumn:      fk.ReferencedColumn,
			onDelete:       string(fk.OnDelete),
			onUpdate:       string(fk.OnUpdate),
		})
	}
	return dt
}

// joinDesiredTable synthesizes a many-to-many association table: two
// foreign-key columns (owner's JoinProperty, target's InverseJoin), a
// composite primary key over both so a pair can only be linked once, and a
// secondary index on the inverse column for reverse-direction lookups.
func joinDesiredTable(owner *metadata.EntityDescriptor, rel metadata.RelationDescriptor, target *metadata.EntityDescriptor) *desiredTable {
	ownerPK, _ := owner.PrimaryKey()
	targetPK, _ := target.PrimaryKey()

	dt := newDesiredTable(rel.JoinTable)
	dt.addColumn(metadata.ColumnDescriptor{
		Name: rel.JoinProperty, Type: ownerPK.Type, Length: ownerPK.Length,
		Unsigned: ownerPK.Unsigned, Nullable: false,
	})
	dt.addColumn(metadata.ColumnDescriptor{
		Name: rel.InverseJoin, Type: targetPK.Type, Length: targetPK.Length,
		Unsigned: targetPK.Unsigned, Nullable: false,
	})
	dt.primaryKey = []string{rel.JoinProperty, rel.InverseJoin}
	dt.indexes = append(dt.indexes, desiredIndex{
		name:    indexName(rel.JoinTable, rel.InverseJoin, false),
		columns: []string{rel.InverseJoin},
	})
	dt.foreignKeys = []desiredForeignKey{
		{
			constraintName: joinConstraintName(rel.JoinTable, rel.JoinProperty, owner.TableName),
			column:         rel.JoinProperty, refTable: owner.TableName, refColumn: ownerPK.Name,
			onDelete: "CASCADE", onUpdate: "CASCADE",
		},
		{
			constraintName: joinConstraintName(rel.JoinTable, rel.InverseJoin, target.TableName),
			column:         rel.InverseJoin, refTable: target.TableName, refColumn: targetPK.Name,
			onDelete: "CASCADE", onUpdate: "CASCADE",
		},
	}
	return dt
}

func indexName(table, column string, unique bool) string {
	prefix := "idx"
	if unique {
		prefix = "uq"
	}
	return strings.ToLower(fmt.Sprintf("%s_%s_%s", prefix, table, column))
}

func joinConstraintName(table, column, refTable string) string {
	return strings.ToLower(fmt.Sprintf("fk_%s_%s_%s", table, column, refTable))
}
