package query

import (
	"reflect"

	"github.com/rediwo/mysqlorm/metadata"
	"github.com/rediwo/mysqlorm/ormerr"
)

// Factory dispenses the four concrete sub-builders plus a raw-SQL adapter,
// all consulting the same metadata.Registry to resolve entity descriptors
// (spec §4.4).
type Factory struct {
	registry *metadata.Registry
}

// NewFactory builds a Factory bound to registry.
func NewFactory(registry *metadata.Registry) *Factory {
	return &Factory{registry: registry}
}

func (f *Factory) describe(entity any) (*metadata.EntityDescriptor, error) {
	t := reflect.TypeOf(entity)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return f.registry.Describe(t)
}

// Select starts a SELECT builder against entity's table, defaulting its
// alias to the table name.
func (f *Factory) Select(entity any) (*SelectBuilder, error) {
	d, err := f.describe(entity)
	if err != nil {
		return nil, err
	}
	return newSelectBuilder(d), nil
}

// Insert starts an INSERT builder against entity's table.
func (f *Factory) Insert(entity any) (*InsertBuilder, error) {
	d, err := f.describe(entity)
	if err != nil {
		return nil, err
	}
	return newInsertBuilder(d), nil
}

// Update starts an UPDATE builder against entity's table.
func (f *Factory) Update(entity any) (*UpdateBuilder, error) {
	d, err := f.describe(entity)
	if err != nil {
		return nil, err
	}
	return newUpdateBuilder(d), nil
}

// Delete starts a DELETE builder against entity's table.
func (f *Factory) Delete(entity any) (*DeleteBuilder, error) {
	d, err := f.describe(entity)
	if err != nil {
		return nil, err
	}
	return newDeleteBuilder(d), nil
}

// Raw wraps a hand-written SQL string with positional or named
// placeholders resolved against args.
func (f *Factory) Raw(sql string, args ...any) *RawBuilder {
	return &RawBuilder{sql: sql, args: args}
}

// Aggregate starts an aggregation query builder against entity's table
// (spec's supplemented aggregation-query feature).
func (f *Factory) Aggregate(entity any) (*AggregateBuilder, error) {
	d, err := f.describe(entity)
	if err != nil {
		return nil, err
	}
	return newAggregateBuilder(d), nil
}

// resolveColumn maps a struct property name to its database column name,
// failing with ormerr.UnknownColumn if the entity has no such property.
func resolveColumn(d *metadata.EntityDescriptor, property string) (string, error) {
	if col, ok := d.Columns[property]; ok {
		return col.Name, nil
	}
	if fk, ok := d.ForeignKeys[property]; ok {
		return columnOrDefault(d, property, fk.PropertyName), nil
	}
	return "", ormerr.New(ormerr.UnknownColumn, "%s has no column or relation %q", d.ClassName, property).WithEntity(d.ClassName, nil)
}

func columnOrDefault(d *metadata.EntityDescriptor, property, fallback string) string {
	if rel, ok := d.Relation(property); ok && rel.JoinProperty != "" {
		return rel.JoinProperty
	}
	return fallback + "_id"
}
