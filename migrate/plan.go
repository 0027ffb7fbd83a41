// Package migrate implements the Schema Reconciler of spec §4.8: it
// introspects the live database through the driver's narrow introspection
// surface, compares the result against the Metadata Registry's
// descriptor-implied desired schema, and emits an ordered list of DDL
// operations that reconciles the two. The teacher's migration/ package
// stops at table-level create/drop and leaves column, index, and foreign
// key diffing as a "// TODO" (migration/differ.go, migration/base_migrator.go);
// this package completes that diff and generalizes it from the teacher's
// schema.Schema/types.TableInfo model to metadata.EntityDescriptor.
package migrate

import (
	"fmt"
)

// OperationKind enumerates the DDL operation vocabulary of spec §6.3.
type OperationKind string

const (
	OpCreateTable     OperationKind = "CREATE_TABLE"
	OpDropTable       OperationKind = "DROP_TABLE"
	OpAddColumn       OperationKind = "ADD_COLUMN"
	OpModifyColumn    OperationKind = "MODIFY_COLUMN"
	OpDropColumn      OperationKind = "DROP_COLUMN"
	OpCreateIndex     OperationKind = "CREATE_INDEX"
	OpDropIndex       OperationKind = "DROP_INDEX"
	OpAddForeignKey   OperationKind = "ADD_FOREIGN_KEY"
	OpDropForeignKey  OperationKind = "DROP_FOREIGN_KEY"
	OpSetAutoIncrement OperationKind = "SET_AUTO_INCREMENT"
)

// Operation is one DDL statement the Plan will execute, already rendered
// to final SQL text (spec §6.3's MySQL-compatible grammar).
type Operation struct {
	Kind      OperationKind
	Table     string
	Detail    string // column/index/constraint name, for logging and `migrate status`
	SQL       string
}

func (o Operation) String() string {
	return fmt.Sprintf("%s %s%s", o.Kind, o.Table, detailSuffix(o.Detail))
}

func detailSuffix(detail string) string {
	if detail == "" {
		return ""
	}
	return "." + detail
}

// Plan is the fully ordered DDL programme produced by Reconciler.Reconcile,
// grouped into the phases spec §4.8 mandates: drop FKs, drop indexes, drop
// columns, drop tables, create tables (without FKs), add columns, modify
// columns, create indexes, add FKs. Phases execute in that order because
// later phases may depend on earlier ones having already run (e.g. a column
// must exist before an index over it can be created), and earlier drop
// phases must clear constraints before the structures they reference are
// removed.
type Plan struct {
	DropForeignKeys []Operation
	DropIndexes     []Operation
	DropColumns     []Operation
	DropTables      []Operation
	CreateTables    []Operation
	AddColumns      []Operation
	ModifyColumns   []Operation
	CreateIndexes   []Operation
	AddForeignKeys  []Operation
}

// Operations flattens the plan into its mandated execution order.
func (p *Plan) Operations() []Operation {
	var out []Operation
	out = append(out, p.DropForeignKeys...)
	out = append(out, p.DropIndexes...)
	out = append(out, p.DropColumns...)
	out = append(out, p.DropTables...)
	out = append(out, p.CreateTables...)
	out = append(out, p.AddColumns...)
	out = append(out, p.ModifyColumns...)
	out = append(out, p.CreateIndexes...)
	out = append(out, p.AddForeignKeys...)
	return out
}

// IsEmpty reports whether the plan has nothing to do — reconciling an
// up-to-date schema must yield true (spec §4.8's idempotence property).
func (p *Plan) IsEmpty() bool {
	return len(p.DropForeignKeys) == 0 &&
		len(p.DropIndexes) == 0 &&
		len(p.DropColumns) == 0 &&
		len(p.DropTables) == 0 &&
		len(p.CreateTables) == 0 &&
		len(p.AddColumns) == 0 &&
		len(p.ModifyColumns) == 0 &&
		len(p.CreateIndexes) == 0 &&
		len(p.AddForeignKeys) == 0
}
