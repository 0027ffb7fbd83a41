package migrate

import (
	"context"

	"github.com/rediwo/mysqlorm/driver"
	"github.com/rediwo/mysqlorm/logger"
	"github.com/rediwo/mysqlorm/metadata"
)

// Reconciler computes the DDL plan that transforms the live schema into the
// schema the Metadata Registry implies (spec §4.8). It is grounded on the
// teacher's BaseMigrator.CompareSchema/EnsureSchemaForRegisteredSchemas,
// generalized from per-table, schema.Schema-keyed comparisons to a
// whole-database reconciliation pass over metadata.EntityDescriptor.
type Reconciler struct {
	registry *metadata.Registry
	log      logger.Logger
}

// NewReconciler builds a Reconciler diffing registry's descriptors against
// whatever connection Reconcile is given.
func NewReconciler(registry *metadata.Registry, log logger.Logger) *Reconciler {
	if log == nil {
		log = logger.NewNullLogger()
	}
	return &Reconciler{registry: registry, log: log}
}

// Reconcile introspects conn and returns the ordered Plan reconciling it
// against the registry's desired schema. It never executes anything —
// Apply does. Reconciling an up-to-date schema returns an empty Plan (spec
// §4.8's idempotence property).
func (r *Reconciler) Reconcile(ctx context.Context, conn driver.Connection) (*Plan, error) {
	desiredTables := buildDesiredSchema(r.registry)
	liveTables, err := introspectCurrentSchema(ctx, conn)
	if err != nil {
		return nil, err
	}

	desiredByName := make(map[string]*desiredTable, len(desiredTables))
	for _, dt := range desiredTables {
		desiredByName[dt.name] = dt
	}

	plan := &Plan{}

	for _, dt := range desiredTables {
		live, exists := liveTables[dt.name]
		if !exists {
			plan.CreateTables = append(plan.CreateTables, Operation{
				Kind: OpCreateTable, Table: dt.name,
				SQL: createTableSQLRaw(dt),
			})
			for _, idx := range dt.indexes {
				plan.CreateIndexes = append(plan.CreateIndexes, Operation{
					Kind: OpCreateIndex, Table: dt.name, Detail: idx.name,
					SQL: createIndexSQL(dt.name, idx.name, idx.columns, idx.unique),
				})
			}
			for _, fk := range dt.foreignKeys {
				plan.AddForeignKeys = append(plan.AddForeignKeys, Operation{
					Kind: OpAddForeignKey, Table: dt.name, Detail: fk.constraintName,
					SQL: addForeignKeySQL(dt.name, metadata.ForeignKeyDescriptor{
						ConstraintName: fk.constraintName, ReferencedColumn: fk.refColumn,
						OnDelete: metadata.ReferentialAction(fk.onDelete), OnUpdate: metadata.ReferentialAction(fk.onUpdate),
					}, fk.column, fk.refTable),
				})
			}
			continue
		}
		diffTable(plan, dt, live)
	}

	for name, live := range liveTables {
		if name == HistoryTableName {
			continue
		}
		if _, wanted := desiredByName[name]; wanted {
			continue
		}
		for _, fk := range live.foreignKeys {
			plan.DropForeignKeys = append(plan.DropForeignKeys, Operation{
				Kind: OpDropForeignKey, Table: name, Detail: fk.ConstraintName,
				SQL: dropForeignKeySQL(name, fk.ConstraintName),
			})
		}
		plan.DropTables = append(plan.DropTables, Operation{
			Kind: OpDropTable, Table: name, SQL: dropTableSQL(name),
		})
	}

	return plan, nil
}

