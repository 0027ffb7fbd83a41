package migrate

import (
	"context"
	"time"

	"github.com/rediwo/mysqlorm/driver"
	"github.com/rediwo/mysqlorm/logger"
	"github.com/rediwo/mysqlorm/ormerr"
)

// Apply executes every operation in plan against conn, in the phase order
// Plan.Operations returns (spec §4.8's mandated ordering), and records the
// plan in the history table on success. MySQL DDL statements each carry an
// implicit commit, so — unlike uow.Planner.Flush — there is no outer
// transaction to roll back on a mid-plan failure; Apply instead stops at
// the first failing statement and reports exactly how far it got, grounded
// on the teacher's BaseMigrator.EnsureSchemaForRegisteredSchemas applying
// one statement at a time and returning on the first error.
func Apply(ctx context.Context, conn driver.Connection, plan *Plan, history *History, name string, log logger.Logger) error {
	if log == nil {
		log = logger.NewNullLogger()
	}
	if plan.IsEmpty() {
		return nil
	}

	if err := history.Ensure(ctx); err != nil {
		return err
	}

	ops := plan.Operations()
	start := time.Now()
	for i, op := range ops {
		stmtStart := time.Now()
		_, err := conn.Exec(ctx, op.SQL)
		log.LogSQL(op.SQL, nil, time.Since(stmtStart))
		if err != nil {
			return ormerr.Wrap(ormerr.MigrationConflict, err,
				"apply migration: operation %d/%d (%s) failed", i+1, len(ops), op).WithSQL(op.SQL, nil)
		}
	}
	log.LogPhase("migrate", len(ops), time.Since(start))

	checksum := ChecksumPlan(plan)
	if _, err := history.Record(ctx, name, checksum); err != nil {
		return err
	}
	return nil
}
