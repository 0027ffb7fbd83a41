package uow

import (
	"context"
	"time"

	"github.com/rediwo/mysqlorm/driver"
	"github.com/rediwo/mysqlorm/logger"
	"github.com/rediwo/mysqlorm/ormerr"
	"github.com/rediwo/mysqlorm/query"
	"github.com/rediwo/mysqlorm/session"
)

// Planner drives one Session's flush: classification, insert-order
// topological sort, batching, many-to-many delta computation, and
// transactional execution in the phase order of spec §4.7 step 6.
type Planner struct {
	factory *query.Factory
	caps    driver.Capabilities
	log     logger.Logger
	options Options
}

// NewPlanner builds a Planner rendering statements through factory and
// executing them against connections advertising caps.
func NewPlanner(factory *query.Factory, caps driver.Capabilities, log logger.Logger, options Options) *Planner {
	return &Planner{factory: factory, caps: caps, log: log, options: options}
}

// Flush computes and executes sess's pending change programme against
// conn inside one transaction, committing on success and rolling back
// entirely on the first failure. A nil return with no statements executed
// means sess had nothing pending.
func (p *Planner) Flush(ctx context.Context, sess *session.Session, conn driver.Connection) error {
	news, dirty, changeSets, deletes := classify(sess)

	// Many-to-many collection edits never make an otherwise-unchanged
	// entity's ChangeSet non-empty (spec §4.6 tracks scalar and owning-FK
	// properties only), so link deltas are computed over every live tracked
	// entity, not just the dirty bucket.
	var collectionOwners []*session.ManagedEntity
	for _, me := range sess.Tracked() {
		if me.State == session.New || me.State == session.Managed {
			collectionOwners = append(collectionOwners, me)
		}
	}
	links, unlinks := computeLinkDeltas(collectionOwners)

	if len(news) == 0 && len(dirty) == 0 && len(deletes) == 0 && len(links) == 0 && len(unlinks) == 0 {
		return nil
	}

	insertRows, err := topoSortInserts(news, sess)
	if err != nil {
		return err
	}
	batches := batchInserts(insertRows, p.options.batchSize())
	orderedDeletes := sortDeletesByDependency(deletes)

	tx, err := conn.Begin(ctx)
	if err != nil {
		return ormerr.Wrap(ormerr.ConnectionLost, err, "flush: begin transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := p.runInsertPhase(ctx, tx, sess, batches); err != nil {
		return err
	}
	if err := p.runDeferredUpdatePhase(ctx, tx, sess, insertRows); err != nil {
		return err
	}
	if err := p.runUpdatePhase(ctx, tx, sess, dirty, changeSets); err != nil {
		return err
	}
	if err := p.runLinkPhase(ctx, tx, sess, unlinks, execUnlink, "unlink"); err != nil {
		return err
	}
	if err := p.runLinkPhase(ctx, tx, sess, links, execLink, "link"); err != nil {
		return err
	}
	if err := p.runDeletePhase(ctx, tx, sess, orderedDeletes); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return ormerr.Wrap(ormerr.ConnectionLost, err, "flush: commit transaction")
	}
	committed = true
	return nil
}

func (p *Planner) savepoint(ctx context.Context, tx driver.Transaction, name string) func(failed *bool) {
	if !p.caps.SupportsSavepoints {
		return func(*bool) {}
	}
	if err := tx.Savepoint(ctx, name); err != nil {
		p.log.Warn("flush: savepoint %s failed: %v", name, err)
		return func(*bool) {}
	}
	return func(failed *bool) {
		if *failed {
			_ = tx.RollbackToSavepoint(ctx, name)
		} else {
			_ = tx.ReleaseSavepoint(ctx, name)
		}
	}
}

func (p *Planner) runInsertPhase(ctx context.Context, tx driver.Transaction, sess *session.Session, batches []insertBatch) error {
	if len(batches) == 0 {
		return nil
	}
	start := time.Now()
	failed := true
	release := p.savepoint(ctx, tx, "uow_insert")
	defer func() { release(&failed) }()

	statementCount := 0
	for _, batch := range batches {
		ib, err := p.factory.Insert(batch.rows[0].entity.Entity)
		if err != nil {
			return err
		}
		for _, row := range batch.rows {
			values, err := resolveInsertValues(sess, row)
			if err != nil {
				return err
			}
			ib = ib.Values(values)
		}
		sql, args, err := ib.ToSQL()
		if err != nil {
			return err
		}
		stmtStart := time.Now()
		result, err := tx.Exec(ctx, sql, args...)
		p.log.LogSQL(sql, args, time.Since(stmtStart))
		if err != nil {
			return ormerr.Wrap(ormerr.IntegrityViolation, err, "insert into %s", batch.tableName).WithSQL(sql, args)
		}
		statementCount++

		d := batch.rows[0].entity.Descriptor
		if pk, ok := d.PrimaryKey(); ok && pk.AutoIncrement {
			for i, row := range batch.rows {
				sess.AssignKey(row.entity, result.LastInsertID+int64(i))
			}
		} else {
			for _, row := range batch.rows {
				sess.AssignKey(row.entity, 0)
			}
		}
	}

	failed = false
	p.log.LogPhase("insert", statementCount, time.Since(start))
	return nil
}

// runDeferredUpdatePhase patches every owning foreign key nulled out to
// break an insert cycle, now that its target has an assigned key (spec
// §4.7 step 4).
func (p *Planner) runDeferredUpdatePhase(ctx context.Context, tx driver.Transaction, sess *session.Session, rows []insertRow) error {
	pending := 0
	for _, row := range rows {
		if len(row.deferred) > 0 {
			pending++
		}
	}
	if pending == 0 {
		return nil
	}

	start := time.Now()
	failed := true
	release := p.savepoint(ctx, tx, "uow_deferred_update")
	defer func() { release(&failed) }()

	statementCount := 0
	for _, row := range rows {
		if len(row.deferred) == 0 {
			continue
		}
		d := row.entity.Descriptor
		ub, err := p.factory.Update(row.entity.Entity)
		if err != nil {
			return err
		}
		for _, prop := range row.deferred {
			related, _ := d.GetProperty(row.entity.Entity, prop)
			pk, err := relatedPrimaryKey(sess, d, prop, related)
			if err != nil {
				return err
			}
			ub = ub.Set(prop, pk)
		}
		ub = ub.Where(pkCondition(d, row.entity.Entity))

		if err := p.execUpdate(ctx, tx, ub); err != nil {
			return err
		}
		statementCount++
	}

	failed = false
	p.log.LogPhase("deferred_update", statementCount, time.Since(start))
	return nil
}

func (p *Planner) runUpdatePhase(ctx context.Context, tx driver.Transaction, sess *session.Session, dirty []*session.ManagedEntity, changeSets map[*session.ManagedEntity]*session.ChangeSet) error {
	if len(dirty) == 0 {
		return nil
	}

	start := time.Now()
	failed := true
	release := p.savepoint(ctx, tx, "uow_update")
	defer func() { release(&failed) }()

	statementCount := 0
	for _, me := range dirty {
		cs := changeSets[me]
		values, err := updateSetMap(sess, me.Descriptor, cs)
		if err != nil {
			return err
		}
		if len(values) == 0 {
			continue
		}
		ub, err := p.factory.Update(me.Entity)
		if err != nil {
			return err
		}
		ub = ub.SetMap(values).Where(pkCondition(me.Descriptor, me.Entity))

		if err := p.execUpdate(ctx, tx, ub); err != nil {
			return err
		}
		sess.Refresh(me)
		statementCount++
	}

	failed = false
	p.log.LogPhase("update", statementCount, time.Since(start))
	return nil
}

func (p *Planner) execUpdate(ctx context.Context, tx driver.Transaction, ub *query.UpdateBuilder) error {
	sql, args, err := ub.ToSQL()
	if err != nil {
		return err
	}
	start := time.Now()
	_, err = tx.Exec(ctx, sql, args...)
	p.log.LogSQL(sql, args, time.Since(start))
	if err != nil {
		return ormerr.Wrap(ormerr.IntegrityViolation, err, "update").WithSQL(sql, args)
	}
	return nil
}

func (p *Planner) runLinkPhase(ctx context.Context, tx driver.Transaction, sess *session.Session, deltas []linkDelta, exec func(context.Context, driver.Connection, joinGroup) (driver.AffectedRows, error), phase string) error {
	if len(deltas) == 0 {
		return nil
	}
	groups, err := groupLinkDeltas(sess, deltas)
	if err != nil {
		return err
	}

	start := time.Now()
	failed := true
	release := p.savepoint(ctx, tx, "uow_"+phase)
	defer func() { release(&failed) }()

	statementCount := 0
	for _, g := range groups {
		if _, err := exec(ctx, tx, g); err != nil {
			return ormerr.Wrap(ormerr.IntegrityViolation, err, "%s join table %s", phase, g.table)
		}
		statementCount++
	}

	failed = false
	p.log.LogPhase(phase, statementCount, time.Since(start))
	return nil
}

func (p *Planner) runDeletePhase(ctx context.Context, tx driver.Transaction, sess *session.Session, deletes []*session.ManagedEntity) error {
	if len(deletes) == 0 {
		return nil
	}

	start := time.Now()
	failed := true
	release := p.savepoint(ctx, tx, "uow_delete")
	defer func() { release(&failed) }()

	statementCount := 0
	for _, me := range deletes {
		db, err := p.factory.Delete(me.Entity)
		if err != nil {
			return err
		}
		db = db.Where(pkCondition(me.Descriptor, me.Entity))
		sql, args, err := db.ToSQL()
		if err != nil {
			return err
		}
		stmtStart := time.Now()
		_, err = tx.Exec(ctx, sql, args...)
		p.log.LogSQL(sql, args, time.Since(stmtStart))
		if err != nil {
			return ormerr.Wrap(ormerr.IntegrityViolation, err, "delete %s", me.Descriptor.ClassName).WithSQL(sql, args)
		}
		sess.Detach(me)
		statementCount++
	}

	failed = false
	p.log.LogPhase("delete", statementCount, time.Since(start))
	return nil
}
