// Package orm is the Session/EntityManager Facade (spec §4.9): the one
// entry point application code constructs and calls. It owns no business
// logic of its own — every method delegates to session.Session,
// uow.Planner, or query.Factory and only enforces the facade-level
// invariants spec.md §4.9 names (one active transaction, one identity
// map per Clear()).
//
// Grounded on the teacher's orm/orm.go + orm/client.go for the shape of a
// single top-level handle wrapping a connection and exposing CRUD plus
// transaction control, generalized from the teacher's JS-scripting client
// to a plain Go API with no goja dependency (this core has no
// script-embedding surface).
package orm

import (
	"context"

	"github.com/rediwo/mysqlorm/driver"
	"github.com/rediwo/mysqlorm/logger"
	"github.com/rediwo/mysqlorm/metadata"
	"github.com/rediwo/mysqlorm/ormerr"
	"github.com/rediwo/mysqlorm/query"
	"github.com/rediwo/mysqlorm/session"
	"github.com/rediwo/mysqlorm/uow"
)

// EntityManager is the thin facade of spec §4.9: find, persist, remove,
// merge, clear, flush, explicit transaction control, repository lookup,
// query-builder access, and raw SQL execution.
type EntityManager struct {
	registry *metadata.Registry
	factory  *query.Factory
	conn     driver.Connection
	planner  *uow.Planner
	log      logger.Logger

	sess *session.Session
	tx   driver.Transaction
}

// Open opens a connection through drv and returns a ready EntityManager.
// The caller owns the returned manager's lifetime and must call Close.
func Open(ctx context.Context, drv driver.Driver, cfg driver.Config, registry *metadata.Registry, opts uow.Options, log logger.Logger) (*EntityManager, error) {
	conn, err := drv.Open(ctx, cfg)
	if err != nil {
		return nil, ormerr.Wrap(ormerr.ConnectionLost, err, "open connection")
	}
	return New(conn, drv.Capabilities(), registry, opts, log), nil
}

// New builds an EntityManager over an already-open connection, for
// callers that manage the driver.Driver lifecycle themselves (e.g. a CLI
// sharing one connection across several subcommands).
func New(conn driver.Connection, caps driver.Capabilities, registry *metadata.Registry, opts uow.Options, log logger.Logger) *EntityManager {
	if log == nil {
		log = logger.NewNullLogger()
	}
	factory := query.NewFactory(registry)
	return &EntityManager{
		registry: registry,
		factory:  factory,
		conn:     conn,
		planner:  uow.NewPlanner(factory, caps, log, opts),
		log:      log,
		sess:     session.New(registry, factory, conn, log),
	}
}

// activeConn returns the explicit transaction when one is open, otherwise
// the base connection — the surface ExecuteRaw and CreateQueryBuilder
// execute statements against.
func (em *EntityManager) activeConn() driver.Connection {
	if em.tx != nil {
		return em.tx
	}
	return em.conn
}

// Find looks an entity up by primary key, per session.Session.Find.
func (em *EntityManager) Find(ctx context.Context, entityTemplate any, key any) (any, error) {
	return em.sess.Find(ctx, entityTemplate, key)
}

// Persist schedules entity for insertion (or marks it managed if already
// tracked), cascading to owned relations per session.Session.Persist.
func (em *EntityManager) Persist(entity any) error {
	return em.sess.Persist(entity)
}

// Remove schedules entity for deletion on the next Flush.
func (em *EntityManager) Remove(entity any) error {
	return em.sess.Remove(entity)
}

// Merge re-attaches a detached entity: it loads (or reuses) the managed
// instance with the same identity and copies entity's current property
// values onto it, returning the managed instance. Relation properties are
// copied by reference rather than recursively merged — a caller that
// needs a related entity's own detached edits applied must Merge it
// separately first.
func (em *EntityManager) Merge(ctx context.Context, entity any) (any, error) {
	d, err := em.registry.Describe(entityTypeOf(entity))
	if err != nil {
		return nil, err
	}
	key := d.PrimaryKeyValue(entity)
	managed, err := em.sess.Find(ctx, entity, key)
	if err != nil {
		return nil, err
	}
	if managed == nil {
		if err := em.sess.Persist(entity); err != nil {
			return nil, err
		}
		return entity, nil
	}
	for _, prop := range d.Properties() {
		if v, ok := d.GetProperty(entity, prop); ok {
			d.SetProperty(managed, prop, v)
		}
	}
	return managed, nil
}

// Clear detaches every entity this manager is tracking, starting a fresh
// identity map over the same connection. Pending changes not yet flushed
// are discarded from tracking (they were never written).
func (em *EntityManager) Clear() {
	em.sess = session.New(em.registry, em.factory, em.conn, em.log)
}

// Flush computes and executes the pending change programme (spec §4.7).
// It is an error to call Flush while an explicit transaction (
// BeginTransaction) is open: the flush planner owns its own transaction
// boundary and cannot be nested inside one the caller is also holding
// open — this is a deliberate simplification over a full nested-
// transaction facade (spec §9's open question on nested semantics is left
// to a single flush-owned transaction per call).
func (em *EntityManager) Flush(ctx context.Context) error {
	if em.tx != nil {
		return ormerr.New(ormerr.IllegalStateTransition, "flush: cannot flush while an explicit transaction is open")
	}
	return em.planner.Flush(ctx, em.sess, em.conn)
}

// BeginTransaction opens an explicit transaction that ExecuteRaw and
// CreateQueryBuilder-issued statements run against until Commit or
// Rollback. Only one may be open at a time, enforcing spec §4.9's "one
// active transaction" session-scope invariant.
func (em *EntityManager) BeginTransaction(ctx context.Context) error {
	if em.tx != nil {
		return ormerr.New(ormerr.IllegalStateTransition, "beginTransaction: a transaction is already active")
	}
	tx, err := em.conn.Begin(ctx)
	if err != nil {
		return ormerr.Wrap(ormerr.ConnectionLost, err, "begin transaction")
	}
	em.tx = tx
	return nil
}

func (em *EntityManager) Commit() error {
	if em.tx == nil {
		return ormerr.New(ormerr.IllegalStateTransition, "commit: no active transaction")
	}
	err := em.tx.Commit()
	em.tx = nil
	return err
}

func (em *EntityManager) Rollback() error {
	if em.tx == nil {
		return ormerr.New(ormerr.IllegalStateTransition, "rollback: no active transaction")
	}
	err := em.tx.Rollback()
	em.tx = nil
	return err
}

// GetRepository returns a Repository scoped to entityTemplate's Go type.
func (em *EntityManager) GetRepository(entityTemplate any) *Repository {
	return &Repository{em: em, template: entityTemplate}
}

// CreateQueryBuilder exposes the query.Factory this manager renders
// statements through, for callers building ad hoc SELECT/INSERT/UPDATE/
// DELETE/aggregate queries outside the identity-map-tracked flow.
func (em *EntityManager) CreateQueryBuilder() *query.Factory {
	return em.factory
}

// ExecuteRaw runs a hand-written SQL statement (inside the open explicit
// transaction, if any) and returns its cursor. Use Exec-style statements
// through the returned cursor's side effects only when sql has no result
// set; callers expecting rows should call FetchAll/FetchOne on the
// result.
func (em *EntityManager) ExecuteRaw(ctx context.Context, sql string, parameters ...any) (driver.ResultCursor, error) {
	return em.activeConn().Query(ctx, sql, parameters...)
}

// CreateMany persists every entity in entities and flushes once,
// mirroring the teacher's types.Transaction.CreateMany — the unit of
// work's own insert-batching (spec §4.7 step 5) does the heavy lifting,
// so this is a thin convenience over Persist+Flush rather than a second
// insert path.
func (em *EntityManager) CreateMany(ctx context.Context, entities []any) error {
	for _, e := range entities {
		if err := em.sess.Persist(e); err != nil {
			return err
		}
	}
	return em.Flush(ctx)
}

// UpdateMany applies mutate to every already-managed entity in entities
// and flushes once. mutate is expected to set the properties that should
// change; the change-set computation (spec §4.6) determines which of
// them actually produce an UPDATE statement.
func (em *EntityManager) UpdateMany(ctx context.Context, entities []any, mutate func(entity any)) error {
	for _, e := range entities {
		mutate(e)
	}
	return em.Flush(ctx)
}

// DeleteMany schedules every entity in entities for removal and flushes
// once.
func (em *EntityManager) DeleteMany(ctx context.Context, entities []any) error {
	for _, e := range entities {
		if err := em.sess.Remove(e); err != nil {
			return err
		}
	}
	return em.Flush(ctx)
}

// Close releases the underlying connection. It is an error to Close while
// an explicit transaction is still open.
func (em *EntityManager) Close() error {
	if em.tx != nil {
		return ormerr.New(ormerr.IllegalStateTransition, "close: an explicit transaction is still open")
	}
	return em.conn.Close()
}
