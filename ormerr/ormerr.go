// Package ormerr defines the error taxonomy surfaced by every layer of the
// engine: metadata reflection, query building, the unit of work, and the
// schema reconciler. Callers use errors.Is/errors.As against the Kind
// sentinels rather than string matching.
package ormerr

import (
	"errors"
	"fmt"
)

// Kind enumerates the error taxonomy. A Kind is never returned bare; it is
// always wrapped in an *Error carrying context.
type Kind string

const (
	MappingError           Kind = "mapping_error"
	UnknownEntity          Kind = "unknown_entity"
	IllegalStateTransition Kind = "illegal_state_transition"
	UnboundParameter       Kind = "unbound_parameter"
	UnknownAlias           Kind = "unknown_alias"
	UnknownColumn          Kind = "unknown_column"
	UnsafeMutation         Kind = "unsafe_mutation"
	IntegrityViolation     Kind = "integrity_violation"
	UnresolvableInsertCycle Kind = "unresolvable_insert_cycle"
	ConnectionLost         Kind = "connection_lost"
	Timeout                Kind = "timeout"
	MigrationConflict      Kind = "migration_conflict"
)

// EntityRef points at the managed entity a failure concerns, when known.
type EntityRef struct {
	Type string
	Key  any
}

// Error is the user-visible failure shape required by spec §7: a kind, a
// message, the offending SQL/parameters where applicable, and a pointer to
// the entity involved where applicable.
type Error struct {
	Kind    Kind
	Message string
	SQL     string
	Args    []any
	Entity  *EntityRef
	Cause   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Entity != nil {
		msg = fmt.Sprintf("%s (entity=%s key=%v)", msg, e.Entity.Type, e.Entity.Key)
	}
	if e.SQL != "" {
		msg = fmt.Sprintf("%s [sql=%q args=%v]", msg, e.SQL, e.Args)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same Kind, so
// errors.Is(err, ormerr.Sentinel(ormerr.IntegrityViolation)) reports
// whether err carries that kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// New builds an *Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind around a lower-level cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithSQL attaches the offending SQL/parameters to an error.
func (e *Error) WithSQL(sql string, args []any) *Error {
	e.SQL = sql
	e.Args = args
	return e
}

// WithEntity attaches the offending entity reference to an error.
func (e *Error) WithEntity(typeName string, key any) *Error {
	e.Entity = &EntityRef{Type: typeName, Key: key}
	return e
}

// Sentinel returns a bare *Error of a Kind suitable only for errors.Is
// comparisons, e.g. errors.Is(err, ormerr.Sentinel(ormerr.Timeout)).
func Sentinel(kind Kind) *Error { return &Error{Kind: kind} }
