// Package session implements the identity map, managed-entity state
// machine, and dirty-checking change-set computation of spec §4.6. The
// teacher has no direct equivalent — it is stateless per query call — so
// this package is built fresh, following the struct/method idiom the
// teacher uses throughout query/model_query.go and orm/client.go.
package session

// State is the lifecycle state of one entity instance under a Session's
// management (spec §4.6).
type State string

const (
	// New entities are attached via Persist but not yet flushed to the
	// database; they have no confirmed primary key.
	New State = "new"
	// Managed entities correspond to a known, persisted row and participate
	// in dirty checking at flush time.
	Managed State = "managed"
	// Removed entities are scheduled for deletion on the next flush.
	Removed State = "removed"
	// Detached entities were managed but have left the session (e.g. after
	// a successful delete flush); they can no longer be dirty-checked.
	Detached State = "detached"
)
