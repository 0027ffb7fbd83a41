package migrate

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/rediwo/mysqlorm/driver"
	"github.com/rediwo/mysqlorm/ormerr"
)

// HistoryTableName is the bookkeeping table recording applied migrations,
// grounded on the teacher's migration.MigrationsTableName convention
// (there "redi_migrations"), renamed to this engine's own prefix.
const HistoryTableName = "schema_migrations"

// AppliedMigration is one row of the history table: an applied plan's
// identity, checksum, and application timestamp, grounded on the teacher's
// migration.Migration struct.
type AppliedMigration struct {
	ID        string
	Name      string
	Checksum  string
	AppliedAt time.Time
}

// History manages the schema_migrations bookkeeping table (a supplemented
// feature of SPEC_FULL.md, grounded on migration/history.go), backing the
// CLI's `migrate status` distinction between pending and applied plans.
type History struct {
	conn driver.Connection
}

func NewHistory(conn driver.Connection) *History {
	return &History{conn: conn}
}

// Ensure creates the history table if it doesn't already exist. It is safe
// to call on every reconciliation pass.
func (h *History) Ensure(ctx context.Context) error {
	sql := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		checksum VARCHAR(64) NOT NULL,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`, HistoryTableName)
	_, err := h.conn.Exec(ctx, sql)
	if err != nil {
		return ormerr.Wrap(ormerr.MigrationConflict, err, "create history table")
	}
	return nil
}

// Record inserts one applied-plan row, identified by a fresh UUID (the
// engine has no timestamp-prefixed migration file naming scheme to derive
// an id from, unlike the teacher's GenerateVersion()).
func (h *History) Record(ctx context.Context, name string, checksum string) (*AppliedMigration, error) {
	id := uuid.NewString()
	sql := fmt.Sprintf("INSERT INTO %s (id, name, checksum) VALUES (?, ?, ?)", HistoryTableName)
	if _, err := h.conn.Exec(ctx, sql, id, name, checksum); err != nil {
		return nil, ormerr.Wrap(ormerr.MigrationConflict, err, "record migration %s", name)
	}
	return &AppliedMigration{ID: id, Name: name, Checksum: checksum}, nil
}

// Applied returns every recorded migration in application order.
func (h *History) Applied(ctx context.Context) ([]AppliedMigration, error) {
	sql := fmt.Sprintf("SELECT id, name, checksum, applied_at FROM %s ORDER BY applied_at", HistoryTableName)
	cursor, err := h.conn.Query(ctx, sql)
	if err != nil {
		return nil, ormerr.Wrap(ormerr.MigrationConflict, err, "read migration history")
	}
	defer cursor.Close()

	rows, err := cursor.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]AppliedMigration, 0, len(rows))
	for _, row := range rows {
		out = append(out, AppliedMigration{
			ID:        asString(row["id"]),
			Name:      asString(row["name"]),
			Checksum:  asString(row["checksum"]),
			AppliedAt: asTime(row["applied_at"]),
		})
	}
	return out, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asTime(v any) time.Time {
	t, _ := v.(time.Time)
	return t
}

// ChecksumPlan computes a plan's checksum by hashing every operation's
// kind, table, and rendered SQL in execution order — grounded on the
// teacher's migration.ComputeChecksum, generalized from SchemaChange to
// Operation.
func ChecksumPlan(plan *Plan) string {
	h := sha256.New()
	for _, op := range plan.Operations() {
		h.Write([]byte(op.Kind))
		h.Write([]byte(op.Table))
		h.Write([]byte(op.SQL))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// statusSnapshot is the YAML-serializable shape `migrate status
// --format=yaml` emits (SPEC_FULL.md's domain-stack table wires
// gopkg.in/yaml.v3 here).
type statusSnapshot struct {
	Applied []AppliedMigration `yaml:"applied"`
	Pending []string           `yaml:"pending"`
}

// StatusYAML renders the applied/pending distinction as YAML for the CLI's
// `--format=yaml` flag.
func StatusYAML(applied []AppliedMigration, pendingOperations []Operation) ([]byte, error) {
	pending := make([]string, len(pendingOperations))
	for i, op := range pendingOperations {
		pending[i] = op.String()
	}
	return yaml.Marshal(statusSnapshot{Applied: applied, Pending: pending})
}
