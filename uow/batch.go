package uow

import (
	"sort"
	"strings"

	"github.com/rediwo/mysqlorm/session"
)

// insertBatch groups consecutive insertRows bound for the same table with
// an identical column set into one multi-row INSERT (spec §4.7 step 5).
type insertBatch struct {
	tableName string
	rows      []insertRow
}

func batchInserts(rows []insertRow, maxBatchSize int) []insertBatch {
	var batches []insertBatch
	var current *insertBatch
	var currentSignature string

	for _, row := range rows {
		sig := row.entity.Descriptor.TableName + "|" + columnSignature(row)
		if current != nil && currentSignature == sig && len(current.rows) < maxBatchSize {
			current.rows = append(current.rows, row)
			continue
		}
		batches = append(batches, insertBatch{tableName: row.entity.Descriptor.TableName})
		current = &batches[len(batches)-1]
		current.rows = append(current.rows, row)
		currentSignature = sig
	}
	return batches
}

// columnSignature derives a batching key from which properties this row
// will actually write: every non-auto-increment column plus every non-deferred owning
// relation property — two rows only batch together if they set exactly
// the same set.
func columnSignature(row insertRow) string {
	names := insertProperties(row)
	sort.Strings(names)
	return strings.Join(names, ",")
}

// insertProperties lists the property names one insertRow writes: its
// mapped scalar columns plus its owning relation properties, excluding
// any deferred (nulled-for-cycle-break) relation.
func insertProperties(row insertRow) []string {
	deferredSet := make(map[string]bool, len(row.deferred))
	for _, d := range row.deferred {
		deferredSet[d] = true
	}
	d := row.entity.Descriptor
	names := make([]string, 0, len(d.Columns)+len(d.ForeignKeys))
	for name, col := range d.Columns {
		if col.AutoIncrement {
			continue
		}
		names = append(names, name)
	}
	for _, name := range owningRelationProperties(d) {
		if !deferredSet[name] {
			names = append(names, name)
		}
	}
	return names
}
