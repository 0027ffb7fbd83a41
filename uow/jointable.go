package uow

import (
	"context"
	"fmt"
	"strings"

	"github.com/rediwo/mysqlorm/driver"
	"github.com/rediwo/mysqlorm/ormerr"
	"github.com/rediwo/mysqlorm/session"
	"github.com/rediwo/mysqlorm/sqlfmt"
)

// joinGroup collects the resolved (owner key, related key) pairs bound for
// one join table, grouped by table/column pair so same-shaped deltas batch
// into one statement.
type joinGroup struct {
	table       string
	joinColumn  string
	inverseJoin string
	rows        [][2]any
}

func groupLinkDeltas(sess *session.Session, deltas []linkDelta) ([]joinGroup, error) {
	index := make(map[string]int)
	var groups []joinGroup

	for _, d := range deltas {
		ownerPK := d.owner.PrimaryKey()
		if len(ownerPK) != 1 {
			return nil, ormerr.New(ormerr.MappingError,
				"%s: many-to-many owner with a composite key is unsupported", d.owner.Descriptor.ClassName)
		}
		relatedPK, err := relatedPrimaryKey(sess, d.owner.Descriptor, d.joinColumn, d.related)
		if err != nil {
			return nil, err
		}

		key := d.joinTable + "|" + d.joinColumn + "|" + d.inverseJoin
		i, ok := index[key]
		if !ok {
			groups = append(groups, joinGroup{table: d.joinTable, joinColumn: d.joinColumn, inverseJoin: d.inverseJoin})
			i = len(groups) - 1
			index[key] = i
		}
		groups[i].rows = append(groups[i].rows, [2]any{ownerPK[0], relatedPK})
	}
	return groups, nil
}

// execLink inserts every (owner, related) pair in g as one multi-row
// INSERT IGNORE, tolerating a row that already exists (e.g. re-attaching a
// link removed and re-added within the same flush).
func execLink(ctx context.Context, conn driver.Connection, g joinGroup) (driver.AffectedRows, error) {
	placeholders := make([]string, len(g.rows))
	args := make([]any, 0, len(g.rows)*2)
	for i, row := range g.rows {
		placeholders[i] = "(?, ?)"
		args = append(args, row[0], row[1])
	}
	sql := fmt.Sprintf("INSERT IGNORE INTO %s (%s, %s) VALUES %s",
		sqlfmt.FormatIdentifier(g.table),
		sqlfmt.FormatIdentifier(g.joinColumn),
		sqlfmt.FormatIdentifier(g.inverseJoin),
		strings.Join(placeholders, ", "))
	return conn.Exec(ctx, sql, args...)
}

// execUnlink deletes every (owner, related) pair in g in one statement.
func execUnlink(ctx context.Context, conn driver.Connection, g joinGroup) (driver.AffectedRows, error) {
	pairs := make([]string, len(g.rows))
	args := make([]any, 0, len(g.rows)*2)
	for i, row := range g.rows {
		pairs[i] = "(?, ?)"
		args = append(args, row[0], row[1])
	}
	sql := fmt.Sprintf("DELETE FROM %s WHERE (%s, %s) IN (%s)",
		sqlfmt.FormatIdentifier(g.table),
		sqlfmt.FormatIdentifier(g.joinColumn),
		sqlfmt.FormatIdentifier(g.inverseJoin),
		strings.Join(pairs, ", "))
	return conn.Exec(ctx, sql, args...)
}
