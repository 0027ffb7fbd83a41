package migrate

import (
	"strings"

	"github.com/rediwo/mysqlorm/driver"
	"github.com/rediwo/mysqlorm/metadata"
)

// diffTable compares one desired table against its live counterpart (nil if
// the table doesn't exist yet, handled by the caller before this runs) and
// appends the column/index/FK-level operations it implies into plan. This
// completes the column/index/FK diff the teacher's BaseMigrator.CompareSchema
// and Differ.computeTableDiff leave as "// TODO" / column-change-only.
func diffTable(plan *Plan, desired *desiredTable, live *liveTable) {
	diffColumns(plan, desired, live)
	diffIndexes(plan, desired, live)
	diffForeignKeys(plan, desired, live)
}

func diffColumns(plan *Plan, desired *desiredTable, live *liveTable) {
	existing := make(map[string]driver.ColumnInfo, len(live.columns))
	for _, c := range live.columns {
		existing[c.Name] = c
	}

	for _, name := range desired.columnOrder {
		col := desired.columns[name]
		if _, ok := existing[name]; !ok {
			plan.AddColumns = append(plan.AddColumns, Operation{
				Kind: OpAddColumn, Table: desired.name, Detail: name,
				SQL: addColumnSQL(desired.name, col),
			})
		}
	}

	for _, existingCol := range live.columns {
		desiredCol, ok := desired.columns[existingCol.Name]
		if !ok {
			plan.DropColumns = append(plan.DropColumns, Operation{
				Kind: OpDropColumn, Table: desired.name, Detail: existingCol.Name,
				SQL: dropColumnSQL(desired.name, existingCol.Name),
			})
			continue
		}
		if columnNeedsModification(existingCol, desiredCol) {
			plan.ModifyColumns = append(plan.ModifyColumns, Operation{
				Kind: OpModifyColumn, Table: desired.name, Detail: existingCol.Name,
				SQL: modifyColumnSQL(desired.name, desiredCol),
			})
		}
	}
}

// columnNeedsModification diffs type, length/scale (folded into the
// rendered type string), nullability, auto-increment, unsigned, and
// default. Of the extra attribute only auto_increment is compared; any
// other extra text (such as an ON UPDATE clause) is not, so a change there
// alone plans no MODIFY COLUMN.
func columnNeedsModification(existing driver.ColumnInfo, desired metadata.ColumnDescriptor) bool {
	if !typesEquivalent(existing.Type, sqlType(desired)) {
		return true
	}
	if existing.Nullable != desired.Nullable {
		return true
	}
	if existing.AutoIncrement != desired.AutoIncrement {
		return true
	}
	if existing.Unsigned != (desired.Unsigned && isNumericType(desired.Type)) {
		return true
	}
	if !defaultsEquivalent(existing.Default, desired.Default) {
		return true
	}
	return false
}

func typesEquivalent(existingRaw, desiredRaw string) bool {
	return normalizeTypeText(existingRaw) == normalizeTypeText(desiredRaw)
}

// normalizeTypeText strips whitespace and unsigned/zerofill qualifiers
// (compared separately via ColumnInfo.Unsigned) and uppercases, so
// "int unsigned" from introspection compares equal to the reconciler's
// own rendered "INT". A display width is kept, so "int(11)" does not
// compare equal to "INT".
func normalizeTypeText(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, " UNSIGNED", "")
	s = strings.ReplaceAll(s, " ZEROFILL", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}

func defaultsEquivalent(existing *string, desired any) bool {
	if existing == nil && desired == nil {
		return true
	}
	if existing == nil || desired == nil {
		return false
	}
	return *existing == defaultLiteral(metadata.ColumnDescriptor{Default: desired})
}

func diffIndexes(plan *Plan, desired *desiredTable, live *liveTable) {
	existing := make(map[string]driver.IndexInfo, len(live.indexes))
	for _, idx := range live.indexes {
		existing[idx.Name] = idx
	}
	wanted := make(map[string]desiredIndex, len(desired.indexes))
	for _, idx := range desired.indexes {
		wanted[idx.name] = idx
	}

	for _, idx := range desired.indexes {
		if existingIdx, ok := existing[idx.name]; ok {
			if indexesMatch(existingIdx, idx) {
				continue
			}
			plan.DropIndexes = append(plan.DropIndexes, Operation{
				Kind: OpDropIndex, Table: desired.name, Detail: idx.name,
				SQL: dropIndexSQL(desired.name, idx.name),
			})
		}
		plan.CreateIndexes = append(plan.CreateIndexes, Operation{
			Kind: OpCreateIndex, Table: desired.name, Detail: idx.name,
			SQL: createIndexSQL(desired.name, idx.name, idx.columns, idx.unique),
		})
	}

	for _, existingIdx := range live.indexes {
		if _, ok := wanted[existingIdx.Name]; !ok {
			plan.DropIndexes = append(plan.DropIndexes, Operation{
				Kind: OpDropIndex, Table: desired.name, Detail: existingIdx.Name,
				SQL: dropIndexSQL(desired.name, existingIdx.Name),
			})
		}
	}
}

func indexesMatch(existing driver.IndexInfo, desired desiredIndex) bool {
	if existing.Unique != desired.unique {
		return false
	}
	if len(existing.Columns) != len(desired.columns) {
		return false
	}
	for i := range existing.Columns {
		if existing.Columns[i] != desired.columns[i] {
			return false
		}
	}
	return true
}

func diffForeignKeys(plan *Plan, desired *desiredTable, live *liveTable) {
	existing := make(map[string]driver.ForeignKeyInfo, len(live.foreignKeys))
	for _, fk := range live.foreignKeys {
		existing[fk.ConstraintName] = fk
	}
	wanted := make(map[string]desiredForeignKey, len(desired.foreignKeys))
	for _, fk := range desired.foreignKeys {
		wanted[fk.constraintName] = fk
	}

	for _, fk := range desired.foreignKeys {
		existingFK, ok := existing[fk.constraintName]
		if ok && foreignKeysMatch(existingFK, fk) {
			continue
		}
		if ok {
			plan.DropForeignKeys = append(plan.DropForeignKeys, Operation{
				Kind: OpDropForeignKey, Table: desired.name, Detail: fk.constraintName,
				SQL: dropForeignKeySQL(desired.name, fk.constraintName),
			})
		}
		plan.AddForeignKeys = append(plan.AddForeignKeys, Operation{
			Kind: OpAddForeignKey, Table: desired.name, Detail: fk.constraintName,
			SQL: addForeignKeySQL(desired.name, metadata.ForeignKeyDescriptor{
				ConstraintName: fk.constraintName, ReferencedColumn: fk.refColumn,
				OnDelete: metadata.ReferentialAction(fk.onDelete), OnUpdate: metadata.ReferentialAction(fk.onUpdate),
			}, fk.column, fk.refTable),
		})
	}

	for _, existingFK := range live.foreignKeys {
		if _, ok := wanted[existingFK.ConstraintName]; !ok {
			plan.DropForeignKeys = append(plan.DropForeignKeys, Operation{
				Kind: OpDropForeignKey, Table: desired.name, Detail: existingFK.ConstraintName,
				SQL: dropForeignKeySQL(desired.name, existingFK.ConstraintName),
			})
		}
	}
}

func foreignKeysMatch(existing driver.ForeignKeyInfo, desired desiredForeignKey) bool {
	return existing.Column == desired.column &&
		existing.ReferencedTable == desired.refTable &&
		existing.ReferencedColumn == desired.refColumn &&
		strings.EqualFold(existing.OnDelete, desired.onDelete) &&
		strings.EqualFold(existing.OnUpdate, desired.onUpdate)
}
