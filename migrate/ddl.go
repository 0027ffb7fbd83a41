package migrate

import (
	"fmt"
	"strings"

	"github.com/rediwo/mysqlorm/metadata"
	"github.com/rediwo/mysqlorm/sqlfmt"
)

// columnDefinition renders one column's DDL fragment ("`name` TYPE(len)
// UNSIGNED NOT NULL DEFAULT x AUTO_INCREMENT"), grounded on the teacher's
// drivers/mysql/migrator.go MapFieldType/GenerateColumnDefinitionFromColumnInfo
// pair, generalized to read directly off metadata.ColumnDescriptor instead
// of the teacher's schema.Field.
func columnDefinition(col metadata.ColumnDescriptor) string {
	var b strings.Builder
	b.WriteString(sqlfmt.FormatIdentifier(col.Name))
	b.WriteString(" ")
	b.WriteString(sqlType(col))
	if col.Unsigned && isNumericType(col.Type) {
		b.WriteString(" UNSIGNED")
	}
	if !col.Nullable {
		b.WriteString(" NOT NULL")
	} else {
		b.WriteString(" NULL")
	}
	if col.Default != nil {
		b.WriteString(" DEFAULT ")
		b.WriteString(defaultLiteral(col))
	}
	if col.AutoIncrement {
		b.WriteString(" AUTO_INCREMENT")
	}
	if col.Extra != "" && col.Extra != "auto_increment" {
		b.WriteString(" ")
		b.WriteString(strings.ToUpper(col.Extra))
	}
	return b.String()
}

func isNumericType(t metadata.ColumnType) bool {
	switch t {
	case metadata.ColumnTinyInt, metadata.ColumnSmallInt, metadata.ColumnMediumInt,
		metadata.ColumnInt, metadata.ColumnBigInt,
		metadata.ColumnDecimal, metadata.ColumnFloat, metadata.ColumnDouble:
		return true
	}
	return false
}

// defaultLiteral renders a column's default value. CURRENT_TIMESTAMP and
// other bare SQL expressions pass through unquoted; everything else is a
// quoted/numeric literal via sqlfmt.FormatValue.
func defaultLiteral(col metadata.ColumnDescriptor) string {
	if s, ok := col.Default.(string); ok {
		if strings.EqualFold(strings.TrimSpace(s), "CURRENT_TIMESTAMP") ||
			(sqlfmt.IsExpression(s) && !looksLikeStringLiteral(s)) {
			return s
		}
	}
	return sqlfmt.FormatValue(col.Default)
}

func looksLikeStringLiteral(s string) bool {
	return strings.HasPrefix(s, "'") && strings.HasSuffix(s, "'")
}

// sqlType renders a column's type name with length/scale/enum-choices
// qualifiers, per spec §3's logical type vocabulary.
func sqlType(col metadata.ColumnDescriptor) string {
	switch col.Type {
	case metadata.ColumnDecimal:
		if col.Length > 0 {
			return fmt.Sprintf("DECIMAL(%d,%d)", col.Length, col.Scale)
		}
		return "DECIMAL"
	case metadata.ColumnChar:
		return fmt.Sprintf("CHAR(%d)", nonZero(col.Length, 1))
	case metadata.ColumnVarChar:
		return fmt.Sprintf("VARCHAR(%d)", nonZero(col.Length, 255))
	case metadata.ColumnEnum:
		return fmt.Sprintf("ENUM(%s)", quoteChoices(col.Choices))
	case metadata.ColumnSet:
		return fmt.Sprintf("SET(%s)", quoteChoices(col.Choices))
	case metadata.ColumnBoolean:
		return "TINYINT(1)"
	case metadata.ColumnInt, metadata.ColumnBigInt, metadata.ColumnSmallInt,
		metadata.ColumnTinyInt, metadata.ColumnMediumInt,
		metadata.ColumnFloat, metadata.ColumnDouble,
		metadata.ColumnTinyText, metadata.ColumnText, metadata.ColumnMediumText, metadata.ColumnLongText,
		metadata.ColumnBinary, metadata.ColumnVarBinary, metadata.ColumnBlob, metadata.ColumnMediumBlob, metadata.ColumnLongBlob,
		metadata.ColumnDate, metadata.ColumnDateTime, metadata.ColumnTimestamp, metadata.ColumnTime, metadata.ColumnYear,
		metadata.ColumnJSON, metadata.ColumnPoint, metadata.ColumnPolygon, metadata.ColumnGeometry:
		return strings.ToUpper(string(col.Type))
	default:
		return strings.ToUpper(string(col.Type))
	}
}

func nonZero(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func quoteChoices(choices []string) string {
	quoted := make([]string, len(choices))
	for i, c := range choices {
		quoted[i] = sqlfmt.QuoteString(c)
	}
	return strings.Join(quoted, ", ")
}

// createTableSQLRaw renders a full CREATE TABLE statement off a
// desiredTable: columns in declaration order, then a PRIMARY KEY clause.
// Foreign keys are never inlined — per spec §4.8's phase ordering, FK adds
// always run in their own post-phase so a CREATE TABLE never races with
// another table's existence. Indexes are likewise left to the CreateIndexes
// phase rather than inlined, so new and existing tables share one
// index-creation code path.
func createTableSQLRaw(dt *desiredTable) string {
	var parts []string
	for _, name := range dt.columnOrder {
		parts = append(parts, columnDefinition(dt.columns[name]))
	}
	if len(dt.primaryKey) > 0 {
		cols := make([]string, len(dt.primaryKey))
		for i, name := range dt.primaryKey {
			cols[i] = sqlfmt.FormatIdentifier(name)
		}
		parts = append(parts, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(cols, ", ")))
	}
	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4",
		sqlfmt.FormatIdentifier(dt.name), strings.Join(parts, ",\n  "))
}

func dropTableSQL(table string) string {
	return fmt.Sprintf("DROP TABLE %s", sqlfmt.FormatIdentifier(table))
}

func addColumnSQL(table string, col metadata.ColumnDescriptor) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", sqlfmt.FormatIdentifier(table), columnDefinition(col))
}

func modifyColumnSQL(table string, col metadata.ColumnDescriptor) string {
	return fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s", sqlfmt.FormatIdentifier(table), columnDefinition(col))
}

func dropColumnSQL(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", sqlfmt.FormatIdentifier(table), sqlfmt.FormatIdentifier(column))
}

func createIndexSQL(table, name string, columns []string, unique bool) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = sqlfmt.FormatIdentifier(c)
	}
	kw := "INDEX"
	if unique {
		kw = "UNIQUE INDEX"
	}
	return fmt.Sprintf("CREATE %s %s ON %s (%s)", kw, sqlfmt.FormatIdentifier(name), sqlfmt.FormatIdentifier(table), strings.Join(quoted, ", "))
}

func dropIndexSQL(table, name string) string {
	return fmt.Sprintf("DROP INDEX %s ON %s", sqlfmt.FormatIdentifier(name), sqlfmt.FormatIdentifier(table))
}

func addForeignKeySQL(table string, fk metadata.ForeignKeyDescriptor, column, refTable string) string {
	sql := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		sqlfmt.FormatIdentifier(table), sqlfmt.FormatIdentifier(fk.ConstraintName),
		sqlfmt.FormatIdentifier(column), sqlfmt.FormatIdentifier(refTable), sqlfmt.FormatIdentifier(fk.ReferencedColumn))
	if fk.OnDelete != "" {
		sql += " ON DELETE " + string(fk.OnDelete)
	}
	if fk.OnUpdate != "" {
		sql += " ON UPDATE " + string(fk.OnUpdate)
	}
	return sql
}

func dropForeignKeySQL(table, constraintName string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s", sqlfmt.FormatIdentifier(table), sqlfmt.FormatIdentifier(constraintName))
}

func setAutoIncrementSQL(table string, seed int64) string {
	return fmt.Sprintf("ALTER TABLE %s AUTO_INCREMENT = %d", sqlfmt.FormatIdentifier(table), seed)
}
