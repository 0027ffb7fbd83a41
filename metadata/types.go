// Package metadata reflects annotated entity structs into immutable
// EntityDescriptors, once per type, and serves them from an internal
// registry cache. It is the Go-idiomatic reading of spec §4.1: Go has no
// runtime class loader, so "annotations" are expressed as struct tags on an
// embedded marker field and on individual properties, and "accessor
// resolution" is front-loaded reflect.StructField/reflect.Method lookups
// cached on the descriptor rather than re-reflected per property per flush.
package metadata

import "fmt"

// ColumnType is the logical column type vocabulary from spec §3. NUMERIC is
// treated as a synonym of Decimal and REAL as a synonym of Double per the
// spec's open question on floating point naming.
type ColumnType string

const (
	ColumnTinyInt   ColumnType = "tinyint"
	ColumnSmallInt  ColumnType = "smallint"
	ColumnMediumInt ColumnType = "mediumint"
	ColumnInt       ColumnType = "int"
	ColumnBigInt    ColumnType = "bigint"

	ColumnDecimal ColumnType = "decimal"
	ColumnFloat   ColumnType = "float"
	ColumnDouble  ColumnType = "double"

	ColumnChar    ColumnType = "char"
	ColumnVarChar ColumnType = "varchar"

	ColumnTinyText   ColumnType = "tinytext"
	ColumnText       ColumnType = "text"
	ColumnMediumText ColumnType = "mediumtext"
	ColumnLongText   ColumnType = "longtext"

	ColumnBinary     ColumnType = "binary"
	ColumnVarBinary  ColumnType = "varbinary"
	ColumnBlob       ColumnType = "blob"
	ColumnMediumBlob ColumnType = "mediumblob"
	ColumnLongBlob   ColumnType = "longblob"

	ColumnDate      ColumnType = "date"
	ColumnDateTime  ColumnType = "datetime"
	ColumnTimestamp ColumnType = "timestamp"
	ColumnTime      ColumnType = "time"
	ColumnYear      ColumnType = "year"

	ColumnBoolean ColumnType = "boolean"
	ColumnEnum    ColumnType = "enum"
	ColumnSet     ColumnType = "set"
	ColumnJSON    ColumnType = "json"

	ColumnPoint   ColumnType = "point"
	ColumnPolygon ColumnType = "polygon"
	ColumnGeometry ColumnType = "geometry"
)

// NormalizeColumnType resolves the documented synonyms (NUMERIC->DECIMAL,
// REAL->DOUBLE) so every downstream consumer compares a single canonical
// value.
func NormalizeColumnType(raw string) (ColumnType, error) {
	switch ColumnType(raw) {
	case "numeric":
		return ColumnDecimal, nil
	case "real":
		return ColumnDouble, nil
	case ColumnTinyInt, ColumnSmallInt, ColumnMediumInt, ColumnInt, ColumnBigInt,
		ColumnDecimal, ColumnFloat, ColumnDouble,
		ColumnChar, ColumnVarChar,
		ColumnTinyText, ColumnText, ColumnMediumText, ColumnLongText,
		ColumnBinary, ColumnVarBinary, ColumnBlob, ColumnMediumBlob, ColumnLongBlob,
		ColumnDate, ColumnDateTime, ColumnTimestamp, ColumnTime, ColumnYear,
		ColumnBoolean, ColumnEnum, ColumnSet, ColumnJSON,
		ColumnPoint, ColumnPolygon, ColumnGeometry:
		return ColumnType(raw), nil
	default:
		return "", fmt.Errorf("unknown column type %q", raw)
	}
}

// KeyRole records whether a column participates in the table's primary,
// unique, or a non-unique ("multiple") index.
type KeyRole string

const (
	KeyNone      KeyRole = ""
	KeyPrimary   KeyRole = "primary"
	KeyUnique    KeyRole = "unique"
	KeyMultiple  KeyRole = "multiple"
)

// ReferentialAction is the FK on-delete/on-update rule vocabulary.
type ReferentialAction string

const (
	ActionCascade    ReferentialAction = "CASCADE"
	ActionSetNull    ReferentialAction = "SET NULL"
	ActionNoAction   ReferentialAction = "NO ACTION"
	ActionRestrict   ReferentialAction = "RESTRICT"
	ActionSetDefault ReferentialAction = "SET DEFAULT"
)

// RelationKind is the tagged variant discriminator for RelationDescriptor,
// per the design note in spec §9: dynamic dispatch over many small relation
// types is re-expressed as one tagged variant with shared fields factored
// out and kind-specific fields in the respective arms.
type RelationKind string

const (
	RelationOneToOne   RelationKind = "oneToOne"
	RelationOneToMany  RelationKind = "oneToMany"
	RelationManyToOne  RelationKind = "manyToOne"
	RelationManyToMany RelationKind = "manyToMany"
)
