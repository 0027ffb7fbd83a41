package mysql

import "github.com/rediwo/mysqlorm/driver"

// capabilities is the fixed capability set this driver advertises,
// grounded on the teacher's drivers/mysql/capabilities.go — MySQL
// (specifically 5.7+/8.0 InnoDB) supports savepoints, foreign keys, and
// JSON columns, but not SQL-level CHECK constraint enforcement prior to
// 8.0.16, which this engine doesn't depend on so it is left false.
var capabilities = driver.Capabilities{
	SupportsSavepoints:       true,
	SupportsForeignKeys:      true,
	SupportsJSON:             true,
	SupportsCheckConstraints: false,
	MaxIdentifierLength:      64,
}
