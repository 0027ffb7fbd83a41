package mysql

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rediwo/mysqlorm/driver"
)

// testConfig builds a driver.Config from MYSQL_TEST_* environment
// variables, grounded on the teacher's drivers/mysql/test_config.go
// env-var defaults.
func testConfig() driver.Config {
	return driver.Config{
		Host:     getenv("MYSQL_TEST_HOST", "localhost"),
		Port:     3306,
		User:     getenv("MYSQL_TEST_USER", "testuser"),
		Password: getenv("MYSQL_TEST_PASSWORD", "testpass"),
		Database: getenv("MYSQL_TEST_DATABASE", "testdb"),
		Params:   map[string]string{"charset": "utf8mb4", "parseTime": "true"},
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// skipUnlessLiveMySQL skips the test unless MYSQL_TEST_HOST is set,
// mirroring the teacher's pattern of gating integration tests that need
// a reachable server behind an environment variable instead of a mock.
func skipUnlessLiveMySQL(t *testing.T) driver.Connection {
	t.Helper()
	if os.Getenv("MYSQL_TEST_HOST") == "" {
		t.Skip("MYSQL_TEST_HOST not set, skipping live MySQL integration test")
	}
	conn, err := New().Open(context.Background(), testConfig())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestIntegration_TransactionCommit(t *testing.T) {
	conn := skipUnlessLiveMySQL(t)
	ctx := context.Background()

	_, _ = conn.Exec(ctx, "DROP TABLE IF EXISTS mysqlorm_tx_test")
	_, err := conn.Exec(ctx, "CREATE TABLE mysqlorm_tx_test (id INT PRIMARY KEY AUTO_INCREMENT, value VARCHAR(100))")
	require.NoError(t, err)
	defer conn.Exec(ctx, "DROP TABLE IF EXISTS mysqlorm_tx_test")

	tx, err := conn.Begin(ctx)
	require.NoError(t, err)

	result, err := tx.Exec(ctx, "INSERT INTO mysqlorm_tx_test (value) VALUES (?)", "committed")
	require.NoError(t, err)
	assert.Greater(t, result.LastInsertID, int64(0))
	require.NoError(t, tx.Commit())

	cursor, err := conn.Query(ctx, "SELECT COUNT(*) AS n FROM mysqlorm_tx_test WHERE value = ?", "committed")
	require.NoError(t, err)
	row, err := cursor.FetchOne(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", asString(row["n"]))
}

func TestIntegration_TransactionRollback(t *testing.T) {
	conn := skipUnlessLiveMySQL(t)
	ctx := context.Background()

	_, _ = conn.Exec(ctx, "DROP TABLE IF EXISTS mysqlorm_tx_rollback")
	_, err := conn.Exec(ctx, "CREATE TABLE mysqlorm_tx_rollback (id INT PRIMARY KEY AUTO_INCREMENT, value VARCHAR(100))")
	require.NoError(t, err)
	defer conn.Exec(ctx, "DROP TABLE IF EXISTS mysqlorm_tx_rollback")

	tx, err := conn.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Exec(ctx, "INSERT INTO mysqlorm_tx_rollback (value) VALUES (?)", "uncommitted")
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	cursor, err := conn.Query(ctx, "SELECT COUNT(*) AS n FROM mysqlorm_tx_rollback")
	require.NoError(t, err)
	row, err := cursor.FetchOne(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0", asString(row["n"]))
}

func TestIntegration_SavepointRollback(t *testing.T) {
	conn := skipUnlessLiveMySQL(t)
	ctx := context.Background()

	_, _ = conn.Exec(ctx, "DROP TABLE IF EXISTS mysqlorm_savepoint_test")
	_, err := conn.Exec(ctx, "CREATE TABLE mysqlorm_savepoint_test (id INT PRIMARY KEY AUTO_INCREMENT, value VARCHAR(100))")
	require.NoError(t, err)
	defer conn.Exec(ctx, "DROP TABLE IF EXISTS mysqlorm_savepoint_test")

	tx, err := conn.Begin(ctx)
	require.NoError(t, err)

	_, err = tx.Exec(ctx, "INSERT INTO mysqlorm_savepoint_test (value) VALUES (?)", "kept")
	require.NoError(t, err)
	require.NoError(t, tx.Savepoint(ctx, "sp1"))
	_, err = tx.Exec(ctx, "INSERT INTO mysqlorm_savepoint_test (value) VALUES (?)", "discarded")
	require.NoError(t, err)
	require.NoError(t, tx.RollbackToSavepoint(ctx, "sp1"))
	require.NoError(t, tx.Commit())

	cursor, err := conn.Query(ctx, "SELECT value FROM mysqlorm_savepoint_test")
	require.NoError(t, err)
	rows, err := cursor.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "kept", rows[0]["value"])
}

func TestIntegration_Introspection(t *testing.T) {
	conn := skipUnlessLiveMySQL(t)
	ctx := context.Background()

	_, _ = conn.Exec(ctx, "DROP TABLE IF EXISTS mysqlorm_introspect_test")
	_, err := conn.Exec(ctx, `CREATE TABLE mysqlorm_introspect_test (
		id BIGINT PRIMARY KEY AUTO_INCREMENT,
		name VARCHAR(255) NOT NULL,
		UNIQUE KEY uq_mysqlorm_introspect_name (name)
	)`)
	require.NoError(t, err)
	defer conn.Exec(ctx, "DROP TABLE IF EXISTS mysqlorm_introspect_test")

	tables, err := conn.ListTables(ctx)
	require.NoError(t, err)
	assert.Contains(t, tables, "mysqlorm_introspect_test")

	columns, err := conn.DescribeTable(ctx, "mysqlorm_introspect_test")
	require.NoError(t, err)
	var names []string
	for _, c := range columns {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"id", "name"}, names)

	indexes, err := conn.ListIndexes(ctx, "mysqlorm_introspect_test")
	require.NoError(t, err)
	require.Len(t, indexes, 1)
	assert.True(t, indexes[0].Unique)
}
