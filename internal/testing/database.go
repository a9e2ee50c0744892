package testing

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/teranos/medkit/db"
)

// SetupTestDB creates an in-memory SQLite database with the real migrations
// applied. Cleanup is registered via t.Cleanup().
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// each connection to :memory: is a separate database
	testDB.SetMaxOpenConns(1)

	require.NoError(t, db.Migrate(testDB, nil), "Failed to run migrations")

	t.Cleanup(func() {
		testDB.Close()
	})
	return testDB
}

// SetupEmptyDB creates an in-memory SQLite database without any schema, for
// exercising error paths.
func SetupEmptyDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	testDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		testDB.Close()
	})
	return testDB
}
