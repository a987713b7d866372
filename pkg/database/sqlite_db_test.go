package database

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/textileio/go-autopay/tests"
)

func TestOpenRunsMigrations(t *testing.T) {
	t.Parallel()

	uri := tests.Sqlite3URI(t)
	db, err := Open(uri)
	require.NoError(t, err)

	var count int
	err = db.DB.QueryRow(
		"SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'subscription_state'").Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.NoError(t, db.Close())

	// reopening is a no-op migration
	db, err = Open(uri)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}
