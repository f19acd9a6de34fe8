package db

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPgxMigrateURL(t *testing.T) {
	require.Equal(t, "pgx5://u:p@localhost:5432/books", pgxMigrateURL("postgres://u:p@localhost:5432/books"))
	require.Equal(t, "pgx5://localhost/books", pgxMigrateURL("postgresql://localhost/books"))
	require.Equal(t, "pgx5://already", pgxMigrateURL("pgx5://already"))
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.Contains(t, names, "0001_init.up.sql")
	require.Contains(t, names, "0001_init.down.sql")
}
