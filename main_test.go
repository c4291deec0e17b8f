package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-catalog/library"
)

func TestCheckpointsCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.db")

	db, err := library.NewDatabase(path)
	require.NoError(t, err)
	mgr := library.NewLibraryManager(library.DefaultPolicy())
	_, err = mgr.AddBook(1, "Dune", "Frank Herbert", 2)
	require.NoError(t, err)
	_, err = db.SaveSnapshot(mgr.Snapshot())
	require.NoError(t, err)
	require.NoError(t, db.Close())

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--db", path, "checkpoints"})
	assert.NoError(t, cmd.Execute())
}

func TestCheckpointsCommandRequiresDB(t *testing.T) {
	t.Setenv("LIBRARY_DB", "")
	cmd := newRootCmd()
	cmd.SetArgs([]string{"checkpoints"})
	assert.ErrorContains(t, cmd.Execute(), "--db is required")
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "a long ...", truncateString("a long title", 10))
	assert.Equal(t, "Ærø Ødeg...", truncateString("Ærø Ødegård Ålesund", 11))
}
