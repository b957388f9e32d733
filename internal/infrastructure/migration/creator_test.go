package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add cursor table", "add_cursor_table"},
		{"Add-Cursor-Table", "add_cursor_table"},
		{"ADD_CURSOR_TABLE", "add_cursor_table"},
		{"add__cursor__table", "add_cursor_table"},
		{"Add Stores 123", "add_stores_123"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	mf, err := CreateMigration(dir, "add store scopes", "Per-store fulfillment toggle")
	require.NoError(t, err)

	assert.Equal(t, uint(1), mf.Version)
	assert.Equal(t, "add_store_scopes", mf.Name)
	assert.Equal(t, "000001_add_store_scopes", mf.BaseName())
	assert.Equal(t, filepath.Join(dir, "000001_add_store_scopes.up.sql"), mf.UpPath)
	assert.Equal(t, filepath.Join(dir, "000001_add_store_scopes.down.sql"), mf.DownPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- Migration: add_store_scopes\n")
	assert.Contains(t, string(up), "-- Description: Per-store fulfillment toggle")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "(Rollback)")
}

func TestCreateMigration_NumbersSequentially(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000004_existing.up.sql"), []byte("--"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000004_existing.down.sql"), []byte("--"), 0o644))

	mf, err := CreateMigration(dir, "next", "")
	require.NoError(t, err)
	assert.Equal(t, uint(5), mf.Version)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.NotContains(t, string(up), "Description")
}

func TestCreateMigration_CreatesDirectory(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "nested", "migrations")

	_, err := CreateMigration(nested, "init", "")
	require.NoError(t, err)

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{
		"000002_add_cursors.up.sql",
		"000002_add_cursors.down.sql",
		"000001_init_schema.up.sql",
		"000001_init_schema.down.sql",
		"000010_add_notifications.up.sql",
		"README.md",
		"notanumber_x.up.sql",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("-- test"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "000003_dir.up.sql"), 0o755))

	files, err := ListMigrations(dir)
	require.NoError(t, err)
	require.Len(t, files, 3)

	assert.Equal(t, uint(1), files[0].Version)
	assert.Equal(t, "init_schema", files[0].Name)
	assert.Equal(t, uint(2), files[1].Version)
	assert.Equal(t, uint(10), files[2].Version)
	assert.Equal(t, "000010_add_notifications", files[2].BaseName())

	pending := PendingAfter(files, 1)
	require.Len(t, pending, 2)
	assert.Equal(t, uint(2), pending[0].Version)
	assert.Empty(t, PendingAfter(files, 10))
}

func TestListMigrations_NonexistentDirectory(t *testing.T) {
	files, err := ListMigrations("/nonexistent/path/to/migrations")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestRepositoryMigrationsArePaired(t *testing.T) {
	files, err := ListMigrations(filepath.Join("..", "..", "..", "migrations"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for i, f := range files {
		assert.Equal(t, uint(i+1), f.Version, "migrations must be numbered without gaps")
		_, err := os.Stat(f.DownPath)
		assert.NoError(t, err, "missing down migration for %s", f.BaseName())

		up, err := os.ReadFile(f.UpPath)
		require.NoError(t, err)
		assert.True(t, strings.Contains(string(up), "CREATE") || strings.Contains(string(up), "ALTER"))
	}
}
