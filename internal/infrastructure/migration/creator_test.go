package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add users table", "add_users_table"},
		{"Add-Pdf-Path", "add_pdf_path"},
		{"add__index__due", "add_index_due"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration_NumbersAfterExisting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000002_create_clients.up.sql"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000010_add_index.up.sql"), nil, 0o644))

	mf, err := CreateMigration(dir, "Add attachment size")
	require.NoError(t, err)

	assert.Equal(t, "000011", mf.Version)
	assert.Equal(t, filepath.Join(dir, "000011_add_attachment_size.up.sql"), mf.UpPath)
	assert.FileExists(t, mf.UpPath)
	assert.FileExists(t, mf.DownPath)

	content, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "-- Migration: Add attachment size")
}

func TestCreateMigration_EmptyDirectoryStartsAtOne(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "migrations")

	mf, err := CreateMigration(dir, "init")
	require.NoError(t, err)
	assert.Equal(t, "000001", mf.Version)
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000010_late.up.sql":     {},
		"000010_late.down.sql":   {},
		"000002_early.up.sql":    {},
		"000002_early.down.sql":  {},
		"README.md":              {},
		"nested/000001_x.up.sql": {},
	}

	stems, err := ListMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"000002_early", "000010_late"}, stems)
}

func TestListMigrations_NonexistentDirectory(t *testing.T) {
	stems, err := ListMigrations(os.DirFS(filepath.Join(t.TempDir(), "missing")))
	require.NoError(t, err)
	assert.Empty(t, stems)
}

func TestEmbeddedMigrations(t *testing.T) {
	stems, err := ListMigrations(EmbeddedFS())
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_create_users", "000002_create_clients", "000003_create_invoices"}, stems)

	for _, stem := range stems {
		_, err := os.Stat(filepath.Join("sql", stem+".down.sql"))
		assert.NoError(t, err, "every migration has a rollback")
	}

	src, err := iofs.New(embedded, "sql")
	require.NoError(t, err)
	defer src.Close()
	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)
}
