package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltlot/voltlot-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1, "expected one %s migration", suffix)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, migrate.ValidateDir("migrations"))
	require.NoError(t, migrate.ValidateFS(migrate.Embedded(), "migrations"))
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001_init.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	assert.ErrorContains(t, migrate.ValidateDir(dir), "YYYYMMDDHHMMSS")

	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20250101000000_init.sql"), []byte("-- +goose Up\n"), 0o644))
	assert.ErrorContains(t, migrate.ValidateDir(dir), "+goose Down")

	dir = t.TempDir()
	for _, name := range []string{"20250101000000_a.sql", "20250101000000_b.sql"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	}
	assert.ErrorContains(t, migrate.ValidateDir(dir), "already used")
}

func TestEmbeddedMatchesDisk(t *testing.T) {
	embedded, err := fs.Glob(migrate.Embedded(), "migrations/*.sql")
	require.NoError(t, err)
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)
	assert.Len(t, embedded, len(onDisk))
	assert.NotEmpty(t, embedded)
}

func TestInquiriesMigrationConstraints(t *testing.T) {
	content := readMigration(t, "create_inquiries")
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS inquiries",
		"FOREIGN KEY (listing_id) REFERENCES listings(id) ON DELETE CASCADE",
		"CHECK (delivery_status IN ('pending', 'sent', 'failed'))",
		"WHERE seller_notified_at IS NULL",
		"CREATE TABLE IF NOT EXISTS inquiry_events",
		"'dashboard_viewed'",
		"DROP TABLE IF EXISTS inquiry_events",
	} {
		assert.Contains(t, content, sub)
	}
}

func TestListingsMigrationConstraints(t *testing.T) {
	content := readMigration(t, "create_listings")
	for _, sub := range []string{
		"CONSTRAINT listings_slug_unique UNIQUE (slug)",
		"CHECK (status IN ('draft', 'pending_review', 'approved', 'rejected', 'archived'))",
		"CHECK (price > 0)",
		"REFERENCES dealer_profiles(id) ON DELETE SET NULL",
	} {
		assert.Contains(t, content, sub)
	}
}

func TestPhotosMigrationSinglePrimary(t *testing.T) {
	content := readMigration(t, "create_photos")
	assert.Contains(t, content, "UNIQUE (listing_id, image_key)")
	assert.True(t, strings.Contains(content, "ON photos (listing_id) WHERE is_primary"))
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Listing Views!")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_listing_views.sql"), path)
	require.NoError(t, migrate.ValidateDir(dir))

	_, err = migrate.CreateSQLMigration(dir, "!!!")
	assert.Error(t, err)
}
