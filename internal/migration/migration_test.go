package migration_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smallbiznis/cueledger/internal/config"
	"github.com/smallbiznis/cueledger/internal/migration"
	"github.com/smallbiznis/cueledger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplySQLiteIsIdempotent(t *testing.T) {
	db := testutil.OpenDB(t)

	require.NoError(t, migration.Apply(db, config.Config{DBType: "sqlite"}))
	require.NoError(t, migration.ApplySQLite(db))

	testutil.AssertCount(t, db, 0, "SELECT COUNT(*) FROM sessions")
	testutil.AssertCount(t, db, 0, "SELECT COUNT(*) FROM outbox_events")
}

func TestApplyRejectsUnsupportedDialect(t *testing.T) {
	db := testutil.OpenDB(t)

	err := migration.Apply(db, config.Config{DBType: "mysql"})
	assert.ErrorIs(t, err, migration.ErrUnsupportedDialect)
}

func TestActiveTableIndexIsUnique(t *testing.T) {
	db := testutil.OpenDB(t)

	insert := `INSERT INTO sessions (id, org_id, table_id, customer_id, start_time, hourly_rate_at_start, status, opened_by, created_at, updated_at)
		VALUES (?, 1, 10, 20, CURRENT_TIMESTAMP, 30000, ?, 1, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`
	require.NoError(t, db.Exec(insert, 1, "completed").Error)
	require.NoError(t, db.Exec(insert, 2, "active").Error)
	assert.Error(t, db.Exec(insert, 3, "active").Error)
}

func TestOrderTotalsCannotBeNegative(t *testing.T) {
	db := testutil.OpenDB(t)

	insert := `INSERT INTO additional_orders (id, org_id, session_id, item_name, quantity, unit_price, total_price, created_by, created_at)
		VALUES (?, 1, 2, 'Tea', 1, 5000, ?, 1, CURRENT_TIMESTAMP)`
	require.NoError(t, db.Exec(insert, 1, 5000).Error)
	assert.Error(t, db.Exec(insert, 2, -5000).Error)
}

func TestRateHistoryOutlivesTables(t *testing.T) {
	up, err := os.ReadFile(filepath.Join("migrations", "000001_init.up.sql"))
	require.NoError(t, err)

	assert.NotContains(t, string(up), "ON DELETE CASCADE")
	assert.Contains(t, string(up), "CHECK (total_price >= 0)")
}

func TestMigrationFilesArePaired(t *testing.T) {
	ups := map[string]bool{}
	downs := map[string]bool{}

	err := fs.WalkDir(os.DirFS("migrations"), ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		name := filepath.Base(path)
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
}
