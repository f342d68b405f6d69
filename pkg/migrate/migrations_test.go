package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/wavepick-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestInventoryPositionMigrationContainsConstraints(t *testing.T) {
	assertContains(t, readMigration(t, "create_inventory_positions"), []string{
		"CREATE TABLE IF NOT EXISTS inventory_positions",
		"CHECK (quantity >= 0)",
		"CHECK (reserved_quantity >= 0)",
		"CHECK (reserved_quantity <= quantity)",
		"expiry_date NULLS LAST",
		"DROP TABLE IF EXISTS inventory_positions",
	})
}

func TestReservationMigrationReferencesPositionsAndWaves(t *testing.T) {
	assertContains(t, readMigration(t, "create_reservations"), []string{
		"FOREIGN KEY (position_id) REFERENCES inventory_positions(id)",
		"FOREIGN KEY (wave_item_id) REFERENCES picking_wave_items(id)",
		"CHECK (quantity > 0)",
		"DROP TABLE IF EXISTS reservations",
	})
}

func TestWaveMigrationGuardsPickedQuantity(t *testing.T) {
	assertContains(t, readMigration(t, "create_picking_waves"), []string{
		"wave_number TEXT NOT NULL UNIQUE",
		"CHECK (picked_quantity <= total_quantity)",
		"'pending', 'picking', 'completed', 'cancelled'",
	})
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Pick Notes!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_pick_notes.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}
