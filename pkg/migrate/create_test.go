package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCreateSQLMigrationStaysAfterNewestVersion(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "20261001090600_create_outbox_events.sql")
	if err := os.WriteFile(existing, []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("seed migration: %v", err)
	}

	skewed := time.Date(2026, 9, 30, 12, 0, 0, 0, time.UTC)
	path, err := createSQLMigration(dir, "add wave priority", skewed)
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if got := filepath.Base(path); got != "20261001090601_add_wave_priority.sql" {
		t.Fatalf("expected version after newest file, got %s", got)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("dir should validate: %v", err)
	}
}

func TestCreateSQLMigrationUsesClockWhenAhead(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 10, 15, 8, 30, 0, 0, time.UTC)
	path, err := createSQLMigration(dir, "Reservation Expiry", now)
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if got := filepath.Base(path); got != "20261015083000_reservation_expiry.sql" {
		t.Fatalf("unexpected filename %s", got)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if !strings.Contains(string(body), "-- revert reservation_expiry") {
		t.Fatalf("template missing down stub:\n%s", body)
	}

	if _, err := createSQLMigration(dir, "reservation expiry", now); err != nil {
		t.Fatalf("second migration in the same second should move past the first: %v", err)
	}
}

func TestCreateSQLMigrationRejectsEmptyNames(t *testing.T) {
	for _, name := range []string{"", "   ", "!!!"} {
		if _, err := createSQLMigration(t.TempDir(), name, time.Now()); err == nil {
			t.Fatalf("expected error for name %q", name)
		}
	}
}
