package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/studia-app/studia-backend/pkg/migrate"
)

func TestInitMigrationContainsLedgerConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_init_schema.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no init schema migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE student_ledgers",
		"CHECK (paid_sessions >= 0)",
		"CHECK (unpaid_sessions >= 0)",
		"CHECK (paid_amount >= 0)",
		"CHECK (remaining_amount >= 0)",
		"CREATE TABLE appointment_deletion_logs",
		"DROP TABLE appointments",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("migrations dir failed validation: %v", err)
	}
}
