package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stockledgerhq/stockledger-backend/pkg/migrate"
)

func TestProcessingMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_processing_tables.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no processing migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS processing_batches",
		"CHECK (type IN ('admission', 'release'))",
		"FOREIGN KEY (batch_id) REFERENCES processing_batches(id) ON DELETE CASCADE",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_line_items_product_batch ON line_items(batch_id, product_id)",
		"CHECK (quantity_change >= 0)",
		"DROP TABLE IF EXISTS line_items",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCatalogMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_catalog_tables.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no catalog migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS products",
		"quantity NUMERIC(10,3) NOT NULL DEFAULT 0 CHECK (quantity >= 0)",
		"price NUMERIC(10,2) NOT NULL DEFAULT 0 CHECK (price >= 0)",
		"FOREIGN KEY (unit_id) REFERENCES units(id)",
		"PRIMARY KEY (product_id, warehouse_id)",
		"DROP TABLE IF EXISTS products",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("shipped migrations should validate: %v", err)
	}
}
