package database

import (
	"path/filepath"
	"testing"

	"github.com/xelth-com/eckscan/internal/config"
	"github.com/xelth-com/eckscan/internal/models"
)

func TestConnectSQLiteMigrates(t *testing.T) {
	db, err := Connect(config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "scan.db"),
	})
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	for _, table := range []string{"product_product", "stock_lot", "stock_location", "scan_documents", "scan_lines", "scan_conditions"} {
		if !db.Migrator().HasTable(table) {
			t.Errorf("Expected table %s", table)
		}
	}
}
