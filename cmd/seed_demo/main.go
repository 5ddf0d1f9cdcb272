package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xelth-com/eckscan/internal/config"
	"github.com/xelth-com/eckscan/internal/database"
	"github.com/xelth-com/eckscan/internal/document"
	"github.com/xelth-com/eckscan/internal/models"
	"gorm.io/gorm"
)

func main() {
	log := config.GetLogger()

	fmt.Println("🌱 eckScan Demo Data Seeder")
	fmt.Println(strings.Repeat("=", 60))

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	fmt.Println("🔨 Running database migrations...")
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.WithError(err).Fatal("migration failed")
	}

	var productCount int64
	db.Model(&models.ProductProduct{}).Count(&productCount)
	if productCount > 0 {
		fmt.Printf("⚠️  Database already has %d products. Clear it first? (y/N): ", productCount)
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("❌ Aborted. Database not modified.")
			return
		}
		if err := clearData(db.DB); err != nil {
			log.WithError(err).Fatal("failed to clear data")
		}
		fmt.Println("✅ Data cleared")
	}
	fmt.Println()

	// 1. Locations: scanning one of these barcodes selects the warehouse for later rows
	locations := []models.StockLocation{
		{Name: "Stock", CompleteName: "WH/Stock", Barcode: "LOC-WH-STOCK", Usage: "internal", Active: true},
		{Name: "Shelf A", CompleteName: "WH/Stock/Shelf A", Barcode: "LOC-WH-SHELF-A", Usage: "internal", Active: true},
		{Name: "Quarantine", CompleteName: "WH/Quarantine", Barcode: "LOC-WH-QUAR", Usage: "internal", Active: true},
	}
	if err := db.Create(&locations).Error; err != nil {
		log.WithError(err).Fatal("failed to create locations")
	}
	fmt.Printf("📍 Created %d locations\n", len(locations))

	// 2. Products, one per tracking mode
	now := time.Now()
	products := []models.ProductProduct{
		{DefaultCode: "SCALPEL-10", Name: "Scalpel blade #10", Barcode: "4006381333931", UOMName: "Nos", Tracking: models.TrackingLot, Active: true, LastSyncedAt: now},
		{DefaultCode: "GLOVES-M", Name: "Nitrile gloves M (100)", Barcode: "5901234123457", UOMName: "Box", Tracking: models.TrackingNone, Active: true, LastSyncedAt: now},
		{DefaultCode: "IB270", Name: "Body composition analyzer", Barcode: "8809509831101", UOMName: "Nos", Tracking: models.TrackingSerial, Active: true, LastSyncedAt: now, DefaultWarehouse: "WH/Stock"},
	}
	if err := db.Create(&products).Error; err != nil {
		log.WithError(err).Fatal("failed to create products")
	}
	for _, p := range products {
		fmt.Printf("   ✓ [%s] %s (%s)\n", p.DefaultCode, p.Name, p.Tracking)
	}

	// 3. Lots and serials
	expiry := time.Date(now.Year()+1, time.December, 31, 0, 0, 0, 0, time.UTC)
	lots := []models.StockLot{
		{Name: "B-2025", ProductID: products[0].ID, ExpirationDate: &expiry},
		{Name: "IB270-SN-0001", ProductID: products[2].ID},
		{Name: "IB270-SN-0002", ProductID: products[2].ID},
	}
	if err := db.Create(&lots).Error; err != nil {
		log.WithError(err).Fatal("failed to create lots")
	}
	fmt.Printf("🏷️  Created %d lots\n", len(lots))

	// 4. Condition picker options
	conditions := []models.ScanCondition{
		{Name: "Damaged", SortOrder: 1, Active: true},
		{Name: "Expired", SortOrder: 2, Active: true},
		{Name: "Wrong item", SortOrder: 3, Active: true},
	}
	if err := db.Create(&conditions).Error; err != nil {
		log.WithError(err).Fatal("failed to create conditions")
	}
	fmt.Printf("🩹 Created %d conditions\n", len(conditions))

	// 5. A receipt with expected quantities, ready for scanning
	doc := &models.ScanDocument{
		Name:     "PREC-DEMO-0001",
		DocType:  "purchase_receipt",
		Company:  "Demo Company",
		HasBatch: true,
		Lines: []models.ScanLine{
			{Idx: 1, ItemCode: "GLOVES-M", UOM: "Box", MaxQty: decimal.NewNullDecimal(decimal.NewFromInt(10))},
			{Idx: 2, ItemCode: "SCALPEL-10", UOM: "Nos", MaxQty: decimal.NewNullDecimal(decimal.NewFromInt(50))},
		},
	}
	repo := document.NewRepository(db.DB, log)
	if err := repo.Create(context.Background(), doc); err != nil {
		log.WithError(err).Fatal("failed to create demo document")
	}
	fmt.Printf("📋 Created document %s (%s)\n", doc.Name, doc.ID)

	fmt.Println()
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("🎉 Demo data created successfully!")
	fmt.Println()
	fmt.Println("🚀 Start the server:")
	fmt.Println("   go run ./cmd/api")
	fmt.Println("   Then print the trigger sheet: GET /api/scan/triggers.pdf")
	fmt.Println(strings.Repeat("=", 60))
}

func clearData(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, m := range []interface{}{
			&models.ScanLine{},
			&models.ScanDocument{},
			&models.ScanCondition{},
			&models.StockLot{},
			&models.ProductProduct{},
			&models.StockLocation{},
		} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
