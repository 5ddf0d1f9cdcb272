package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xelth-com/eckscan/internal/config"
	"github.com/xelth-com/eckscan/internal/database"
	"github.com/xelth-com/eckscan/internal/models"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}
	db, err := database.Connect(cfg.Database)
	if err != nil {
		fmt.Printf("❌ Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	var productCount, lotCount, locationCount, documentCount, lineCount int64
	db.Model(&models.ProductProduct{}).Count(&productCount)
	db.Model(&models.StockLot{}).Count(&lotCount)
	db.Model(&models.StockLocation{}).Count(&locationCount)
	db.Model(&models.ScanDocument{}).Count(&documentCount)
	db.Model(&models.ScanLine{}).Count(&lineCount)

	if len(os.Args) > 1 && os.Args[1] == "--json" {
		data := map[string]int64{
			"products":   productCount,
			"lots":       lotCount,
			"locations":  locationCount,
			"documents":  documentCount,
			"scan_lines": lineCount,
		}
		jsonData, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	rule := strings.Repeat("─", 58)
	fmt.Println("📈 DATABASE STATISTICS")
	fmt.Println(rule)
	fmt.Printf("  Products:      %3d\n", productCount)
	fmt.Printf("  Lots:          %3d\n", lotCount)
	fmt.Printf("  Locations:     %3d\n", locationCount)
	fmt.Printf("  Documents:     %3d\n", documentCount)
	fmt.Printf("  Scan lines:    %3d\n", lineCount)
	fmt.Println()

	var products []models.ProductProduct
	db.Preload("StockLots").Order("default_code").Find(&products)
	if len(products) > 0 {
		fmt.Println("📦 CATALOG")
		fmt.Println(rule)
		for _, p := range products {
			fmt.Printf("  [%s] %s", p.DefaultCode, p.Name)
			if p.Barcode != "" {
				fmt.Printf(" | Barcode: %s", p.Barcode)
			}
			fmt.Printf(" | %s\n", p.Tracking)
			for _, lot := range p.StockLots {
				fmt.Printf("      └─ %s %s\n", lot.Name, lot.ExpiryString())
			}
		}
		fmt.Println()
	}

	var docs []models.ScanDocument
	db.Preload("Lines", func(tx *gorm.DB) *gorm.DB { return tx.Order("idx") }).
		Order("created_at DESC").Limit(20).Find(&docs)
	if len(docs) > 0 {
		fmt.Println("📋 DOCUMENTS")
		fmt.Println(rule)
		for _, d := range docs {
			fmt.Printf("  %s [%s] %s\n", d.Name, d.Status, d.DocType)
			for _, l := range d.Lines {
				extra := ""
				if l.BatchNo != "" {
					extra += " batch=" + l.BatchNo
				}
				if l.Condition != "" {
					extra += " condition=" + l.Condition
				}
				if l.Warehouse != "" {
					extra += " @ " + l.Warehouse
				}
				fmt.Printf("    %2d. %s x %s %s%s\n", l.Idx, l.ItemCode, l.Qty.String(), l.UOM, extra)
			}
		}
	}
}
