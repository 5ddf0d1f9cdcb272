package models

import (
	"time"
)

// StockLocation mirrors 'stock.location'. Scanning its barcode selects the warehouse
// stamped on subsequent rows.
type StockLocation struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	OdooID       *int64 `gorm:"uniqueIndex" json:"odoo_id,omitempty"`
	Name         string `json:"name"`
	CompleteName string `gorm:"index" json:"complete_name"` // "WH/Stock/Shelf 1"
	Barcode      string `gorm:"index" json:"barcode"`
	Usage        string `json:"usage"` // internal, supplier, customer...
	Active       bool   `json:"active"`

	LastSyncedAt time.Time `json:"last_synced_at"`
}

func (StockLocation) TableName() string {
	return "stock_location"
}

// WarehouseName is the name written into item rows.
func (l StockLocation) WarehouseName() string {
	if l.CompleteName != "" {
		return l.CompleteName
	}
	return l.Name
}

// StockLot mirrors 'stock.lot': a batch or a serial number depending on the product's
// tracking.
type StockLot struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	OdooID         *int64     `gorm:"uniqueIndex" json:"odoo_id,omitempty"`
	Name           string     `gorm:"not null;uniqueIndex:idx_lot_product_name" json:"name"`
	ProductID      uint       `gorm:"not null;uniqueIndex:idx_lot_product_name" json:"product_id"`
	Ref            string     `json:"ref"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (StockLot) TableName() string {
	return "stock_lot"
}

// ExpiryString formats the expiration date as YYYY-MM-DD, or "" when unset.
func (l StockLot) ExpiryString() string {
	if l.ExpirationDate == nil {
		return ""
	}
	return l.ExpirationDate.Format("2006-01-02")
}
