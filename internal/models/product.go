package models

import (
	"time"

	"gorm.io/datatypes"
)

// Tracking mirrors Odoo's product tracking selection.
type Tracking string

const (
	TrackingNone   Tracking = "none"
	TrackingLot    Tracking = "lot"
	TrackingSerial Tracking = "serial"
)

// ProductProduct is a catalog item. Rows synced from Odoo carry OdooID; items created
// from the scanner do not.
type ProductProduct struct {
	ID               uint     `gorm:"primaryKey" json:"id"`
	OdooID           *int64   `gorm:"uniqueIndex" json:"odoo_id,omitempty"`
	DefaultCode      string   `gorm:"uniqueIndex;not null" json:"default_code"` // item code
	Barcode          string   `gorm:"index" json:"barcode"`                     // EAN13 / GTIN-14
	Name             string   `json:"name"`
	Active           bool     `json:"active"`
	UOMName          string   `json:"uom_name"`
	Tracking         Tracking `gorm:"type:varchar(16)" json:"tracking"`
	DefaultWarehouse string   `json:"default_warehouse"`

	WriteDate    time.Time      `json:"write_date"`
	LastSyncedAt time.Time      `json:"last_synced_at"`
	RawData      datatypes.JSON `json:"raw_data,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	StockLots []StockLot `gorm:"foreignKey:ProductID" json:"lots,omitempty"`
}

func (ProductProduct) TableName() string { return "product_product" }

// HasBatch reports whether scans of this product carry a batch number.
func (p ProductProduct) HasBatch() bool { return p.Tracking == TrackingLot }

// HasSerial reports whether scans of this product carry a serial number.
func (p ProductProduct) HasSerial() bool { return p.Tracking == TrackingSerial }
