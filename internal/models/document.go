package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ScanDocument is a document whose item table is filled by scanning
// (receipt, delivery, stock count...).
type ScanDocument struct {
	ID       string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name     string `json:"name"`
	DocType  string `gorm:"index" json:"doc_type"` // e.g. "purchase_receipt"
	Company  string `json:"company"`
	HasBatch bool   `json:"has_batch"` // item table carries a batch column
	Status   string `gorm:"default:'draft';index" json:"status"`

	Lines []ScanLine `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"lines"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ScanDocument) TableName() string {
	return "scan_documents"
}

// BeforeCreate assigns the document id
func (d *ScanDocument) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// ScanLine is one row of a document's item table. Idx keeps table order.
type ScanLine struct {
	ID              string              `gorm:"primaryKey;type:varchar(36)" json:"id"`
	DocumentID      string              `gorm:"index;not null" json:"document_id"`
	Idx             int                 `gorm:"not null" json:"idx"`
	ItemCode        string              `json:"item_code"`
	BatchNo         string              `json:"batch_no"`
	BatchExpiryDate string              `json:"batch_expiry_date"`
	SerialNo        string              `gorm:"type:text" json:"serial_no"` // newline separated
	UOM             string              `gorm:"column:uom" json:"uom"`
	Qty             decimal.Decimal     `gorm:"type:decimal(20,6)" json:"qty"`
	MaxQty          decimal.NullDecimal `gorm:"type:decimal(20,6)" json:"max_qty"`
	Warehouse       string              `json:"warehouse"`
	Condition       string              `gorm:"column:condition_tag" json:"condition"`
	Barcode         string              `json:"barcode"`
}

func (ScanLine) TableName() string {
	return "scan_lines"
}

// BeforeCreate assigns the line id
func (l *ScanLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// ScanCondition is an option of the condition picker.
type ScanCondition struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"uniqueIndex;not null" json:"name"`
	SortOrder int    `json:"sort_order"`
	Active    bool   `json:"active"`
}

func (ScanCondition) TableName() string {
	return "scan_conditions"
}

// All returns every model managed by AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&ProductProduct{},
		&StockLot{},
		&StockLocation{},
		&ScanDocument{},
		&ScanLine{},
		&ScanCondition{},
	}
}
