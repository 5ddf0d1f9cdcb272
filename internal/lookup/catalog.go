package lookup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/xelth-com/eckscan/internal/models"
	"github.com/xelth-com/eckscan/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound      = errors.New("product not found")
	ErrBarcodeTaken         = errors.New("barcode already assigned to another product")
	ErrItemExists           = errors.New("item code already exists")
	ErrItemCreationDisabled = errors.New("inline item creation is disabled")
)

// NotFoundMessage is the BarcodeResult error for unknown barcodes.
const NotFoundMessage = "item not found"

var validate = validator.New()

// NewItem is the payload of the inline "create new item" flow.
type NewItem struct {
	ItemCode         string `json:"item_code" validate:"required,max=140"`
	Name             string `json:"name" validate:"required"`
	Barcode          string `json:"barcode" validate:"omitempty,numeric,min=8,max=14"`
	UOM              string `json:"uom"`
	Tracking         string `json:"tracking" validate:"omitempty,oneof=none lot serial"`
	DefaultWarehouse string `json:"default_warehouse"`
}

// Catalog resolves scans against the local product, lot and location tables.
type Catalog struct {
	db                 *gorm.DB
	log                *logrus.Logger
	allowCreate        bool
	fallbackConditions []string
}

// CatalogOption customizes a Catalog.
type CatalogOption func(*Catalog)

// WithItemCreation enables CreateItem.
func WithItemCreation(allow bool) CatalogOption {
	return func(c *Catalog) { c.allowCreate = allow }
}

// WithFallbackConditions sets the condition options used when none are stored.
func WithFallbackConditions(options []string) CatalogOption {
	return func(c *Catalog) { c.fallbackConditions = options }
}

// WithCatalogLogger sets the catalog logger.
func WithCatalogLogger(l *logrus.Logger) CatalogOption {
	return func(c *Catalog) { c.log = l }
}

func NewCatalog(db *gorm.DB, opts ...CatalogOption) *Catalog {
	c := &Catalog{db: db, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// gtinForms returns the GTIN and, for GTIN-14 with a leading zero, its EAN-13 form.
func gtinForms(gtin string) []string {
	forms := []string{gtin}
	if len(gtin) == 14 && gtin[0] == '0' {
		forms = append(forms, gtin[1:])
	}
	return forms
}

// LookupGTIN finds the product carrying a GTIN and, for batch tracked products, the
// lot named by the scan. Unknown lots are created with the scanned expiry.
func (c *Catalog) LookupGTIN(ctx context.Context, q GTINQuery) (*GTINResult, error) {
	db := c.db.WithContext(ctx)

	var p models.ProductProduct
	err := db.Where("barcode IN ? AND active = ?", gtinForms(q.GTIN), true).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &GTINResult{GTINNotFound: true, GTIN: q.GTIN, Lot: q.Lot, Expiry: q.Expiry}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up GTIN %s: %w", q.GTIN, err)
	}

	res := &GTINResult{FoundItem: p.DefaultCode}
	if q.Lot == "" || !p.HasBatch() {
		return res, nil
	}

	lot, err := c.ensureLot(ctx, p.ID, q.Lot, q.Expiry)
	if err != nil {
		return nil, err
	}
	res.Batch = lot.Name
	res.BatchExpiryDate = lot.ExpiryString()
	return res, nil
}

func (c *Catalog) ensureLot(ctx context.Context, productID uint, name, expiry string) (*models.StockLot, error) {
	var exp *time.Time
	if expiry != "" {
		if t, err := time.Parse("2006-01-02", expiry); err == nil {
			exp = &t
		}
	}

	db := c.db.WithContext(ctx)
	var lot models.StockLot
	err := db.Where("product_id = ? AND name = ?", productID, name).First(&lot).Error
	if err == nil {
		return &lot, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to resolve lot %s: %w", name, err)
	}

	lot = models.StockLot{ProductID: productID, Name: name, ExpirationDate: exp}
	if err := db.Create(&lot).Error; err != nil {
		return nil, fmt.Errorf("failed to create lot %s: %w", name, err)
	}
	c.log.WithFields(logrus.Fields{"lot": name, "product_id": productID, "expiry": expiry}).Info("lot created from scan")
	return &lot, nil
}

// LookupBarcode resolves a plain barcode. It tries, in order: product barcode or item
// code, lot or serial name, smart item label, location barcode.
func (c *Catalog) LookupBarcode(ctx context.Context, q BarcodeQuery) (*BarcodeResult, error) {
	search := strings.TrimSpace(q.SearchValue)
	if search == "" {
		return &BarcodeResult{Error: NotFoundMessage}, nil
	}
	db := c.db.WithContext(ctx)
	c.log.WithFields(logrus.Fields{
		"search":    search,
		"warehouse": q.Context.Warehouse,
		"company":   q.Context.Company,
	}).Debug("barcode lookup")

	// 1. Product barcode or item code
	var p models.ProductProduct
	err := db.Where("(barcode = ? OR default_code = ?) AND active = ?", search, search, true).First(&p).Error
	if err == nil {
		return productResult(&p), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up barcode: %w", err)
	}

	// 2. Lot / serial number
	var lot models.StockLot
	err = db.Where("name = ?", search).Order("id").First(&lot).Error
	if err == nil {
		if err := db.First(&p, lot.ProductID).Error; err != nil {
			return nil, fmt.Errorf("failed to load product of lot %s: %w", search, err)
		}
		res := productResult(&p)
		if p.HasSerial() {
			res.SerialNo = lot.Name
		} else {
			res.BatchNo = lot.Name
			res.BatchExpiryDate = lot.ExpiryString()
		}
		return res, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up lot: %w", err)
	}

	// 3. Smart item label: serial + EAN
	if utils.IsSmartItem(search) {
		if smart, derr := utils.DecodeSmartItem(search); derr == nil {
			err = db.Where("barcode IN ? AND active = ?", gtinForms(smart.RefID), true).First(&p).Error
			if err == nil {
				res := productResult(&p)
				res.Barcode = smart.RefID
				res.SerialNo = smart.Serial
				return res, nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("failed to look up smart item: %w", err)
			}
		}
	}

	// 4. Location barcode
	var loc models.StockLocation
	err = db.Where("barcode = ? AND active = ?", search, true).First(&loc).Error
	if err == nil {
		return &BarcodeResult{Warehouse: loc.WarehouseName()}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up location: %w", err)
	}

	return &BarcodeResult{Error: NotFoundMessage}, nil
}

func productResult(p *models.ProductProduct) *BarcodeResult {
	return &BarcodeResult{
		ItemCode:         p.DefaultCode,
		Barcode:          p.Barcode,
		UOM:              p.UOMName,
		DefaultWarehouse: p.DefaultWarehouse,
		HasBatchNo:       p.HasBatch(),
		HasSerialNo:      p.HasSerial(),
	}
}

// AttachBarcode assigns a scanned GTIN to an existing item.
func (c *Catalog) AttachBarcode(ctx context.Context, itemCode, gtin string) (*models.ProductProduct, error) {
	if err := validate.Var(gtin, "required,numeric,min=8,max=14"); err != nil {
		return nil, fmt.Errorf("invalid GTIN %q: %w", gtin, err)
	}

	var p models.ProductProduct
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("default_code = ?", itemCode).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrProductNotFound, itemCode)
			}
			return err
		}

		var count int64
		if err := tx.Model(&models.ProductProduct{}).
			Where("barcode IN ? AND id <> ?", gtinForms(gtin), p.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: %s", ErrBarcodeTaken, gtin)
		}

		p.Barcode = gtin
		return tx.Model(&p).Update("barcode", gtin).Error
	})
	if err != nil {
		return nil, err
	}

	c.log.WithFields(logrus.Fields{"item": itemCode, "gtin": gtin}).Info("barcode attached")
	return &p, nil
}

// CreateItem creates a catalog item from the scanner.
func (c *Catalog) CreateItem(ctx context.Context, in NewItem) (*models.ProductProduct, error) {
	if !c.allowCreate {
		return nil, ErrItemCreationDisabled
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	tracking := models.Tracking(in.Tracking)
	if tracking == "" {
		tracking = models.TrackingNone
	}
	p := models.ProductProduct{
		DefaultCode:      in.ItemCode,
		Barcode:          in.Barcode,
		Name:             in.Name,
		Active:           true,
		UOMName:          in.UOM,
		Tracking:         tracking,
		DefaultWarehouse: in.DefaultWarehouse,
	}

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.ProductProduct{}).Where("default_code = ?", in.ItemCode).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: %s", ErrItemExists, in.ItemCode)
		}
		if in.Barcode != "" {
			if err := tx.Model(&models.ProductProduct{}).Where("barcode IN ?", gtinForms(in.Barcode)).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return fmt.Errorf("%w: %s", ErrBarcodeTaken, in.Barcode)
			}
		}
		return tx.Create(&p).Error
	})
	if err != nil {
		return nil, err
	}

	c.log.WithFields(logrus.Fields{"item": p.DefaultCode, "barcode": p.Barcode}).Info("item created from scanner")
	return &p, nil
}

// Conditions returns the active condition options in display order.
func (c *Catalog) Conditions(ctx context.Context) ([]string, error) {
	var names []string
	err := c.db.WithContext(ctx).
		Model(&models.ScanCondition{}).
		Where("active = ?", true).
		Order("sort_order, name").
		Pluck("name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load conditions: %w", err)
	}
	if len(names) == 0 {
		return c.fallbackConditions, nil
	}
	return names, nil
}
