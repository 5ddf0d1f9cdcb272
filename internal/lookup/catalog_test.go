package lookup

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/eckscan/internal/database"
	"github.com/xelth-com/eckscan/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestCatalog(t *testing.T, opts ...CatalogOption) (*Catalog, *gorm.DB) {
	t.Helper()
	db, err := database.OpenSQLite(":memory:", logger.Silent)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	log := logrus.New()
	log.SetOutput(io.Discard)
	opts = append([]CatalogOption{WithCatalogLogger(log)}, opts...)
	return NewCatalog(db, opts...), db
}

func seedCatalog(t *testing.T, db *gorm.DB) {
	t.Helper()
	exp := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	products := []models.ProductProduct{
		{DefaultCode: "SCALPEL-10", Barcode: "4006381333931", Name: "Scalpel #10", Active: true, UOMName: "Nos", Tracking: models.TrackingLot, DefaultWarehouse: "Stores - ACC"},
		{DefaultCode: "SUTURE", Barcode: "5901234123457", Name: "Suture kit", Active: true, UOMName: "Box", Tracking: models.TrackingSerial},
		{DefaultCode: "GLOVES", Barcode: "00012345678905", Name: "Gloves", Active: true, Tracking: models.TrackingNone},
		{DefaultCode: "OLD", Barcode: "1111111111116", Name: "Retired", Active: false},
	}
	require.NoError(t, db.Create(&products).Error)
	require.NoError(t, db.Create(&models.StockLot{Name: "B-2024", ProductID: products[0].ID, ExpirationDate: &exp}).Error)
	require.NoError(t, db.Create(&models.StockLot{Name: "SN-777", ProductID: products[1].ID}).Error)
	require.NoError(t, db.Create(&models.StockLocation{Name: "Shelf 1", CompleteName: "WH/Stock/Shelf 1", Barcode: "p-SHELF1", Active: true}).Error)
}

func TestLookupGTIN(t *testing.T) {
	ctx := context.Background()
	c, db := newTestCatalog(t)
	seedCatalog(t, db)

	t.Run("GTIN-14 matches EAN-13 barcode", func(t *testing.T) {
		res, err := c.LookupGTIN(ctx, GTINQuery{GTIN: "04006381333931"})
		require.NoError(t, err)
		require.Equal(t, "SCALPEL-10", res.FoundItem)
		require.Empty(t, res.Batch)
	})

	t.Run("existing lot keeps its expiry", func(t *testing.T) {
		res, err := c.LookupGTIN(ctx, GTINQuery{GTIN: "04006381333931", Lot: "B-2024", Expiry: "2030-01-01"})
		require.NoError(t, err)
		require.Equal(t, "B-2024", res.Batch)
		require.Equal(t, "2026-06-30", res.BatchExpiryDate)
	})

	t.Run("unknown lot is created once", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			res, err := c.LookupGTIN(ctx, GTINQuery{GTIN: "04006381333931", Lot: "B-2025", Expiry: "2027-12-31"})
			require.NoError(t, err)
			require.Equal(t, "B-2025", res.Batch)
			require.Equal(t, "2027-12-31", res.BatchExpiryDate)
		}
		var count int64
		require.NoError(t, db.Model(&models.StockLot{}).Where("name = ?", "B-2025").Count(&count).Error)
		require.EqualValues(t, 1, count)
	})

	t.Run("lot ignored for untracked product", func(t *testing.T) {
		res, err := c.LookupGTIN(ctx, GTINQuery{GTIN: "00012345678905", Lot: "X1"})
		require.NoError(t, err)
		require.Equal(t, "GLOVES", res.FoundItem)
		require.Empty(t, res.Batch)
	})

	t.Run("unknown GTIN", func(t *testing.T) {
		res, err := c.LookupGTIN(ctx, GTINQuery{GTIN: "09999999999999", Lot: "L1", Expiry: "2027-01-31"})
		require.NoError(t, err)
		require.True(t, res.GTINNotFound)
		require.Equal(t, "09999999999999", res.GTIN)
		require.Equal(t, "L1", res.Lot)
		require.Equal(t, "2027-01-31", res.Expiry)
	})

	t.Run("inactive product is not found", func(t *testing.T) {
		res, err := c.LookupGTIN(ctx, GTINQuery{GTIN: "01111111111116"})
		require.NoError(t, err)
		require.True(t, res.GTINNotFound)
	})
}

func TestLookupBarcode(t *testing.T) {
	ctx := context.Background()
	c, db := newTestCatalog(t)
	seedCatalog(t, db)

	testCases := []struct {
		name   string
		search string
		want   BarcodeResult
	}{
		{
			name:   "product barcode",
			search: "4006381333931",
			want:   BarcodeResult{ItemCode: "SCALPEL-10", Barcode: "4006381333931", UOM: "Nos", DefaultWarehouse: "Stores - ACC", HasBatchNo: true},
		},
		{
			name:   "item code",
			search: "GLOVES",
			want:   BarcodeResult{ItemCode: "GLOVES", Barcode: "00012345678905"},
		},
		{
			name:   "batch name",
			search: "B-2024",
			want:   BarcodeResult{ItemCode: "SCALPEL-10", Barcode: "4006381333931", UOM: "Nos", DefaultWarehouse: "Stores - ACC", HasBatchNo: true, BatchNo: "B-2024", BatchExpiryDate: "2026-06-30"},
		},
		{
			name:   "serial name",
			search: "SN-777",
			want:   BarcodeResult{ItemCode: "SUTURE", Barcode: "5901234123457", UOM: "Box", HasSerialNo: true, SerialNo: "SN-777"},
		},
		{
			name:   "smart item label",
			search: "iDSN1005901234123457",
			want:   BarcodeResult{ItemCode: "SUTURE", Barcode: "5901234123457", UOM: "Box", HasSerialNo: true, SerialNo: "SN100"},
		},
		{
			name:   "location barcode",
			search: "p-SHELF1",
			want:   BarcodeResult{Warehouse: "WH/Stock/Shelf 1"},
		},
		{
			name:   "unknown",
			search: "NOPE",
			want:   BarcodeResult{Error: NotFoundMessage},
		},
		{
			name:   "inactive product",
			search: "1111111111116",
			want:   BarcodeResult{Error: NotFoundMessage},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := c.LookupBarcode(ctx, BarcodeQuery{SearchValue: tc.search, Context: QueryContext{Warehouse: "Stores - ACC"}})
			require.NoError(t, err)
			require.Equal(t, tc.want, *res)
		})
	}
}

func TestAttachBarcode(t *testing.T) {
	ctx := context.Background()
	c, db := newTestCatalog(t)
	seedCatalog(t, db)

	p, err := c.AttachBarcode(ctx, "GLOVES", "09999999999999")
	require.NoError(t, err)
	require.Equal(t, "09999999999999", p.Barcode)

	res, err := c.LookupGTIN(ctx, GTINQuery{GTIN: "09999999999999"})
	require.NoError(t, err)
	require.Equal(t, "GLOVES", res.FoundItem)

	_, err = c.AttachBarcode(ctx, "SUTURE", "4006381333931")
	require.ErrorIs(t, err, ErrBarcodeTaken)

	_, err = c.AttachBarcode(ctx, "MISSING", "12345678")
	require.ErrorIs(t, err, ErrProductNotFound)

	_, err = c.AttachBarcode(ctx, "GLOVES", "not-a-gtin")
	require.Error(t, err)
}

func TestCreateItem(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled", func(t *testing.T) {
		c, _ := newTestCatalog(t)
		_, err := c.CreateItem(ctx, NewItem{ItemCode: "NEW", Name: "New"})
		require.ErrorIs(t, err, ErrItemCreationDisabled)
	})

	t.Run("enabled", func(t *testing.T) {
		c, db := newTestCatalog(t, WithItemCreation(true))
		seedCatalog(t, db)

		p, err := c.CreateItem(ctx, NewItem{ItemCode: "MASK", Name: "Mask", Barcode: "04012345678901", UOM: "Nos", Tracking: "lot"})
		require.NoError(t, err)
		require.Equal(t, models.TrackingLot, p.Tracking)
		require.True(t, p.Active)

		res, err := c.LookupGTIN(ctx, GTINQuery{GTIN: "04012345678901", Lot: "M1"})
		require.NoError(t, err)
		require.Equal(t, "MASK", res.FoundItem)
		require.Equal(t, "M1", res.Batch)

		_, err = c.CreateItem(ctx, NewItem{ItemCode: "MASK", Name: "Again"})
		require.ErrorIs(t, err, ErrItemExists)

		_, err = c.CreateItem(ctx, NewItem{ItemCode: "DUP", Name: "Dup", Barcode: "4006381333931"})
		require.ErrorIs(t, err, ErrBarcodeTaken)

		_, err = c.CreateItem(ctx, NewItem{ItemCode: "BAD", Name: "Bad", Tracking: "fifo"})
		require.Error(t, err)
	})
}

func TestConditions(t *testing.T) {
	ctx := context.Background()
	c, db := newTestCatalog(t, WithFallbackConditions([]string{"Fallback"}))

	options, err := c.Conditions(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"Fallback"}, options)

	require.NoError(t, db.Create(&[]models.ScanCondition{
		{Name: "Expired", SortOrder: 2, Active: true},
		{Name: "Damaged", SortOrder: 1, Active: true},
		{Name: "Hidden", SortOrder: 0, Active: false},
	}).Error)

	options, err = c.Conditions(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"Damaged", "Expired"}, options)
}
