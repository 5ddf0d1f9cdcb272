package odoo

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xelth-com/eckscan/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Source is the part of the Odoo API the catalog sync reads from.
type Source interface {
	Authenticate() (int, error)
	SearchRead(model string, domain []interface{}, fields []string, limit, offset int, result interface{}) error
}

// Stats counts the records written by one sync run.
type Stats struct {
	Locations int `json:"locations"`
	Products  int `json:"products"`
	Lots      int `json:"lots"`
}

// SyncService keeps the local catalog (locations, products, lots) in step with Odoo.
type SyncService struct {
	source       Source
	db           *gorm.DB
	interval     time.Duration
	initialDelay time.Duration
	pageSize     int
	log          *logrus.Logger
	now          func() time.Time

	mu       sync.Mutex // one run at a time
	authed   bool
	started  atomic.Bool
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewSyncService creates a sync service. A non-positive interval means 15 minutes.
func NewSyncService(db *gorm.DB, source Source, interval time.Duration, log *logrus.Logger) *SyncService {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SyncService{
		source:       source,
		db:           db,
		interval:     interval,
		initialDelay: 5 * time.Second,
		pageSize:     500,
		log:          log,
		now:          time.Now,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start begins the background synchronization loop
func (s *SyncService) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(s.done)
		s.log.WithField("interval", s.interval.String()).Info("odoo sync service started")

		select {
		case <-time.After(s.initialDelay):
		case <-s.stop:
			return
		}
		s.runLogged()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runLogged()
			case <-s.stop:
				s.log.Info("odoo sync service stopped")
				return
			}
		}
	}()
}

// Stop halts the loop and waits for a running sync to finish.
func (s *SyncService) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	if s.started.Load() {
		<-s.done
	}
}

func (s *SyncService) runLogged() {
	stats, err := s.RunOnce()
	entry := s.log.WithFields(logrus.Fields{
		"locations": stats.Locations,
		"products":  stats.Products,
		"lots":      stats.Lots,
	})
	if err != nil {
		entry.WithError(err).Error("odoo sync finished with errors")
		return
	}
	entry.Info("odoo sync completed")
}

// RunOnce runs a full sync. Locations come first, then products, then lots, which
// reference products. A failing stage does not stop the later ones.
func (s *SyncService) RunOnce() (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats Stats
	if !s.authed {
		if _, err := s.source.Authenticate(); err != nil {
			return stats, fmt.Errorf("odoo authentication failed: %w", err)
		}
		s.authed = true
	}

	var errs []error
	var err error
	if stats.Locations, err = s.syncLocations(); err != nil {
		errs = append(errs, err)
	}
	if stats.Products, err = s.syncProducts(); err != nil {
		errs = append(errs, err)
	}
	if stats.Lots, err = s.syncLots(); err != nil {
		errs = append(errs, err)
	}
	return stats, errors.Join(errs...)
}

// fetch pages through a search_read and hands every record to fn. Records fn rejects
// are logged and skipped.
func (s *SyncService) fetch(model string, domain []interface{}, fields []string, fn func(raw json.RawMessage) error) (int, error) {
	count := 0
	for offset := 0; ; offset += s.pageSize {
		var page []json.RawMessage
		if err := s.source.SearchRead(model, domain, fields, s.pageSize, offset, &page); err != nil {
			return count, fmt.Errorf("odoo sync %s: %w", model, err)
		}
		for _, raw := range page {
			if err := fn(raw); err != nil {
				s.log.WithField("model", model).WithError(err).Warn("skipping odoo record")
				continue
			}
			count++
		}
		if len(page) < s.pageSize {
			return count, nil
		}
	}
}

type locationRecord struct {
	ID           int64             `json:"id"`
	Name         models.OdooString `json:"name"`
	CompleteName models.OdooString `json:"complete_name"`
	Barcode      models.OdooString `json:"barcode"`
	Usage        models.OdooString `json:"usage"`
	Active       bool              `json:"active"`
}

func (r locationRecord) model(now time.Time) models.StockLocation {
	id := r.ID
	return models.StockLocation{
		OdooID:       &id,
		Name:         r.Name.String(),
		CompleteName: r.CompleteName.String(),
		Barcode:      r.Barcode.String(),
		Usage:        r.Usage.String(),
		Active:       r.Active,
		LastSyncedAt: now,
	}
}

// syncLocations pulls internal locations into 'stock_location'
func (s *SyncService) syncLocations() (int, error) {
	domain := []interface{}{
		[]interface{}{"usage", "=", "internal"},
		[]interface{}{"active", "in", []interface{}{true, false}},
	}
	fields := []string{"name", "complete_name", "barcode", "usage", "active"}

	return s.fetch("stock.location", domain, fields, func(raw json.RawMessage) error {
		var r locationRecord
		if err := json.Unmarshal(raw, &r); err != nil {
			return err
		}
		loc := r.model(s.now().UTC())
		return s.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "odoo_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "complete_name", "barcode", "usage", "active", "last_synced_at"}),
		}).Create(&loc).Error
	})
}

type productRecord struct {
	ID          int64             `json:"id"`
	DefaultCode models.OdooString `json:"default_code"`
	Barcode     models.OdooString `json:"barcode"`
	Name        models.OdooString `json:"name"`
	Active      bool              `json:"active"`
	UOM         models.OdooRef    `json:"uom_id"`
	Tracking    models.OdooString `json:"tracking"`
	WriteDate   models.OdooString `json:"write_date"`
}

// itemCode is the local item code. Odoo products without an internal reference get a
// stable synthetic one.
func (r productRecord) itemCode() string {
	if code := strings.TrimSpace(r.DefaultCode.String()); code != "" {
		return code
	}
	return fmt.Sprintf("ODOO-%d", r.ID)
}

func (r productRecord) apply(p *models.ProductProduct, raw json.RawMessage, now time.Time) {
	id := r.ID
	p.OdooID = &id
	p.DefaultCode = r.itemCode()
	p.Barcode = strings.TrimSpace(r.Barcode.String())
	p.Name = r.Name.String()
	p.Active = r.Active
	p.UOMName = r.UOM.Name
	p.Tracking = parseTracking(r.Tracking.String())
	p.WriteDate = parseOdooTime(r.WriteDate.String())
	p.LastSyncedAt = now
	p.RawData = datatypes.JSON(raw)
}

// syncProducts pulls products changed since the newest synced write_date
func (s *SyncService) syncProducts() (int, error) {
	lastWriteDate := "2000-01-01 00:00:00"
	var last models.ProductProduct
	if err := s.db.Where("odoo_id IS NOT NULL").Order("write_date DESC").Limit(1).Find(&last).Error; err != nil {
		return 0, fmt.Errorf("failed to read last product write_date: %w", err)
	}
	if !last.WriteDate.IsZero() {
		lastWriteDate = last.WriteDate.Format("2006-01-02 15:04:05")
	}

	domain := []interface{}{
		[]interface{}{"write_date", ">", lastWriteDate},
		[]interface{}{"active", "in", []interface{}{true, false}},
	}
	fields := []string{"default_code", "barcode", "name", "active", "uom_id", "tracking", "write_date"}

	return s.fetch("product.product", domain, fields, func(raw json.RawMessage) error {
		var r productRecord
		if err := json.Unmarshal(raw, &r); err != nil {
			return err
		}
		return s.db.Transaction(func(tx *gorm.DB) error {
			// Claim an item created from the scanner under the same code
			var p models.ProductProduct
			err := tx.Where("odoo_id = ?", r.ID).
				Or("odoo_id IS NULL AND default_code = ?", r.itemCode()).
				Order("odoo_id IS NULL").
				Limit(1).Find(&p).Error
			if err != nil {
				return err
			}
			r.apply(&p, raw, s.now().UTC())
			return tx.Save(&p).Error
		})
	})
}

type lotRecord struct {
	ID             int64             `json:"id"`
	Name           models.OdooString `json:"name"`
	Product        models.OdooRef    `json:"product_id"`
	Ref            models.OdooString `json:"ref"`
	ExpirationDate models.OdooString `json:"expiration_date"`
}

// syncLots pulls lots and serial numbers. Lots of products not synced yet are skipped.
func (s *SyncService) syncLots() (int, error) {
	fields := []string{"name", "product_id", "ref", "expiration_date"}

	return s.fetch("stock.lot", []interface{}{}, fields, func(raw json.RawMessage) error {
		var r lotRecord
		if err := json.Unmarshal(raw, &r); err != nil {
			return err
		}
		if !r.Product.Valid() {
			return fmt.Errorf("lot %d has no product", r.ID)
		}

		var product models.ProductProduct
		if err := s.db.Where("odoo_id = ?", r.Product.ID).Limit(1).Find(&product).Error; err != nil {
			return err
		}
		if product.ID == 0 {
			return fmt.Errorf("lot %d references unknown product %d", r.ID, r.Product.ID)
		}

		return s.db.Transaction(func(tx *gorm.DB) error {
			var lot models.StockLot
			err := tx.Where("odoo_id = ?", r.ID).
				Or("odoo_id IS NULL AND product_id = ? AND name = ?", product.ID, r.Name.String()).
				Order("odoo_id IS NULL").
				Limit(1).Find(&lot).Error
			if err != nil {
				return err
			}
			id := r.ID
			lot.OdooID = &id
			lot.Name = r.Name.String()
			lot.ProductID = product.ID
			lot.Ref = r.Ref.String()
			if t := parseOdooTime(r.ExpirationDate.String()); !t.IsZero() {
				lot.ExpirationDate = &t
			} else {
				lot.ExpirationDate = nil
			}
			return tx.Save(&lot).Error
		})
	})
}

func parseTracking(v string) models.Tracking {
	switch models.Tracking(v) {
	case models.TrackingLot:
		return models.TrackingLot
	case models.TrackingSerial:
		return models.TrackingSerial
	}
	return models.TrackingNone
}

// parseOdooTime parses Odoo's UTC datetime or date strings. Unparseable values give
// the zero time.
func parseOdooTime(v string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
