package document

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/xelth-com/eckscan/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrDocumentNotFound = errors.New("document not found")

// Repository persists scan documents. Mutate serializes load-change-save per
// document so two scans never interleave on the same item table.
type Repository struct {
	db    *gorm.DB
	log   *logrus.Logger
	locks sync.Map // document id -> *sync.Mutex
}

func NewRepository(db *gorm.DB, log *logrus.Logger) *Repository {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Repository{db: db, log: log}
}

// Create inserts a document with its lines.
func (r *Repository) Create(ctx context.Context, doc *models.ScanDocument) error {
	for i := range doc.Lines {
		doc.Lines[i].Idx = i + 1
	}
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	r.log.WithFields(logrus.Fields{"document": doc.ID, "type": doc.DocType}).Info("document created")
	return nil
}

// Load returns a document with its lines in table order.
func (r *Repository) Load(ctx context.Context, id string) (*models.ScanDocument, error) {
	var doc models.ScanDocument
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("idx") }).
		First(&doc, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", id, err)
	}
	return &doc, nil
}

// List returns the most recent documents without their lines.
func (r *Repository) List(ctx context.Context, limit int) ([]models.ScanDocument, error) {
	var docs []models.ScanDocument
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// Save writes the document header and replaces its lines in one transaction.
func (r *Repository) Save(ctx context.Context, doc *models.ScanDocument) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(doc).Error; err != nil {
			return fmt.Errorf("failed to save document %s: %w", doc.ID, err)
		}
		if err := tx.Where("document_id = ?", doc.ID).Delete(&models.ScanLine{}).Error; err != nil {
			return fmt.Errorf("failed to clear lines of %s: %w", doc.ID, err)
		}
		if len(doc.Lines) == 0 {
			return nil
		}
		for i := range doc.Lines {
			doc.Lines[i].DocumentID = doc.ID
			doc.Lines[i].Idx = i + 1
		}
		if err := tx.Create(&doc.Lines).Error; err != nil {
			return fmt.Errorf("failed to write lines of %s: %w", doc.ID, err)
		}
		return nil
	})
}

func (r *Repository) lock(id string) func() {
	v, _ := r.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Mutate loads the document, hands its item table to fn and saves it when fn
// reports a change. Nothing is saved when fn fails.
func (r *Repository) Mutate(ctx context.Context, id string, fn func(t *Table) (bool, error)) (*models.ScanDocument, error) {
	unlock := r.lock(id)
	defer unlock()

	doc, err := r.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	t := NewTable(doc)
	changed, err := fn(t)
	if err != nil {
		return nil, err
	}
	doc = t.Document()
	if !changed {
		return doc, nil
	}
	if err := r.Save(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}
