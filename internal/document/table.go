package document

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xelth-com/eckscan/internal/models"
	"github.com/xelth-com/eckscan/internal/reconcile"
)

// FieldMaxQty is the per-row cap column.
const FieldMaxQty = "max_qty"

var (
	ErrUnknownField = errors.New("unknown item table field")
	ErrRowNotFound  = errors.New("row not found")
)

// Table adapts a loaded ScanDocument to the reconcile item table. Changes stay in
// memory until Repository.Save.
type Table struct {
	doc   *models.ScanDocument
	lines []*models.ScanLine
}

// NewTable wraps doc. Lines are kept in Idx order.
func NewTable(doc *models.ScanDocument) *Table {
	t := &Table{doc: doc, lines: make([]*models.ScanLine, len(doc.Lines))}
	for i := range doc.Lines {
		t.lines[i] = &doc.Lines[i]
	}
	return t
}

// Document returns the document with lines renumbered in table order.
func (t *Table) Document() *models.ScanDocument {
	lines := make([]models.ScanLine, len(t.lines))
	for i, l := range t.lines {
		l.Idx = i + 1
		lines[i] = *l
	}
	t.doc.Lines = lines
	// Re-point at the new backing array so later edits land in the document.
	for i := range t.doc.Lines {
		t.lines[i] = &t.doc.Lines[i]
	}
	return t.doc
}

func (t *Table) Rows() []reconcile.Row {
	rows := make([]reconcile.Row, len(t.lines))
	for i, l := range t.lines {
		rows[i] = &Row{line: l, hasBatch: t.doc.HasBatch}
	}
	return rows
}

func (t *Table) AppendRow() (reconcile.Row, error) {
	l := &models.ScanLine{
		ID:         uuid.NewString(),
		DocumentID: t.doc.ID,
		Idx:        len(t.lines) + 1,
	}
	t.lines = append(t.lines, l)
	return &Row{line: l, hasBatch: t.doc.HasBatch}, nil
}

func (t *Table) RemoveRow(id string) error {
	for i, l := range t.lines {
		if l.ID == id {
			t.lines = append(t.lines[:i], t.lines[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrRowNotFound, id)
}

func (t *Table) HasField(field string) bool {
	switch field {
	case reconcile.FieldBatchNo, reconcile.FieldBatchExpiryDate:
		return t.doc.HasBatch
	case reconcile.FieldItemCode, reconcile.FieldSerialNo, reconcile.FieldUOM, reconcile.FieldQty,
		reconcile.FieldWarehouse, reconcile.FieldCondition, reconcile.FieldBarcode, FieldMaxQty:
		return true
	}
	return false
}

// Row is a field-addressable view of one ScanLine.
type Row struct {
	line     *models.ScanLine
	hasBatch bool
}

func (r *Row) ID() string { return r.line.ID }

func (r *Row) Get(field string) string {
	l := r.line
	switch field {
	case reconcile.FieldItemCode:
		return l.ItemCode
	case reconcile.FieldBatchNo:
		return l.BatchNo
	case reconcile.FieldBatchExpiryDate:
		return l.BatchExpiryDate
	case reconcile.FieldSerialNo:
		return l.SerialNo
	case reconcile.FieldUOM:
		return l.UOM
	case reconcile.FieldQty:
		return l.Qty.String()
	case reconcile.FieldWarehouse:
		return l.Warehouse
	case reconcile.FieldCondition:
		return l.Condition
	case reconcile.FieldBarcode:
		return l.Barcode
	case FieldMaxQty:
		if !l.MaxQty.Valid {
			return ""
		}
		return l.MaxQty.Decimal.String()
	}
	return ""
}

func (r *Row) Set(field, value string) error {
	l := r.line
	switch field {
	case reconcile.FieldItemCode:
		l.ItemCode = value
	case reconcile.FieldBatchNo, reconcile.FieldBatchExpiryDate:
		if !r.hasBatch {
			return fmt.Errorf("%w: %s", ErrUnknownField, field)
		}
		if field == reconcile.FieldBatchNo {
			l.BatchNo = value
		} else {
			l.BatchExpiryDate = value
		}
	case reconcile.FieldSerialNo:
		l.SerialNo = value
	case reconcile.FieldUOM:
		l.UOM = value
	case reconcile.FieldQty:
		q, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("invalid qty %q: %w", value, err)
		}
		l.Qty = q
	case reconcile.FieldWarehouse:
		l.Warehouse = value
	case reconcile.FieldCondition:
		l.Condition = value
	case reconcile.FieldBarcode:
		l.Barcode = value
	case FieldMaxQty:
		if strings.TrimSpace(value) == "" {
			l.MaxQty = decimal.NullDecimal{}
			return nil
		}
		q, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("invalid max qty %q: %w", value, err)
		}
		l.MaxQty = decimal.NewNullDecimal(q)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return nil
}
