package reconcile

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xelth-com/eckscan/internal/scanmode"
)

// selectRow picks the row a scan merges into. A nil row with a nil error means a new
// row must be appended. warehouse is the warehouse the scan resolved to.
func (e *Engine) selectRow(table ItemTable, item *Item, modes scanmode.Modes, warehouse string) (Row, error) {
	if modes.ForceNewRow {
		return nil, nil
	}

	rows := table.Rows()
	batchAware := table.HasField(FieldBatchNo) && item.BatchNo != ""

	// Condition tags are never merged into an existing line.
	if !modes.HasCondition() {
		for _, r := range rows {
			if matches(r, item, batchAware, warehouse, modes.Condition) && !e.atCap(r) {
				return r, nil
			}
		}
		for _, r := range rows {
			if r.Get(FieldItemCode) == "" {
				return r, nil
			}
		}
	}

	if e.settings.DisallowNewRows {
		return nil, ErrMaxQtyReached
	}
	return nil, nil
}

// matches is the merge predicate between a scanned item and an existing row.
func matches(r Row, item *Item, batchAware bool, warehouse, condition string) bool {
	if r.Get(FieldItemCode) != item.ItemCode {
		return false
	}
	if batchAware {
		if b := r.Get(FieldBatchNo); b != "" && b != item.BatchNo {
			return false
		}
	}
	if item.UOM != "" && r.Get(FieldUOM) != item.UOM {
		return false
	}
	// A missing warehouse on either side is not a mismatch.
	if rw := r.Get(FieldWarehouse); warehouse != "" && rw != "" && rw != warehouse {
		return false
	}
	return r.Get(FieldCondition) == condition
}

// atCap reports whether the row reached the max quantity stored in the configured field.
func (e *Engine) atCap(r Row) bool {
	if e.settings.MaxQtyField == "" {
		return false
	}
	limit, err := decimal.NewFromString(strings.TrimSpace(r.Get(e.settings.MaxQtyField)))
	if err != nil || !limit.IsPositive() {
		return false
	}
	return !rowQty(r).LessThan(limit)
}

func rowQty(r Row) decimal.Decimal {
	q, err := decimal.NewFromString(strings.TrimSpace(r.Get(FieldQty)))
	if err != nil {
		return decimal.Zero
	}
	return q
}

func hasSerial(list, serial string) bool {
	for _, s := range strings.Split(list, "\n") {
		if strings.TrimSpace(s) == serial {
			return true
		}
	}
	return false
}
