package reconcile

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xelth-com/eckscan/internal/scanmode"
)

// write runs the field write sequence and returns the warehouse stamped on the row.
// Every write is best-effort: the host table may reject a field while it refreshes,
// which must not stop the remaining writes.
func (e *Engine) write(row Row, item *Item, modes scanmode.Modes, qty decimal.Decimal, lastWarehouse string) string {
	set := func(field, value string) {
		if err := row.Set(field, value); err != nil {
			e.log.WithFields(logrus.Fields{
				"row":   row.ID(),
				"field": field,
			}).WithError(err).Debug("field write skipped")
		}
	}

	set(FieldItemCode, item.ItemCode)
	set(FieldQty, rowQty(row).Add(qty).String())
	if item.UOM != "" {
		set(FieldUOM, item.UOM)
	}
	if item.SerialNo != "" {
		set(FieldSerialNo, appendSerial(row.Get(FieldSerialNo), item.SerialNo))
	}
	if item.BatchNo != "" {
		set(FieldBatchNo, item.BatchNo)
	}
	if item.BatchExpiryDate != "" {
		set(FieldBatchExpiryDate, item.BatchExpiryDate)
	}
	if item.Barcode != "" {
		set(FieldBarcode, item.Barcode)
	}

	warehouse := ""
	if lastWarehouse != "" {
		set(FieldWarehouse, lastWarehouse)
		warehouse = lastWarehouse
	}

	if modes.HasCondition() {
		set(FieldCondition, modes.Condition)
		if wh := e.conditionWarehouse(modes.ConditionChoice); wh != "" {
			set(FieldWarehouse, wh)
			warehouse = wh
		}
	}

	if warehouse == "" {
		warehouse = item.DefaultWarehouse
	}
	return warehouse
}

// conditionWarehouse resolves the warehouse for a condition-tagged row. An explicit
// per-scan choice wins over the configured behavior; "none" means no override.
func (e *Engine) conditionWarehouse(choice scanmode.WarehouseChoice) string {
	switch choice {
	case scanmode.ChoiceAccepted:
		return e.settings.AcceptedWarehouse
	case scanmode.ChoiceRejected:
		return e.settings.RejectedWarehouse
	case scanmode.ChoiceNone:
		return ""
	}

	switch e.settings.WarehouseBehavior {
	case WarehouseUseAccepted:
		return e.settings.AcceptedWarehouse
	case WarehouseUseRejected:
		return e.settings.RejectedWarehouse
	}
	return ""
}

func appendSerial(list, serial string) string {
	list = strings.TrimRight(list, "\n")
	if list == "" {
		return serial
	}
	return list + "\n" + serial
}
