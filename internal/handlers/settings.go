package handlers

import (
	"github.com/xelth-com/eckscan/internal/config"
	"github.com/xelth-com/eckscan/internal/reconcile"
)

// EngineSettings converts validated scanner settings into the engine configuration.
func EngineSettings(s config.ScannerSettings) reconcile.Settings {
	return reconcile.Settings{
		EnableSound:       s.EnableSound,
		PromptQty:         s.PromptQty,
		DefaultQty:        s.Quantity(),
		NewRowTrigger:     s.NewRowTrigger,
		ConditionTrigger:  s.ConditionTrigger,
		QuantityTrigger:   s.QuantityTrigger,
		DeleteRowTrigger:  s.DeleteRowTrigger,
		WarehouseBehavior: reconcile.WarehouseBehavior(s.WarehouseBehavior),
		AcceptedWarehouse: s.AcceptedWarehouse,
		RejectedWarehouse: s.RejectedWarehouse,
		MaxQtyField:       s.MaxQtyField,
		AllowItemCreation: s.AllowItemCreation,
		DisallowNewRows:   s.DisallowNewRows,
		Company:           s.Company,
		Conditions:        s.Conditions,
	}
}
