package reconcile

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/xelth-com/eckscan/internal/lookup"
)

// Item table field names written by the engine.
const (
	FieldItemCode        = "item_code"
	FieldBatchNo         = "batch_no"
	FieldBatchExpiryDate = "batch_expiry_date"
	FieldSerialNo        = "serial_no"
	FieldUOM             = "uom"
	FieldQty             = "qty"
	FieldWarehouse       = "warehouse"
	FieldCondition       = "condition"
	FieldBarcode         = "barcode"
)

// Row is one line of a document's item table.
type Row interface {
	ID() string
	Get(field string) string
	Set(field, value string) error
}

// ItemTable is the document child table the engine reconciles scans into.
type ItemTable interface {
	Rows() []Row
	AppendRow() (Row, error)
	RemoveRow(id string) error
	HasField(field string) bool
}

// Resolver maps scanned identifiers to catalog records.
type Resolver interface {
	LookupGTIN(ctx context.Context, q lookup.GTINQuery) (*lookup.GTINResult, error)
	LookupBarcode(ctx context.Context, q lookup.BarcodeQuery) (*lookup.BarcodeResult, error)
}

// ConditionSource lists the condition tags offered by the condition picker.
type ConditionSource interface {
	Conditions(ctx context.Context) ([]string, error)
}

// EventKind classifies notifier events.
type EventKind string

const (
	EventSuccess      EventKind = "success"
	EventFailure      EventKind = "failure"
	EventPrompt       EventKind = "prompt"
	EventInfo         EventKind = "info"
	EventGTINNotFound EventKind = "gtin_not_found"
)

// Event is a UI side effect: an alert, a sound cue or a prompt.
type Event struct {
	Kind      EventKind `json:"kind"`
	SessionID string    `json:"session_id"`
	Message   string    `json:"message"`
	Sound     bool      `json:"sound"`
	Result    *Result   `json:"result,omitempty"`
	GTIN      string    `json:"gtin,omitempty"`
	Lot       string    `json:"lot,omitempty"`
	Expiry    string    `json:"expiry,omitempty"`
}

// Notifier delivers events to whatever UI is attached to a session.
type Notifier interface {
	Notify(ev Event)
}

// WarehouseBehavior is the configured default warehouse for condition-tagged rows.
type WarehouseBehavior string

const (
	WarehouseNoChange    WarehouseBehavior = "No Change"
	WarehouseUseAccepted WarehouseBehavior = "Use Accepted Warehouse"
	WarehouseUseRejected WarehouseBehavior = "Use Rejected Warehouse"
)

// Settings is the read-only configuration surface of the engine.
type Settings struct {
	EnableSound bool
	PromptQty   bool
	DefaultQty  decimal.Decimal

	NewRowTrigger    string
	ConditionTrigger string
	QuantityTrigger  string
	DeleteRowTrigger string

	WarehouseBehavior WarehouseBehavior
	AcceptedWarehouse string
	RejectedWarehouse string

	MaxQtyField       string
	AllowItemCreation bool
	// DisallowNewRows restricts scans to the rows already in the table, e.g. a pick
	// list with max quantities. Only a forced new row may still append.
	DisallowNewRows bool

	Company    string
	Conditions []string
}

// Item is a resolved catalog record, whichever lookup path produced it.
type Item struct {
	ItemCode         string `json:"item_code"`
	Barcode          string `json:"barcode,omitempty"`
	BatchNo          string `json:"batch_no,omitempty"`
	BatchExpiryDate  string `json:"batch_expiry_date,omitempty"`
	SerialNo         string `json:"serial_no,omitempty"`
	UOM              string `json:"uom,omitempty"`
	DefaultWarehouse string `json:"default_warehouse,omitempty"`
}

// Action names the outcome of a scan event.
type Action string

const (
	ActionNewRowArmed     Action = "new_row_armed"
	ActionPromptArmed     Action = "quantity_prompt_armed"
	ActionConditionPicker Action = "condition_picker"
	ActionRowDeleted      Action = "row_deleted"
	ActionWarehouseSet    Action = "warehouse_set"
	ActionAwaitingQty     Action = "awaiting_quantity"
	ActionRowCreated      Action = "row_created"
	ActionRowUpdated      Action = "row_updated"
)

// Result is the outcome of a scan event.
type Result struct {
	Action     Action          `json:"action"`
	Message    string          `json:"message"`
	RowID      string          `json:"row_id,omitempty"`
	RowIndex   int             `json:"row_index,omitempty"` // 1-based
	QtyDelta   decimal.Decimal `json:"qty_delta"`
	Warehouse  string          `json:"warehouse,omitempty"`
	Item       *Item           `json:"item,omitempty"`
	Conditions []string        `json:"conditions,omitempty"`
	PendingID  string          `json:"pending_id,omitempty"`
}

// Mutates reports whether the result changed the item table.
func (r *Result) Mutates() bool {
	switch r.Action {
	case ActionRowCreated, ActionRowUpdated, ActionRowDeleted:
		return true
	}
	return false
}
