package lookup

// GTINQuery is the GS1 lookup request.
type GTINQuery struct {
	GTIN   string `json:"gtin" validate:"required,numeric"`
	Lot    string `json:"lot,omitempty"`
	Expiry string `json:"expiry,omitempty"` // YYYY-MM-DD when the scan carried a valid date
}

// GTINResult is the GS1 lookup response. GTINNotFound marks the recoverable case where
// no product carries the GTIN yet.
type GTINResult struct {
	FoundItem       string `json:"found_item,omitempty"`
	Batch           string `json:"batch,omitempty"`
	BatchExpiryDate string `json:"batch_expiry_date,omitempty"`
	Error           string `json:"error,omitempty"`

	GTINNotFound bool   `json:"gtin_not_found,omitempty"`
	GTIN         string `json:"gtin,omitempty"`
	Lot          string `json:"lot,omitempty"`
	Expiry       string `json:"expiry,omitempty"`
}

// QueryContext narrows a plain barcode lookup.
type QueryContext struct {
	Warehouse string `json:"warehouse,omitempty"`
	Company   string `json:"company,omitempty"`
}

// BarcodeQuery is the plain barcode lookup request.
type BarcodeQuery struct {
	SearchValue string       `json:"search_value" validate:"required"`
	Context     QueryContext `json:"context"`
}

// BarcodeResult is the plain barcode lookup response. A result carrying only Warehouse
// identifies a location barcode.
type BarcodeResult struct {
	ItemCode         string `json:"item_code,omitempty"`
	Barcode          string `json:"barcode,omitempty"`
	BatchNo          string `json:"batch_no,omitempty"`
	BatchExpiryDate  string `json:"batch_expiry_date,omitempty"`
	SerialNo         string `json:"serial_no,omitempty"`
	UOM              string `json:"uom,omitempty"`
	DefaultWarehouse string `json:"default_warehouse,omitempty"`
	Warehouse        string `json:"warehouse,omitempty"`
	HasBatchNo       bool   `json:"has_batch_no,omitempty"`
	HasSerialNo      bool   `json:"has_serial_no,omitempty"`
	Error            string `json:"error,omitempty"`
}
