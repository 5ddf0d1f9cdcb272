package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Warehouse behaviors for condition-tagged rows
const (
	BehaviorNoChange    = "No Change"
	BehaviorUseAccepted = "Use Accepted Warehouse"
	BehaviorUseRejected = "Use Rejected Warehouse"
)

// ScannerSettings is the scanner configuration surface. Values come from the
// environment and may be overridden by a YAML file.
type ScannerSettings struct {
	EnableSound bool   `yaml:"enable_sound"`
	PromptQty   bool   `yaml:"prompt_qty"`
	DefaultQty  string `yaml:"default_qty" validate:"required,numeric"`

	NewRowTrigger    string `yaml:"new_row_trigger" validate:"max=64"`
	ConditionTrigger string `yaml:"condition_trigger" validate:"max=64"`
	QuantityTrigger  string `yaml:"quantity_trigger" validate:"max=64"`
	DeleteRowTrigger string `yaml:"delete_row_trigger" validate:"max=64"`

	WarehouseBehavior string `yaml:"warehouse_behavior" validate:"required,oneof='No Change' 'Use Accepted Warehouse' 'Use Rejected Warehouse'"`
	AcceptedWarehouse string `yaml:"accepted_warehouse"`
	RejectedWarehouse string `yaml:"rejected_warehouse"`

	MaxQtyField       string `yaml:"max_qty_field" validate:"omitempty,oneof=max_qty"`
	AllowItemCreation bool   `yaml:"allow_item_creation"`
	DisallowNewRows   bool   `yaml:"disallow_new_rows"`

	Company    string   `yaml:"company"`
	Conditions []string `yaml:"conditions" validate:"dive,required"`
	DebounceMs int      `yaml:"debounce_ms" validate:"gte=0,lte=10000"`
}

var validate = validator.New()

// DefaultScannerSettings reads the SCANNER_* environment variables.
func DefaultScannerSettings() ScannerSettings {
	s := ScannerSettings{
		EnableSound:       getEnvBool("SCANNER_SOUND", true),
		PromptQty:         getEnvBool("SCANNER_PROMPT_QTY", false),
		DefaultQty:        getEnv("SCANNER_DEFAULT_QTY", "1"),
		NewRowTrigger:     getEnv("SCANNER_TRIGGER_NEW_ROW", "TRG-NEW-ROW"),
		ConditionTrigger:  getEnv("SCANNER_TRIGGER_CONDITION", "TRG-CONDITION"),
		QuantityTrigger:   getEnv("SCANNER_TRIGGER_QTY", "TRG-QTY"),
		DeleteRowTrigger:  getEnv("SCANNER_TRIGGER_DELETE_ROW", "TRG-DELETE-ROW"),
		WarehouseBehavior: getEnv("SCANNER_WAREHOUSE_BEHAVIOR", BehaviorNoChange),
		AcceptedWarehouse: os.Getenv("SCANNER_ACCEPTED_WAREHOUSE"),
		RejectedWarehouse: os.Getenv("SCANNER_REJECTED_WAREHOUSE"),
		MaxQtyField:       os.Getenv("SCANNER_MAX_QTY_FIELD"),
		AllowItemCreation: getEnvBool("SCANNER_ALLOW_ITEM_CREATION", false),
		DisallowNewRows:   getEnvBool("SCANNER_DISALLOW_NEW_ROWS", false),
		Company:           os.Getenv("SCANNER_COMPANY"),
		DebounceMs:        getEnvInt("SCANNER_DEBOUNCE_MS", 300),
	}
	if v := os.Getenv("SCANNER_CONDITIONS"); v != "" {
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				s.Conditions = append(s.Conditions, c)
			}
		}
	}
	return s
}

// LoadScannerSettings builds the settings from the environment, applies the YAML
// file at path (if any) on top and validates the result.
func LoadScannerSettings(path string) (*ScannerSettings, error) {
	s := DefaultScannerSettings()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read scanner settings: %w", err)
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("failed to parse scanner settings %s: %w", path, err)
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks field rules and the warehouse names the behavior depends on.
func (s ScannerSettings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid scanner settings: %w", err)
	}
	if !decimal.RequireFromString(s.DefaultQty).IsPositive() {
		return fmt.Errorf("invalid scanner settings: default_qty must be greater than zero")
	}
	switch s.WarehouseBehavior {
	case BehaviorUseAccepted:
		if s.AcceptedWarehouse == "" {
			return fmt.Errorf("invalid scanner settings: accepted_warehouse is required for %q", s.WarehouseBehavior)
		}
	case BehaviorUseRejected:
		if s.RejectedWarehouse == "" {
			return fmt.Errorf("invalid scanner settings: rejected_warehouse is required for %q", s.WarehouseBehavior)
		}
	}

	seen := map[string]bool{}
	for _, t := range s.Triggers() {
		if t.Value == "" {
			continue
		}
		if seen[t.Value] {
			return fmt.Errorf("invalid scanner settings: trigger %q is used twice", t.Value)
		}
		seen[t.Value] = true
	}
	return nil
}

// Trigger is a named trigger barcode.
type Trigger struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Triggers lists the configured trigger barcodes in sheet order.
func (s ScannerSettings) Triggers() []Trigger {
	return []Trigger{
		{Label: "New row", Value: s.NewRowTrigger},
		{Label: "Enter quantity", Value: s.QuantityTrigger},
		{Label: "Condition", Value: s.ConditionTrigger},
		{Label: "Delete last row", Value: s.DeleteRowTrigger},
	}
}

// Debounce is the duplicate scan window.
func (s ScannerSettings) Debounce() time.Duration {
	return time.Duration(s.DebounceMs) * time.Millisecond
}

// Quantity is the default scan quantity. Call only on validated settings.
func (s ScannerSettings) Quantity() decimal.Decimal {
	return decimal.RequireFromString(s.DefaultQty)
}
