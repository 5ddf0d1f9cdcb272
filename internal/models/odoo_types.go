package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// OdooString is a custom string type that handles Odoo's dynamic typing.
// Odoo returns `false` (boolean) for empty text fields instead of an empty string.
type OdooString string

// UnmarshalJSON accepts a string or bool(false)
func (os *OdooString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*os = OdooString(s)
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil && !b {
		*os = ""
		return nil
	}

	return errors.New("OdooString: cannot unmarshal value into string")
}

// Value implements driver.Valuer interface for database storage
func (os OdooString) Value() (driver.Value, error) {
	return string(os), nil
}

// Scan implements sql.Scanner interface for database retrieval
func (os *OdooString) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*os = ""
	case string:
		*os = OdooString(v)
	case []byte:
		*os = OdooString(string(v))
	default:
		return fmt.Errorf("failed to scan OdooString: %v", value)
	}
	return nil
}

func (os OdooString) String() string {
	return string(os)
}

// OdooRef is a many2one value. Odoo sends `[id, "display name"]` or `false`.
type OdooRef struct {
	ID   int64
	Name string
}

// UnmarshalJSON accepts [id, name], a bare id or bool(false)
func (r *OdooRef) UnmarshalJSON(data []byte) error {
	var pair []interface{}
	if err := json.Unmarshal(data, &pair); err == nil {
		*r = OdooRef{}
		if len(pair) > 0 {
			if id, ok := pair[0].(float64); ok {
				r.ID = int64(id)
			}
		}
		if len(pair) > 1 {
			if name, ok := pair[1].(string); ok {
				r.Name = name
			}
		}
		return nil
	}

	var id int64
	if err := json.Unmarshal(data, &id); err == nil {
		*r = OdooRef{ID: id}
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil && !b {
		*r = OdooRef{}
		return nil
	}

	return errors.New("OdooRef: cannot unmarshal many2one value")
}

// Valid reports whether the reference points at a record.
func (r OdooRef) Valid() bool { return r.ID > 0 }
