package reconcile

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyScan        = errors.New("empty scan")
	ErrItemNotFound     = errors.New("item not found for barcode")
	ErrLookupTransport  = errors.New("lookup failed, please try again")
	ErrMaxQtyReached    = errors.New("maximum quantity reached")
	ErrDuplicateSerial  = errors.New("serial number already scanned")
	ErrInvalidQuantity  = errors.New("quantity must be greater than zero")
	ErrPendingNotFound  = errors.New("no pending quantity prompt")
	ErrNoRowToDelete    = errors.New("no row to delete")
	ErrUnknownCondition = errors.New("unknown condition")
	ErrInvalidChoice    = errors.New("invalid warehouse choice")
)

// GTINNotFoundError is returned when no product carries the scanned GTIN. The caller
// can attach the GTIN to an existing item or create a new one and scan again.
type GTINNotFoundError struct {
	GTIN   string
	Lot    string
	Expiry string
}

func (e *GTINNotFoundError) Error() string {
	return fmt.Sprintf("GTIN %s not found", e.GTIN)
}

// Is lets errors.Is(err, ErrItemNotFound) match GTIN misses too.
func (e *GTINNotFoundError) Is(target error) bool {
	return target == ErrItemNotFound
}
