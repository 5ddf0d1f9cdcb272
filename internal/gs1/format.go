package gs1

import "strings"

// displayOrder is the canonical field order for rendering. Net weight is decoded but
// never rendered.
var displayOrder = []AI{AIGTIN, AIExpiry, AIBestBefore, AIProdDate, AILot, AISerial, AIQuantity}

// Format renders the recognized fields as "(AI)value" pairs in canonical order.
func (d *Decoded) Format() string {
	return d.render(true)
}

// String re-encodes the recognized fields as a raw AI-prefixed payload in canonical order.
// Parsing the result yields the same values for the supported subset.
func (d *Decoded) String() string {
	return d.render(false)
}

func (d *Decoded) render(parens bool) string {
	var b strings.Builder
	for _, ai := range displayOrder {
		v, ok := d.Get(ai.Name())
		if !ok {
			continue
		}
		if parens {
			b.WriteString("(" + ai.Code() + ")")
		} else {
			b.WriteString(ai.Code())
		}
		b.WriteString(v)
	}
	return b.String()
}
