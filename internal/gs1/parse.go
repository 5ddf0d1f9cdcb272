package gs1

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Field is one decoded AI value.
type Field struct {
	Name  string
	Value string
}

// Decoded is the result of tokenizing a GS1 payload. Fields keep the order in which
// their AI first appeared.
type Decoded struct {
	fields []Field
}

// Get returns the value stored under a semantic field name.
func (d *Decoded) Get(name string) (string, bool) {
	if d == nil {
		return "", false
	}
	for _, f := range d.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Value returns the field value or an empty string.
func (d *Decoded) Value(name string) string {
	v, _ := d.Get(name)
	return v
}

// Fields returns a copy of the decoded fields in insertion order.
func (d *Decoded) Fields() []Field {
	if d == nil {
		return nil
	}
	out := make([]Field, len(d.fields))
	copy(out, d.fields)
	return out
}

// Map returns the decoded fields as a plain map.
func (d *Decoded) Map() map[string]string {
	out := make(map[string]string, len(d.fields))
	for _, f := range d.Fields() {
		out[f.Name] = f.Value
	}
	return out
}

// Len returns the number of distinct fields.
func (d *Decoded) Len() int {
	if d == nil {
		return 0
	}
	return len(d.fields)
}

func (d *Decoded) set(name, value string) {
	for i := range d.fields {
		if d.fields[i].Name == name {
			d.fields[i].Value = value
			return
		}
	}
	d.fields = append(d.fields, Field{Name: name, Value: value})
}

// Parse tokenizes a concatenated GS1 payload (no FNC1 separators).
// It returns false when the input cannot be consumed completely.
func Parse(raw string) (*Decoded, bool) {
	if raw == "" {
		return nil, false
	}

	d := &Decoded{}
	pos := 0
	for pos < len(raw) {
		ai, ok := lookup(raw, pos, false)
		if !ok {
			return nil, false
		}
		start := pos + len(ai.Code())
		length := ai.Length()

		var end int
		if !length.Variable {
			end = start + length.Max
			if end > len(raw) {
				return nil, false
			}
		} else {
			end = variableEnd(raw, start, length.Max)
			if end == start {
				return nil, false
			}
		}

		// Duplicate AIs overwrite: last write wins.
		d.set(strings.ToLower(ai.Name()), raw[start:end])
		pos = end
	}
	return d, true
}

// variableEnd finds where a variable-length value starting at start stops: at the next
// recognizable AI (at least one character in), at max characters, or at end of input.
func variableEnd(raw string, start, max int) int {
	limit := start + max
	if limit > len(raw) {
		limit = len(raw)
	}
	for i := start + 1; i < limit; i++ {
		if _, ok := lookup(raw, i, true); ok {
			return i
		}
	}
	return limit
}

// IsGS1 reports whether s starts with a registered AI code. Inputs shorter than four
// characters are never treated as GS1.
func IsGS1(s string) bool {
	if len(s) < 4 {
		return false
	}
	if _, ok := byCode3[s[:3]]; ok {
		return true
	}
	_, ok := byCode2[s[:2]]
	return ok
}

// ParseDate converts a GS1 YYMMDD value into a date. Day "00" means the last day of the
// month; years 00-49 fall in 20xx, 50-99 in 19xx.
func ParseDate(yymmdd string) (time.Time, error) {
	if len(yymmdd) != 6 {
		return time.Time{}, errors.New("gs1 date must have 6 digits")
	}
	n, err := strconv.Atoi(yymmdd)
	if err != nil || n < 0 {
		return time.Time{}, errors.New("gs1 date must be numeric")
	}
	yy, mm, dd := n/10000, (n/100)%100, n%100
	if mm < 1 || mm > 12 {
		return time.Time{}, errors.New("gs1 date month out of range")
	}

	year := 2000 + yy
	if yy >= 50 {
		year = 1900 + yy
	}

	if dd == 0 {
		// First day of next month minus one day.
		return time.Date(year, time.Month(mm)+1, 0, 0, 0, 0, 0, time.UTC), nil
	}
	t := time.Date(year, time.Month(mm), dd, 0, 0, 0, 0, time.UTC)
	if t.Day() != dd {
		return time.Time{}, errors.New("gs1 date day out of range")
	}
	return t, nil
}
