package gs1

import (
	"math/rand"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		want map[string]string
	}{
		{
			name: "gtin expiry lot at end",
			raw:  "01123456789012341717123010LOT123A",
			want: map[string]string{"gtin": "12345678901234", "expiry": "171230", "lot": "LOT123A"},
		},
		{
			name: "lot terminated by serial",
			raw:  "011234567890123410ABC21SNXYZ",
			want: map[string]string{"gtin": "12345678901234", "lot": "ABC", "serial": "SNXYZ"},
		},
		{
			name: "lot value starting with a code",
			raw:  "101712",
			want: map[string]string{"lot": "1712"},
		},
		{
			name: "three digit code wins",
			raw:  "31030012503012",
			want: map[string]string{"net_weight_kg": "3001250", "quantity": "12"},
		},
		{
			name: "gtin not recognized inside a variable field",
			raw:  "21A01B",
			want: map[string]string{"serial": "A01B"},
		},
		{
			name: "variable field capped at max length",
			raw:  "10ABCDEFGHIJKLMNOPQRST17251231",
			want: map[string]string{"lot": "ABCDEFGHIJKLMNOPQRST", "expiry": "251231"},
		},
		{
			name: "duplicate ai last write wins",
			raw:  "10AAA10BBB",
			want: map[string]string{"lot": "BBB"},
		},
		{
			name: "all dates",
			raw:  "112401011525063017251231",
			want: map[string]string{"prod_date": "240101", "best_before": "250630", "expiry": "251231"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Parse(tc.raw)
			if !ok {
				t.Fatalf("Parse(%q) failed", tc.raw)
			}
			if !reflect.DeepEqual(got.Map(), tc.want) {
				t.Errorf("Parse(%q) = %v, want %v", tc.raw, got.Map(), tc.want)
			}
		})
	}
}

func TestParseInsertionOrder(t *testing.T) {
	got, ok := Parse("10AAA2199991710101710AAB")
	if !ok {
		t.Fatal("parse failed")
	}
	var names []string
	for _, f := range got.Fields() {
		names = append(names, f.Name)
	}
	want := []string{"lot", "serial", "expiry"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("field order = %v, want %v", names, want)
	}
	if got.Value("lot") != "AAB" {
		t.Errorf("lot = %q, want overwritten value AAB", got.Value("lot"))
	}
}

func TestParseFailures(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"unknown code", "99ABC"},
		{"unknown code after field", "1712123199"},
		{"gtin too short", "0112345"},
		{"expiry too short", "0112345678901234171230"},
		{"net weight too short", "310123"},
		{"empty variable value", "10"},
		{"lookahead hits truncated fixed field", "10A17123"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got, ok := Parse(tc.raw); ok || got != nil {
				t.Errorf("Parse(%q) = %v, %v; want failure", tc.raw, got, ok)
			}
		})
	}
}

func TestParseTruncatedFixedFieldsAlwaysFail(t *testing.T) {
	for _, ai := range All() {
		l := ai.Length()
		if l.Variable {
			continue
		}
		for n := 0; n < l.Max; n++ {
			raw := "10LOT" + ai.Code() + strings.Repeat("7", n)
			if ai == AIGTIN {
				// GTIN is not a lookahead terminator, so place it first.
				raw = ai.Code() + strings.Repeat("7", n)
			}
			if _, ok := Parse(raw); ok {
				t.Errorf("Parse(%q) succeeded with %d of %d characters", raw, n, l.Max)
			}
		}
	}
}

func TestIsGS1(t *testing.T) {
	testCases := []struct {
		in   string
		want bool
	}{
		{"", false},
		{"01", false},
		{"011", false},
		{"0112", true},
		{"3101234", true},
		{"30ABC", true},
		{"9912345", false},
		{"4006381333931", false},
		{"ABCD", false},
	}

	for _, tc := range testCases {
		if got := IsGS1(tc.in); got != tc.want {
			t.Errorf("IsGS1(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFormatAndString(t *testing.T) {
	d, ok := Parse("011234567890123421SNX10ABC17251231310000100015240101" + "3012")
	if !ok {
		t.Fatal("parse failed")
	}

	wantFmt := "(01)12345678901234(17)251231(15)240101(10)ABC(21)SNX(30)12"
	if got := d.Format(); got != wantFmt {
		t.Errorf("Format() = %s, want %s", got, wantFmt)
	}

	wantRaw := "0112345678901234172512311524010110ABC21SNX3012"
	if got := d.String(); got != wantRaw {
		t.Errorf("String() = %s, want %s", got, wantRaw)
	}
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		raw, want := randomPayload(rng)

		first, ok := Parse(raw)
		if !ok {
			t.Fatalf("Parse(%q) failed", raw)
		}
		if !reflect.DeepEqual(first.Map(), want) {
			t.Fatalf("Parse(%q) = %v, want %v", raw, first.Map(), want)
		}

		delete(want, FieldNetWeightKg)
		encoded := first.String()
		if encoded == "" {
			if len(want) != 0 {
				t.Fatalf("String() empty for %v", want)
			}
			continue
		}
		second, ok := Parse(encoded)
		if !ok {
			t.Fatalf("re-Parse(%q) failed (from %q)", encoded, raw)
		}
		if !reflect.DeepEqual(second.Map(), want) {
			t.Fatalf("re-Parse(%q) = %v, want %v", encoded, second.Map(), want)
		}
	}
}

// randomPayload concatenates a random subset of AIs. GTIN always leads since it cannot
// terminate a variable field; variable values avoid characters that could form codes.
func randomPayload(rng *rand.Rand) (string, map[string]string) {
	var picked []AI
	for _, ai := range All() {
		if ai != AIGTIN && rng.Intn(2) == 0 {
			picked = append(picked, ai)
		}
	}
	rng.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	if rng.Intn(2) == 0 || len(picked) == 0 {
		picked = append([]AI{AIGTIN}, picked...)
	}

	var b strings.Builder
	want := map[string]string{}
	for _, ai := range picked {
		v := randomValue(rng, ai)
		b.WriteString(ai.Code() + v)
		want[ai.Name()] = v
	}
	return b.String(), want
}

func randomValue(rng *rand.Rand, ai AI) string {
	l := ai.Length()
	n := l.Max
	if l.Variable {
		n = 1 + rng.Intn(l.Max)
	}
	var b strings.Builder
	for i := 0; i < n; i++ {
		switch {
		case ai.Class() == Alphanumeric:
			b.WriteByte(byte('A' + rng.Intn(26)))
		case l.Variable:
			b.WriteByte(byte('4' + rng.Intn(6)))
		default:
			b.WriteByte(byte('0' + rng.Intn(10)))
		}
	}
	return b.String()
}

func TestPrecedenceIsUnambiguous(t *testing.T) {
	rules := Precedence()
	rank := map[int]int{}
	for i, r := range rules {
		rank[r.CodeLen] = i
	}

	all := All()
	for _, a := range all {
		if _, ok := rank[len(a.Code())]; !ok {
			t.Errorf("AI %s has no precedence rule for length %d", a.Code(), len(a.Code()))
		}
		for _, b := range all {
			if a == b {
				continue
			}
			if a.Code() == b.Code() {
				t.Errorf("duplicate code %s", a.Code())
			}
			if strings.HasPrefix(b.Code(), a.Code()) && rank[len(b.Code())] >= rank[len(a.Code())] {
				t.Errorf("code %s shadows %s without a defined winner", a.Code(), b.Code())
			}
		}
	}
}

func TestRegistryIsComplete(t *testing.T) {
	for _, ai := range All() {
		if ai.Code() == "" || ai.Name() == "" || ai.Length().Max == 0 {
			t.Errorf("AI %d is missing registry data", ai)
		}
	}
}

func TestParseDate(t *testing.T) {
	testCases := []struct {
		in   string
		want time.Time
	}{
		{"251231", time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)},
		{"240200", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{"991001", time.Date(1999, 10, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range testCases {
		got, err := ParseDate(tc.in)
		if err != nil {
			t.Errorf("ParseDate(%s) error: %v", tc.in, err)
			continue
		}
		if !got.Equal(tc.want) {
			t.Errorf("ParseDate(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"", "2512", "251331", "250230", "25AB01"} {
		if _, err := ParseDate(bad); err == nil {
			t.Errorf("ParseDate(%q) should fail", bad)
		}
	}
}
