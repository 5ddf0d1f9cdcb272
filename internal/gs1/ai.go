package gs1

// ==========================================
// APPLICATION IDENTIFIERS
// Only the fixed subset below is recognized. Anything else is a parse failure.
// ==========================================

// AI is a registered GS1 Application Identifier.
type AI int

const (
	AIGTIN AI = iota
	AILot
	AIProdDate
	AIBestBefore
	AIExpiry
	AISerial
	AIQuantity
	AINetWeightKg

	aiCount
)

// ValueClass describes the characters an AI value may carry.
type ValueClass int

const (
	Numeric ValueClass = iota
	Alphanumeric
)

// Length is the length policy of an AI value: fixed (Max == Fixed) or variable up to Max.
type Length struct {
	Variable bool
	Max      int
}

func fixed(n int) Length    { return Length{Max: n} }
func variable(n int) Length { return Length{Variable: true, Max: n} }

// Semantic field names carried by a Decoded scan.
const (
	FieldGTIN        = "gtin"
	FieldLot         = "lot"
	FieldProdDate    = "prod_date"
	FieldBestBefore  = "best_before"
	FieldExpiry      = "expiry"
	FieldSerial      = "serial"
	FieldQuantity    = "quantity"
	FieldNetWeightKg = "net_weight_kg"
)

// Code returns the numeric prefix of the AI.
func (a AI) Code() string {
	switch a {
	case AIGTIN:
		return "01"
	case AILot:
		return "10"
	case AIProdDate:
		return "11"
	case AIBestBefore:
		return "15"
	case AIExpiry:
		return "17"
	case AISerial:
		return "21"
	case AIQuantity:
		return "30"
	case AINetWeightKg:
		return "310"
	}
	return ""
}

// Name returns the semantic field name the AI decodes into.
func (a AI) Name() string {
	switch a {
	case AIGTIN:
		return FieldGTIN
	case AILot:
		return FieldLot
	case AIProdDate:
		return FieldProdDate
	case AIBestBefore:
		return FieldBestBefore
	case AIExpiry:
		return FieldExpiry
	case AISerial:
		return FieldSerial
	case AIQuantity:
		return FieldQuantity
	case AINetWeightKg:
		return FieldNetWeightKg
	}
	return ""
}

// Length returns the length policy of the AI.
func (a AI) Length() Length {
	switch a {
	case AIGTIN:
		return fixed(14)
	case AILot, AISerial:
		return variable(20)
	case AIProdDate, AIBestBefore, AIExpiry:
		return fixed(6)
	case AIQuantity:
		return variable(8)
	case AINetWeightKg:
		return fixed(7)
	}
	return Length{}
}

// Class returns the value class of the AI.
func (a AI) Class() ValueClass {
	switch a {
	case AILot, AISerial:
		return Alphanumeric
	}
	return Numeric
}

// All returns every registered AI in declaration order.
func All() []AI {
	out := make([]AI, 0, aiCount)
	for a := AI(0); a < aiCount; a++ {
		out = append(out, a)
	}
	return out
}

var (
	byCode3 = map[string]AI{}
	byCode2 = map[string]AI{}
)

func init() {
	for _, a := range All() {
		switch len(a.Code()) {
		case 3:
			byCode3[a.Code()] = a
		case 2:
			byCode2[a.Code()] = a
		}
	}
}

// Rule is one row of the precedence table applied at every tokenizer position.
type Rule struct {
	CodeLen   int  // digits compared at the position
	Lookahead bool // whether codes of this length end a variable field early
	Exclude   []AI // codes of this length never recognized inside a variable field
}

// Precedence returns the order in which codes are tried at a position.
// Three-digit codes win over two-digit codes sharing their leading digits. GTIN is not
// recognized inside variable fields since its "01" shows up in ordinary numeric data.
func Precedence() []Rule {
	return []Rule{
		{CodeLen: 3, Lookahead: true},
		{CodeLen: 2, Lookahead: true, Exclude: []AI{AIGTIN}},
	}
}

// lookup resolves the AI starting at pos, honoring the precedence table.
func lookup(s string, pos int, inField bool) (AI, bool) {
	for _, rule := range Precedence() {
		if inField && !rule.Lookahead {
			continue
		}
		if pos+rule.CodeLen > len(s) {
			continue
		}
		code := s[pos : pos+rule.CodeLen]
		var (
			a  AI
			ok bool
		)
		if rule.CodeLen == 3 {
			a, ok = byCode3[code]
		} else {
			a, ok = byCode2[code]
		}
		if !ok {
			continue
		}
		if inField && excluded(rule.Exclude, a) {
			continue
		}
		return a, true
	}
	return 0, false
}

func excluded(list []AI, a AI) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}
