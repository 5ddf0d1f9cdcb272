package scanmode

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// WarehouseChoice is the per-scan warehouse selection made alongside a condition tag.
type WarehouseChoice string

const (
	ChoiceUnset    WarehouseChoice = ""
	ChoiceAccepted WarehouseChoice = "accepted"
	ChoiceRejected WarehouseChoice = "rejected"
	ChoiceNone     WarehouseChoice = "none"
)

// Valid reports whether c is one of the known choices.
func (c WarehouseChoice) Valid() bool {
	switch c {
	case ChoiceUnset, ChoiceAccepted, ChoiceRejected, ChoiceNone:
		return true
	}
	return false
}

// Modes is the set of mode flags claimed by one scan event.
type Modes struct {
	ForceNewRow     bool
	ForcePromptQty  bool
	Condition       string
	ConditionChoice WarehouseChoice
}

// HasCondition reports whether a condition tag was claimed.
func (m Modes) HasCondition() bool { return m.Condition != "" }

// Session holds the scan mode state of one input device. Trigger barcodes arm flags;
// the next item scan claims them with Consume, which clears them in the same step.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu               sync.Mutex
	forceNewRow      bool
	forcePromptQty   bool
	pendingCondition string
	conditionChoice  WarehouseChoice
	lastWarehouse    string
	lastRowID        string
	lastScan         time.Time
	pending          map[string]any
}

// NewSession creates an empty session with a fresh id.
func NewSession() *Session {
	return &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		pending:   make(map[string]any),
	}
}

// ArmNewRow makes the next item scan create a new row.
func (s *Session) ArmNewRow() {
	s.mu.Lock()
	s.forceNewRow = true
	s.mu.Unlock()
}

// ArmPromptQty makes the next item scan ask for an explicit quantity.
func (s *Session) ArmPromptQty() {
	s.mu.Lock()
	s.forcePromptQty = true
	s.mu.Unlock()
}

// SetCondition stores the condition picked for the next item scan. An empty condition
// clears any pending one.
func (s *Session) SetCondition(condition string, choice WarehouseChoice) {
	s.mu.Lock()
	s.pendingCondition = condition
	if condition == "" {
		choice = ChoiceUnset
	}
	s.conditionChoice = choice
	s.mu.Unlock()
}

// Consume claims and clears every mode flag at once.
func (s *Session) Consume() Modes {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := Modes{
		ForceNewRow:     s.forceNewRow,
		ForcePromptQty:  s.forcePromptQty,
		Condition:       s.pendingCondition,
		ConditionChoice: s.conditionChoice,
	}
	s.forceNewRow = false
	s.forcePromptQty = false
	s.pendingCondition = ""
	s.conditionChoice = ChoiceUnset
	return m
}

// Peek returns the armed flags without clearing them.
func (s *Session) Peek() Modes {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Modes{
		ForceNewRow:     s.forceNewRow,
		ForcePromptQty:  s.forcePromptQty,
		Condition:       s.pendingCondition,
		ConditionChoice: s.conditionChoice,
	}
}

// SetLastWarehouse records the most recently scanned warehouse.
func (s *Session) SetLastWarehouse(name string) {
	s.mu.Lock()
	s.lastWarehouse = name
	s.mu.Unlock()
}

// LastWarehouse returns the most recently scanned warehouse, if any.
func (s *Session) LastWarehouse() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastWarehouse
}

// SetLastRow records the row most recently written by this session.
func (s *Session) SetLastRow(id string) {
	s.mu.Lock()
	s.lastRowID = id
	s.mu.Unlock()
}

// LastRow returns the row most recently written by this session.
func (s *Session) LastRow() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRowID
}

// Suspend parks a continuation and returns the id to resume it with.
func (s *Session) Suspend(v any) string {
	id := uuid.New().String()
	s.mu.Lock()
	s.pending[id] = v
	s.mu.Unlock()
	return id
}

// Resume removes and returns a parked continuation. Each id resumes at most once.
func (s *Session) Resume(id string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}
	return v, ok
}

// PendingCount returns the number of parked continuations.
func (s *Session) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Touch records scan activity.
func (s *Session) Touch(at time.Time) {
	s.mu.Lock()
	s.lastScan = at
	s.mu.Unlock()
}

// LastActivity returns the time of the last scan, or creation time.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastScan.IsZero() {
		return s.CreatedAt
	}
	return s.lastScan
}
