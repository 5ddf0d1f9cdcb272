package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xelth-com/eckscan/internal/gs1"
	"github.com/xelth-com/eckscan/internal/lookup"
	"github.com/xelth-com/eckscan/internal/scanmode"
)

// Engine turns scan events into item table mutations.
type Engine struct {
	resolver   Resolver
	settings   Settings
	notifier   Notifier
	conditions ConditionSource
	log        *logrus.Logger
	now        func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithNotifier sets where alerts, prompts and sound cues go.
func WithNotifier(n Notifier) Option { return func(e *Engine) { e.notifier = n } }

// WithConditions sets the source of condition picker options.
func WithConditions(c ConditionSource) Option { return func(e *Engine) { e.conditions = c } }

// WithLogger sets the engine logger.
func WithLogger(l *logrus.Logger) Option { return func(e *Engine) { e.log = l } }

// NewEngine creates an engine. A non-positive default quantity falls back to 1.
func NewEngine(resolver Resolver, settings Settings, opts ...Option) *Engine {
	if !settings.DefaultQty.IsPositive() {
		settings.DefaultQty = decimal.NewFromInt(1)
	}
	e := &Engine{
		resolver: resolver,
		settings: settings,
		log:      logrus.StandardLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Settings returns the engine configuration.
func (e *Engine) Settings() Settings { return e.settings }

// pendingScan is the continuation parked while a quantity prompt is open.
type pendingScan struct {
	item  *Item
	modes scanmode.Modes
}

// Scan handles one raw scan for a session against a document's item table.
// Results that change the table are announced by Committed once the caller has
// stored the table.
func (e *Engine) Scan(ctx context.Context, sess *scanmode.Session, table ItemTable, raw string) (*Result, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyScan
	}
	sess.Touch(e.now().UTC())

	// 1. Trigger barcodes switch modes and never add a line
	if res, handled, err := e.handleTrigger(ctx, sess, table, raw); handled {
		if err != nil {
			e.fail(sess, err)
			return nil, err
		}
		if !res.Mutates() {
			e.notify(sess, EventInfo, res)
		}
		return res, nil
	}

	// 2. Claim the armed modes before the lookup. They belong to this scan whatever
	// its outcome, and a concurrent scan can no longer see them.
	modes := sess.Consume()

	// 3. Resolve the scan into a catalog record
	item, warehouse, err := e.resolve(ctx, sess, raw)
	if err != nil {
		e.fail(sess, err)
		return nil, err
	}
	if item == nil {
		sess.SetLastWarehouse(warehouse)
		res := &Result{
			Action:    ActionWarehouseSet,
			Warehouse: warehouse,
			Message:   fmt.Sprintf("Warehouse set to %s", warehouse),
		}
		e.notify(sess, EventInfo, res)
		return res, nil
	}

	// 4. Quantity prompt suspends until ResumeQuantity
	if modes.ForcePromptQty || e.settings.PromptQty {
		id := sess.Suspend(&pendingScan{item: item, modes: modes})
		res := &Result{
			Action:    ActionAwaitingQty,
			PendingID: id,
			Item:      item,
			Message:   fmt.Sprintf("Enter quantity for %s", item.ItemCode),
		}
		e.notify(sess, EventPrompt, res)
		return res, nil
	}

	return e.apply(sess, table, item, modes, e.settings.DefaultQty)
}

// ResumeQuantity continues a scan suspended on a quantity prompt.
func (e *Engine) ResumeQuantity(ctx context.Context, sess *scanmode.Session, table ItemTable, pendingID string, qty decimal.Decimal) (*Result, error) {
	if !qty.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	v, ok := sess.Resume(pendingID)
	if !ok {
		return nil, ErrPendingNotFound
	}
	p, ok := v.(*pendingScan)
	if !ok {
		return nil, ErrPendingNotFound
	}
	return e.apply(sess, table, p.item, p.modes, qty)
}

// CancelQuantity drops a suspended scan without touching the table.
func (e *Engine) CancelQuantity(sess *scanmode.Session, pendingID string) bool {
	_, ok := sess.Resume(pendingID)
	return ok
}

// SelectCondition stores the condition picked after a condition trigger.
func (e *Engine) SelectCondition(ctx context.Context, sess *scanmode.Session, condition string, choice scanmode.WarehouseChoice) error {
	if !choice.Valid() {
		return ErrInvalidChoice
	}
	condition = strings.TrimSpace(condition)
	if condition != "" {
		options, err := e.Conditions(ctx)
		if err != nil {
			return err
		}
		if len(options) > 0 && !contains(options, condition) {
			return fmt.Errorf("%w: %s", ErrUnknownCondition, condition)
		}
	}
	sess.SetCondition(condition, choice)
	return nil
}

// Conditions returns the condition picker options.
func (e *Engine) Conditions(ctx context.Context) ([]string, error) {
	if e.conditions != nil {
		options, err := e.conditions.Conditions(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load conditions: %w", err)
		}
		if len(options) > 0 {
			return options, nil
		}
	}
	return e.settings.Conditions, nil
}

func (e *Engine) handleTrigger(ctx context.Context, sess *scanmode.Session, table ItemTable, raw string) (*Result, bool, error) {
	s := e.settings
	switch {
	case s.NewRowTrigger != "" && raw == s.NewRowTrigger:
		sess.ArmNewRow()
		return &Result{Action: ActionNewRowArmed, Message: "Next scan will add a new row"}, true, nil

	case s.QuantityTrigger != "" && raw == s.QuantityTrigger:
		sess.ArmPromptQty()
		return &Result{Action: ActionPromptArmed, Message: "Next scan will ask for a quantity"}, true, nil

	case s.ConditionTrigger != "" && raw == s.ConditionTrigger:
		options, err := e.Conditions(ctx)
		if err != nil {
			return nil, true, err
		}
		return &Result{Action: ActionConditionPicker, Conditions: options, Message: "Select a condition"}, true, nil

	case s.DeleteRowTrigger != "" && raw == s.DeleteRowTrigger:
		res, err := e.deleteRow(sess, table)
		return res, true, err
	}
	return nil, false, nil
}

// deleteRow removes the row this session wrote last, or the table's last row.
func (e *Engine) deleteRow(sess *scanmode.Session, table ItemTable) (*Result, error) {
	rows := table.Rows()
	if len(rows) == 0 {
		return nil, ErrNoRowToDelete
	}

	target := rows[len(rows)-1]
	if last := sess.LastRow(); last != "" {
		for _, r := range rows {
			if r.ID() == last {
				target = r
				break
			}
		}
	}

	idx := rowIndex(rows, target.ID())
	if err := table.RemoveRow(target.ID()); err != nil {
		return nil, fmt.Errorf("failed to delete row: %w", err)
	}
	sess.SetLastRow("")
	return &Result{
		Action:   ActionRowDeleted,
		RowID:    target.ID(),
		RowIndex: idx,
		Message:  fmt.Sprintf("Row #%d deleted", idx),
	}, nil
}

// resolve returns either an item or, for a location barcode, a warehouse name.
func (e *Engine) resolve(ctx context.Context, sess *scanmode.Session, raw string) (*Item, string, error) {
	if gs1.IsGS1(raw) {
		if d, ok := gs1.Parse(raw); ok && d.Value(gs1.FieldGTIN) != "" {
			item, err := e.resolveGTIN(ctx, d)
			return item, "", err
		}
	}
	return e.resolveBarcode(ctx, sess, raw)
}

func (e *Engine) resolveGTIN(ctx context.Context, d *gs1.Decoded) (*Item, error) {
	q := lookup.GTINQuery{
		GTIN: d.Value(gs1.FieldGTIN),
		Lot:  d.Value(gs1.FieldLot),
	}
	if exp := d.Value(gs1.FieldExpiry); exp != "" {
		if t, err := gs1.ParseDate(exp); err == nil {
			q.Expiry = t.Format("2006-01-02")
		}
	}

	res, err := e.resolver.LookupGTIN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLookupTransport, err)
	}
	if res.GTINNotFound {
		return nil, &GTINNotFoundError{GTIN: q.GTIN, Lot: q.Lot, Expiry: q.Expiry}
	}
	if res.Error != "" || res.FoundItem == "" {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, q.GTIN)
	}

	return &Item{
		ItemCode:        res.FoundItem,
		Barcode:         q.GTIN,
		BatchNo:         res.Batch,
		BatchExpiryDate: res.BatchExpiryDate,
		SerialNo:        d.Value(gs1.FieldSerial),
	}, nil
}

func (e *Engine) resolveBarcode(ctx context.Context, sess *scanmode.Session, raw string) (*Item, string, error) {
	res, err := e.resolver.LookupBarcode(ctx, lookup.BarcodeQuery{
		SearchValue: raw,
		Context: lookup.QueryContext{
			Warehouse: sess.LastWarehouse(),
			Company:   e.settings.Company,
		},
	})
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrLookupTransport, err)
	}
	if res.Error != "" {
		return nil, "", fmt.Errorf("%w: %s", ErrItemNotFound, raw)
	}
	if res.ItemCode == "" {
		if res.Warehouse != "" {
			return nil, res.Warehouse, nil
		}
		return nil, "", fmt.Errorf("%w: %s", ErrItemNotFound, raw)
	}

	return &Item{
		ItemCode:         res.ItemCode,
		Barcode:          res.Barcode,
		BatchNo:          res.BatchNo,
		BatchExpiryDate:  res.BatchExpiryDate,
		SerialNo:         res.SerialNo,
		UOM:              res.UOM,
		DefaultWarehouse: res.DefaultWarehouse,
	}, "", nil
}

// apply selects the target row, enforces the guards and runs the write sequence.
// Rows are only appended once every guard has passed.
func (e *Engine) apply(sess *scanmode.Session, table ItemTable, item *Item, modes scanmode.Modes, qty decimal.Decimal) (*Result, error) {
	lastWarehouse := sess.LastWarehouse()
	scanWarehouse := lastWarehouse
	if scanWarehouse == "" {
		scanWarehouse = item.DefaultWarehouse
	}

	row, err := e.selectRow(table, item, modes, scanWarehouse)
	if err != nil {
		e.fail(sess, err)
		return nil, err
	}

	if row != nil && item.SerialNo != "" && hasSerial(row.Get(FieldSerialNo), item.SerialNo) {
		err := fmt.Errorf("%w: %s", ErrDuplicateSerial, item.SerialNo)
		e.fail(sess, err)
		return nil, err
	}

	created := false
	if row == nil {
		row, err = table.AppendRow()
		if err != nil {
			err = fmt.Errorf("failed to add row: %w", err)
			e.fail(sess, err)
			return nil, err
		}
		created = true
	} else if row.Get(FieldItemCode) == "" {
		// Filling an open row counts as adding the item.
		created = true
	}

	warehouse := e.write(row, item, modes, qty, lastWarehouse)
	sess.SetLastRow(row.ID())

	idx := rowIndex(table.Rows(), row.ID())
	res := &Result{
		RowID:     row.ID(),
		RowIndex:  idx,
		QtyDelta:  qty,
		Warehouse: warehouse,
		Item:      item,
	}
	if created {
		res.Action = ActionRowCreated
		res.Message = fmt.Sprintf("Row #%d: %s added", idx, item.ItemCode)
		if warehouse != "" {
			res.Message += " to " + warehouse
		}
	} else {
		res.Action = ActionRowUpdated
		res.Message = fmt.Sprintf("Row #%d: %s qty increased by %s", idx, item.ItemCode, qty.String())
	}

	e.log.WithFields(logrus.Fields{
		"session":   sess.ID,
		"item":      item.ItemCode,
		"row":       idx,
		"action":    res.Action,
		"condition": modes.Condition,
	}).Info("scan applied")

	return res, nil
}

// Committed announces a table change after it has been stored. Results that did
// not change the table are ignored.
func (e *Engine) Committed(sess *scanmode.Session, res *Result) {
	if res == nil || !res.Mutates() {
		return
	}
	kind := EventSuccess
	if res.Action == ActionRowDeleted {
		kind = EventInfo
	}
	e.notify(sess, kind, res)
}

func (e *Engine) notify(sess *scanmode.Session, kind EventKind, res *Result) {
	if e.notifier == nil {
		return
	}
	e.notifier.Notify(Event{
		Kind:      kind,
		SessionID: sess.ID,
		Message:   res.Message,
		Sound:     e.settings.EnableSound && kind == EventSuccess,
		Result:    res,
	})
}

// fail reports a terminal scan failure with a failure sound.
func (e *Engine) fail(sess *scanmode.Session, err error) {
	e.log.WithFields(logrus.Fields{"session": sess.ID}).WithError(err).Warn("scan rejected")
	if e.notifier == nil {
		return
	}
	ev := Event{
		Kind:      EventFailure,
		SessionID: sess.ID,
		Message:   err.Error(),
		Sound:     e.settings.EnableSound,
	}
	var nf *GTINNotFoundError
	if errors.As(err, &nf) {
		ev.Kind = EventGTINNotFound
		ev.GTIN, ev.Lot, ev.Expiry = nf.GTIN, nf.Lot, nf.Expiry
	}
	e.notifier.Notify(ev)
}

func rowIndex(rows []Row, id string) int {
	for i, r := range rows {
		if r.ID() == id {
			return i + 1
		}
	}
	return 0
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
