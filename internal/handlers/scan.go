package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xelth-com/eckscan/internal/document"
	"github.com/xelth-com/eckscan/internal/middleware"
	"github.com/xelth-com/eckscan/internal/models"
	"github.com/xelth-com/eckscan/internal/reconcile"
	"github.com/xelth-com/eckscan/internal/scanmode"
)

var (
	errSessionNotFound = errors.New("scan session not found")
	errDuplicateScan   = errors.New("duplicate scan ignored")
)

// ScanRequest represents the payload from a scanner
type ScanRequest struct {
	SessionID  string `json:"session_id" validate:"required"`
	DocumentID string `json:"document_id" validate:"required"`
	Barcode    string `json:"barcode" validate:"required"`
}

// QuantityRequest answers a quantity prompt
type QuantityRequest struct {
	SessionID  string `json:"session_id" validate:"required"`
	DocumentID string `json:"document_id" validate:"required"`
	PendingID  string `json:"pending_id" validate:"required"`
	Quantity   string `json:"quantity" validate:"required,numeric"`
}

// CancelQuantityRequest dismisses a quantity prompt
type CancelQuantityRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	PendingID string `json:"pending_id" validate:"required"`
}

// ConditionRequest answers the condition picker
type ConditionRequest struct {
	SessionID string                   `json:"session_id" validate:"required"`
	Condition string                   `json:"condition"`
	Warehouse scanmode.WarehouseChoice `json:"warehouse"`
}

// ScanResponse is the scan outcome plus the updated document
type ScanResponse struct {
	Result   *reconcile.Result    `json:"result"`
	Document *models.ScanDocument `json:"document,omitempty"`
}

func (r *Router) session(id string) (*scanmode.Session, error) {
	sess, ok := r.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errSessionNotFound, id)
	}
	return sess, nil
}

// openSession starts a scan session for the calling device
func (r *Router) openSession(w http.ResponseWriter, req *http.Request) {
	sess := r.sessions.Open()
	r.log.WithFields(logrus.Fields{
		"session": sess.ID,
		"device":  middleware.DeviceFromContext(req.Context()),
	}).Info("scan session opened")

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"session_id": sess.ID,
		"triggers":   r.cfg.Scanner.Triggers(),
	})
}

func (r *Router) closeSession(w http.ResponseWriter, req *http.Request) {
	r.sessions.Close(mux.Vars(req)["id"])
	w.WriteHeader(http.StatusNoContent)
}

// handleScan is the entry point for every barcode read
func (r *Router) handleScan(w http.ResponseWriter, req *http.Request) {
	var body ScanRequest
	if err := decodeJSON(req, &body); err != nil {
		r.respondServiceError(w, "handleScan", err)
		return
	}
	sess, err := r.session(body.SessionID)
	if err != nil {
		r.respondServiceError(w, "handleScan", err)
		return
	}

	barcode := strings.TrimSpace(body.Barcode)
	key := sess.ID + "|" + barcode
	if r.dedup.IsDuplicate(key) {
		r.respondServiceError(w, "handleScan", errDuplicateScan)
		return
	}

	err = r.mutate(req.Context(), w, "handleScan", sess, body.DocumentID, func(t *document.Table) (*reconcile.Result, error) {
		return r.engine.Scan(req.Context(), sess, t, barcode)
	})
	if err != nil {
		// Only applied scans block a repeat; a rescan after a fix must go through.
		r.dedup.Forget(key)
	}
}

// resumeQuantity completes a scan suspended on a quantity prompt
func (r *Router) resumeQuantity(w http.ResponseWriter, req *http.Request) {
	var body QuantityRequest
	if err := decodeJSON(req, &body); err != nil {
		r.respondServiceError(w, "resumeQuantity", err)
		return
	}
	sess, err := r.session(body.SessionID)
	if err != nil {
		r.respondServiceError(w, "resumeQuantity", err)
		return
	}
	qty, err := decimal.NewFromString(body.Quantity)
	if err != nil {
		r.respondServiceError(w, "resumeQuantity", reconcile.ErrInvalidQuantity)
		return
	}

	r.mutate(req.Context(), w, "resumeQuantity", sess, body.DocumentID, func(t *document.Table) (*reconcile.Result, error) {
		return r.engine.ResumeQuantity(req.Context(), sess, t, body.PendingID, qty)
	})
}

// mutate runs one engine step against a document and responds with the outcome.
// Table changes are announced to the session only after the document is saved.
func (r *Router) mutate(ctx context.Context, w http.ResponseWriter, funcName string, sess *scanmode.Session, documentID string, step func(t *document.Table) (*reconcile.Result, error)) error {
	var res *reconcile.Result
	doc, err := r.docs.Mutate(ctx, documentID, func(t *document.Table) (bool, error) {
		var err error
		res, err = step(t)
		if err != nil {
			return false, err
		}
		return res.Mutates(), nil
	})
	if err != nil {
		r.respondServiceError(w, funcName, err)
		return err
	}
	r.engine.Committed(sess, res)
	respondJSON(w, http.StatusOK, ScanResponse{Result: res, Document: doc})
	return nil
}

func (r *Router) cancelQuantity(w http.ResponseWriter, req *http.Request) {
	var body CancelQuantityRequest
	if err := decodeJSON(req, &body); err != nil {
		r.respondServiceError(w, "cancelQuantity", err)
		return
	}
	sess, err := r.session(body.SessionID)
	if err != nil {
		r.respondServiceError(w, "cancelQuantity", err)
		return
	}
	if !r.engine.CancelQuantity(sess, body.PendingID) {
		r.respondServiceError(w, "cancelQuantity", reconcile.ErrPendingNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// selectCondition stores the condition picked after the condition trigger
func (r *Router) selectCondition(w http.ResponseWriter, req *http.Request) {
	var body ConditionRequest
	if err := decodeJSON(req, &body); err != nil {
		r.respondServiceError(w, "selectCondition", err)
		return
	}
	sess, err := r.session(body.SessionID)
	if err != nil {
		r.respondServiceError(w, "selectCondition", err)
		return
	}
	if err := r.engine.SelectCondition(req.Context(), sess, body.Condition, body.Warehouse); err != nil {
		r.respondServiceError(w, "selectCondition", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"condition": body.Condition,
		"warehouse": body.Warehouse,
		"message":   "Condition applies to the next scan",
	})
}

func (r *Router) listConditions(w http.ResponseWriter, req *http.Request) {
	options, err := r.engine.Conditions(req.Context())
	if err != nil {
		r.respondServiceError(w, "listConditions", err)
		return
	}
	if options == nil {
		options = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"conditions": options})
}
