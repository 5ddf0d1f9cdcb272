package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/xelth-com/eckscan/internal/document"
	"github.com/xelth-com/eckscan/internal/middleware"
	"github.com/xelth-com/eckscan/internal/models"
	"github.com/xelth-com/eckscan/internal/reconcile"
)

// LineInput is a pre-filled item row, e.g. the expected lines of a receipt
type LineInput struct {
	ItemCode  string `json:"item_code" validate:"required"`
	Qty       string `json:"qty" validate:"omitempty,numeric"`
	MaxQty    string `json:"max_qty" validate:"omitempty,numeric"`
	UOM       string `json:"uom"`
	Warehouse string `json:"warehouse"`
	BatchNo   string `json:"batch_no"`
}

// CreateDocumentRequest opens a document to scan into
type CreateDocumentRequest struct {
	Name     string      `json:"name" validate:"required,max=140"`
	DocType  string      `json:"doc_type" validate:"required,max=64"`
	Company  string      `json:"company"`
	HasBatch bool        `json:"has_batch"`
	Lines    []LineInput `json:"lines" validate:"dive"`
}

// createDocument creates a document, optionally with expected lines
func (r *Router) createDocument(w http.ResponseWriter, req *http.Request) {
	var body CreateDocumentRequest
	if err := decodeJSON(req, &body); err != nil {
		r.respondServiceError(w, "createDocument", err)
		return
	}

	doc := &models.ScanDocument{
		Name:     body.Name,
		DocType:  body.DocType,
		Company:  body.Company,
		HasBatch: body.HasBatch,
	}
	table := document.NewTable(doc)
	for _, in := range body.Lines {
		row, _ := table.AppendRow()
		fields := []struct{ name, value string }{
			{reconcile.FieldItemCode, in.ItemCode},
			{reconcile.FieldQty, in.Qty},
			{document.FieldMaxQty, in.MaxQty},
			{reconcile.FieldUOM, in.UOM},
			{reconcile.FieldWarehouse, in.Warehouse},
			{reconcile.FieldBatchNo, in.BatchNo},
		}
		for _, f := range fields {
			if f.value == "" {
				continue
			}
			if err := row.Set(f.name, f.value); err != nil {
				r.respondServiceError(w, "createDocument", err)
				return
			}
		}
	}
	doc = table.Document()

	if err := r.docs.Create(req.Context(), doc); err != nil {
		r.respondServiceError(w, "createDocument", err)
		return
	}

	r.log.WithFields(logrus.Fields{
		"document": doc.ID,
		"lines":    len(doc.Lines),
		"device":   middleware.DeviceFromContext(req.Context()),
	}).Info("document opened for scanning")

	respondJSON(w, http.StatusCreated, doc)
}

func (r *Router) getDocument(w http.ResponseWriter, req *http.Request) {
	doc, err := r.docs.Load(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		r.respondServiceError(w, "getDocument", err)
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

// listDocuments returns recent documents without lines
func (r *Router) listDocuments(w http.ResponseWriter, req *http.Request) {
	limit := 50
	if v, err := strconv.Atoi(req.URL.Query().Get("limit")); err == nil && v > 0 && v <= 500 {
		limit = v
	}
	docs, err := r.docs.List(req.Context(), limit)
	if err != nil {
		r.respondServiceError(w, "listDocuments", err)
		return
	}
	respondJSON(w, http.StatusOK, docs)
}
