package handlers

import (
	"net/http"

	"github.com/xelth-com/eckscan/internal/lookup"
)

// AttachRequest assigns a GTIN that was not found to an existing item
type AttachRequest struct {
	ItemCode string `json:"item_code" validate:"required"`
	GTIN     string `json:"gtin" validate:"required"`
}

// attachBarcode handles the "attach to existing item" recovery of a GTIN miss
func (r *Router) attachBarcode(w http.ResponseWriter, req *http.Request) {
	var body AttachRequest
	if err := decodeJSON(req, &body); err != nil {
		r.respondServiceError(w, "attachBarcode", err)
		return
	}
	p, err := r.catalog.AttachBarcode(req.Context(), body.ItemCode, body.GTIN)
	if err != nil {
		r.respondServiceError(w, "attachBarcode", err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// createItem handles the "create new item" recovery of a GTIN miss
func (r *Router) createItem(w http.ResponseWriter, req *http.Request) {
	var body lookup.NewItem
	if err := decodeJSON(req, &body); err != nil {
		r.respondServiceError(w, "createItem", err)
		return
	}
	p, err := r.catalog.CreateItem(req.Context(), body)
	if err != nil {
		r.respondServiceError(w, "createItem", err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

// runOdooSync triggers a catalog sync outside the schedule
func (r *Router) runOdooSync(w http.ResponseWriter, req *http.Request) {
	if r.odoo == nil {
		respondError(w, http.StatusServiceUnavailable, "Odoo sync is not configured")
		return
	}
	stats, err := r.odoo.RunOnce()
	if err != nil {
		r.log.WithError(err).Error("manual odoo sync failed")
		respondJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error": err.Error(),
			"stats": stats,
		})
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
