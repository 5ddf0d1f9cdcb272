package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/xelth-com/eckscan/internal/services/printer"
)

// printTriggers serves the sheet of configured trigger barcodes
func (r *Router) printTriggers(w http.ResponseWriter, req *http.Request) {
	triggers := r.cfg.Scanner.Triggers()
	cards := make([]printer.Card, 0, len(triggers))
	for _, t := range triggers {
		cards = append(cards, printer.Card{Caption: t.Label, Value: t.Value})
	}

	pdfBytes, err := printer.GenerateTriggerSheet("Scanner triggers", cards)
	if errors.Is(err, printer.ErrNothingToPrint) {
		respondError(w, http.StatusNotFound, "No trigger barcodes configured")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to generate PDF: %v", err))
		return
	}
	writePDF(w, "scanner_triggers.pdf", pdfBytes)
}

// printSerialLabels renders smart item labels for a run of serial numbers
func (r *Router) printSerialLabels(w http.ResponseWriter, req *http.Request) {
	var cfg printer.SerialLabelConfig
	if err := decodeJSON(req, &cfg); err != nil {
		r.respondServiceError(w, "printSerialLabels", err)
		return
	}
	if cfg.Count == 0 {
		cfg.Count = 21
	}

	pdfBytes, err := printer.GenerateSerialLabels(cfg)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Failed to generate PDF: %v", err))
		return
	}
	writePDF(w, fmt.Sprintf("labels_%s_%d.pdf", cfg.GTIN, cfg.StartNumber), pdfBytes)
}

func writePDF(w http.ResponseWriter, filename string, pdfBytes []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdfBytes)))
	w.Write(pdfBytes)
}
