package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/xelth-com/eckscan/internal/buildinfo"
	"github.com/xelth-com/eckscan/internal/config"
	"github.com/xelth-com/eckscan/internal/document"
	"github.com/xelth-com/eckscan/internal/lookup"
	"github.com/xelth-com/eckscan/internal/middleware"
	"github.com/xelth-com/eckscan/internal/reconcile"
	"github.com/xelth-com/eckscan/internal/scanmode"
	"github.com/xelth-com/eckscan/internal/services/odoo"
	"github.com/xelth-com/eckscan/internal/utils"
	"github.com/xelth-com/eckscan/internal/websocket"
)

var validate = validator.New()

// Options carries the services the HTTP layer is built on.
type Options struct {
	Config   *config.Config
	Catalog  *lookup.Catalog
	Engine   *reconcile.Engine
	Docs     *document.Repository
	Sessions *scanmode.Store
	Hub      *websocket.Hub
	Log      *logrus.Logger
}

// Router wraps the mux router and the scan services
type Router struct {
	*mux.Router
	cfg      *config.Config
	catalog  *lookup.Catalog
	engine   *reconcile.Engine
	docs     *document.Repository
	sessions *scanmode.Store
	hub      *websocket.Hub
	dedup    *utils.Deduplicator
	odoo     *odoo.SyncService
	log      *logrus.Logger
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(o Options) *Router {
	if o.Log == nil {
		o.Log = logrus.StandardLogger()
	}
	r := &Router{
		Router:   mux.NewRouter(),
		cfg:      o.Config,
		catalog:  o.Catalog,
		engine:   o.Engine,
		docs:     o.Docs,
		sessions: o.Sessions,
		hub:      o.Hub,
		dedup:    utils.NewDeduplicator(o.Config.Scanner.Debounce()),
		log:      o.Log,
	}
	r.Use(middleware.RequestLogger(r.log))

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Device pairing
	r.HandleFunc("/auth/device", r.pairDevice).Methods("POST")

	// Scan outcome feed
	r.Handle("/ws", middleware.Auth(r.cfg.JWTSecret)(http.HandlerFunc(r.serveWs))).Methods("GET")

	// API routes (protected)
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth(r.cfg.JWTSecret))
	api.HandleFunc("/status", r.getStatus).Methods("GET")

	api.HandleFunc("/sessions", r.openSession).Methods("POST")
	api.HandleFunc("/sessions/{id}", r.closeSession).Methods("DELETE")

	api.HandleFunc("/documents", r.listDocuments).Methods("GET")
	api.HandleFunc("/documents", r.createDocument).Methods("POST")
	api.HandleFunc("/documents/{id}", r.getDocument).Methods("GET")

	api.HandleFunc("/scan", r.handleScan).Methods("POST")
	api.HandleFunc("/scan/quantity", r.resumeQuantity).Methods("POST")
	api.HandleFunc("/scan/quantity/cancel", r.cancelQuantity).Methods("POST")
	api.HandleFunc("/scan/condition", r.selectCondition).Methods("POST")
	api.HandleFunc("/scan/conditions", r.listConditions).Methods("GET")
	api.HandleFunc("/scan/triggers.pdf", r.printTriggers).Methods("GET")

	api.HandleFunc("/items", r.createItem).Methods("POST")
	api.HandleFunc("/items/attach", r.attachBarcode).Methods("POST")
	api.HandleFunc("/labels/serial", r.printSerialLabels).Methods("POST")

	api.HandleFunc("/sync/odoo", r.runOdooSync).Methods("POST")

	return r
}

// SetOdooService enables the manual sync endpoint
func (r *Router) SetOdooService(s *odoo.SyncService) {
	r.odoo = s
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// getStatus returns build and runtime information
func (r *Router) getStatus(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "running",
		"build_time":  buildinfo.BuildTime,
		"commit_hash": buildinfo.CommitHash,
		"commit_time": buildinfo.CommitTime,
		"started_at":  buildinfo.StartTime,
		"sessions":    r.sessions.Len(),
		"ws_clients":  r.hub.ClientCount(),
		"device":      middleware.DeviceFromContext(req.Context()),
	})
}

func (r *Router) serveWs(w http.ResponseWriter, req *http.Request) {
	websocket.ServeWs(r.hub, w, req)
}

// decodeJSON decodes and validates a request body.
func decodeJSON(req *http.Request, v interface{}) error {
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		return errBadPayload
	}
	return validate.Struct(v)
}

var errBadPayload = errors.New("invalid request payload")

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondServiceError maps domain errors onto HTTP statuses.
func (r *Router) respondServiceError(w http.ResponseWriter, funcName string, err error) {
	var nf *reconcile.GTINNotFoundError
	if errors.As(err, &nf) {
		respondJSON(w, http.StatusNotFound, map[string]interface{}{
			"error":          err.Error(),
			"gtin_not_found": true,
			"gtin":           nf.GTIN,
			"lot":            nf.Lot,
			"expiry":         nf.Expiry,
			"can_create":     r.engine.Settings().AllowItemCreation,
		})
		return
	}

	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		respondError(w, http.StatusBadRequest, validationMessage(verrs))
	case errors.Is(err, errBadPayload),
		errors.Is(err, reconcile.ErrEmptyScan),
		errors.Is(err, reconcile.ErrInvalidQuantity),
		errors.Is(err, reconcile.ErrUnknownCondition),
		errors.Is(err, reconcile.ErrInvalidChoice),
		errors.Is(err, document.ErrUnknownField):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, lookup.ErrItemCreationDisabled):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, reconcile.ErrItemNotFound),
		errors.Is(err, reconcile.ErrPendingNotFound),
		errors.Is(err, document.ErrDocumentNotFound),
		errors.Is(err, lookup.ErrProductNotFound),
		errors.Is(err, errSessionNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, reconcile.ErrMaxQtyReached),
		errors.Is(err, reconcile.ErrDuplicateSerial),
		errors.Is(err, reconcile.ErrNoRowToDelete),
		errors.Is(err, lookup.ErrBarcodeTaken),
		errors.Is(err, lookup.ErrItemExists),
		errors.Is(err, errDuplicateScan):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, reconcile.ErrLookupTransport):
		respondError(w, http.StatusBadGateway, err.Error())
	default:
		config.LogError(r.log, "handlers", funcName, "unexpected error", nil, err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func validationMessage(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Field()+" failed "+fe.Tag())
	}
	return "invalid request: " + strings.Join(parts, ", ")
}
