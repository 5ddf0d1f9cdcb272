package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/eckscan/internal/config"
	"github.com/xelth-com/eckscan/internal/database"
	"github.com/xelth-com/eckscan/internal/document"
	"github.com/xelth-com/eckscan/internal/lookup"
	"github.com/xelth-com/eckscan/internal/models"
	"github.com/xelth-com/eckscan/internal/reconcile"
	"github.com/xelth-com/eckscan/internal/scanmode"
	"github.com/xelth-com/eckscan/internal/utils"
	"github.com/xelth-com/eckscan/internal/websocket"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret"

type testServer struct {
	t      *testing.T
	router *Router
	db     *gorm.DB
	token  string
}

func newTestServer(t *testing.T, tweak func(cfg *config.Config), opts ...reconcile.Option) *testServer {
	t.Helper()
	db, err := database.OpenSQLite(":memory:", logger.Silent)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	require.NoError(t, db.Create(&[]models.ProductProduct{
		{DefaultCode: "SCALPEL-10", Barcode: "4006381333931", Name: "Scalpel #10", Active: true, UOMName: "Nos", Tracking: models.TrackingLot},
		{DefaultCode: "GLOVES", Barcode: "5901234123457", Name: "Gloves", Active: true, UOMName: "Box", Tracking: models.TrackingNone},
	}).Error)

	log := logrus.New()
	log.SetOutput(io.Discard)

	pairingHash, err := utils.HashPassword("2468")
	require.NoError(t, err)

	scanner := config.DefaultScannerSettings()
	scanner.DebounceMs = 0
	scanner.Conditions = []string{"Damaged", "Expired"}
	scanner.AllowItemCreation = true
	cfg := &config.Config{JWTSecret: testSecret, PairingHash: pairingHash, Scanner: scanner}
	if tweak != nil {
		tweak(cfg)
	}

	catalog := lookup.NewCatalog(db,
		lookup.WithCatalogLogger(log),
		lookup.WithItemCreation(cfg.Scanner.AllowItemCreation),
		lookup.WithFallbackConditions(cfg.Scanner.Conditions),
	)
	hub := websocket.NewHub(log)
	engine := reconcile.NewEngine(catalog, EngineSettings(cfg.Scanner), append([]reconcile.Option{
		reconcile.WithNotifier(hub),
		reconcile.WithConditions(catalog),
		reconcile.WithLogger(log),
	}, opts...)...)

	router := NewRouter(Options{
		Config:   cfg,
		Catalog:  catalog,
		Engine:   engine,
		Docs:     document.NewRepository(db, log),
		Sessions: scanmode.NewStore(0),
		Hub:      hub,
		Log:      log,
	})

	token, err := utils.GenerateDeviceToken("scanner-01", "Dock 1", testSecret)
	require.NoError(t, err)
	return &testServer{t: t, router: router, db: db, token: token}
}

func (s *testServer) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		buf = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Authorization", "Bearer "+s.token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) openSession() string {
	rec := s.do(http.MethodPost, "/api/sessions", nil)
	require.Equal(s.t, http.StatusCreated, rec.Code)
	return decode[map[string]interface{}](s.t, rec)["session_id"].(string)
}

func (s *testServer) createDocument(hasBatch bool) string {
	rec := s.do(http.MethodPost, "/api/documents", CreateDocumentRequest{Name: "PREC-0001", DocType: "purchase_receipt", HasBatch: hasBatch})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.ScanDocument](s.t, rec).ID
}

func (s *testServer) scan(session, doc, barcode string) *httptest.ResponseRecorder {
	return s.do(http.MethodPost, "/api/scan", ScanRequest{SessionID: session, DocumentID: doc, Barcode: barcode})
}

func TestHealthAndAuth(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "scanner-01", decode[map[string]interface{}](t, rec)["device"])
}

func TestPairDevice(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodPost, "/auth/device", PairRequest{DeviceID: "scanner-02", Name: "Dock 2", PairingCode: "2468"})
	require.Equal(t, http.StatusOK, rec.Code)
	token := decode[map[string]interface{}](t, rec)["token"].(string)
	claims, err := utils.ValidateToken(token, testSecret)
	require.NoError(t, err)
	require.Equal(t, "scanner-02", utils.DeviceID(claims))

	rec = s.do(http.MethodPost, "/auth/device", PairRequest{DeviceID: "scanner-02", PairingCode: "0000"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/auth/device", PairRequest{PairingCode: "2468"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	disabled := newTestServer(t, func(cfg *config.Config) { cfg.PairingHash = "" })
	rec = disabled.do(http.MethodPost, "/auth/device", PairRequest{DeviceID: "scanner-02", PairingCode: "2468"})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestScanCreatesThenMerges(t *testing.T) {
	s := newTestServer(t, nil)
	session := s.openSession()
	doc := s.createDocument(false)

	rec := s.scan(session, doc, "5901234123457")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[ScanResponse](t, rec)
	require.Equal(t, reconcile.ActionRowCreated, resp.Result.Action)
	require.Len(t, resp.Document.Lines, 1)

	rec = s.scan(session, doc, "5901234123457")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[ScanResponse](t, rec)
	require.Equal(t, reconcile.ActionRowUpdated, resp.Result.Action)

	rec = s.do(http.MethodGet, "/api/documents/"+doc, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stored := decode[models.ScanDocument](t, rec)
	require.Len(t, stored.Lines, 1)
	require.Equal(t, "GLOVES", stored.Lines[0].ItemCode)
	require.Equal(t, "Box", stored.Lines[0].UOM)
	require.True(t, stored.Lines[0].Qty.Equal(decimal.NewFromInt(2)))
}

func TestScanGS1CreatesLot(t *testing.T) {
	s := newTestServer(t, nil)
	session := s.openSession()
	doc := s.createDocument(true)

	rec := s.scan(session, doc, "01040063813339311727123110B-2025")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[ScanResponse](t, rec)
	require.Len(t, resp.Document.Lines, 1)
	line := resp.Document.Lines[0]
	require.Equal(t, "SCALPEL-10", line.ItemCode)
	require.Equal(t, "B-2025", line.BatchNo)
	require.Equal(t, "2027-12-31", line.BatchExpiryDate)

	var lot models.StockLot
	require.NoError(t, s.db.Where("name = ?", "B-2025").First(&lot).Error)
}

func TestScanErrors(t *testing.T) {
	s := newTestServer(t, nil)
	session := s.openSession()
	doc := s.createDocument(false)

	rec := s.scan(session, doc, "NO-SUCH-ITEM")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.scan("missing", doc, "5901234123457")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.scan(session, "missing", "5901234123457")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.scan(session, doc, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/scan", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer "+s.token)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.scan(session, doc, config.DefaultScannerSettings().DeleteRowTrigger)
	require.Equal(t, http.StatusConflict, rec.Code, "nothing to delete")

	stored := decode[models.ScanDocument](t, s.do(http.MethodGet, "/api/documents/"+doc, nil))
	require.Empty(t, stored.Lines)
}

func TestGTINNotFoundRecovery(t *testing.T) {
	s := newTestServer(t, nil)
	session := s.openSession()
	doc := s.createDocument(false)

	rec := s.scan(session, doc, "0109999999999999")
	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decode[map[string]interface{}](t, rec)
	require.Equal(t, true, body["gtin_not_found"])
	require.Equal(t, "09999999999999", body["gtin"])
	require.Equal(t, true, body["can_create"])

	rec = s.do(http.MethodPost, "/api/items/attach", AttachRequest{ItemCode: "GLOVES", GTIN: "09999999999999"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/items/attach", AttachRequest{ItemCode: "SCALPEL-10", GTIN: "09999999999999"})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = s.scan(session, doc, "0109999999999999")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "GLOVES", decode[ScanResponse](t, rec).Document.Lines[0].ItemCode)
}

func TestCreateItem(t *testing.T) {
	s := newTestServer(t, nil)

	item := lookup.NewItem{ItemCode: "MASK", Name: "Mask", Barcode: "04012345678901", UOM: "Nos"}
	rec := s.do(http.MethodPost, "/api/items", item)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/items", item)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/api/items", lookup.NewItem{ItemCode: "X"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	locked := newTestServer(t, func(cfg *config.Config) { cfg.Scanner.AllowItemCreation = false })
	rec = locked.do(http.MethodPost, "/api/items", lookup.NewItem{ItemCode: "MASK", Name: "Mask"})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestQuantityPrompt(t *testing.T) {
	s := newTestServer(t, nil)
	session := s.openSession()
	doc := s.createDocument(false)

	rec := s.scan(session, doc, config.DefaultScannerSettings().QuantityTrigger)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, reconcile.ActionPromptArmed, decode[ScanResponse](t, rec).Result.Action)

	rec = s.scan(session, doc, "5901234123457")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[ScanResponse](t, rec)
	require.Equal(t, reconcile.ActionAwaitingQty, resp.Result.Action)
	require.Empty(t, resp.Document.Lines)
	pending := resp.Result.PendingID

	rec = s.do(http.MethodPost, "/api/scan/quantity", QuantityRequest{SessionID: session, DocumentID: doc, PendingID: pending, Quantity: "0"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/scan/quantity", QuantityRequest{SessionID: session, DocumentID: doc, PendingID: pending, Quantity: "5"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp = decode[ScanResponse](t, rec)
	require.Len(t, resp.Document.Lines, 1)
	require.True(t, resp.Document.Lines[0].Qty.Equal(decimal.NewFromInt(5)))

	rec = s.do(http.MethodPost, "/api/scan/quantity", QuantityRequest{SessionID: session, DocumentID: doc, PendingID: pending, Quantity: "5"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, "/api/scan/quantity/cancel", CancelQuantityRequest{SessionID: session, PendingID: pending})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConditionFlow(t *testing.T) {
	s := newTestServer(t, nil)
	session := s.openSession()
	doc := s.createDocument(false)

	rec := s.do(http.MethodGet, "/api/scan/conditions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []interface{}{"Damaged", "Expired"}, decode[map[string]interface{}](t, rec)["conditions"])

	rec = s.do(http.MethodPost, "/api/scan/condition", ConditionRequest{SessionID: session, Condition: "Broken"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/scan/condition", ConditionRequest{SessionID: session, Condition: "Damaged", Warehouse: "elsewhere"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	require.Equal(t, http.StatusOK, s.scan(session, doc, "5901234123457").Code)

	rec = s.do(http.MethodPost, "/api/scan/condition", ConditionRequest{SessionID: session, Condition: "Damaged", Warehouse: scanmode.ChoiceNone})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.scan(session, doc, "5901234123457")
	require.Equal(t, http.StatusOK, rec.Code)
	lines := decode[ScanResponse](t, rec).Document.Lines
	require.Len(t, lines, 2, "tagged scan gets its own row")
	require.Equal(t, "Damaged", lines[1].Condition)
}

func TestDuplicateScanDebounce(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) { cfg.Scanner.DebounceMs = 5000 })
	session := s.openSession()
	doc := s.createDocument(false)

	require.Equal(t, http.StatusOK, s.scan(session, doc, "5901234123457").Code)
	require.Equal(t, http.StatusConflict, s.scan(session, doc, "5901234123457").Code)

	other := s.openSession()
	require.Equal(t, http.StatusOK, s.scan(other, doc, "5901234123457").Code)
}

func TestFailedScanIsNotDebounced(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) { cfg.Scanner.DebounceMs = 5000 })
	session := s.openSession()
	doc := s.createDocument(false)

	require.Equal(t, http.StatusNotFound, s.scan(session, doc, "0109999999999999").Code)

	rec := s.do(http.MethodPost, "/api/items/attach", AttachRequest{ItemCode: "GLOVES", GTIN: "09999999999999"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.scan(session, doc, "0109999999999999")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, http.StatusConflict, s.scan(session, doc, "0109999999999999").Code)
}

// lineCounter records how many scan lines were stored when each success event fired.
type lineCounter struct {
	db    *gorm.DB
	mu    sync.Mutex
	saved []int64
}

func (c *lineCounter) Notify(ev reconcile.Event) {
	if ev.Kind != reconcile.EventSuccess {
		return
	}
	var n int64
	c.db.Model(&models.ScanLine{}).Count(&n)
	c.mu.Lock()
	c.saved = append(c.saved, n)
	c.mu.Unlock()
}

func TestSuccessEventFollowsSave(t *testing.T) {
	counter := &lineCounter{}
	s := newTestServer(t, nil, reconcile.WithNotifier(counter))
	counter.db = s.db
	session := s.openSession()
	doc := s.createDocument(false)

	require.Equal(t, http.StatusOK, s.scan(session, doc, "5901234123457").Code)
	require.Equal(t, http.StatusOK, s.scan(session, doc, "4006381333931").Code)
	require.Equal(t, http.StatusNotFound, s.scan(session, doc, "UNKNOWN-XYZ").Code)

	counter.mu.Lock()
	defer counter.mu.Unlock()
	require.Equal(t, []int64{1, 2}, counter.saved)
}

func TestDocumentEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodPost, "/api/documents", CreateDocumentRequest{
		Name:    "PREC-0002",
		DocType: "purchase_receipt",
		Lines:   []LineInput{{ItemCode: "GLOVES", Qty: "0", MaxQty: "10", UOM: "Box"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	doc := decode[models.ScanDocument](t, rec)
	require.Len(t, doc.Lines, 1)
	require.True(t, doc.Lines[0].MaxQty.Valid)

	rec = s.do(http.MethodPost, "/api/documents", CreateDocumentRequest{
		Name:    "PREC-0003",
		DocType: "purchase_receipt",
		Lines:   []LineInput{{ItemCode: "GLOVES", BatchNo: "B1"}},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code, "batch column on a document without batches")

	rec = s.do(http.MethodGet, "/api/documents", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]models.ScanDocument](t, rec), 1)

	rec = s.do(http.MethodGet, "/api/documents/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPrintEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodGet, "/api/scan/triggers.pdf", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	require.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = s.do(http.MethodPost, "/api/labels/serial", map[string]interface{}{"gtin": "5901234123457", "prefix": "SN", "count": 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = s.do(http.MethodPost, "/api/labels/serial", map[string]interface{}{"gtin": "abc"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/sync/odoo", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestEngineSettings(t *testing.T) {
	scanner := config.DefaultScannerSettings()
	scanner.DefaultQty = "2.5"
	scanner.WarehouseBehavior = config.BehaviorUseRejected
	scanner.RejectedWarehouse = "Rejected - ACC"
	scanner.MaxQtyField = document.FieldMaxQty

	got := EngineSettings(scanner)
	require.True(t, got.DefaultQty.Equal(decimal.RequireFromString("2.5")))
	require.Equal(t, reconcile.WarehouseUseRejected, got.WarehouseBehavior)
	require.Equal(t, "Rejected - ACC", got.RejectedWarehouse)
	require.Equal(t, "max_qty", got.MaxQtyField)
	require.Equal(t, scanner.NewRowTrigger, got.NewRowTrigger)
	require.False(t, got.DisallowNewRows)

	scanner.DisallowNewRows = true
	require.True(t, EngineSettings(scanner).DisallowNewRows)
}
