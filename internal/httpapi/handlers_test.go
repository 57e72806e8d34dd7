package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"paynet-platform/internal/audit"
	"paynet-platform/internal/auth"
	"paynet-platform/internal/ledger"
	"paynet-platform/internal/reversal"
	"paynet-platform/internal/transaction"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type env struct {
	router *gin.Engine
	led    *ledger.Memory
	bbps   *transaction.MemoryStore
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	led := ledger.NewMemory()
	bbps := transaction.NewMemoryStore()
	stores := transaction.Registry{transaction.TypeBBPS: bbps}
	auditor := audit.NewService(audit.NewMemoryRepo(), discardLogger())
	revSvc := reversal.NewService(reversal.NewMemoryRepo(), stores, led, auditor, reversal.NoopLocker{}, discardLogger())

	h := Handlers{
		Ledger:         led,
		Entries:        led,
		Reversal:       revSvc,
		StuckThreshold: 15 * time.Minute,
	}

	r := gin.New()
	// Stand-in for the JWT middleware: a fixed admin identity.
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), "adm-1", "admin"))
		c.Next()
	})
	r.POST("/v1/reversals", h.CreateReversal)
	r.POST("/v1/reversals/bbps-failure", h.BBPSFailureReversal)
	r.GET("/v1/reversals/stuck", h.StuckReversals)
	r.GET("/v1/wallets/:user_id/:wallet_type/balance", h.GetWalletBalance)
	r.GET("/v1/wallets/:user_id/:wallet_type/ledger", h.GetWalletLedger)

	return &env{router: r, led: led, bbps: bbps}
}

func (e *env) seed(t *testing.T) {
	t.Helper()
	if _, err := e.led.AppendEntry(context.Background(), ledger.AppendRequest{
		UserID: "R1", UserRole: "retailer", WalletType: ledger.WalletPrimary,
		TxType: ledger.TxTypeTransfer, Credit: dec("1000.00"),
		ReferenceID: "seed", Status: ledger.StatusCompleted,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	e.bbps.Put(transaction.Record{
		ID: "tx-1", Type: transaction.TypeBBPS,
		OwnerUserID: "R1", OwnerRole: "retailer",
		Amount:     dec("500.00"),
		WalletType: ledger.WalletPrimary, WalletDebitID: "L100",
		Status: transaction.StatusSuccess,
	})
}

func postJSON(r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateReversal_EndToEnd(t *testing.T) {
	e := newEnv(t)
	e.seed(t)

	w := postJSON(e.router, "/v1/reversals", gin.H{
		"transaction_id":   "tx-1",
		"transaction_type": "bbps",
		"reason":           "duplicate payment",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success       bool            `json:"success"`
		ReversalID    string          `json:"reversal_id"`
		BeforeBalance decimal.Decimal `json:"before_balance"`
		AfterBalance  decimal.Decimal `json:"after_balance"`
		Amount        decimal.Decimal `json:"amount"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.ReversalID == "" {
		t.Fatalf("bad response: %s", w.Body.String())
	}
	if !resp.AfterBalance.Equal(resp.BeforeBalance.Add(dec("500.00"))) {
		t.Fatalf("after %s, want before %s + 500.00", resp.AfterBalance, resp.BeforeBalance)
	}

	// Second attempt: 400, no new ledger entry.
	entries := len(e.led.Entries("R1", ledger.WalletPrimary))
	w = postJSON(e.router, "/v1/reversals", gin.H{
		"transaction_id":   "tx-1",
		"transaction_type": "bbps",
		"reason":           "duplicate payment",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("repeat status %d, want 400", w.Code)
	}
	if got := len(e.led.Entries("R1", ledger.WalletPrimary)); got != entries {
		t.Fatalf("ledger grew on rejected repeat")
	}
}

func TestCreateReversal_NotFound(t *testing.T) {
	e := newEnv(t)

	w := postJSON(e.router, "/v1/reversals", gin.H{
		"transaction_id":   "tx-nope",
		"transaction_type": "bbps",
		"reason":           "duplicate payment",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", w.Code)
	}
}

func TestBBPSFailureReversal_RejectsSuccess(t *testing.T) {
	e := newEnv(t)
	e.seed(t)

	w := postJSON(e.router, "/v1/reversals/bbps-failure", gin.H{
		"transaction_id": "tx-1",
		"reason":         "gateway failure",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestGetWalletBalance(t *testing.T) {
	e := newEnv(t)
	e.seed(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/wallets/R1/primary/balance", nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/wallets/R1/savings/balance", nil)
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad wallet type: status %d, want 400", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/wallets/nobody/primary/balance", nil)
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown wallet: status %d, want 404", w.Code)
	}
}

func TestGetWalletLedger(t *testing.T) {
	e := newEnv(t)
	e.seed(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/wallets/R1/primary/ledger?limit=10", nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Entries []ledger.Entry `json:"entries"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(resp.Entries))
	}
}

func TestStuckReversals_EmptyList(t *testing.T) {
	e := newEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/reversals/stuck", nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Reversals []reversal.Reversal `json:"reversals"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Reversals == nil || len(resp.Reversals) != 0 {
		t.Fatalf("want empty list, got %v", resp.Reversals)
	}
}
