package acceptance

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/sdk/trace"

	"github.com/semanticallynull/bikeledger/api"
	"github.com/semanticallynull/bikeledger/bike"
	"github.com/semanticallynull/bikeledger/customer"
	"github.com/semanticallynull/bikeledger/internal/auth0"
	"github.com/semanticallynull/bikeledger/internal/blockclock"
	"github.com/semanticallynull/bikeledger/internal/guard"
	"github.com/semanticallynull/bikeledger/internal/middleware"
	"github.com/semanticallynull/bikeledger/internal/o11y"
	"github.com/semanticallynull/bikeledger/internal/payments"
	"github.com/semanticallynull/bikeledger/maintenance"
	"github.com/semanticallynull/bikeledger/store"
)

const registryOwner = "registry-owner"

type TestServer struct {
	Router   *gin.Engine
	Clock    *blockclock.Manual
	Journal  *store.MemoryJournal
	Payments *payments.Fake
	Profiles *auth0.FakeClient
}

// NewTestServer wires the full API over an in-memory journal. Callers are
// named with the X-Caller header.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	return newTestServer(t, store.NewMemoryJournal())
}

func newTestServer(t *testing.T, journal *store.MemoryJournal) *TestServer {
	t.Helper()

	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := store.New(journal, logger)
	g := guard.New(s)
	registry := bike.NewRegistry(s, g)
	ledgers := api.Ledgers{
		Guard:       g,
		Registry:    registry,
		Maintenance: maintenance.New(s, g, registry),
		Accounts:    customer.New(s, g),
	}
	ctx := context.Background()
	if err := s.Restore(ctx); err != nil {
		t.Fatalf("failed to restore store: %v", err)
	}
	if err := g.Bootstrap(ctx, registryOwner); err != nil {
		t.Fatalf("failed to bootstrap owner: %v", err)
	}

	ts := &TestServer{
		Clock:    blockclock.NewManual(1000),
		Journal:  journal,
		Payments: &payments.Fake{Rejected: map[string]bool{}},
		Profiles: auth0.NewFakeClient(),
	}
	obs := &o11y.Observability{
		Logger:   logger,
		Tracer:   trace.NewTracerProvider(),
		Registry: prometheus.NewRegistry(),
	}
	a := api.New(ledgers, obs, api.Options{
		Auth:     []gin.HandlerFunc{middleware.DevAuth()},
		Clock:    ts.Clock,
		Profiles: ts.Profiles,
		Payments: ts.Payments,
	})
	ts.Router = a.Router()
	return ts
}

func as(caller string) map[string]string {
	return map[string]string{middleware.CallerHeader: caller}
}

func (ts *TestServer) do(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)
	return w
}

func (ts *TestServer) GET(path string, headers map[string]string) *httptest.ResponseRecorder {
	return ts.do(http.MethodGet, path, nil, headers)
}

func (ts *TestServer) POST(path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	return ts.do(http.MethodPost, path, body, headers)
}

func (ts *TestServer) PUT(path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	return ts.do(http.MethodPut, path, body, headers)
}

func (ts *TestServer) DELETE(path string, headers map[string]string) *httptest.ResponseRecorder {
	return ts.do(http.MethodDelete, path, nil, headers)
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, w.Code, w.Body.String())
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
}

type errorResponse struct {
	Code       string `json:"code"`
	Ledger     string `json:"ledger"`
	LedgerCode int    `json:"ledgerCode"`
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) errorResponse {
	t.Helper()
	expectStatus(t, w, status)
	var resp errorResponse
	decode(t, w, &resp)
	if resp.Code != code {
		t.Errorf("expected code %s, got %s", code, resp.Code)
	}
	return resp
}

// CreateTestStation registers a station as the registry owner.
func (ts *TestServer) CreateTestStation(t *testing.T, id string, capacity uint32) {
	t.Helper()
	w := ts.POST("/stations", map[string]interface{}{
		"id": id, "name": "Station " + id, "latitude": 53.35, "longitude": -6.26, "capacity": capacity,
	}, as(registryOwner))
	expectStatus(t, w, http.StatusCreated)
}

// CreateTestBike registers a bicycle at stationID owned by owner.
func (ts *TestServer) CreateTestBike(t *testing.T, id, stationID, owner string) {
	t.Helper()
	w := ts.POST("/bicycles", map[string]interface{}{
		"id": id, "stationId": stationID, "owner": owner, "type": "city", "model": "Roadster", "hourlyRate": 250,
	}, as(registryOwner))
	expectStatus(t, w, http.StatusCreated)
}

// CreateRenter registers user and brings the account to a state that may
// rent.
func (ts *TestServer) CreateRenter(t *testing.T, user string) {
	t.Helper()
	expectStatus(t, ts.POST("/me", map[string]string{"username": user, "email": user + "@example.com"}, as(user)), http.StatusCreated)
	expectStatus(t, ts.POST("/me/payment-method", map[string]string{"provider": "stripe", "token": "pm_" + user}, as(user)), http.StatusCreated)
	expectStatus(t, ts.PUT("/users/"+user+"/verification-level", map[string]uint64{"level": 1}, as(registryOwner)), http.StatusOK)
}
