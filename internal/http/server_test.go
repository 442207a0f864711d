package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"netcost/internal/core"
	"netcost/internal/inventory/memory"
	"netcost/internal/projection"
	"netcost/internal/services"
)

func newTestServer(t *testing.T, circuits []core.Circuit) *Server {
	t.Helper()
	store := memory.New(circuits)
	projector := services.NewProjectionService(store, store, 36)
	srv := NewServer(":0", projector, store, store, store, store, time.Minute)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

func TestHandleProjection(t *testing.T) {
	srv := newTestServer(t, []core.Circuit{
		{
			ID:            "ckt-1",
			LocationID:    "loc-1",
			Set:           core.ExistingSet,
			Type:          "MPLS",
			MonthlyCost:   core.Money{Cents: 10000},
			ContractStart: core.NewDate(2020, 1, 1),
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/projection?location_id=loc-1", nil)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var points []projection.MonthPoint
	if err := json.Unmarshal(rec.Body.Bytes(), &points); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(points) != 36 {
		t.Fatalf("got %d points, want 36", len(points))
	}
	if points[0].ExistingMPLS != 10000 {
		t.Errorf("existingMpls = %d, want 10000", points[0].ExistingMPLS)
	}
}

func TestHandleProjection_MissingLocation(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/projection", nil)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleProjection_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/projection?location_id=loc-1", nil)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestHandleCreateCircuit(t *testing.T) {
	srv := newTestServer(t, nil)

	body := `{
		"id": "ckt-9",
		"location_id": "loc-1",
		"set": "existing",
		"type": "DIA",
		"monthly_cost": "450.00",
		"contract_start": "2024-01-15"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/circuits", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Ref              string `json:"ref"`
		MonthlyCostCents int64  `json:"monthly_cost_cents"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Ref == "" {
		t.Error("response ref is empty")
	}
	if resp.MonthlyCostCents != 45000 {
		t.Errorf("monthly_cost_cents = %d, want 45000", resp.MonthlyCostCents)
	}
}

func TestHandleCreateCircuit_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{
			name: "malformed json",
			body: `{`,
			want: http.StatusBadRequest,
		},
		{
			name: "bad monthly cost",
			body: `{"id":"a","location_id":"loc-1","set":"existing","type":"DIA","monthly_cost":"-4"}`,
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "bad contract date",
			body: `{"id":"a","location_id":"loc-1","set":"existing","type":"DIA","monthly_cost":"4","contract_start":"15/01/2024"}`,
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "proposed without proposal id",
			body: `{"id":"a","location_id":"loc-1","set":"proposed","type":"DIA","monthly_cost":"4"}`,
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "invalid set",
			body: `{"id":"a","location_id":"loc-1","set":"planned","type":"DIA","monthly_cost":"4"}`,
			want: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, nil)
			req := httptest.NewRequest(http.MethodPost, "/api/circuits", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			srv.Server.Handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d; body: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestHandleCreateCircuit_InvalidatesProjectionCache(t *testing.T) {
	srv := newTestServer(t, nil)

	// Warm the cache with an empty projection.
	req := httptest.NewRequest(http.MethodGet, "/api/projection?location_id=loc-1", nil)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("warmup status = %d", rec.Code)
	}

	body := `{"id":"ckt-1","location_id":"loc-1","set":"existing","type":"LTE",
		"monthly_cost":"90.00","contract_start":"2020-01-01"}`
	req = httptest.NewRequest(http.MethodPost, "/api/circuits", strings.NewReader(body))
	rec = httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d; body: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/projection?location_id=loc-1", nil)
	rec = httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	var points []projection.MonthPoint
	if err := json.Unmarshal(rec.Body.Bytes(), &points); err != nil {
		t.Fatal(err)
	}
	if points[0].ExistingLTE != 9000 {
		t.Errorf("existingLte = %d, want 9000 after cache invalidation", points[0].ExistingLTE)
	}
}

func TestHandleListCircuits(t *testing.T) {
	srv := newTestServer(t, []core.Circuit{
		{ID: "a", LocationID: "loc-1", Set: core.ExistingSet, Type: "MPLS", MonthlyCost: core.Money{Cents: 100}},
		{ID: "b", LocationID: "loc-1", ProposalID: "prop-1", Set: core.ProposedSet, Type: "DIA", MonthlyCost: core.Money{Cents: 200}},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/circuits?location_id=loc-1", nil)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	var active []circuitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &active); err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].ID != "a" {
		t.Errorf("active circuits = %+v, want just a", active)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/circuits?location_id=loc-1&proposal_id=prop-1", nil)
	rec = httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	var proposed []circuitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &proposed); err != nil {
		t.Fatal(err)
	}
	if len(proposed) != 1 || proposed[0].ID != "b" {
		t.Errorf("proposed circuits = %+v, want just b", proposed)
	}
}

func TestHandleDeleteCircuit(t *testing.T) {
	srv := newTestServer(t, []core.Circuit{
		{ID: "a", LocationID: "loc-1", Set: core.ExistingSet, Type: "MPLS", MonthlyCost: core.Money{Cents: 100}},
	})

	req := httptest.NewRequest(http.MethodDelete, "/api/circuits/a", nil)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/circuits/a", nil)
	rec = httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Server.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}
