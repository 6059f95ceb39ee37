package acceptance

import (
	"net/http"
	"testing"
)

func TestRegisterBicycle_DocksAtStation(t *testing.T) {
	ts := NewTestServer(t)

	ts.CreateTestStation(t, "st-1", 2)
	ts.CreateTestBike(t, "bk-1", "st-1", "fleet-a")

	w := ts.GET("/stations/st-1", nil)
	expectStatus(t, w, http.StatusOK)
	var st struct {
		Capacity  uint32 `json:"capacity"`
		Available uint32 `json:"bicyclesCount"`
		Full      bool   `json:"full"`
	}
	decode(t, w, &st)
	if st.Available != 1 {
		t.Errorf("expected 1 docked bicycle, got %d", st.Available)
	}
	if st.Full {
		t.Errorf("expected station not to be full")
	}

	w = ts.GET("/bicycles/bk-1", nil)
	expectStatus(t, w, http.StatusOK)
	var b struct {
		Owner            string `json:"owner"`
		Status           string `json:"status"`
		RegistrationDate uint64 `json:"registrationDate"`
	}
	decode(t, w, &b)
	if b.Owner != "fleet-a" {
		t.Errorf("expected owner fleet-a, got %s", b.Owner)
	}
	if b.Status != "available" {
		t.Errorf("expected status available, got %s", b.Status)
	}
	if b.RegistrationDate != 1000 {
		t.Errorf("expected registration at block 1000, got %d", b.RegistrationDate)
	}
}

func TestRegisterBicycle_StationFull(t *testing.T) {
	ts := NewTestServer(t)

	ts.CreateTestStation(t, "st-1", 1)
	ts.CreateTestBike(t, "bk-1", "st-1", "")

	w := ts.POST("/bicycles", map[string]interface{}{"id": "bk-2", "stationId": "st-1"}, as(registryOwner))
	resp := expectError(t, w, http.StatusConflict, "STATION_FULL")
	if resp.Ledger != "registry" || resp.LedgerCode != 106 {
		t.Errorf("expected registry code 106, got %s %d", resp.Ledger, resp.LedgerCode)
	}
}

func TestRegisterStation_OnlyOwner(t *testing.T) {
	ts := NewTestServer(t)

	w := ts.POST("/stations", map[string]interface{}{"id": "st-1", "capacity": 5}, as("mallory"))
	resp := expectError(t, w, http.StatusForbidden, "NOT_AUTHORIZED")
	if resp.LedgerCode != 100 {
		t.Errorf("expected ledger code 100, got %d", resp.LedgerCode)
	}

	w = ts.POST("/stations", map[string]interface{}{"id": "st-1", "capacity": 5}, nil)
	expectStatus(t, w, http.StatusUnauthorized)
}

func TestBicycleStatus_ResourceOwnerMayUpdate(t *testing.T) {
	ts := NewTestServer(t)

	ts.CreateTestStation(t, "st-1", 2)
	ts.CreateTestBike(t, "bk-1", "st-1", "fleet-a")

	w := ts.PUT("/bicycles/bk-1/status", map[string]string{"status": "maintenance"}, as("fleet-a"))
	expectStatus(t, w, http.StatusOK)

	w = ts.GET("/bicycles/bk-1/available", nil)
	expectStatus(t, w, http.StatusOK)
	var avail struct {
		Available bool `json:"available"`
	}
	decode(t, w, &avail)
	if avail.Available {
		t.Errorf("expected bicycle in maintenance to be unavailable")
	}

	w = ts.PUT("/bicycles/bk-1/status", map[string]string{"status": "available"}, as("fleet-b"))
	expectError(t, w, http.StatusForbidden, "NOT_AUTHORIZED")

	w = ts.PUT("/bicycles/bk-1/status", map[string]string{"status": "parked"}, as("fleet-a"))
	expectError(t, w, http.StatusBadRequest, "INVALID_STATUS")
}

func TestRemoveBicycle_FreesDock(t *testing.T) {
	ts := NewTestServer(t)

	ts.CreateTestStation(t, "st-1", 1)
	ts.CreateTestBike(t, "bk-1", "st-1", "")

	w := ts.DELETE("/bicycles/bk-1?stationId=st-1", as(registryOwner))
	expectStatus(t, w, http.StatusNoContent)

	w = ts.GET("/bicycles/bk-1", nil)
	expectError(t, w, http.StatusNotFound, "BICYCLE_NOT_FOUND")

	ts.CreateTestBike(t, "bk-2", "st-1", "")
}

func TestRegistryOwner_Transfer(t *testing.T) {
	ts := NewTestServer(t)

	w := ts.PUT("/registry/owner", map[string]string{"owner": "new-owner"}, as("mallory"))
	expectStatus(t, w, http.StatusForbidden)

	w = ts.PUT("/registry/owner", map[string]string{"owner": "new-owner"}, as(registryOwner))
	expectStatus(t, w, http.StatusOK)

	w = ts.GET("/registry/owner", nil)
	var resp struct {
		Owner string `json:"owner"`
	}
	decode(t, w, &resp)
	if resp.Owner != "new-owner" {
		t.Errorf("expected new-owner, got %s", resp.Owner)
	}

	w = ts.POST("/stations", map[string]interface{}{"id": "st-1", "capacity": 1}, as(registryOwner))
	expectStatus(t, w, http.StatusForbidden)
}

func TestRestart_RestoresState(t *testing.T) {
	ts := NewTestServer(t)

	ts.CreateTestStation(t, "st-1", 2)
	ts.CreateTestBike(t, "bk-1", "st-1", "fleet-a")

	restarted := newTestServer(t, ts.Journal)
	w := restarted.GET("/bicycles/bk-1", nil)
	expectStatus(t, w, http.StatusOK)

	w = restarted.GET("/stations/st-1", nil)
	var st struct {
		Available uint32 `json:"bicyclesCount"`
	}
	decode(t, w, &st)
	if st.Available != 1 {
		t.Errorf("expected restored station to hold 1 bicycle, got %d", st.Available)
	}
}
