package acceptance

import (
	"net/http"
	"testing"
)

type rentableResponse struct {
	Rentable   bool     `json:"rentable"`
	HourlyRate uint64   `json:"hourlyRate"`
	Reasons    []string `json:"reasons"`
}

func TestRentable_AllLedgersAgree(t *testing.T) {
	ts := NewTestServer(t)

	ts.CreateTestStation(t, "st-1", 4)
	ts.CreateTestBike(t, "bk-1", "st-1", "")
	expectStatus(t, ts.POST("/bicycles/bk-1/maintenance", map[string]uint64{"intervalDays": 30}, as(registryOwner)), http.StatusCreated)
	ts.CreateRenter(t, "alice")

	var canRent struct {
		CanRentBike bool `json:"canRentBike"`
	}
	decode(t, ts.GET("/users/alice/can-rent", nil), &canRent)
	if !canRent.CanRentBike {
		t.Fatalf("expected alice to be able to rent")
	}

	w := ts.GET("/bicycles/bk-1/rentable", as("alice"))
	expectStatus(t, w, http.StatusOK)
	var resp rentableResponse
	decode(t, w, &resp)
	if !resp.Rentable {
		t.Errorf("expected bicycle to be rentable")
	}
	if resp.HourlyRate != 250 {
		t.Errorf("expected hourly rate 250, got %d", resp.HourlyRate)
	}
}

func TestRentable_CriticalIssueBlocks(t *testing.T) {
	ts := NewTestServer(t)

	ts.CreateTestStation(t, "st-1", 4)
	ts.CreateTestBike(t, "bk-1", "st-1", "")
	expectStatus(t, ts.POST("/bicycles/bk-1/maintenance", map[string]uint64{"intervalDays": 30}, as(registryOwner)), http.StatusCreated)
	ts.CreateRenter(t, "alice")

	w := ts.POST("/bicycles/bk-1/issues", map[string]string{"issueId": "is-1", "severity": "critical"}, as("alice"))
	expectStatus(t, w, http.StatusCreated)

	w = ts.GET("/bicycles/bk-1/rentable", as("alice"))
	expectStatus(t, w, http.StatusPreconditionFailed)
	var resp rentableResponse
	decode(t, w, &resp)
	if resp.Rentable {
		t.Errorf("expected bicycle not to be rentable")
	}
	if len(resp.Reasons) != 1 || resp.Reasons[0] != "bicycle has open critical issues" {
		t.Errorf("expected critical issue reason, got %v", resp.Reasons)
	}
}

func TestRentable_UnverifiedCustomer(t *testing.T) {
	ts := NewTestServer(t)

	ts.CreateTestStation(t, "st-1", 4)
	ts.CreateTestBike(t, "bk-1", "st-1", "")
	expectStatus(t, ts.POST("/me", map[string]string{"username": "bob"}, as("bob")), http.StatusCreated)

	w := ts.GET("/bicycles/bk-1/rentable", as("bob"))
	expectStatus(t, w, http.StatusPreconditionFailed)
	var resp rentableResponse
	decode(t, w, &resp)
	if len(resp.Reasons) != 1 || resp.Reasons[0] != "customer cannot rent" {
		t.Errorf("expected customer reason, got %v", resp.Reasons)
	}

	w = ts.GET("/bicycles/ghost/rentable", as("bob"))
	expectError(t, w, http.StatusNotFound, "BICYCLE_NOT_FOUND")
}
