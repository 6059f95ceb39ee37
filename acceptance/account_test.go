package acceptance

import (
	"net/http"
	"testing"

	"github.com/semanticallynull/bikeledger/internal/auth0"
	"github.com/semanticallynull/bikeledger/internal/middleware"
)

type balanceResponse struct {
	DepositBalance uint64 `json:"depositBalance"`
}

func TestAccount_DepositWithdrawCharge(t *testing.T) {
	ts := NewTestServer(t)

	expectStatus(t, ts.POST("/me", map[string]string{"username": "alice"}, as("alice")), http.StatusCreated)

	w := ts.POST("/me/deposits", map[string]uint64{"amount": 5000}, as("alice"))
	expectStatus(t, w, http.StatusOK)

	w = ts.POST("/me/withdrawals", map[string]uint64{"amount": 6000}, as("alice"))
	resp := expectError(t, w, http.StatusConflict, "INSUFFICIENT_BALANCE")
	if resp.Ledger != "accounts" || resp.LedgerCode != 109 {
		t.Errorf("expected accounts code 109, got %s %d", resp.Ledger, resp.LedgerCode)
	}

	w = ts.POST("/users/alice/charges", map[string]uint64{"amount": 1200}, as("alice"))
	expectError(t, w, http.StatusForbidden, "NOT_AUTHORIZED")

	w = ts.POST("/users/alice/charges", map[string]uint64{"amount": 1200}, as(registryOwner))
	expectStatus(t, w, http.StatusOK)

	var bal balanceResponse
	decode(t, ts.GET("/users/alice/balance", nil), &bal)
	if bal.DepositBalance != 3800 {
		t.Errorf("expected balance 3800, got %d", bal.DepositBalance)
	}
}

func TestAccount_RegisterTwice(t *testing.T) {
	ts := NewTestServer(t)

	expectStatus(t, ts.POST("/me", map[string]string{"username": "alice"}, as("alice")), http.StatusCreated)
	expectError(t, ts.POST("/me", map[string]string{"username": "alice"}, as("alice")), http.StatusConflict, "USER_EXISTS")
}

func TestAccount_RegisterFromIdentityProvider(t *testing.T) {
	ts := NewTestServer(t)
	ts.Profiles.AddUser("token-1", &auth0.UserInfo{Sub: "auth0|bob", Nickname: "bob", Email: "bob@example.com"})

	w := ts.POST("/me", nil, map[string]string{
		middleware.CallerHeader: "auth0|bob",
		"Authorization":         "Bearer token-1",
	})
	expectStatus(t, w, http.StatusCreated)

	var u struct {
		Username  string `json:"username"`
		EmailHash string `json:"emailHash"`
	}
	decode(t, w, &u)
	if u.Username != "bob" {
		t.Errorf("expected username bob, got %s", u.Username)
	}
	if u.EmailHash == "" || u.EmailHash == "bob@example.com" {
		t.Errorf("expected hashed email, got %q", u.EmailHash)
	}
}

func TestAccount_PaymentMethodRejectedByProvider(t *testing.T) {
	ts := NewTestServer(t)
	ts.Payments.Rejected["pm_bad"] = true

	expectStatus(t, ts.POST("/me", map[string]string{"username": "alice"}, as("alice")), http.StatusCreated)

	w := ts.POST("/me/payment-method", map[string]string{"provider": "stripe", "token": "pm_bad"}, as("alice"))
	expectError(t, w, http.StatusUnprocessableEntity, "PAYMENT_METHOD_REJECTED")

	var pm struct {
		HasValid bool `json:"hasValidPaymentMethod"`
	}
	decode(t, ts.GET("/users/alice/payment-method", nil), &pm)
	if pm.HasValid {
		t.Errorf("expected no payment method after rejection")
	}

	w = ts.POST("/me/payment-method", map[string]string{"provider": "stripe", "token": "pm_good"}, as("alice"))
	expectStatus(t, w, http.StatusCreated)
	var stored struct {
		TokenHash string `json:"tokenHash"`
	}
	decode(t, w, &stored)
	if stored.TokenHash == "pm_good" {
		t.Errorf("expected token to be stored hashed")
	}
}

func TestAccount_DocumentExpiry(t *testing.T) {
	ts := NewTestServer(t)

	expectStatus(t, ts.POST("/me", map[string]string{"username": "alice"}, as("alice")), http.StatusCreated)
	w := ts.POST("/me/documents", map[string]string{"type": "license", "documentHash": "h1"}, as("alice"))
	expectStatus(t, w, http.StatusCreated)

	w = ts.PUT("/users/alice/documents/license", map[string]interface{}{"status": "pending"}, as(registryOwner))
	expectError(t, w, http.StatusBadRequest, "INVALID_VERIFICATION_STATUS")

	w = ts.PUT("/users/alice/documents/license", map[string]interface{}{"status": "verified", "expiryBlocks": 10000}, as(registryOwner))
	expectStatus(t, w, http.StatusOK)

	var doc struct {
		Status  string `json:"verificationStatus"`
		Expired bool   `json:"expired"`
	}
	ts.Clock.Set(11000)
	decode(t, ts.GET("/users/alice/documents/license", nil), &doc)
	if doc.Status != "verified" {
		t.Errorf("expected verified, got %s", doc.Status)
	}
	if doc.Expired {
		t.Errorf("expected document not expired at its expiry block")
	}

	ts.Clock.Advance(1)
	decode(t, ts.GET("/users/alice/documents/license", nil), &doc)
	if !doc.Expired {
		t.Errorf("expected document expired after its expiry block")
	}
}

func TestAccount_Reputation(t *testing.T) {
	ts := NewTestServer(t)

	expectStatus(t, ts.POST("/me", map[string]string{"username": "alice"}, as("alice")), http.StatusCreated)

	w := ts.PUT("/users/alice/reputation", map[string]uint64{"score": 101}, as(registryOwner))
	resp := expectError(t, w, http.StatusBadRequest, "INVALID_SCORE")
	if resp.LedgerCode != 110 {
		t.Errorf("expected ledger code 110, got %d", resp.LedgerCode)
	}

	w = ts.PUT("/users/alice/reputation", map[string]uint64{"score": 40}, as(registryOwner))
	expectStatus(t, w, http.StatusOK)
}
