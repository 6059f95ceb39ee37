package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/semanticallynull/bikeledger/bike"
	"github.com/semanticallynull/bikeledger/customer"
	"github.com/semanticallynull/bikeledger/internal/guard"
	"github.com/semanticallynull/bikeledger/internal/middleware"
	"github.com/semanticallynull/bikeledger/internal/payments"
	"github.com/semanticallynull/bikeledger/maintenance"
)

type failure struct {
	err    error
	status int
	code   string
}

// failures maps every ledger error onto an HTTP status and a stable code
// name. Ledger error codes overlap between ledgers, so the name is what
// clients should switch on.
var failures = []failure{
	{bike.ErrNotAuthorized, http.StatusForbidden, "NOT_AUTHORIZED"},
	{bike.ErrBicycleExists, http.StatusConflict, "BICYCLE_EXISTS"},
	{bike.ErrBicycleNotFound, http.StatusNotFound, "BICYCLE_NOT_FOUND"},
	{bike.ErrStationExists, http.StatusConflict, "STATION_EXISTS"},
	{bike.ErrStationNotFound, http.StatusNotFound, "STATION_NOT_FOUND"},
	{bike.ErrInvalidStatus, http.StatusBadRequest, "INVALID_STATUS"},
	{bike.ErrStationFull, http.StatusConflict, "STATION_FULL"},
	{bike.ErrNotDocked, http.StatusConflict, "NOT_DOCKED"},

	{maintenance.ErrNotAuthorized, http.StatusForbidden, "NOT_AUTHORIZED"},
	{maintenance.ErrScheduleExists, http.StatusConflict, "SCHEDULE_EXISTS"},
	{maintenance.ErrBicycleNotFound, http.StatusNotFound, "BICYCLE_NOT_FOUND"},
	{maintenance.ErrRecordExists, http.StatusConflict, "RECORD_EXISTS"},
	{maintenance.ErrRecordNotFound, http.StatusNotFound, "RECORD_NOT_FOUND"},
	{maintenance.ErrIssueExists, http.StatusConflict, "ISSUE_EXISTS"},
	{maintenance.ErrIssueNotFound, http.StatusNotFound, "ISSUE_NOT_FOUND"},
	{maintenance.ErrInvalidStatus, http.StatusBadRequest, "INVALID_STATUS"},
	{maintenance.ErrInvalidSeverity, http.StatusBadRequest, "INVALID_SEVERITY"},
	{maintenance.ErrTooEarly, http.StatusConflict, "TOO_EARLY"},

	{customer.ErrNotAuthorized, http.StatusForbidden, "NOT_AUTHORIZED"},
	{customer.ErrUserExists, http.StatusConflict, "USER_EXISTS"},
	{customer.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{customer.ErrPaymentMethodNotFound, http.StatusNotFound, "PAYMENT_METHOD_NOT_FOUND"},
	{customer.ErrDocumentExists, http.StatusConflict, "DOCUMENT_EXISTS"},
	{customer.ErrDocumentNotFound, http.StatusNotFound, "DOCUMENT_NOT_FOUND"},
	{customer.ErrInvalidVerificationStatus, http.StatusBadRequest, "INVALID_VERIFICATION_STATUS"},
	{customer.ErrInvalidVerificationLevel, http.StatusBadRequest, "INVALID_VERIFICATION_LEVEL"},
	{customer.ErrInsufficientBalance, http.StatusConflict, "INSUFFICIENT_BALANCE"},
	{customer.ErrInvalidScore, http.StatusBadRequest, "INVALID_SCORE"},
	{customer.ErrBalanceOverflow, http.StatusConflict, "BALANCE_OVERFLOW"},

	{guard.ErrNotAuthorized, http.StatusForbidden, "NOT_AUTHORIZED"},
	{guard.ErrInvalidOwner, http.StatusBadRequest, "INVALID_OWNER"},
	{payments.ErrUnknownMethod, http.StatusUnprocessableEntity, "PAYMENT_METHOD_REJECTED"},
	{payments.ErrDetached, http.StatusUnprocessableEntity, "PAYMENT_METHOD_REJECTED"},
}

// ledgerCode returns the ledger name and numeric code carried by err.
func ledgerCode(err error) (string, int, bool) {
	if code, ok := bike.CodeOf(err); ok {
		return "registry", code, true
	}
	if code, ok := maintenance.CodeOf(err); ok {
		return "maintenance", code, true
	}
	if code, ok := customer.CodeOf(err); ok {
		return "accounts", code, true
	}
	return "", 0, false
}

// fail writes the response for an error returned by a ledger or one of its
// collaborators. Anything unrecognised is logged and reported as a 500.
func (a *API) fail(c *gin.Context, err error) {
	for _, f := range failures {
		if !errors.Is(err, f.err) {
			continue
		}
		body := gin.H{"code": f.code, "message": err.Error()}
		if ledger, code, ok := ledgerCode(err); ok {
			body["ledger"] = ledger
			body["ledgerCode"] = code
			middleware.RecordRejection(ledger, code)
		}
		c.JSON(f.status, body)
		return
	}

	middleware.GetLogger(c).ErrorContext(c, "ledger operation failed", "error", err)
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "error": "internal error"})
}
