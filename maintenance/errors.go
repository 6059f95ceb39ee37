package maintenance

import "errors"

// Error is a maintenance ledger failure with a stable numeric code. Codes
// are local to this ledger.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrNotAuthorized   = &Error{Code: 100, Message: "not authorized"}
	ErrScheduleExists  = &Error{Code: 101, Message: "maintenance schedule already exists"}
	ErrBicycleNotFound = &Error{Code: 102, Message: "bicycle not found"}
	ErrRecordExists    = &Error{Code: 103, Message: "maintenance record already exists"}
	ErrRecordNotFound  = &Error{Code: 104, Message: "maintenance record not found"}
	ErrIssueExists     = &Error{Code: 105, Message: "issue already reported"}
	ErrIssueNotFound   = &Error{Code: 106, Message: "issue not found"}
	ErrInvalidStatus   = &Error{Code: 107, Message: "invalid status"}
	ErrInvalidSeverity = &Error{Code: 108, Message: "invalid severity"}
	ErrTooEarly        = &Error{Code: 109, Message: "maintenance is not due yet"}
)

// CodeOf returns the maintenance code carried by err.
func CodeOf(err error) (int, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}
