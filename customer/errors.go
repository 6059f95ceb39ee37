package customer

import "errors"

// Error is a user account failure with a stable numeric code. Codes are
// local to this ledger.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrNotAuthorized             = &Error{Code: 100, Message: "not authorized"}
	ErrUserExists                = &Error{Code: 101, Message: "user already registered"}
	ErrUserNotFound              = &Error{Code: 102, Message: "user not found"}
	ErrPaymentMethodNotFound     = &Error{Code: 104, Message: "payment method not found"}
	ErrDocumentExists            = &Error{Code: 105, Message: "document already submitted"}
	ErrDocumentNotFound          = &Error{Code: 106, Message: "document not found"}
	ErrInvalidVerificationStatus = &Error{Code: 107, Message: "invalid verification status"}
	ErrInvalidVerificationLevel  = &Error{Code: 108, Message: "invalid verification level"}
	ErrInsufficientBalance       = &Error{Code: 109, Message: "insufficient balance"}
	ErrInvalidScore              = &Error{Code: 110, Message: "invalid reputation score"}
	ErrBalanceOverflow           = &Error{Code: 111, Message: "deposit balance overflow"}
)

// CodeOf returns the account ledger code carried by err.
func CodeOf(err error) (int, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}
