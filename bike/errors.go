package bike

import "errors"

// Error is a registry failure with a stable numeric code. Codes are local to
// the registry.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrNotAuthorized   = &Error{Code: 100, Message: "not authorized"}
	ErrBicycleExists   = &Error{Code: 101, Message: "bicycle already registered"}
	ErrBicycleNotFound = &Error{Code: 102, Message: "bicycle not found"}
	ErrStationExists   = &Error{Code: 103, Message: "station already registered"}
	ErrStationNotFound = &Error{Code: 104, Message: "station not found"}
	ErrInvalidStatus   = &Error{Code: 105, Message: "invalid bicycle status"}
	ErrStationFull     = &Error{Code: 106, Message: "station has no free spots"}
	ErrNotDocked       = &Error{Code: 107, Message: "bicycle is not docked at this station"}
)

// CodeOf returns the registry code carried by err.
func CodeOf(err error) (int, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}
