package game

import "errors"

// ErrNotFound is the store-level miss signal. Engines translate it into
// the appropriate domain code for the call site.
var ErrNotFound = errors.New("not found")

// Domain error codes. The HTTP layer maps the code/status pair onto the
// response; nothing else should leak out of an engine.
const (
	CodeNoProgression      = "NO_PROGRESSION"
	CodeProgressionExists  = "PROGRESSION_EXISTS"
	CodeInsufficientClicks = "INSUFFICIENT_CLICKS"
	CodeNoProgressions     = "NO_PROGRESSIONS"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeItemNotFound       = "ITEM_NOT_FOUND"
	CodeInventoryFull      = "INVENTORY_FULL"
	CodeNotEnoughMoney     = "NOT_ENOUGH_MONEY"
	CodeNoItems            = "NO_ITEMS"
	CodeInvalidUserID      = "INVALID_USER_ID"
	CodeRegistrationFailed = "REGISTRATION_FAILED"
	CodeInvalidPassword    = "INVALID_PASSWORD"
)

// Error is the single domain error type. Status carries the HTTP-style
// status the boundary layer should answer with; the same code can carry
// different statuses at different call sites.
type Error struct {
	Code   string
	Status int
}

func (e *Error) Error() string { return e.Code }

func NewError(code string, status int) *Error {
	return &Error{Code: code, Status: status}
}

// AsDomainError unwraps err into a *Error if one is in the chain.
func AsDomainError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsCode reports whether err is a domain error with the given code.
func IsCode(err error, code string) bool {
	de, ok := AsDomainError(err)
	return ok && de.Code == code
}
