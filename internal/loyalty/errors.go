package loyalty

// Error is a domain error with a stable machine-readable code. The HTTP
// layer maps codes to status codes; the engine itself never speaks HTTP.
type Error struct {
	Code string
	msg  string
}

func (e *Error) Error() string { return e.msg }

var (
	// Validation errors: invalid input, rejected before any mutation.
	ErrInvalidMember      = &Error{Code: "InvalidMember", msg: "member id is not a valid identifier"}
	ErrInvalidAmount      = &Error{Code: "InvalidAmount", msg: "amount must be > 0"}
	ErrInvalidPoints      = &Error{Code: "InvalidPoints", msg: "points must be a positive integer"}
	ErrInvalidReference   = &Error{Code: "InvalidReference", msg: "reference id is not a valid identifier"}
	ErrMissingDescription = &Error{Code: "MissingDescription", msg: "description is required"}
	ErrMissingReason      = &Error{Code: "MissingReason", msg: "reason is required"}
	ErrInvalidLimit       = &Error{Code: "InvalidLimit", msg: "limit must be between 1 and 1000"}

	// State errors: valid input rejected by current account state.
	ErrAccountExists      = &Error{Code: "AccountExists", msg: "loyalty account already exists for member"}
	ErrAccountNotFound    = &Error{Code: "AccountNotFound", msg: "loyalty account not found"}
	ErrInsufficientPoints = &Error{Code: "InsufficientPoints", msg: "insufficient available points"}
	ErrNegativeBalance    = &Error{Code: "NegativeBalance", msg: "adjustment would make available points negative"}
)
