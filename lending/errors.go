package lending

// Kind tags a business-rule failure so callers can branch without
// matching message strings. Message text for users is chosen at the
// HTTP boundary, not here.
type Kind string

const (
	QuotaExceeded     Kind = "quota_exceeded"
	AlreadyBorrowed   Kind = "already_borrowed"
	NoCopiesAvailable Kind = "no_copies_available"
	NotFound          Kind = "not_found"
	RenewalCapReached Kind = "renewal_cap_reached"
	InvalidTransition Kind = "invalid_transition"
	Unauthorized      Kind = "unauthorized"
	RequestInFlight   Kind = "request_in_flight"
	Timeout           Kind = "timeout"
)

type Error struct {
	Kind Kind
}

func (e *Error) Error() string { return string(e.Kind) }

var (
	ErrQuotaExceeded     = &Error{Kind: QuotaExceeded}
	ErrAlreadyBorrowed   = &Error{Kind: AlreadyBorrowed}
	ErrNoCopiesAvailable = &Error{Kind: NoCopiesAvailable}
	ErrNotFound          = &Error{Kind: NotFound}
	ErrRenewalCapReached = &Error{Kind: RenewalCapReached}
	ErrInvalidTransition = &Error{Kind: InvalidTransition}
	ErrUnauthorized      = &Error{Kind: Unauthorized}
	ErrRequestInFlight   = &Error{Kind: RequestInFlight}
	ErrTimeout           = &Error{Kind: Timeout}
)

// KindOf returns the tag of a lending error, or "" for any other error
// (transport, SQL, context) so those keep their own propagation path.
func KindOf(err error) Kind {
	if le, ok := err.(*Error); ok {
		return le.Kind
	}
	return ""
}
