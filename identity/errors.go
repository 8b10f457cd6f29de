package identity

import "fmt"

// Kind classifies provider and session failures. The set is closed:
// adapters map their backend's native error codes onto these kinds once,
// at the adapter boundary.
type Kind int

const (
	KindUnknown           Kind = iota // Unclassified provider failure
	KindInvalidCredential             // Wrong email/password or unknown account
	KindEmailInUse                    // CreateAccount for an address that already has an account
	KindWeakPassword                  // CreateAccount rejected the password
	KindPopupBlocked                  // External sign-in UI could not be opened
	KindNetwork                       // Provider unreachable
	KindNoSession                     // Operation requires an authenticated session
	KindMalformedInput                // Input failed local format validation
	KindVerificationFormat            // Submitted verification code failed the format check
)

func (k Kind) String() string {
	switch k {
	case KindInvalidCredential:
		return "invalid credential"
	case KindEmailInUse:
		return "email already in use"
	case KindWeakPassword:
		return "weak password"
	case KindPopupBlocked:
		return "popup blocked"
	case KindNetwork:
		return "network error"
	case KindNoSession:
		return "no active session"
	case KindMalformedInput:
		return "malformed input"
	case KindVerificationFormat:
		return "invalid verification code"
	default:
		return "unknown error"
	}
}

// Error is the classified failure type every adapter operation returns.
type Error struct {
	Kind  Kind
	Msg   string // Human-readable detail, shown in notifications
	Cause error  // Underlying provider error, if any
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is makes errors.Is match any *Error with the same Kind, so callers can
// test against e.g. NewError(KindNoSession, "") without caring about the
// message or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// NewError builds a classified error.
func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// WrapError classifies an underlying provider error.
func WrapError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// KindOf extracts the classification from err, walking wrapped chains.
// Unclassified errors report KindUnknown.
func KindOf(err error) Kind {
	for err != nil {
		if ae, ok := err.(*Error); ok {
			return ae.Kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return KindUnknown
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
