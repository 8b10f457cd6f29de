package session

import "github.com/jrsteele09/go-auth-flow/identity"

// Phase is the resolution of the session question: not yet known,
// signed in, or signed out.
type Phase int

const (
	// Resolving means the provider subscription has not reported yet.
	// Every store starts here.
	Resolving Phase = iota
	// Authenticated means the provider reports a signed-in user.
	Authenticated
	// Unauthenticated means the provider reports no user.
	Unauthenticated
)

func (p Phase) String() string {
	switch p {
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "resolving"
	}
}

// State is a snapshot of session state. Identity is non-nil exactly
// when Phase is Authenticated.
type State struct {
	Phase    Phase
	Identity *identity.Identity
}

// IsAuthenticated reports whether a user is signed in.
func (s State) IsAuthenticated() bool { return s.Phase == Authenticated }
