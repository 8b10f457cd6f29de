// Package gate decides what a protected route shows: the protected
// content, a loading placeholder while the session is still resolving,
// or a redirect to the sign-in flow. The decision is a pure function of
// session state; the gate holds no state of its own.
package gate

import "github.com/jrsteele09/go-auth-flow/session"

// Decision is the outcome of evaluating a protected route.
type Decision int

const (
	// ShowLoading renders a placeholder; the session has not resolved
	// yet and no navigation should happen.
	ShowLoading Decision = iota
	// RedirectToSignIn sends the user to the auth flow entry point.
	RedirectToSignIn
	// RenderProtected renders the protected content.
	RenderProtected
)

func (d Decision) String() string {
	switch d {
	case RedirectToSignIn:
		return "redirect-to-sign-in"
	case RenderProtected:
		return "render-protected"
	default:
		return "show-loading"
	}
}

// Decide maps session state to a routing decision.
func Decide(state session.State) Decision {
	switch state.Phase {
	case session.Resolving:
		return ShowLoading
	case session.Authenticated:
		return RenderProtected
	default:
		return RedirectToSignIn
	}
}

// Resolve evaluates the gate and runs the handler matching the
// decision. Handlers may be nil when the caller does not care about
// that outcome.
func Resolve(state session.State, onLoading, onRedirect, onProtected func()) Decision {
	d := Decide(state)
	switch d {
	case ShowLoading:
		if onLoading != nil {
			onLoading()
		}
	case RedirectToSignIn:
		if onRedirect != nil {
			onRedirect()
		}
	case RenderProtected:
		if onProtected != nil {
			onProtected()
		}
	}
	return d
}
