// Package flow sequences the views an unauthenticated user passes
// through: Login, Register, and VerifyCode. The controller is pure
// view-sequencing state; it performs no sign-in work itself and only
// watches session state to short-circuit when a user is already
// authenticated.
package flow

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-auth-flow/identity"
	"github.com/jrsteele09/go-auth-flow/session"
)

// View identifies the screen currently shown by the auth flow.
type View int

const (
	ViewLogin View = iota
	ViewRegister
	ViewVerifyCode
)

func (v View) String() string {
	switch v {
	case ViewRegister:
		return "register"
	case ViewVerifyCode:
		return "verify-code"
	default:
		return "login"
	}
}

// StateSource is the slice of the session store the controller needs.
type StateSource interface {
	SubscribeState(fn session.StateListener) identity.UnsubscribeFunc
}

// Controller advances the flow on explicit user intents and signals
// completion as soon as the session becomes authenticated, whichever
// view is showing. Completion fires the injected callback; navigation
// itself belongs to the caller.
type Controller struct {
	log        zerolog.Logger
	onComplete func()

	lock         sync.Mutex
	view         View
	pendingEmail string
	completed    bool

	unsubscribe identity.UnsubscribeFunc
	closeOnce   sync.Once
}

// ControllerOption modifies a Controller during construction.
type ControllerOption func(*Controller)

// WithLogger attaches a logger for transition tracing.
func WithLogger(log zerolog.Logger) ControllerOption {
	return func(c *Controller) {
		c.log = log
	}
}

// New creates a Controller showing the Login view and starts watching
// the session. An already-authenticated session completes the flow
// immediately, before New returns.
func New(source StateSource, onComplete func(), options ...ControllerOption) (*Controller, error) {
	if source == nil {
		return nil, errors.New("[flow.New] state source is required")
	}
	if onComplete == nil {
		return nil, errors.New("[flow.New] completion callback is required")
	}

	c := &Controller{
		log:        zerolog.Nop(),
		onComplete: onComplete,
		view:       ViewLogin,
	}

	for _, opt := range options {
		opt(c)
	}

	c.unsubscribe = source.SubscribeState(c.onSessionState)
	return c, nil
}

// Close stops watching the session.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		if c.unsubscribe != nil {
			c.unsubscribe()
		}
	})
}

// View returns the view the flow is currently showing.
func (c *Controller) View() View {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.view
}

// PendingEmail returns the address awaiting verification, set between
// registration and VerifyCode exit.
func (c *Controller) PendingEmail() string {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.pendingEmail
}

// Completed reports whether the flow has signalled completion for the
// current authenticated session.
func (c *Controller) Completed() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.completed
}

// SwitchToRegister moves Login → Register.
func (c *Controller) SwitchToRegister() error {
	return c.transition(ViewLogin, ViewRegister, "SwitchToRegister")
}

// SwitchToLogin moves Register → Login.
func (c *Controller) SwitchToLogin() error {
	return c.transition(ViewRegister, ViewLogin, "SwitchToLogin")
}

// RegistrationSubmitted records the registered address and moves
// Register → VerifyCode.
func (c *Controller) RegistrationSubmitted(email string) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.view != ViewRegister {
		return errors.Errorf("[Controller.RegistrationSubmitted] not in register view (current: %s)", c.view)
	}
	c.view = ViewVerifyCode
	c.pendingEmail = email
	c.log.Debug().Str("email", email).Msg("registration submitted, awaiting verification code")
	return nil
}

// Verified exits the flow after a successful code verification. The
// completion callback fires; the caller navigates to the protected
// area.
func (c *Controller) Verified() error {
	c.lock.Lock()
	if c.view != ViewVerifyCode {
		c.lock.Unlock()
		return errors.Errorf("[Controller.Verified] not in verify-code view (current: %s)", c.view)
	}
	c.pendingEmail = ""
	alreadyCompleted := c.completed
	c.completed = true
	c.lock.Unlock()

	if !alreadyCompleted {
		c.onComplete()
	}
	return nil
}

// Cancel abandons code entry and returns to Login.
func (c *Controller) Cancel() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.view != ViewVerifyCode {
		return errors.Errorf("[Controller.Cancel] not in verify-code view (current: %s)", c.view)
	}
	c.view = ViewLogin
	c.pendingEmail = ""
	return nil
}

func (c *Controller) transition(from, to View, op string) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.view != from {
		return errors.Errorf("[Controller.%s] not in %s view (current: %s)", op, from, c.view)
	}
	c.view = to
	return nil
}

// onSessionState completes the flow whenever the session turns out to
// be authenticated, regardless of the current view: a returning user
// bypasses every screen. A session that later becomes unauthenticated
// re-arms the flow without resetting the view.
func (c *Controller) onSessionState(state session.State) {
	c.lock.Lock()
	var complete bool
	switch {
	case state.IsAuthenticated() && !c.completed:
		c.completed = true
		complete = true
	case state.Phase == session.Unauthenticated:
		c.completed = false
	}
	c.lock.Unlock()

	if complete {
		c.log.Debug().Msg("session authenticated, completing auth flow")
		c.onComplete()
	}
}
