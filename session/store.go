// Package session owns the application's belief about who is signed in.
// A Store mirrors the identity provider's reported state and wraps each
// session-mutating operation with its notification side effects. State
// only ever changes inside the provider-subscription callback; the
// operations themselves never touch it, which keeps the provider the
// single source of truth.
package session

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-auth-flow/identity"
	"github.com/jrsteele09/go-auth-flow/notify"
)

// StateListener observes session state snapshots.
type StateListener func(State)

// Store mirrors provider-reported identity state for the process.
type Store struct {
	provider identity.Provider
	notifier notify.Notifier
	log      zerolog.Logger

	lock        sync.Mutex
	state       State
	listeners   map[int]StateListener
	nextID      int
	initialized bool

	// dispatch serializes notification fan-out so downstream observers
	// see state transitions in provider receipt order, never coalesced.
	dispatch sync.Mutex

	unsubscribe identity.UnsubscribeFunc
	closeOnce   sync.Once
}

// StoreOption modifies a Store during construction.
type StoreOption func(*Store)

// WithLogger attaches a logger for state-transition tracing.
func WithLogger(log zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.log = log
	}
}

// New creates a Store in the Resolving phase. Call Initialize to start
// mirroring the provider and Close to release the subscription.
func New(provider identity.Provider, notifier notify.Notifier, options ...StoreOption) (*Store, error) {
	if provider == nil {
		return nil, errors.New("[session.New] provider is required")
	}
	if notifier == nil {
		return nil, errors.New("[session.New] notifier is required")
	}

	s := &Store{
		provider:  provider,
		notifier:  notifier,
		log:       zerolog.Nop(),
		state:     State{Phase: Resolving},
		listeners: make(map[int]StateListener),
	}

	for _, opt := range options {
		opt(s)
	}

	return s, nil
}

// Initialize subscribes to the provider's auth state stream. The first
// notification moves the store out of Resolving; every subsequent one
// replaces the state wholesale and re-notifies listeners.
func (s *Store) Initialize() error {
	s.lock.Lock()
	if s.initialized {
		s.lock.Unlock()
		return errors.New("[Store.Initialize] store already initialized")
	}
	s.initialized = true
	s.lock.Unlock()

	unsubscribe := s.provider.Subscribe(s.applyNotification)

	s.lock.Lock()
	s.unsubscribe = unsubscribe
	s.lock.Unlock()
	return nil
}

// Close releases the provider subscription. Idempotent; safe on every
// teardown path.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		s.lock.Lock()
		unsubscribe := s.unsubscribe
		s.unsubscribe = nil
		s.lock.Unlock()

		if unsubscribe != nil {
			unsubscribe()
		}
	})
}

// State returns the current session snapshot.
func (s *Store) State() State {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.state
}

// SubscribeState registers a listener for session state changes. The
// listener fires immediately with the current state, then once per
// provider notification, in receipt order.
func (s *Store) SubscribeState(fn StateListener) identity.UnsubscribeFunc {
	s.lock.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	current := s.state
	s.lock.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.lock.Lock()
			delete(s.listeners, id)
			s.lock.Unlock()
		})
	}
}

// SignUp creates an account, then sends the verification email before
// returning. Session state is not touched here; the provider's own
// notification moves it to Authenticated.
func (s *Store) SignUp(ctx context.Context, email, password string) (*identity.Identity, error) {
	id, err := s.provider.CreateAccount(ctx, email, password)
	if err != nil {
		s.notifyError(err, "Failed to create account")
		return nil, err
	}
	if err := s.provider.SendVerificationEmail(ctx, id); err != nil {
		s.notifyError(err, "Failed to send verification email")
		return nil, err
	}
	s.notifier.Success("Account created successfully! Please verify your email.")
	return id, nil
}

// Login signs in with email and password.
func (s *Store) Login(ctx context.Context, email, password string) (*identity.Identity, error) {
	id, err := s.provider.SignInWithCredentials(ctx, email, password)
	if err != nil {
		s.notifyError(err, "Failed to login")
		return nil, err
	}
	s.notifier.Success("Logged in successfully!")
	return id, nil
}

// Logout ends the current session.
func (s *Store) Logout(ctx context.Context) error {
	if err := s.provider.SignOut(ctx); err != nil {
		s.notifyError(err, "Failed to logout")
		return err
	}
	s.notifier.Success("Logged out successfully!")
	return nil
}

// GoogleSignIn runs the external-provider flow. The account chooser is
// always forced so a previously used account is never silently reused.
func (s *Store) GoogleSignIn(ctx context.Context) (*identity.Identity, error) {
	id, err := s.provider.SignInWithExternalProvider(ctx, identity.ExternalSignInOptions{ForcePrompt: true})
	if err != nil {
		if identity.IsKind(err, identity.KindPopupBlocked) {
			s.notifier.Error("Please enable popups for this website to use Google Sign-In")
		} else {
			s.notifyError(err, "Failed to login with Google")
		}
		return nil, err
	}
	s.notifier.Success("Logged in with Google successfully!")
	return id, nil
}

// SendVerificationEmail re-sends the verification message for the
// currently signed-in user.
func (s *Store) SendVerificationEmail(ctx context.Context) error {
	state := s.State()
	if !state.IsAuthenticated() {
		return identity.NewError(identity.KindNoSession, "no user logged in")
	}

	if err := s.provider.SendVerificationEmail(ctx, state.Identity); err != nil {
		s.notifyError(err, "Failed to send verification email")
		return err
	}
	s.notifier.Success("Verification email sent!")
	return nil
}

// applyNotification is the only writer of session state. It runs once
// per provider notification, holding the dispatch lock for the full
// apply-and-fan-out so back-to-back notifications each reach every
// listener in order.
func (s *Store) applyNotification(id *identity.Identity) {
	s.dispatch.Lock()
	defer s.dispatch.Unlock()

	next := State{Phase: Unauthenticated}
	if id != nil {
		next = State{Phase: Authenticated, Identity: id}
	}

	s.lock.Lock()
	s.state = next
	listeners := make([]StateListener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.lock.Unlock()

	s.log.Debug().Stringer("phase", next.Phase).Msg("session state changed")

	for _, fn := range listeners {
		fn(next)
	}
}

// notifyError surfaces a classified error's own message when it has
// one, falling back to the operation's generic message.
func (s *Store) notifyError(err error, fallback string) {
	msg := fallback
	var ae *identity.Error
	if errors.As(err, &ae) && ae.Msg != "" {
		msg = ae.Msg
	}
	s.notifier.Error(msg)
}
