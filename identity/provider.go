package identity

import "context"

// StateCallback receives the provider's current identity on every auth
// state change. A nil identity means no user is signed in. Callbacks are
// invoked in notification order and must not be coalesced by providers.
type StateCallback func(*Identity)

// UnsubscribeFunc releases a state subscription. Safe to call more than
// once; calls after the first are no-ops.
type UnsubscribeFunc func()

// ExternalSignInOptions configures a sign-in through an external
// provider such as Google.
type ExternalSignInOptions struct {
	// ForcePrompt requires the provider to show its account chooser
	// rather than silently reusing a cached account.
	ForcePrompt bool
}

// Provider is the contract an identity-provider adapter implements.
// Adapters translate their backend's native errors into *Error values
// (see errors.go) so callers never inspect raw provider error shapes.
type Provider interface {
	// Subscribe registers a callback for auth state changes. The
	// callback fires once with the current state as soon as it is
	// known, then again on every change.
	Subscribe(cb StateCallback) UnsubscribeFunc

	// CreateAccount registers a new email/password account and signs
	// the new user in.
	CreateAccount(ctx context.Context, email, password string) (*Identity, error)

	// SignInWithCredentials authenticates an existing email/password
	// account.
	SignInWithCredentials(ctx context.Context, email, password string) (*Identity, error)

	// SignInWithExternalProvider runs a federated sign-in (popup or
	// browser redirect, depending on the adapter).
	SignInWithExternalProvider(ctx context.Context, opts ExternalSignInOptions) (*Identity, error)

	// SignOut ends the current session.
	SignOut(ctx context.Context) error

	// SendVerificationEmail asks the provider to deliver a
	// verification message to the given identity's address.
	SendVerificationEmail(ctx context.Context, id *Identity) error
}
