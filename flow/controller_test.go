package flow_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-auth-flow/flow"
	"github.com/jrsteele09/go-auth-flow/identity/providerfake"
	"github.com/jrsteele09/go-auth-flow/notify/notifierfake"
	"github.com/jrsteele09/go-auth-flow/otp"
	"github.com/jrsteele09/go-auth-flow/session"
)

const (
	testUserEmail    = "x@y.com"
	testUserPassword = "password123"
)

type flowFixture struct {
	provider    *providerfake.FakeProvider
	store       *session.Store
	controller  *flow.Controller
	completions int
}

func setupFlowFixture(t *testing.T) *flowFixture {
	t.Helper()

	f := &flowFixture{provider: providerfake.New("test-key")}

	store, err := session.New(f.provider, notifierfake.New())
	require.NoError(t, err)
	require.NoError(t, store.Initialize())
	t.Cleanup(store.Close)
	f.store = store

	controller, err := flow.New(store, func() { f.completions++ })
	require.NoError(t, err)
	t.Cleanup(controller.Close)
	f.controller = controller

	return f
}

func TestNewValidation(t *testing.T) {
	provider := providerfake.New("test-key")
	store, err := session.New(provider, notifierfake.New())
	require.NoError(t, err)

	_, err = flow.New(nil, func() {})
	require.Error(t, err)

	_, err = flow.New(store, nil)
	require.Error(t, err)
}

func TestFlowStartsAtLogin(t *testing.T) {
	f := setupFlowFixture(t)

	assert.Equal(t, flow.ViewLogin, f.controller.View())
	assert.False(t, f.controller.Completed())
	assert.Empty(t, f.controller.PendingEmail())
	assert.Zero(t, f.completions)
}

func TestSwitchBetweenLoginAndRegister(t *testing.T) {
	f := setupFlowFixture(t)

	require.NoError(t, f.controller.SwitchToRegister())
	assert.Equal(t, flow.ViewRegister, f.controller.View())

	require.NoError(t, f.controller.SwitchToLogin())
	assert.Equal(t, flow.ViewLogin, f.controller.View())
}

func TestRegistrationMovesToVerifyCodeWithPendingEmail(t *testing.T) {
	f := setupFlowFixture(t)
	require.NoError(t, f.controller.SwitchToRegister())

	require.NoError(t, f.controller.RegistrationSubmitted(testUserEmail))

	assert.Equal(t, flow.ViewVerifyCode, f.controller.View())
	assert.Equal(t, testUserEmail, f.controller.PendingEmail())
}

func TestVerifiedCompletesFlowAndClearsPendingEmail(t *testing.T) {
	f := setupFlowFixture(t)
	require.NoError(t, f.controller.SwitchToRegister())
	require.NoError(t, f.controller.RegistrationSubmitted(testUserEmail))

	require.NoError(t, f.controller.Verified())

	assert.True(t, f.controller.Completed())
	assert.Empty(t, f.controller.PendingEmail())
	assert.Equal(t, 1, f.completions)
}

func TestCancelReturnsToLogin(t *testing.T) {
	f := setupFlowFixture(t)
	require.NoError(t, f.controller.SwitchToRegister())
	require.NoError(t, f.controller.RegistrationSubmitted(testUserEmail))

	require.NoError(t, f.controller.Cancel())

	assert.Equal(t, flow.ViewLogin, f.controller.View())
	assert.Empty(t, f.controller.PendingEmail())
	assert.False(t, f.controller.Completed())
	assert.Zero(t, f.completions)
}

func TestInvalidTransitionsRejected(t *testing.T) {
	f := setupFlowFixture(t)

	require.Error(t, f.controller.SwitchToLogin(), "already on login")
	require.Error(t, f.controller.RegistrationSubmitted(testUserEmail), "not on register")
	require.Error(t, f.controller.Verified(), "not on verify-code")
	require.Error(t, f.controller.Cancel(), "not on verify-code")
}

func TestAlreadyAuthenticatedSessionCompletesImmediately(t *testing.T) {
	provider := providerfake.New("test-key")
	store, err := session.New(provider, notifierfake.New())
	require.NoError(t, err)
	require.NoError(t, store.Initialize())
	defer store.Close()

	_, err = provider.CreateAccount(context.Background(), testUserEmail, testUserPassword)
	require.NoError(t, err)

	completions := 0
	controller, err := flow.New(store, func() { completions++ })
	require.NoError(t, err)
	defer controller.Close()

	assert.True(t, controller.Completed(), "returning user bypasses the flow")
	assert.Equal(t, 1, completions)
}

func TestAuthenticationCompletesFlowFromAnyView(t *testing.T) {
	f := setupFlowFixture(t)
	require.NoError(t, f.controller.SwitchToRegister())

	_, err := f.provider.CreateAccount(context.Background(), testUserEmail, testUserPassword)
	require.NoError(t, err)

	assert.True(t, f.controller.Completed())
	assert.Equal(t, 1, f.completions)
}

func TestSignOutReArmsTheFlow(t *testing.T) {
	f := setupFlowFixture(t)

	_, err := f.provider.CreateAccount(context.Background(), testUserEmail, testUserPassword)
	require.NoError(t, err)
	require.Equal(t, 1, f.completions)

	require.NoError(t, f.provider.SignOut(context.Background()))
	assert.False(t, f.controller.Completed())

	_, err = f.provider.SignInWithCredentials(context.Background(), testUserEmail, testUserPassword)
	require.NoError(t, err)
	assert.True(t, f.controller.Completed())
	assert.Equal(t, 2, f.completions)
}

// Full register → verify-code path: the pending email feeds the OTP
// machine and a successful submission completes the flow.
func TestRegisterThenVerifyCodeCompletesFlow(t *testing.T) {
	f := setupFlowFixture(t)
	require.NoError(t, f.controller.SwitchToRegister())
	require.NoError(t, f.controller.RegistrationSubmitted(testUserEmail))

	machine, err := otp.New(
		otp.DelayVerifier{Delay: 10 * time.Millisecond},
		notifierfake.New(),
		f.controller.PendingEmail(),
		otp.WithTickInterval(0),
	)
	require.NoError(t, err)
	defer machine.Close()

	machine.PasteCode("123456")
	require.NoError(t, machine.Submit(context.Background()))

	require.NoError(t, f.controller.Verified())
	assert.True(t, f.controller.Completed())
	assert.Empty(t, f.controller.PendingEmail())
	assert.Equal(t, 1, f.completions)
}

func TestCloseStopsWatchingSession(t *testing.T) {
	f := setupFlowFixture(t)

	f.controller.Close()
	f.controller.Close() // idempotent

	_, err := f.provider.CreateAccount(context.Background(), testUserEmail, testUserPassword)
	require.NoError(t, err)

	assert.False(t, f.controller.Completed())
	assert.Zero(t, f.completions)
}
