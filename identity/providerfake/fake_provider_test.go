package providerfake_test

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-auth-flow/identity"
	"github.com/jrsteele09/go-auth-flow/identity/providerfake"
)

const (
	testSigningKey = "test-signing-key"
	testEmail      = "john.doe@example.com"
	testPassword   = "password123"
)

func TestCreateAccountSignsInAndNotifies(t *testing.T) {
	p := providerfake.New(testSigningKey)

	var notified []*identity.Identity
	unsubscribe := p.Subscribe(func(id *identity.Identity) { notified = append(notified, id) })
	defer unsubscribe()
	require.Len(t, notified, 1, "subscription fires immediately")
	require.Nil(t, notified[0])

	id, err := p.CreateAccount(context.Background(), testEmail, testPassword)
	require.NoError(t, err)
	assert.Equal(t, testEmail, id.Email)
	assert.False(t, id.EmailVerified)

	require.Len(t, notified, 2)
	require.NotNil(t, notified[1])
	assert.Equal(t, id.ID, notified[1].ID)
}

func TestCreateAccountRejectsDuplicatesAndWeakPasswords(t *testing.T) {
	p := providerfake.New(testSigningKey)

	_, err := p.CreateAccount(context.Background(), testEmail, testPassword)
	require.NoError(t, err)

	_, err = p.CreateAccount(context.Background(), testEmail, testPassword)
	assert.True(t, identity.IsKind(err, identity.KindEmailInUse))

	_, err = p.CreateAccount(context.Background(), "other@example.com", "short")
	assert.True(t, identity.IsKind(err, identity.KindWeakPassword))

	_, err = p.CreateAccount(context.Background(), "not-an-email", testPassword)
	assert.True(t, identity.IsKind(err, identity.KindMalformedInput))
}

func TestSignInWithCredentials(t *testing.T) {
	p := providerfake.New(testSigningKey)
	_, err := p.CreateAccount(context.Background(), testEmail, testPassword)
	require.NoError(t, err)
	require.NoError(t, p.SignOut(context.Background()))

	_, err = p.SignInWithCredentials(context.Background(), testEmail, "wrong")
	assert.True(t, identity.IsKind(err, identity.KindInvalidCredential))

	_, err = p.SignInWithCredentials(context.Background(), "unknown@example.com", testPassword)
	assert.True(t, identity.IsKind(err, identity.KindInvalidCredential))

	id, err := p.SignInWithCredentials(context.Background(), testEmail, testPassword)
	require.NoError(t, err)
	assert.Equal(t, testEmail, id.Email)
}

func TestEmailIsNormalized(t *testing.T) {
	p := providerfake.New(testSigningKey)
	_, err := p.CreateAccount(context.Background(), "  John.Doe@Example.COM ", testPassword)
	require.NoError(t, err)

	id, err := p.SignInWithCredentials(context.Background(), testEmail, testPassword)
	require.NoError(t, err)
	assert.Equal(t, testEmail, id.Email)
}

func TestSignInMintsVerifiableIDToken(t *testing.T) {
	p := providerfake.New(testSigningKey)

	id, err := p.CreateAccount(context.Background(), testEmail, testPassword)
	require.NoError(t, err)

	raw := p.LastIDToken()
	require.NotEmpty(t, raw)

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testSigningKey), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	require.True(t, token.Valid)

	assert.Equal(t, id.ID, claims["sub"])
	assert.Equal(t, testEmail, claims["email"])
	assert.Equal(t, false, claims["email_verified"])
}

func TestExternalSignIn(t *testing.T) {
	p := providerfake.New(testSigningKey)
	p.GoogleEmail = "jane@gmail.com"

	id, err := p.SignInWithExternalProvider(context.Background(), identity.ExternalSignInOptions{ForcePrompt: true})
	require.NoError(t, err)
	assert.Equal(t, "jane@gmail.com", id.Email)
	assert.True(t, id.EmailVerified)
}

func TestExternalSignInPopupBlocked(t *testing.T) {
	p := providerfake.New(testSigningKey)
	p.BlockPopups = true

	_, err := p.SignInWithExternalProvider(context.Background(), identity.ExternalSignInOptions{})
	assert.True(t, identity.IsKind(err, identity.KindPopupBlocked))
}

func TestAdoptExternalIdentity(t *testing.T) {
	p := providerfake.New(testSigningKey)

	adopted, err := p.AdoptExternalIdentity(&identity.Identity{ID: "ext-1", Email: testEmail, EmailVerified: true})
	require.NoError(t, err)
	assert.Equal(t, "ext-1", adopted.ID)
	assert.True(t, adopted.EmailVerified)

	_, err = p.AdoptExternalIdentity(nil)
	assert.True(t, identity.IsKind(err, identity.KindMalformedInput))
}

func TestNetworkDownFailsEverything(t *testing.T) {
	p := providerfake.New(testSigningKey)
	p.NetworkDown = true

	_, err := p.CreateAccount(context.Background(), testEmail, testPassword)
	assert.True(t, identity.IsKind(err, identity.KindNetwork))

	_, err = p.SignInWithCredentials(context.Background(), testEmail, testPassword)
	assert.True(t, identity.IsKind(err, identity.KindNetwork))

	assert.True(t, identity.IsKind(p.SignOut(context.Background()), identity.KindNetwork))
}

func TestMarkEmailVerifiedNotifiesCurrentUser(t *testing.T) {
	p := providerfake.New(testSigningKey)
	_, err := p.CreateAccount(context.Background(), testEmail, testPassword)
	require.NoError(t, err)

	var last *identity.Identity
	unsubscribe := p.Subscribe(func(id *identity.Identity) { last = id })
	defer unsubscribe()
	require.NotNil(t, last)
	require.False(t, last.EmailVerified)

	p.MarkEmailVerified(testEmail)

	require.NotNil(t, last)
	assert.True(t, last.EmailVerified)

	// Unknown addresses are ignored.
	p.MarkEmailVerified("nobody@example.com")
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	p := providerfake.New(testSigningKey)

	calls := 0
	unsubscribe := p.Subscribe(func(*identity.Identity) { calls++ })
	require.Equal(t, 1, calls)

	unsubscribe()
	unsubscribe() // safe to call twice

	_, err := p.CreateAccount(context.Background(), testEmail, testPassword)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
