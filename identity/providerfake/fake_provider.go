// Package providerfake is an in-memory identity provider used by tests
// and the demo binary. It simulates the behaviour of a hosted provider:
// accounts with bcrypt-hashed passwords, signed ID tokens, and push
// notifications to auth-state subscribers.
package providerfake

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jrsteele09/go-auth-flow/identity"
)

var _ identity.Provider = (*FakeProvider)(nil)

const (
	minPasswordLength = 6
	idTokenExpiry     = time.Hour
)

type account struct {
	id            string
	email         string
	passwordHash  []byte
	emailVerified bool
}

// FakeProvider stores accounts in memory and notifies subscribers of
// auth state changes synchronously, in the order they occur.
type FakeProvider struct {
	lock        sync.Mutex
	accounts    map[string]*account // keyed by lowercased email
	current     *identity.Identity
	subscribers map[int]identity.StateCallback
	nextSubID   int

	signingKey  []byte
	lastIDToken string

	// GoogleEmail is the address the fake external sign-in resolves to.
	GoogleEmail string

	// NetworkDown makes every provider call fail with a network error.
	NetworkDown bool

	// BlockPopups makes external sign-in fail as if the sign-in window
	// could not be opened.
	BlockPopups bool

	// VerificationEmails records every address a verification email was
	// sent to, in send order.
	VerificationEmails []string
}

// New creates an empty fake provider. The signing key is used to mint
// HS256 ID tokens on each successful sign-in.
func New(signingKey string) *FakeProvider {
	return &FakeProvider{
		accounts:    make(map[string]*account),
		subscribers: make(map[int]identity.StateCallback),
		signingKey:  []byte(signingKey),
		GoogleEmail: "user@gmail.com",
	}
}

// Subscribe registers cb and immediately reports the current state, the
// way hosted providers fire once as soon as state is known.
func (p *FakeProvider) Subscribe(cb identity.StateCallback) identity.UnsubscribeFunc {
	p.lock.Lock()
	id := p.nextSubID
	p.nextSubID++
	p.subscribers[id] = cb
	current := snapshot(p.current)
	p.lock.Unlock()

	cb(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			p.lock.Lock()
			delete(p.subscribers, id)
			p.lock.Unlock()
		})
	}
}

// CreateAccount registers the account and signs the new user in.
func (p *FakeProvider) CreateAccount(ctx context.Context, email, password string) (*identity.Identity, error) {
	if err := p.checkNetwork(); err != nil {
		return nil, err
	}
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, identity.NewError(identity.KindMalformedInput, "invalid email address")
	}
	if len(password) < minPasswordLength {
		return nil, identity.NewError(identity.KindWeakPassword, "password should be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, identity.WrapError(identity.KindUnknown, "hashing password", err)
	}

	p.lock.Lock()
	if _, exists := p.accounts[email]; exists {
		p.lock.Unlock()
		return nil, identity.NewError(identity.KindEmailInUse, "an account already exists for "+email)
	}
	acc := &account{
		id:           uuid.NewString(),
		email:        email,
		passwordHash: hash,
	}
	p.accounts[email] = acc
	return p.signInLocked(acc)
}

// SignInWithCredentials authenticates an existing account.
func (p *FakeProvider) SignInWithCredentials(ctx context.Context, email, password string) (*identity.Identity, error) {
	if err := p.checkNetwork(); err != nil {
		return nil, err
	}
	email = normalizeEmail(email)

	p.lock.Lock()
	acc, ok := p.accounts[email]
	if !ok || bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)) != nil {
		p.lock.Unlock()
		return nil, identity.NewError(identity.KindInvalidCredential, "incorrect email or password")
	}
	return p.signInLocked(acc)
}

// SignInWithExternalProvider simulates a Google sign-in popup. The
// resolved account is created on first use with a verified address.
func (p *FakeProvider) SignInWithExternalProvider(ctx context.Context, opts identity.ExternalSignInOptions) (*identity.Identity, error) {
	if err := p.checkNetwork(); err != nil {
		return nil, err
	}
	if p.BlockPopups {
		return nil, identity.NewError(identity.KindPopupBlocked, "sign-in window was blocked")
	}

	p.lock.Lock()
	email := normalizeEmail(p.GoogleEmail)
	acc, ok := p.accounts[email]
	if !ok {
		acc = &account{
			id:            uuid.NewString(),
			email:         email,
			emailVerified: true, // Google addresses arrive pre-verified
		}
		p.accounts[email] = acc
	}
	return p.signInLocked(acc)
}

// SignOut clears the current session and notifies subscribers.
func (p *FakeProvider) SignOut(ctx context.Context) error {
	if err := p.checkNetwork(); err != nil {
		return err
	}
	p.lock.Lock()
	p.current = nil
	subs := p.subscriberList()
	p.lock.Unlock()

	notifyAll(subs, nil)
	return nil
}

// SendVerificationEmail records the send; it does not verify the
// address. Tests flip verification with MarkEmailVerified.
func (p *FakeProvider) SendVerificationEmail(ctx context.Context, id *identity.Identity) error {
	if err := p.checkNetwork(); err != nil {
		return err
	}
	if id == nil {
		return identity.NewError(identity.KindNoSession, "no identity to verify")
	}
	p.lock.Lock()
	p.VerificationEmails = append(p.VerificationEmails, id.Email)
	p.lock.Unlock()
	return nil
}

// AdoptExternalIdentity records an identity obtained from a real
// external sign-in (for example the googleoidc authenticator) and signs
// it in, so subscribers observe the same state change a native sign-in
// produces.
func (p *FakeProvider) AdoptExternalIdentity(id *identity.Identity) (*identity.Identity, error) {
	if id == nil || id.Email == "" {
		return nil, identity.NewError(identity.KindMalformedInput, "external identity missing email")
	}

	p.lock.Lock()
	email := normalizeEmail(id.Email)
	acc, ok := p.accounts[email]
	if !ok {
		accountID := id.ID
		if accountID == "" {
			accountID = uuid.NewString()
		}
		acc = &account{id: accountID, email: email}
		p.accounts[email] = acc
	}
	acc.emailVerified = id.EmailVerified
	return p.signInLocked(acc)
}

// MarkEmailVerified flips the account's verified flag and, when the
// account is the current user, pushes a fresh identity snapshot to
// subscribers the way a provider does after a token refresh.
func (p *FakeProvider) MarkEmailVerified(email string) {
	email = normalizeEmail(email)

	p.lock.Lock()
	acc, ok := p.accounts[email]
	if !ok {
		p.lock.Unlock()
		return
	}
	acc.emailVerified = true
	var (
		subs    []identity.StateCallback
		current *identity.Identity
	)
	if p.current != nil && p.current.Email == email {
		p.current = identityOf(acc)
		current = snapshot(p.current)
		subs = p.subscriberList()
	}
	p.lock.Unlock()

	notifyAll(subs, current)
}

// LastIDToken returns the HS256 ID token minted by the most recent
// successful sign-in.
func (p *FakeProvider) LastIDToken() string {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.lastIDToken
}

// signInLocked sets the current user, mints an ID token and notifies
// subscribers. The caller must hold p.lock; it is released here so
// callbacks run unlocked.
func (p *FakeProvider) signInLocked(acc *account) (*identity.Identity, error) {
	p.current = identityOf(acc)
	token, err := p.mintIDToken(acc)
	if err != nil {
		p.current = nil
		p.lock.Unlock()
		return nil, identity.WrapError(identity.KindUnknown, "minting id token", err)
	}
	p.lastIDToken = token
	current := snapshot(p.current)
	subs := p.subscriberList()
	p.lock.Unlock()

	notifyAll(subs, current)
	return current, nil
}

func (p *FakeProvider) mintIDToken(acc *account) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":            acc.id,
		"email":          acc.email,
		"email_verified": acc.emailVerified,
		"iat":            now.Unix(),
		"exp":            now.Add(idTokenExpiry).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.signingKey)
}

func (p *FakeProvider) subscriberList() []identity.StateCallback {
	subs := make([]identity.StateCallback, 0, len(p.subscribers))
	for _, cb := range p.subscribers {
		subs = append(subs, cb)
	}
	return subs
}

func (p *FakeProvider) checkNetwork() error {
	p.lock.Lock()
	down := p.NetworkDown
	p.lock.Unlock()
	if down {
		return identity.NewError(identity.KindNetwork, "identity provider unreachable")
	}
	return nil
}

func notifyAll(subs []identity.StateCallback, id *identity.Identity) {
	for _, cb := range subs {
		cb(id)
	}
}

func identityOf(acc *account) *identity.Identity {
	return &identity.Identity{
		ID:            acc.id,
		Email:         acc.email,
		EmailVerified: acc.emailVerified,
	}
}

func snapshot(id *identity.Identity) *identity.Identity {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
