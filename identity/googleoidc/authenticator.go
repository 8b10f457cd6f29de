// Package googleoidc runs a Google sign-in through the OpenID Connect
// authorization-code flow: a browser window against Google's authorize
// endpoint, a loopback listener to catch the redirect, a code exchange,
// and ID-token verification. It backs a Provider's external sign-in the
// way a popup does in a web client; email/password operations stay with
// whatever provider the application composes it into.
package googleoidc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-auth-flow/identity"
)

const (
	// DefaultIssuerURL is Google's OIDC issuer.
	DefaultIssuerURL = "https://accounts.google.com"

	callbackPath = "/oauth2/callback"
)

// Config holds the OAuth2 client registration.
type Config struct {
	ClientID     string
	ClientSecret string
	IssuerURL    string // Defaults to DefaultIssuerURL
	ListenAddr   string // Loopback listener address, defaults to 127.0.0.1:0
}

// OpenURLFunc launches the user's browser at the given URL. A failure
// is treated like a blocked popup.
type OpenURLFunc func(url string) error

// Authenticator runs interactive Google sign-ins.
type Authenticator struct {
	cfg     Config
	openURL OpenURLFunc
	log     zerolog.Logger
}

// Option modifies an Authenticator during construction.
type Option func(*Authenticator)

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) Option {
	return func(a *Authenticator) {
		a.log = log
	}
}

// New creates an Authenticator. openURL is required: it is how the
// sign-in window reaches the user.
func New(cfg Config, openURL OpenURLFunc, options ...Option) (*Authenticator, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("[googleoidc.New] client id is required")
	}
	if openURL == nil {
		return nil, errors.New("[googleoidc.New] open-url function is required")
	}
	if cfg.IssuerURL == "" {
		cfg.IssuerURL = DefaultIssuerURL
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "127.0.0.1:0"
	}

	a := &Authenticator{
		cfg:     cfg,
		openURL: openURL,
		log:     zerolog.Nop(),
	}

	for _, opt := range options {
		opt(a)
	}

	return a, nil
}

// SignIn runs the full flow and returns the verified identity. The
// returned errors carry the identity error taxonomy: a browser that
// cannot be opened maps to a blocked popup, unreachable endpoints map
// to network errors, and a failed token verification to an invalid
// credential.
func (a *Authenticator) SignIn(ctx context.Context, opts identity.ExternalSignInOptions) (*identity.Identity, error) {
	provider, err := oidc.NewProvider(ctx, a.cfg.IssuerURL)
	if err != nil {
		return nil, identity.WrapError(identity.KindNetwork, "identity provider unreachable", err)
	}

	listener, err := net.Listen("tcp", a.cfg.ListenAddr)
	if err != nil {
		return nil, identity.WrapError(identity.KindUnknown, "starting callback listener", err)
	}
	defer listener.Close()

	oauthCfg := oauth2.Config{
		ClientID:     a.cfg.ClientID,
		ClientSecret: a.cfg.ClientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  fmt.Sprintf("http://%s%s", listener.Addr(), callbackPath),
		Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
	}

	state, err := randomState()
	if err != nil {
		return nil, identity.WrapError(identity.KindUnknown, "generating state", err)
	}

	authURL := oauthCfg.AuthCodeURL(state, authCodeOptions(opts)...)
	a.log.Debug().Str("url", authURL).Msg("opening sign-in window")
	if err := a.openURL(authURL); err != nil {
		return nil, identity.WrapError(identity.KindPopupBlocked, "sign-in window was blocked", err)
	}

	code, err := waitForCallback(ctx, listener, state)
	if err != nil {
		return nil, err
	}

	token, err := oauthCfg.Exchange(ctx, code)
	if err != nil {
		return nil, identity.WrapError(identity.KindNetwork, "exchanging authorization code", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, identity.NewError(identity.KindInvalidCredential, "token response missing id_token")
	}

	idToken, err := provider.Verifier(&oidc.Config{ClientID: a.cfg.ClientID}).Verify(ctx, rawIDToken)
	if err != nil {
		return nil, identity.WrapError(identity.KindInvalidCredential, "verifying id token", err)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, identity.WrapError(identity.KindUnknown, "decoding id token claims", err)
	}

	return &identity.Identity{
		ID:            idToken.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
	}, nil
}

// authCodeOptions translates sign-in options into authorize-endpoint
// parameters. Force-prompt asks Google to always show its account
// chooser instead of silently reusing a cached account.
func authCodeOptions(opts identity.ExternalSignInOptions) []oauth2.AuthCodeOption {
	var authOpts []oauth2.AuthCodeOption
	if opts.ForcePrompt {
		authOpts = append(authOpts, oauth2.SetAuthURLParam("prompt", "select_account"))
	}
	return authOpts
}

// waitForCallback serves the loopback redirect until the authorization
// code for the expected state arrives, the context is cancelled, or the
// provider reports an error.
func waitForCallback(ctx context.Context, listener net.Listener, expectedState string) (string, error) {
	type result struct {
		code string
		err  error
	}
	results := make(chan result, 1)
	var once sync.Once

	server := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != callbackPath {
			http.NotFound(w, r)
			return
		}

		query := r.URL.Query()
		res := result{code: query.Get("code")}
		switch {
		case query.Get("state") != expectedState:
			res.err = identity.NewError(identity.KindInvalidCredential, "state mismatch in callback")
		case query.Get("error") != "":
			res.err = identity.NewError(identity.KindInvalidCredential, query.Get("error"))
		case res.code == "":
			res.err = identity.NewError(identity.KindInvalidCredential, "callback missing authorization code")
		}

		if res.err != nil {
			http.Error(w, "Sign-in failed. You can close this window.", http.StatusBadRequest)
		} else {
			fmt.Fprintln(w, "Signed in. You can close this window.")
		}
		once.Do(func() { results <- res })
	})}

	go server.Serve(listener)
	defer server.Close()

	select {
	case <-ctx.Done():
		return "", identity.WrapError(identity.KindUnknown, "sign-in cancelled", ctx.Err())
	case res := <-results:
		return res.code, res.err
	}
}

func randomState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
