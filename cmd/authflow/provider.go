package main

import (
	"context"
	"os/exec"
	"runtime"

	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-auth-flow/identity"
	"github.com/jrsteele09/go-auth-flow/identity/googleoidc"
	"github.com/jrsteele09/go-auth-flow/identity/providerfake"
	"github.com/jrsteele09/go-auth-flow/internal/config"
)

var _ identity.Provider = (*demoProvider)(nil)

// demoProvider keeps accounts in the in-memory fake and, when a Google
// OAuth client is configured, routes external sign-ins through the real
// OIDC flow instead of the fake's canned account.
type demoProvider struct {
	*providerfake.FakeProvider
	google *googleoidc.Authenticator
}

func newDemoProvider(c config.Config, logger zerolog.Logger) (*demoProvider, error) {
	p := &demoProvider{FakeProvider: providerfake.New(c.GetProviderSigningKey())}

	if c.GetGoogleClientID() == "" {
		logger.Debug().Msg("no google client configured, external sign-in uses the fake account")
		return p, nil
	}

	google, err := googleoidc.New(googleoidc.Config{
		ClientID:     c.GetGoogleClientID(),
		ClientSecret: c.GetGoogleClientSecret(),
		IssuerURL:    c.GetGoogleIssuerURL(),
	}, openBrowser, googleoidc.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	p.google = google
	return p, nil
}

func (p *demoProvider) SignInWithExternalProvider(ctx context.Context, opts identity.ExternalSignInOptions) (*identity.Identity, error) {
	if p.google == nil {
		return p.FakeProvider.SignInWithExternalProvider(ctx, opts)
	}

	id, err := p.google.SignIn(ctx, opts)
	if err != nil {
		return nil, err
	}
	return p.FakeProvider.AdoptExternalIdentity(id)
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
