package identity_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-auth-flow/identity"
)

func TestErrorMessage(t *testing.T) {
	err := identity.NewError(identity.KindInvalidCredential, "incorrect email or password")
	assert.Equal(t, "invalid credential: incorrect email or password", err.Error())

	bare := identity.NewError(identity.KindNoSession, "")
	assert.Equal(t, "no active session", bare.Error())
}

func TestKindOfWalksWrappedChains(t *testing.T) {
	cause := errors.New("connection refused")
	classified := identity.WrapError(identity.KindNetwork, "provider unreachable", cause)
	wrapped := errors.Wrap(classified, "login failed")

	assert.Equal(t, identity.KindNetwork, identity.KindOf(wrapped))
	assert.True(t, identity.IsKind(wrapped, identity.KindNetwork))
	assert.False(t, identity.IsKind(wrapped, identity.KindPopupBlocked))
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, identity.KindUnknown, identity.KindOf(errors.New("boom")))
	assert.False(t, identity.IsKind(nil, identity.KindUnknown))
}

func TestErrorsIsMatchesOnKind(t *testing.T) {
	err := identity.WrapError(identity.KindNoSession, "no user logged in", nil)
	require.True(t, errors.Is(err, identity.NewError(identity.KindNoSession, "")))
	require.False(t, errors.Is(err, identity.NewError(identity.KindNetwork, "")))
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("tls handshake failed")
	err := identity.WrapError(identity.KindNetwork, "provider unreachable", cause)
	assert.Equal(t, cause, errors.Cause(errors.Wrap(err, "outer")).(*identity.Error).Cause)
	assert.True(t, errors.Is(err, cause))
}
