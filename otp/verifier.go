package otp

import (
	"context"
	"regexp"
	"time"

	"github.com/jrsteele09/go-auth-flow/identity"
)

// VerifyContext carries what a verification backend needs besides the
// code itself.
type VerifyContext struct {
	// Email is the address the code was sent to.
	Email string
}

// Verifier checks a submitted one-time code. Implementations decide
// what "checking" means: a real backend performs a challenge/response,
// the simulated one only validates the format.
type Verifier interface {
	Verify(ctx context.Context, code string, vc VerifyContext) error
}

var (
	codePattern   = regexp.MustCompile(`^\d{6}$`)
	digitsPattern = regexp.MustCompile(`^\d*$`)
)

// DelayVerifier is the simulated verification backend: a fixed
// artificial delay followed by a format check. Any six digits pass.
type DelayVerifier struct {
	// Delay is how long verification appears to take. Zero means no
	// delay, which tests rely on.
	Delay time.Duration
}

var _ Verifier = DelayVerifier{}

// NewDelayVerifier returns the demo verifier with its usual
// one-and-a-half second delay.
func NewDelayVerifier() DelayVerifier {
	return DelayVerifier{Delay: 1500 * time.Millisecond}
}

func (v DelayVerifier) Verify(ctx context.Context, code string, _ VerifyContext) error {
	if v.Delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(v.Delay):
		}
	}

	if !codePattern.MatchString(code) {
		return identity.NewError(identity.KindVerificationFormat, "Invalid verification code")
	}
	return nil
}
