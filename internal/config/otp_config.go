package config

import "time"

type OtpConfig interface {
	GetVerificationDelay() time.Duration
}

type Otp struct{}

var _ OtpConfig = Otp{}

// GetVerificationDelay is how long the simulated verification backend
// takes to answer.
func (Otp) GetVerificationDelay() time.Duration {
	return 1500 * time.Millisecond
}
