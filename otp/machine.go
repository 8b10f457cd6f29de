// Package otp holds the one-time-code entry widget's state: six
// single-digit slots, a focus cursor, a countdown-gated resend, and a
// submission driven through an abstract Verifier. A Machine is created
// fresh each time the verify-code view is entered and must be Closed on
// exit so its countdown timer cannot outlive it.
package otp

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-auth-flow/identity"
	"github.com/jrsteele09/go-auth-flow/notify"
)

const (
	// SlotCount is the number of code digits.
	SlotCount = 6
	// ResendCooldownSeconds is the countdown a resend resets to. The
	// machine also starts with this cooldown, matching the code having
	// just been sent.
	ResendCooldownSeconds = 30

	defaultTickInterval = time.Second
)

// Machine is the OTP entry state machine.
type Machine struct {
	verifier Verifier
	notifier notify.Notifier
	email    string
	log      zerolog.Logger

	lock       sync.Mutex
	slots      [SlotCount]string
	focus      int
	countdown  int
	submitting bool

	tickInterval time.Duration
	stop         chan struct{}
	closeOnce    sync.Once
}

// MachineOption modifies a Machine during construction.
type MachineOption func(*Machine)

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) MachineOption {
	return func(m *Machine) {
		m.log = log
	}
}

// WithTickInterval overrides the countdown tick period. Zero disables
// the internal timer entirely; tests then drive Tick directly.
func WithTickInterval(d time.Duration) MachineOption {
	return func(m *Machine) {
		m.tickInterval = d
	}
}

// New creates a Machine for the code sent to email, with all slots
// empty, focus on slot 0 and the resend cooldown running. Close must be
// called when the view is exited.
func New(verifier Verifier, notifier notify.Notifier, email string, options ...MachineOption) (*Machine, error) {
	if verifier == nil {
		return nil, errors.New("[otp.New] verifier is required")
	}
	if notifier == nil {
		return nil, errors.New("[otp.New] notifier is required")
	}

	m := &Machine{
		verifier:     verifier,
		notifier:     notifier,
		email:        email,
		log:          zerolog.Nop(),
		countdown:    ResendCooldownSeconds,
		tickInterval: defaultTickInterval,
		stop:         make(chan struct{}),
	}

	for _, opt := range options {
		opt(m)
	}

	if m.tickInterval > 0 {
		go m.run()
	}

	return m, nil
}

// Close releases the countdown timer. Idempotent; after Close no tick
// can mutate the machine.
func (m *Machine) Close() {
	m.closeOnce.Do(func() {
		close(m.stop)
	})
}

// SetSlot types raw input into the slot at index. Non-digit input is
// ignored; otherwise the slot keeps at most the last character typed,
// and a non-empty value advances focus to the next slot.
func (m *Machine) SetSlot(index int, raw string) {
	m.boundsCheck(index)
	if !digitsPattern.MatchString(raw) {
		return
	}

	value := raw
	if len(value) > 1 {
		value = value[len(value)-1:]
	}

	m.lock.Lock()
	defer m.lock.Unlock()
	m.slots[index] = value
	if value != "" && index < SlotCount-1 {
		m.focus = index + 1
	}
}

// Backspace moves focus to the previous slot when pressed on an empty
// one. Deleting a digit is SetSlot with the empty string; this only
// handles the cursor.
func (m *Machine) Backspace(index int) {
	m.boundsCheck(index)

	m.lock.Lock()
	defer m.lock.Unlock()
	if m.slots[index] == "" && index > 0 {
		m.focus = index - 1
	}
}

// PasteCode fills all six slots from a pasted six-digit string and
// moves focus to the last slot. Any other payload is silently ignored;
// there is no partial fill.
func (m *Machine) PasteCode(text string) {
	if !codePattern.MatchString(text) {
		return
	}

	m.lock.Lock()
	defer m.lock.Unlock()
	for i := 0; i < SlotCount; i++ {
		m.slots[i] = string(text[i])
	}
	m.focus = SlotCount - 1
}

// Tick advances the resend countdown by one second.
func (m *Machine) Tick() {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.countdown > 0 {
		m.countdown--
	}
}

// Resend requests a fresh code: countdown back to full, slots cleared,
// focus on slot 0. Disabled (a no-op) while the countdown is running.
func (m *Machine) Resend() {
	m.lock.Lock()
	if m.countdown > 0 {
		m.lock.Unlock()
		return
	}
	m.countdown = ResendCooldownSeconds
	m.slots = [SlotCount]string{}
	m.focus = 0
	m.lock.Unlock()

	m.notifier.Success("New verification code sent!")
}

// Submit verifies the entered code. It requires all six slots filled,
// reads the code as a snapshot taken at call time, and holds the
// entered digits in place on failure so the user can retry.
func (m *Machine) Submit(ctx context.Context) error {
	m.lock.Lock()
	if m.submitting {
		m.lock.Unlock()
		return errors.New("[Machine.Submit] submission already in flight")
	}
	var code strings.Builder
	for _, slot := range m.slots {
		if slot == "" {
			m.lock.Unlock()
			return identity.NewError(identity.KindMalformedInput, "enter the full 6-digit code")
		}
		code.WriteString(slot)
	}
	m.submitting = true
	m.lock.Unlock()

	err := m.verifier.Verify(ctx, code.String(), VerifyContext{Email: m.email})

	m.lock.Lock()
	m.submitting = false
	m.lock.Unlock()

	if err != nil {
		m.log.Debug().Err(err).Msg("code verification failed")
		m.notifier.Error("Invalid verification code")
		return err
	}

	m.notifier.Success("Email verified successfully!")
	return nil
}

// Slots returns a copy of the six entry slots.
func (m *Machine) Slots() [SlotCount]string {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.slots
}

// Focus returns the index of the focused slot.
func (m *Machine) Focus() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.focus
}

// Countdown returns the seconds left until resend is enabled.
func (m *Machine) Countdown() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.countdown
}

// Submitting reports whether a verification call is in flight.
func (m *Machine) Submitting() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.submitting
}

// CanSubmit reports whether every slot holds a digit.
func (m *Machine) CanSubmit() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, slot := range m.slots {
		if slot == "" {
			return false
		}
	}
	return true
}

// CanResend reports whether the resend cooldown has elapsed.
func (m *Machine) CanResend() bool {
	return m.Countdown() == 0
}

func (m *Machine) run() {
	ticker := time.NewTicker(m.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.Tick()
		}
	}
}

func (m *Machine) boundsCheck(index int) {
	if index < 0 || index >= SlotCount {
		panic(fmt.Sprintf("otp: slot index %d out of range [0,%d)", index, SlotCount))
	}
}
