package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-auth-flow/flow"
	"github.com/jrsteele09/go-auth-flow/gate"
	"github.com/jrsteele09/go-auth-flow/internal/config"
	"github.com/jrsteele09/go-auth-flow/notify"
	"github.com/jrsteele09/go-auth-flow/otp"
	"github.com/jrsteele09/go-auth-flow/session"
)

var errQuit = errors.New("quit")

// app drives the auth flow from a terminal: the session store and flow
// controller decide what to show, the app only renders prompts and
// forwards intents.
type app struct {
	cfg      config.Config
	log      zerolog.Logger
	provider *demoProvider
	notifier notify.Notifier
	store    *session.Store
	in       *bufio.Scanner
}

func newApp(c config.Config, logger zerolog.Logger) (*app, error) {
	provider, err := newDemoProvider(c, logger)
	if err != nil {
		return nil, err
	}

	notifier := notify.NewLogNotifier(logger)
	store, err := session.New(provider, notifier, session.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if err := store.Initialize(); err != nil {
		store.Close()
		return nil, err
	}

	return &app{
		cfg:      c,
		log:      logger,
		provider: provider,
		notifier: notifier,
		store:    store,
		in:       bufio.NewScanner(os.Stdin),
	}, nil
}

func (a *app) Close() {
	a.store.Close()
}

func (a *app) Run() error {
	for {
		state := a.store.State()
		var err error
		gate.Resolve(state,
			func() { fmt.Println("Loading...") },
			func() { err = a.authFlow() },
			func() { err = a.dashboard(state) },
		)
		if errors.Is(err, errQuit) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// authFlow runs the Login/Register/VerifyCode sequence until the
// session is authenticated.
func (a *app) authFlow() error {
	done := make(chan struct{}, 1)
	controller, err := flow.New(a.store, func() {
		select {
		case done <- struct{}{}:
		default:
		}
	}, flow.WithLogger(a.log))
	if err != nil {
		return err
	}
	defer controller.Close()

	for !controller.Completed() {
		var err error
		switch controller.View() {
		case flow.ViewLogin:
			err = a.loginView(controller)
		case flow.ViewRegister:
			err = a.registerView(controller)
		case flow.ViewVerifyCode:
			err = a.verifyCodeView(controller)
		}
		if err != nil {
			return err
		}
	}

	<-done
	fmt.Println("Navigating to dashboard...")
	return nil
}

func (a *app) loginView(controller *flow.Controller) error {
	fmt.Println()
	fmt.Println("-- Sign in --")
	fmt.Println("Commands: login <email> <password> | google | register | quit")

	input, err := a.readLine("> ")
	if err != nil {
		return err
	}
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return nil
	}

	ctx := context.Background()
	switch fields[0] {
	case "login":
		if len(fields) != 3 {
			fmt.Println("usage: login <email> <password>")
			return nil
		}
		_, _ = a.store.Login(ctx, fields[1], fields[2])
	case "google":
		_, _ = a.store.GoogleSignIn(ctx)
	case "register":
		return controller.SwitchToRegister()
	case "quit":
		return errQuit
	default:
		fmt.Println("unknown command:", fields[0])
	}
	return nil
}

func (a *app) registerView(controller *flow.Controller) error {
	fmt.Println()
	fmt.Println("-- Create account --")
	fmt.Println("Commands: register <email> <password> | back | quit")

	input, err := a.readLine("> ")
	if err != nil {
		return err
	}
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "register":
		if len(fields) != 3 {
			fmt.Println("usage: register <email> <password>")
			return nil
		}
		if _, err := a.store.SignUp(context.Background(), fields[1], fields[2]); err != nil {
			return nil // Notified already; stay on the register view
		}
		return controller.RegistrationSubmitted(fields[1])
	case "back":
		return controller.SwitchToLogin()
	case "quit":
		return errQuit
	default:
		fmt.Println("unknown command:", fields[0])
	}
	return nil
}

// verifyCodeView owns one OTP machine for the lifetime of the view.
func (a *app) verifyCodeView(controller *flow.Controller) error {
	verifier := otp.DelayVerifier{Delay: a.cfg.GetVerificationDelay()}
	machine, err := otp.New(verifier, a.notifier, controller.PendingEmail())
	if err != nil {
		return err
	}
	defer machine.Close()

	fmt.Println()
	fmt.Println("-- Verify your email --")
	fmt.Printf("We've sent a verification code to %s\n", controller.PendingEmail())
	fmt.Println("Type a digit, paste the 6-digit code, or: submit | resend | cancel | quit")

	for {
		prompt := fmt.Sprintf("[%s] (resend in %ds) > ", renderSlots(machine), machine.Countdown())
		input, err := a.readLine(prompt)
		if err != nil {
			return err
		}

		switch input {
		case "":
		case "submit":
			if !machine.CanSubmit() {
				fmt.Println("enter all 6 digits first")
				continue
			}
			if err := machine.Submit(context.Background()); err != nil {
				continue // Digits stay in place for retry
			}
			return controller.Verified()
		case "resend":
			machine.Resend()
		case "cancel":
			return controller.Cancel()
		case "quit":
			return errQuit
		default:
			if len(input) == 1 {
				machine.SetSlot(machine.Focus(), input)
			} else {
				machine.PasteCode(input)
			}
		}
	}
}

func (a *app) dashboard(state session.State) error {
	id := state.Identity
	fmt.Println()
	fmt.Println("-- Dashboard --")
	fmt.Printf("Email: %s\n", id.Email)
	fmt.Printf("Email Verified: %v\n", id.EmailVerified)
	fmt.Printf("User ID: %s\n", id.ID)
	fmt.Println("Commands: logout | resend-verification | verify-email | quit")

	input, err := a.readLine("> ")
	if err != nil {
		return err
	}

	ctx := context.Background()
	switch input {
	case "logout":
		if err := a.store.Logout(ctx); err == nil {
			fmt.Println("Navigating to sign in...")
		}
	case "resend-verification":
		_ = a.store.SendVerificationEmail(ctx)
	case "verify-email":
		// No real inbox in the demo: flip verification provider-side so
		// the refreshed identity flows back through the subscription.
		a.provider.MarkEmailVerified(id.Email)
	case "quit":
		return errQuit
	case "":
	default:
		fmt.Println("unknown command:", input)
	}
	return nil
}

func (a *app) readLine(prompt string) (string, error) {
	fmt.Print(prompt)
	if !a.in.Scan() {
		if err := a.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(a.in.Text()), nil
}

func renderSlots(machine *otp.Machine) string {
	slots := machine.Slots()
	rendered := make([]string, len(slots))
	for i, slot := range slots {
		if slot == "" {
			rendered[i] = "_"
		} else {
			rendered[i] = slot
		}
	}
	return strings.Join(rendered, " ")
}
