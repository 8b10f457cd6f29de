package notifierfake

import (
	"sync"

	"github.com/jrsteele09/go-auth-flow/notify"
)

var _ notify.Notifier = (*FakeNotifier)(nil)

// FakeNotifier records every notification for test assertions.
type FakeNotifier struct {
	lock      sync.Mutex
	successes []string
	errors    []string
}

func New() *FakeNotifier {
	return &FakeNotifier{}
}

func (n *FakeNotifier) Success(msg string) {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.successes = append(n.successes, msg)
}

func (n *FakeNotifier) Error(msg string) {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.errors = append(n.errors, msg)
}

// Successes returns the success messages in emit order.
func (n *FakeNotifier) Successes() []string {
	n.lock.Lock()
	defer n.lock.Unlock()
	return append([]string(nil), n.successes...)
}

// Errors returns the error messages in emit order.
func (n *FakeNotifier) Errors() []string {
	n.lock.Lock()
	defer n.lock.Unlock()
	return append([]string(nil), n.errors...)
}
