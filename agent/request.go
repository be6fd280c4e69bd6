package agent

import (
	"sync"

	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"
)

// SecretKind says which credentials the daemon asked for.
type SecretKind int

const (
	// KindPassphrase is a network passphrase (PSK networks).
	KindPassphrase SecretKind = iota
	// KindPrivateKeyPassphrase unlocks a client private key.
	KindPrivateKeyPassphrase
	// KindUserNameAndPassword is an enterprise login.
	KindUserNameAndPassword
	// KindUserPassword is an enterprise login with a fixed user name.
	KindUserPassword
)

func (k SecretKind) String() string {
	switch k {
	case KindPassphrase:
		return "passphrase"
	case KindPrivateKeyPassphrase:
		return "private key passphrase"
	case KindUserNameAndPassword:
		return "username and password"
	case KindUserPassword:
		return "password"
	}
	return "unknown"
}

// Secret is the answer to a request. Only the fields the request's kind
// asks for are read.
type Secret struct {
	Passphrase string
	UserName   string
	Password   string
}

// State of a request's single-use completion slot.
type State int

const (
	StatePending State = iota
	StateAnswered
	StateCancelled
)

// ErrResolved is returned when answering or cancelling a request that has
// already been completed.
var ErrResolved = errors.New("authentication request already resolved")

// Request is one daemon-initiated credential request. The daemon-facing
// call stays suspended until exactly one of Answer or Cancel runs, or until
// the daemon cancels the request itself. Done is closed on any of the
// three, so a waiter can select on it next to other channels.
type Request struct {
	network  dbus.ObjectPath
	kind     SecretKind
	userName string

	mu     sync.Mutex
	state  State
	secret Secret
	done   chan struct{}
}

// NewRequest builds a pending request. Exposed so session tests can feed a
// controller without a live daemon.
func NewRequest(network dbus.ObjectPath, kind SecretKind) *Request {
	return &Request{
		network: network,
		kind:    kind,
		done:    make(chan struct{}),
	}
}

// NetworkPath is the daemon object path of the network being connected.
func (r *Request) NetworkPath() dbus.ObjectPath {
	return r.network
}

func (r *Request) Kind() SecretKind {
	return r.kind
}

// UserName is the daemon-supplied login name for KindUserPassword requests.
func (r *Request) UserName() string {
	return r.userName
}

// Done is closed once the request has been answered or cancelled.
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// State reports how the request was resolved, or StatePending.
func (r *Request) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Answer completes the suspended daemon call with the secret.
func (r *Request) Answer(secret Secret) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StatePending {
		return ErrResolved
	}

	r.secret = secret
	r.state = StateAnswered
	close(r.done)

	return nil
}

// Cancel completes the suspended daemon call with a cancellation error.
func (r *Request) Cancel() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StatePending {
		return ErrResolved
	}

	r.state = StateCancelled
	close(r.done)

	return nil
}

func (r *Request) resolution() (Secret, State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.secret, r.state
}
