// Package agent implements the authentication callback endpoint registered
// with iwd. The daemon calls back into this process when a connect attempt
// needs credentials; the agent turns each callback into a Request that the
// interactive session answers or cancels.
package agent

import (
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"iwdmenu/iwd"
)

// DefaultTimeout bounds how long an unanswered daemon callback is held
// open. The daemon's own deadline for agent replies is not part of its
// documented interface, so a conservative local limit keeps a forgotten
// prompt from suspending the daemon call forever.
const DefaultTimeout = 2 * time.Minute

const objectPath = dbus.ObjectPath("/iwdmenu/agent")

type Config struct {
	// Timeout overrides DefaultTimeout when positive.
	Timeout time.Duration
	Logger  Logger
}

// Agent bridges daemon-initiated credential callbacks into the session.
// At most one request is outstanding at any time; a second concurrent
// callback is a protocol violation and is rejected immediately while the
// first stays intact.
type Agent struct {
	log     Logger
	client  *iwd.Client
	timeout time.Duration

	mu      sync.Mutex
	pending *Request

	requests chan *Request
}

func New(config *Config) *Agent {
	agent := &Agent{
		timeout:  config.Timeout,
		requests: make(chan *Request, 1),
	}

	if agent.timeout <= 0 {
		agent.timeout = DefaultTimeout
	}

	if config.Logger != nil {
		agent.log = config.Logger
	} else {
		agent.log = noopLogger{}
	}

	return agent
}

// Register exports the agent object and announces it to the daemon's agent
// manager. Must succeed before any connect attempt that could need a
// secret.
func (a *Agent) Register(client *iwd.Client) error {
	a.client = client
	return client.ExportAgent(&agentObject{agent: a}, objectPath)
}

// Unregister removes the agent from the daemon and cancels any pending
// request.
func (a *Agent) Unregister() error {
	a.cancelPending()

	if a.client == nil {
		return nil
	}
	return a.client.UnexportAgent(objectPath)
}

// Requests delivers each new pending request exactly once.
func (a *Agent) Requests() <-chan *Request {
	return a.requests
}

// Pending returns the outstanding request, if any.
func (a *Agent) Pending() *Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

var errBusy = dbus.NewError(
	"net.connman.iwd.Agent.Error.Canceled",
	[]interface{}{"another authentication request is pending"},
)

var errCanceled = dbus.NewError(
	"net.connman.iwd.Agent.Error.Canceled",
	[]interface{}{"canceled by user"},
)

// begin creates the pending request, enforcing the at-most-one invariant.
func (a *Agent) begin(request *Request) *dbus.Error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.pending != nil {
		a.log.Warnf("Rejecting concurrent authentication request for %v", request.network)
		return errBusy
	}

	a.pending = request

	select {
	case a.requests <- request:
	default:
		// The session stopped listening; nobody will ever answer.
		a.pending = nil
		return errCanceled
	}

	a.log.Debugf("Authentication request for %v (%v)", request.network, request.kind)

	return nil
}

// await suspends the daemon-facing call until the request resolves or the
// local timeout fires.
func (a *Agent) await(request *Request) (Secret, *dbus.Error) {
	timer := time.NewTimer(a.timeout)
	defer timer.Stop()

	select {
	case <-request.Done():
	case <-timer.C:
		a.log.Warnf("Authentication request for %v timed out", request.network)
		_ = request.Cancel()
	}

	a.clear(request)

	secret, state := request.resolution()
	if state != StateAnswered {
		return Secret{}, errCanceled
	}

	return secret, nil
}

func (a *Agent) clear(request *Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.pending == request {
		a.pending = nil
	}
}

func (a *Agent) cancelPending() {
	a.mu.Lock()
	pending := a.pending
	a.mu.Unlock()

	if pending != nil {
		_ = pending.Cancel()
	}
}

// agentObject is the bus-visible shim. Only the net.connman.iwd.Agent
// methods are exported; everything else on Agent stays off the bus.
type agentObject struct {
	agent *Agent
}

// Release is called when the daemon drops the agent, typically on daemon
// shutdown.
func (o *agentObject) Release() *dbus.Error {
	o.agent.log.Infof("Agent released by daemon")
	o.agent.cancelPending()
	return nil
}

func (o *agentObject) RequestPassphrase(network dbus.ObjectPath) (string, *dbus.Error) {
	request := NewRequest(network, KindPassphrase)
	if err := o.agent.begin(request); err != nil {
		return "", err
	}

	secret, err := o.agent.await(request)
	if err != nil {
		return "", err
	}
	return secret.Passphrase, nil
}

func (o *agentObject) RequestPrivateKeyPassphrase(network dbus.ObjectPath) (string, *dbus.Error) {
	request := NewRequest(network, KindPrivateKeyPassphrase)
	if err := o.agent.begin(request); err != nil {
		return "", err
	}

	secret, err := o.agent.await(request)
	if err != nil {
		return "", err
	}
	return secret.Passphrase, nil
}

func (o *agentObject) RequestUserNameAndPassword(network dbus.ObjectPath) (string, string, *dbus.Error) {
	request := NewRequest(network, KindUserNameAndPassword)
	if err := o.agent.begin(request); err != nil {
		return "", "", err
	}

	secret, err := o.agent.await(request)
	if err != nil {
		return "", "", err
	}
	return secret.UserName, secret.Password, nil
}

func (o *agentObject) RequestUserPassword(network dbus.ObjectPath, user string) (string, *dbus.Error) {
	request := NewRequest(network, KindUserPassword)
	request.userName = user
	if err := o.agent.begin(request); err != nil {
		return "", err
	}

	secret, err := o.agent.await(request)
	if err != nil {
		return "", err
	}
	return secret.Password, nil
}

// Cancel is the daemon withdrawing its own request, for example on an
// upstream timeout. The waiting session observes the request's Done
// channel closing.
func (o *agentObject) Cancel(reason string) *dbus.Error {
	o.agent.log.Infof("Authentication request cancelled by daemon: %v", reason)
	o.agent.cancelPending()
	return nil
}
