package live

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// ConnState is the lifecycle state of the push channel.
type ConnState string

// State IDs stay untyped so they convert to statekit.StateID.
const (
	stateIdle       = "idle"
	stateConnecting = "connecting"
	stateOpen       = "open"
	stateClosed     = "closed"
	stateDisposed   = "disposed"
)

const (
	ConnIdle       ConnState = stateIdle
	ConnConnecting ConnState = stateConnecting
	ConnOpen       ConnState = stateOpen
	ConnClosed     ConnState = stateClosed
	ConnDisposed   ConnState = stateDisposed
)

// Connection lifecycle events.
const (
	eventDial    = "dial"
	eventOpened  = "opened"
	eventFailed  = "failed"
	eventDropped = "dropped"
	eventDispose = "dispose"
)

type connContext struct {
	URL string
}

// connMachine tracks the channel lifecycle. It is driven only while the
// store's lock is held.
type connMachine struct {
	interpreter *statekit.Interpreter[connContext]
}

func newConnMachine(url string) (*connMachine, error) {
	builder := statekit.NewMachine[connContext]("push-channel").
		WithInitial(statekit.StateID(stateIdle)).
		WithContext(connContext{URL: url})

	builder.State(stateIdle).
		On(eventDial).Target(stateConnecting).
		On(eventDispose).Target(stateDisposed).
		Done()

	builder.State(stateConnecting).
		On(eventOpened).Target(stateOpen).
		On(eventFailed).Target(stateClosed).
		On(eventDispose).Target(stateDisposed).
		Done()

	builder.State(stateOpen).
		On(eventDropped).Target(stateClosed).
		On(eventDispose).Target(stateDisposed).
		Done()

	builder.State(stateClosed).
		On(eventDial).Target(stateConnecting).
		On(eventDispose).Target(stateDisposed).
		Done()

	builder.State(stateDisposed).
		Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build connection state machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()
	return &connMachine{interpreter: interpreter}, nil
}

// fire sends an event and reports whether the state changed.
func (m *connMachine) fire(event string) bool {
	before := m.current()
	m.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	return m.current() != before
}

func (m *connMachine) current() ConnState {
	return ConnState(m.interpreter.State().Value)
}
