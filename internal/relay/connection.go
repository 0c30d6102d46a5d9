package relay

// ConnState is the lifecycle of the back-channel connection.
type ConnState int

const (
	// Disconnected is the initial state and the state between retries.
	Disconnected ConnState = iota
	// Dialing means a connection attempt is outstanding.
	Dialing
	// Connected means the back channel is established.
	Connected
	// Launching means KeeWeb was started and the next dial is pending.
	Launching
	// ClosingDown is terminal.
	ClosingDown
)

func (s ConnState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Dialing:
		return "dialing"
	case Connected:
		return "connected"
	case Launching:
		return "launching"
	case ClosingDown:
		return "closing"
	default:
		return "unknown"
	}
}

type connEvent int

const (
	evStart connEvent = iota
	evDialSucceeded
	evDialFailed
	evLaunchSucceeded
	evLaunchFailed
	evRetryDue
	evConnectionLost
	evShutdown
)

type connAction int

const (
	actNone connAction = iota
	actDial
	actAdopt
	actLaunch
	actScheduleRetry
	actGiveUp
	actFailLaunch
	actClose
)

// connMachine decides what happens to the back channel. It performs no I/O;
// the coordinator executes the returned action.
type connMachine struct {
	state       ConnState
	attempts    int
	maxAttempts int
	launched    bool
}

// newConnMachine returns a machine allowing maxAttempts dials. When launch
// is false KeeWeb is assumed to be running already and is never started.
func newConnMachine(maxAttempts int, launch bool) *connMachine {
	return &connMachine{maxAttempts: maxAttempts, launched: !launch}
}

func (m *connMachine) next(ev connEvent) connAction {
	if ev == evShutdown {
		prev := m.state
		m.state = ClosingDown

		if prev == ClosingDown {
			return actNone
		}

		return actClose
	}

	switch m.state {
	case Disconnected, Launching:
		switch {
		case ev == evStart && m.state == Disconnected, ev == evRetryDue:
			return m.dial()
		case ev == evLaunchSucceeded && m.state == Launching:
			return actScheduleRetry
		case ev == evLaunchFailed && m.state == Launching:
			m.state = ClosingDown
			return actFailLaunch
		}
	case Dialing:
		switch ev {
		case evDialSucceeded:
			m.state = Connected
			return actAdopt
		case evDialFailed:
			return m.dialFailed()
		}
	case Connected:
		if ev == evConnectionLost {
			m.state = ClosingDown
			return actClose
		}
	case ClosingDown:
	}

	return actNone
}

func (m *connMachine) dial() connAction {
	m.state = Dialing
	m.attempts++

	return actDial
}

// dialFailed launches KeeWeb on the first failure regardless of the attempt
// limit; the limit only ends the run once KeeWeb has been launched.
func (m *connMachine) dialFailed() connAction {
	switch {
	case !m.launched:
		m.launched = true
		m.state = Launching

		return actLaunch
	case m.attempts >= m.maxAttempts:
		m.state = ClosingDown
		return actGiveUp
	default:
		m.state = Disconnected
		return actScheduleRetry
	}
}
