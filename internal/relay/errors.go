package relay

import (
	"errors"
	"fmt"
)

// Kind classifies why the relay shut down.
type Kind int

const (
	// KindStdin is a read failure on stdin.
	KindStdin Kind = iota + 1
	// KindStdout is a write failure on stdout.
	KindStdout
	// KindDial means every connection attempt to KeeWeb failed.
	KindDial
	// KindSpawn means KeeWeb could not be launched.
	KindSpawn
	// KindBackChannel is a read or write failure on an established
	// connection to KeeWeb.
	KindBackChannel
	// KindIdentity means the socket address could not be derived.
	KindIdentity
)

func (k Kind) String() string {
	switch k {
	case KindStdin:
		return "stdin error"
	case KindStdout:
		return "stdout error"
	case KindDial:
		return "dial error"
	case KindSpawn:
		return "spawn error"
	case KindBackChannel:
		return "back channel error"
	case KindIdentity:
		return "identity error"
	default:
		return fmt.Sprintf("relay error %d", int(k))
	}
}

// Error is a fatal relay condition.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}

	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the Kind from a relay error chain.
func KindOf(err error) (Kind, bool) {
	var relayErr *Error
	if errors.As(err, &relayErr) {
		return relayErr.Kind, true
	}

	return 0, false
}
