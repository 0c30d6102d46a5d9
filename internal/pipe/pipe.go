// Package pipe derives and dials the local socket KeeWeb listens on for
// browser-extension connections.
//
// The address is per user: a named pipe on Windows and
// keeweb-browser-<uid>.sock in the temp directory everywhere else, which on
// macOS is the per-user $TMPDIR.
// Each platform's scheme lives in its own build-tagged file behind the
// Resolver interface.
package pipe

import (
	"errors"
	"os/user"
	"strings"
)

// SocketBaseName is the stem shared by every platform's socket name.
const SocketBaseName = "keeweb-browser"

// ErrIdentity is returned when the current user cannot be determined, so
// no per-user address can be derived.
var ErrIdentity = errors.New("cannot resolve current user")

// Resolver produces the companion's socket address. It is consulted once
// per dial attempt.
type Resolver interface {
	Resolve() (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func() (string, error)

// Resolve calls f.
func (f ResolverFunc) Resolve() (string, error) { return f() }

// Options tune address derivation.
type Options struct {
	// Override, when set, is returned verbatim instead of a derived address.
	Override string

	// TempDir replaces os.TempDir on platforms that place the socket there.
	TempDir string

	// LookupUser replaces user.Current.
	LookupUser func() (*user.User, error)
}

// NewResolver returns the resolver for the running platform.
func NewResolver(opts Options) Resolver {
	if opts.Override != "" {
		override := opts.Override

		return ResolverFunc(func() (string, error) { return override, nil })
	}

	if opts.LookupUser == nil {
		opts.LookupUser = user.Current
	}

	return platformResolver{opts: opts}
}

// TooLong reports whether address exceeds what the platform accepts for a
// socket name. KeeWeb refuses to listen on such names, so dialing them can
// never succeed.
func TooLong(address string) bool {
	return len(address) > maxAddressLength
}

// currentUser wraps lookup failures in ErrIdentity.
func currentUser(lookup func() (*user.User, error)) (*user.User, error) {
	u, err := lookup()
	if err != nil {
		return nil, errors.Join(ErrIdentity, err)
	}

	if u == nil || (u.Username == "" && u.Uid == "") {
		return nil, ErrIdentity
	}

	return u, nil
}

// shortUsername strips a Windows "DOMAIN\" prefix.
func shortUsername(name string) string {
	if i := strings.LastIndexByte(name, '\\'); i >= 0 {
		return name[i+1:]
	}

	return name
}
