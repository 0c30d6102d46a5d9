//go:build windows

package pipe

import "fmt"

const maxAddressLength = 256

type platformResolver struct {
	opts Options
}

// Resolve returns \\.\pipe\keeweb-browser-<username>.sock.
func (r platformResolver) Resolve() (string, error) {
	u, err := currentUser(r.opts.LookupUser)
	if err != nil {
		return "", err
	}

	name := shortUsername(u.Username)
	if name == "" {
		return "", ErrIdentity
	}

	return fmt.Sprintf(`\\.\pipe\%s-%s.sock`, SocketBaseName, name), nil
}
