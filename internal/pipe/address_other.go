//go:build !unix && !windows

package pipe

import "errors"

const maxAddressLength = 104

type platformResolver struct {
	opts Options
}

func (platformResolver) Resolve() (string, error) {
	return "", errors.New("no companion socket scheme for this platform; set connect.socket")
}
