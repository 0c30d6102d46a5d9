package relay

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// handshake is the first message KeeWeb receives on a new connection.
// Field order is part of the wire format.
type handshake struct {
	PID    int    `json:"pid"`
	PPID   int    `json:"ppid"`
	Origin string `json:"origin"`
}

// BuildHandshake frames the handshake as a little-endian uint32 length
// followed by a JSON object. Double quotes in origin become apostrophes,
// and the result is then escaped as a JSON string.
func BuildHandshake(pid, ppid int, origin string) ([]byte, error) {
	msg := handshake{
		PID:    pid,
		PPID:   ppid,
		Origin: strings.ReplaceAll(origin, `"`, `'`),
	}

	var body bytes.Buffer

	enc := json.NewEncoder(&body)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(msg); err != nil {
		return nil, fmt.Errorf("encode handshake: %w", err)
	}

	payload := bytes.TrimSuffix(body.Bytes(), []byte("\n"))
	if len(payload) > math.MaxUint32 {
		return nil, fmt.Errorf("handshake too large: %d bytes", len(payload))
	}

	frame := make([]byte, 4, 4+len(payload))
	binary.LittleEndian.PutUint32(frame, uint32(len(payload))) //nolint:gosec // bounded above

	return append(frame, payload...), nil
}
