package relay

import (
	"errors"
	"io"

	"github.com/keeweb/keeweb-native-messaging-host/internal/netutil"
)

// Duplex is the front channel: the browser writes to In and reads Out.
type Duplex struct {
	In  io.Reader
	Out io.Writer
}

// ReadStatus tags a ReadResult.
type ReadStatus int

const (
	// ReadData carries bytes.
	ReadData ReadStatus = iota
	// ReadEOF marks the end of the stream.
	ReadEOF
	// ReadError carries a read failure.
	ReadError
)

// ReadResult is the outcome of one read. Data is owned by the receiver.
type ReadResult struct {
	Status ReadStatus
	Data   []byte
	Err    error
}

// streamReader reads src on its own goroutine, one read at a time. After
// each ReadData result it waits for resume before reading again, which is
// how the coordinator applies backpressure.
type streamReader struct {
	credit chan struct{}
	paused bool
}

// startReader begins reading src. post delivers each result to the
// coordinator and reports false once the coordinator has gone away, which
// also closes done.
func startReader(src io.Reader, size int, done <-chan struct{}, post func(ReadResult) bool) *streamReader {
	r := &streamReader{credit: make(chan struct{}, 1)}
	r.credit <- struct{}{}

	go r.loop(src, size, done, post)

	return r
}

func (r *streamReader) loop(src io.Reader, size int, done <-chan struct{}, post func(ReadResult) bool) {
	for {
		select {
		case <-r.credit:
		case <-done:
			return
		}

		buf := make([]byte, size)
		n, err := src.Read(buf)

		if n > 0 && !post(ReadResult{Status: ReadData, Data: buf[:n]}) {
			return
		}

		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			post(ReadResult{Status: ReadEOF})
			return
		case netutil.IsExpectedCloseError(err):
			post(ReadResult{Status: ReadEOF, Err: err})
			return
		default:
			post(ReadResult{Status: ReadError, Err: err})
			return
		}

		if n == 0 {
			// Nothing was delivered, so no credit will come back for this
			// read. Keep the token.
			r.credit <- struct{}{}
		}
	}
}

// resume grants one more read. Called only from the coordinator.
func (r *streamReader) resume() {
	r.paused = false

	select {
	case r.credit <- struct{}{}:
	default:
	}
}
