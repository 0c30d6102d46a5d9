package relay

import "io"

// WriteStarter begins an asynchronous write of buf to dst. The completion
// must later be reported through QueuedWriter.OnWriteComplete.
type WriteStarter func(dst io.Writer, buf []byte)

// QueuedWriter serializes writes to one destination. Buffers are written in
// enqueue order, each in full, with at most one write in flight. It is not
// safe for concurrent use; the relay's coordinator owns it.
type QueuedWriter struct {
	kind     Kind
	start    WriteStarter
	dst      io.Writer
	pending  [][]byte
	size     int
	inFlight bool
}

// NewQueuedWriter returns a writer whose failures are reported as kind.
func NewQueuedWriter(kind Kind, start WriteStarter) *QueuedWriter {
	return &QueuedWriter{kind: kind, start: start}
}

// SetDestination attaches the destination. Until then buffers only queue.
func (w *QueuedWriter) SetDestination(dst io.Writer) {
	w.dst = dst
}

// Enqueue appends buf. Empty buffers are ignored.
func (w *QueuedWriter) Enqueue(buf []byte) {
	if len(buf) == 0 {
		return
	}

	w.pending = append(w.pending, buf)
	w.size += len(buf)
}

// Pump starts writing the head buffer if the destination is attached and
// no write is in flight. It reports whether a write was started.
func (w *QueuedWriter) Pump() bool {
	if w.dst == nil || w.inFlight || len(w.pending) == 0 {
		return false
	}

	w.inFlight = true
	w.start(w.dst, w.pending[0])

	return true
}

// OnWriteComplete retires the in-flight buffer. On success the next buffer
// is started. On failure nothing is retried and the error is returned
// tagged with the writer's kind.
func (w *QueuedWriter) OnWriteComplete(err error) error {
	if !w.inFlight {
		return nil
	}

	head := w.pending[0]
	w.pending[0] = nil
	w.pending = w.pending[1:]
	w.size -= len(head)
	w.inFlight = false

	if err != nil {
		return &Error{Kind: w.kind, Err: err}
	}

	w.Pump()

	return nil
}

// Abandon drops every buffer that is not in flight and returns how many
// bytes were discarded.
func (w *QueuedWriter) Abandon() int {
	keep := 0
	if w.inFlight {
		keep = 1
	}

	dropped := 0
	for _, buf := range w.pending[keep:] {
		dropped += len(buf)
	}

	w.pending = w.pending[:keep]
	w.size -= dropped

	return dropped
}

// Len is the number of buffers queued, including the one in flight.
func (w *QueuedWriter) Len() int { return len(w.pending) }

// Bytes is the number of bytes queued, including the in-flight buffer.
func (w *QueuedWriter) Bytes() int { return w.size }

// InFlight reports whether a write is outstanding.
func (w *QueuedWriter) InFlight() bool { return w.inFlight }

// Idle reports whether there is nothing queued and nothing in flight.
func (w *QueuedWriter) Idle() bool { return !w.inFlight && len(w.pending) == 0 }
