package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/keeweb/keeweb-native-messaging-host/internal/clock"
	"github.com/keeweb/keeweb-native-messaging-host/internal/netutil"
)

// Defaults applied by New to zero-valued Options fields.
const (
	DefaultMaxAttempts    = 10
	DefaultRetryDelay     = 500 * time.Millisecond
	DefaultDialTimeout    = 2 * time.Second
	DefaultReadBufferSize = 64 << 10
	DefaultHighWater      = 1 << 20
	DefaultLowWater       = 256 << 10
	DefaultDrainTimeout   = 5 * time.Second
)

// Resolver derives the back-channel address.
type Resolver interface {
	Resolve() (string, error)
}

// Dialer opens one connection to KeeWeb.
type Dialer interface {
	Dial(ctx context.Context, address string) (io.ReadWriteCloser, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, address string) (io.ReadWriteCloser, error)

// Dial implements Dialer.
func (f DialerFunc) Dial(ctx context.Context, address string) (io.ReadWriteCloser, error) {
	return f(ctx, address)
}

// Launcher starts KeeWeb without waiting for it.
type Launcher interface {
	Launch(ctx context.Context) error
}

// Options configures a Relay.
type Options struct {
	// Origin is the validated extension origin sent in the handshake.
	Origin string
	// Front is the browser side, usually the process's stdin and stdout.
	Front    Duplex
	Resolver Resolver
	Dialer   Dialer
	// Launcher starts KeeWeb after the first failed dial. Nil disables
	// launching.
	Launcher Launcher

	Clock  clock.Clock
	Logger *slog.Logger
	Tracer trace.Tracer

	// Zero durations take the defaults; negative ones disable the wait.
	MaxAttempts    int
	RetryDelay     time.Duration
	DialTimeout    time.Duration
	ReadBufferSize int
	// HighWater pauses the reader feeding a queue once the queue holds
	// this many bytes; LowWater resumes it.
	HighWater    int
	LowWater     int
	DrainTimeout time.Duration

	// PID and PPID override the values reported in the handshake.
	PID  int
	PPID int
}

// Relay moves bytes between the browser and KeeWeb. A Relay runs once.
type Relay struct {
	opts   Options
	logger *slog.Logger
	tracer trace.Tracer
	clock  clock.Clock

	ctx    context.Context //nolint:containedctx // owned by Run
	events chan any
	done   chan struct{}

	conns    *connMachine
	toBack   *QueuedWriter
	toStdout *QueuedWriter
	stdin    *streamReader
	back     *streamReader
	conn     io.ReadWriteCloser
	address  string

	cancelDial context.CancelFunc
	retry      *clock.Timer
	drain      *clock.Timer

	closing      bool
	stdinStopped bool
	stdoutFailed bool
	drainExpired bool
	lastDialErr  error
	cause        error
}

// Events posted to the loop.
type (
	stdinRead    struct{ res ReadResult }
	backRead     struct{ res ReadResult }
	retryDue     struct{}
	drainElapsed struct{}
)

type writeDone struct {
	w   *QueuedWriter
	err error
}

type dialDone struct {
	conn    io.ReadWriteCloser
	err     error
	attempt int
}

// New validates opts and fills in defaults.
func New(opts Options) (*Relay, error) {
	switch {
	case opts.Front.In == nil || opts.Front.Out == nil:
		return nil, errors.New("relay: front channel is required")
	case opts.Resolver == nil:
		return nil, errors.New("relay: resolver is required")
	case opts.Dialer == nil:
		return nil, errors.New("relay: dialer is required")
	}

	applyDefaults(&opts)

	if opts.LowWater > opts.HighWater {
		return nil, fmt.Errorf("relay: low water mark %d exceeds high water mark %d", opts.LowWater, opts.HighWater)
	}

	r := &Relay{
		opts:   opts,
		logger: opts.Logger.With(slog.String("component", "relay")),
		tracer: opts.Tracer,
		clock:  opts.Clock,
		conns:  newConnMachine(opts.MaxAttempts, opts.Launcher != nil),
	}
	r.toBack = r.newWriter(KindBackChannel)
	r.toStdout = r.newWriter(KindStdout)

	return r, nil
}

func applyDefaults(opts *Options) {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	if opts.Tracer == nil {
		opts.Tracer = noop.NewTracerProvider().Tracer("relay")
	}

	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}

	if opts.RetryDelay == 0 {
		opts.RetryDelay = DefaultRetryDelay
	}

	if opts.DialTimeout == 0 {
		opts.DialTimeout = DefaultDialTimeout
	}

	if opts.DrainTimeout == 0 {
		opts.DrainTimeout = DefaultDrainTimeout
	}

	if opts.ReadBufferSize <= 0 {
		opts.ReadBufferSize = DefaultReadBufferSize
	}

	if opts.HighWater <= 0 {
		opts.HighWater = DefaultHighWater
	}

	if opts.LowWater <= 0 {
		opts.LowWater = min(DefaultLowWater, opts.HighWater)
	}

	if opts.PID == 0 {
		opts.PID = os.Getpid()
	}

	if opts.PPID == 0 {
		opts.PPID = os.Getppid()
	}
}

func (r *Relay) newWriter(kind Kind) *QueuedWriter {
	var w *QueuedWriter

	w = NewQueuedWriter(kind, func(dst io.Writer, buf []byte) {
		go func() {
			_, err := dst.Write(buf)
			r.post(writeDone{w: w, err: err})
		}()
	})

	return w
}

// Run relays until either side closes or a fatal error occurs. It returns
// nil for a clean end of stream and an *Error otherwise. Cancelling ctx
// shuts the relay down cleanly.
func (r *Relay) Run(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "relay.session",
		trace.WithAttributes(attribute.String("relay.origin", r.opts.Origin)))
	defer span.End()

	hs, err := BuildHandshake(r.opts.PID, r.opts.PPID, r.opts.Origin)
	if err != nil {
		return err
	}

	r.ctx = ctx
	r.events = make(chan any)
	r.done = make(chan struct{})

	defer close(r.done)

	r.toBack.Enqueue(hs)
	r.toStdout.SetDestination(r.opts.Front.Out)
	r.stdin = startReader(r.opts.Front.In, r.opts.ReadBufferSize, r.done, func(res ReadResult) bool {
		return r.post(stdinRead{res: res})
	})

	r.logger.Debug("relay started", slog.String("origin", r.opts.Origin))
	r.apply(r.conns.next(evStart))

	cancelled := ctx.Done()
	for !r.finished() {
		select {
		case ev := <-r.events:
			r.dispatch(ev)
		case <-cancelled:
			cancelled = nil

			r.logger.Info("relay cancelled", slog.String("reason", context.Cause(ctx).Error()))
			r.shutdown(nil)
		}
	}

	r.stop()

	if r.cause != nil {
		span.RecordError(r.cause)
		span.SetStatus(codes.Error, r.cause.Error())
	}

	return r.cause
}

func (r *Relay) post(ev any) bool {
	select {
	case r.events <- ev:
		return true
	case <-r.done:
		return false
	}
}

func (r *Relay) finished() bool {
	return r.closing && (r.toStdout.Idle() || r.stdoutFailed || r.drainExpired)
}

func (r *Relay) dispatch(ev any) {
	switch ev := ev.(type) {
	case stdinRead:
		r.onStdin(ev.res)
	case backRead:
		r.onBack(ev.res)
	case writeDone:
		r.onWriteDone(ev)
	case dialDone:
		r.onDial(ev)
	case retryDue:
		r.apply(r.conns.next(evRetryDue))
	case drainElapsed:
		r.drainExpired = true
		r.logger.Warn("stdout drain timed out", slog.Int("dropped_bytes", r.toStdout.Bytes()))
	}
}

func (r *Relay) apply(act connAction) {
	switch act {
	case actDial:
		r.dial()
	case actLaunch:
		r.launch()
	case actScheduleRetry:
		r.scheduleRetry()
	case actGiveUp:
		r.shutdown(&Error{
			Kind: KindDial,
			Err:  fmt.Errorf("after %d attempts: %w", r.conns.attempts, r.lastDialErr),
		})
	case actNone, actAdopt, actFailLaunch, actClose:
	}
}

func (r *Relay) onStdin(res ReadResult) {
	if r.stdinStopped {
		return
	}

	switch res.Status {
	case ReadData:
		r.toBack.Enqueue(res.Data)
		r.toBack.Pump()
		r.gate(r.stdin, r.toBack)
	case ReadEOF:
		r.logger.Info("stdin closed", errAttr(res.Err))
		r.shutdown(nil)
	case ReadError:
		r.shutdown(&Error{Kind: KindStdin, Err: res.Err})
	}
}

func (r *Relay) onBack(res ReadResult) {
	if r.conns.state != Connected {
		return
	}

	switch res.Status {
	case ReadData:
		r.toStdout.Enqueue(res.Data)
		r.toStdout.Pump()
		r.gate(r.back, r.toStdout)
	case ReadEOF:
		r.logger.Info("KeeWeb closed the connection", errAttr(res.Err))
		r.lose(nil)
	case ReadError:
		r.lose(&Error{Kind: KindBackChannel, Err: res.Err})
	}
}

func (r *Relay) onWriteDone(ev writeDone) {
	err := ev.w.OnWriteComplete(ev.err)

	switch ev.w {
	case r.toStdout:
		if err != nil {
			r.stdoutFailed = true
			r.shutdown(err)

			return
		}

		r.release(r.back, r.toStdout)
	case r.toBack:
		if err != nil {
			if !r.closing {
				r.lose(err)
			}

			return
		}

		if !r.stdinStopped {
			r.release(r.stdin, r.toBack)
		}
	}
}

// gate grants the reader its next read unless q is above the high water mark.
func (r *Relay) gate(rd *streamReader, q *QueuedWriter) {
	if q.Bytes() < r.opts.HighWater {
		rd.resume()
		return
	}

	if !rd.paused {
		rd.paused = true
		r.logger.Debug("reader paused", slog.String("queue", q.kind.String()), slog.Int("queued_bytes", q.Bytes()))
	}
}

// release resumes a paused reader once q has drained to the low water mark.
func (r *Relay) release(rd *streamReader, q *QueuedWriter) {
	if rd == nil || !rd.paused || q.Bytes() > r.opts.LowWater {
		return
	}

	r.logger.Debug("reader resumed", slog.String("queue", q.kind.String()), slog.Int("queued_bytes", q.Bytes()))
	rd.resume()
}

func (r *Relay) dial() {
	address, err := r.opts.Resolver.Resolve()
	if err != nil {
		r.shutdown(&Error{Kind: KindIdentity, Err: err})
		return
	}

	r.address = address
	attempt := r.conns.attempts

	var ctx context.Context
	if r.opts.DialTimeout > 0 {
		ctx, r.cancelDial = context.WithTimeout(r.ctx, r.opts.DialTimeout)
	} else {
		ctx, r.cancelDial = context.WithCancel(r.ctx)
	}

	r.logger.Debug("dialing KeeWeb", slog.String("address", address), slog.Int("attempt", attempt))

	go func() {
		ctx, span := r.tracer.Start(ctx, "companion.dial", trace.WithAttributes(
			attribute.Int("dial.attempt", attempt),
			attribute.String("dial.address", address),
		))

		conn, err := r.opts.Dialer.Dial(ctx, address)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}

		span.End()

		if !r.post(dialDone{conn: conn, err: err, attempt: attempt}) && conn != nil {
			_ = conn.Close()
		}
	}()
}

func (r *Relay) onDial(ev dialDone) {
	if r.cancelDial != nil {
		r.cancelDial()
		r.cancelDial = nil
	}

	if r.conns.state != Dialing {
		if ev.conn != nil {
			_ = ev.conn.Close()
		}

		return
	}

	if ev.err != nil {
		r.lastDialErr = ev.err
		r.logger.Warn("connect to KeeWeb failed",
			slog.Int("attempt", ev.attempt),
			slog.Int("max_attempts", r.opts.MaxAttempts),
			slog.String("error", ev.err.Error()),
		)
		r.apply(r.conns.next(evDialFailed))

		return
	}

	r.conns.next(evDialSucceeded)
	r.conn = ev.conn
	r.logger.Info("connected to KeeWeb", slog.String("address", r.address), slog.Int("attempt", ev.attempt))

	r.toBack.SetDestination(ev.conn)
	r.back = startReader(ev.conn, r.opts.ReadBufferSize, r.done, func(res ReadResult) bool {
		return r.post(backRead{res: res})
	})
	r.toBack.Pump()
}

func (r *Relay) launch() {
	ctx, span := r.tracer.Start(r.ctx, "companion.launch")
	err := r.opts.Launcher.Launch(ctx)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	span.End()

	if err != nil {
		r.apply(r.conns.next(evLaunchFailed))
		r.shutdown(&Error{Kind: KindSpawn, Err: err})

		return
	}

	r.apply(r.conns.next(evLaunchSucceeded))
}

func (r *Relay) scheduleRetry() {
	if r.opts.RetryDelay <= 0 {
		r.apply(r.conns.next(evRetryDue))
		return
	}

	r.retry = r.clock.AfterFunc(r.opts.RetryDelay, func() {
		r.post(retryDue{})
	})
}

func (r *Relay) lose(cause error) {
	r.conns.next(evConnectionLost)
	r.shutdown(cause)
}

// shutdown stops stdin, closes the back channel, and starts draining
// stdout. The first cause wins.
func (r *Relay) shutdown(cause error) {
	if r.closing {
		return
	}

	r.closing = true
	r.cause = cause

	if cause != nil {
		r.logger.Error("relay stopping", slog.String("error", cause.Error()))
	} else {
		r.logger.Debug("relay stopping")
	}

	r.conns.next(evShutdown)
	r.stdinStopped = true

	if r.retry != nil {
		r.retry.Stop()
	}

	if r.cancelDial != nil {
		r.cancelDial()
		r.cancelDial = nil
	}

	r.closeConn()

	if dropped := r.toBack.Abandon(); dropped > 0 {
		r.logger.Debug("discarded unsent input", slog.Int("bytes", dropped))
	}

	if r.toStdout.Idle() {
		return
	}

	if r.opts.DrainTimeout <= 0 {
		r.drainExpired = true
		return
	}

	r.drain = r.clock.AfterFunc(r.opts.DrainTimeout, func() {
		r.post(drainElapsed{})
	})
}

func (r *Relay) closeConn() {
	if r.conn == nil {
		return
	}

	if err := r.conn.Close(); err != nil && !netutil.IsExpectedCloseError(err) {
		r.logger.Debug("close back channel", slog.String("error", err.Error()))
	}

	r.conn = nil
}

func (r *Relay) stop() {
	if r.retry != nil {
		r.retry.Stop()
	}

	if r.drain != nil {
		r.drain.Stop()
	}

	if r.cancelDial != nil {
		r.cancelDial()
	}

	r.closeConn()
}

func errAttr(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}

	return slog.String("error", err.Error())
}
