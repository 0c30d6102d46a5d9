//go:build unix

package relay_test

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/keeweb/keeweb-native-messaging-host/internal/pipe"
	"github.com/keeweb/keeweb-native-messaging-host/internal/relay"
	"github.com/keeweb/keeweb-native-messaging-host/internal/testutil"
)

// echoCompanion accepts one connection, checks the handshake, and echoes
// everything after it.
func echoCompanion(listener net.Listener, origins chan<- string) {
	conn, err := listener.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	var size uint32
	if err := binary.Read(conn, binary.LittleEndian, &size); err != nil {
		return
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(conn, body); err != nil {
		return
	}

	var hello struct {
		Origin string `json:"origin"`
	}
	if err := json.Unmarshal(body, &hello); err == nil {
		origins <- hello.Origin
	}

	_, _ = io.Copy(conn, conn)
}

func TestRelay_EchoOverUnixSocket(t *testing.T) {
	socketPath := filepath.Join(testutil.SocketDir(t), "browser.sock")

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	origins := make(chan string, 1)

	go echoCompanion(listener, origins)

	stdinR, stdinW := io.Pipe()
	stdoutR, stdoutW := io.Pipe()

	const origin = "chrome-extension://enjifmdnhaddmajefhfaoglcfdobkcpj/"

	r, err := relay.New(relay.Options{
		Origin:   origin,
		Front:    relay.Duplex{In: stdinR, Out: stdoutW},
		Resolver: pipe.NewResolver(pipe.Options{Override: socketPath}),
		Dialer: relay.DialerFunc(func(ctx context.Context, address string) (io.ReadWriteCloser, error) {
			return pipe.Dial(ctx, address)
		}),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	errc := make(chan error, 1)

	go func() { errc <- r.Run(context.Background()) }()

	if got := testutil.Receive(t, origins, 5*time.Second, "handshake"); got != origin {
		t.Fatalf("handshake origin = %q, want %q", got, origin)
	}

	message := []byte("\x11\x00\x00\x00{\"action\":\"ping\"}")

	go func() { _, _ = stdinW.Write(message) }()

	echoed := make([]byte, len(message))
	if _, err := io.ReadFull(stdoutR, echoed); err != nil {
		t.Fatalf("reading stdout: %v", err)
	}

	if string(echoed) != string(message) {
		t.Fatalf("stdout = %q, want %q", echoed, message)
	}

	stdinW.Close()

	if err := testutil.Receive(t, errc, 5*time.Second, "relay exit"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}
