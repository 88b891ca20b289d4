package chatsvc

import (
	"io"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/AbinavDWH/soundshare/internal/appstate"
	"github.com/AbinavDWH/soundshare/internal/uisink"
	"github.com/AbinavDWH/soundshare/internal/wire"
)

// recordingSink collects every ChatMessage call for assertions, guarded by
// a mutex since it's fed from server goroutines concurrently with the test.
type recordingSink struct {
	uisink.Logging
	mu   sync.Mutex
	msgs []string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{Logging: *uisink.NewLogging(log.New(io.Discard))}
}

func (r *recordingSink) ChatMessage(sender, message string, kind uisink.ChatKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, sender+":"+message+":"+kind.String())
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func connectRawClient(t *testing.T, port int) net.Conn {
	t.Helper()
	var conn net.Conn
	var err error
	for i := 0; i < 50; i++ {
		conn, err = net.Dial("tcp", "127.0.0.1:"+strconv.Itoa(port))
		if err == nil {
			return conn
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("could not connect to chat server: %v", err)
	return nil
}

// TestServerBroadcastExceptReachesOtherClients verifies a chat message sent
// by one connected client is fanned out to every other client but not back
// to the sender, and is published to the local sink exactly once.
func TestServerBroadcastExceptReachesOtherClients(t *testing.T) {
	state := appstate.New()
	state.IsStreaming.Store(true)
	sink := newRecordingSink()

	srv, err := StartServer(state, sink, log.New(io.Discard))
	if err != nil {
		t.Fatalf("StartServer: %v", err)
	}
	defer srv.Stop()

	a := connectRawClient(t, wire.ChatPort)
	defer a.Close()
	b := connectRawClient(t, wire.ChatPort)
	defer b.Close()
	time.Sleep(50 * time.Millisecond) // let both be admitted

	if err := wire.WriteChatMessage(a, "alice", "hi from a"); err != nil {
		t.Fatalf("write chat message: %v", err)
	}

	b.SetReadDeadline(time.Now().Add(2 * time.Second))
	cmd := make([]byte, 1)
	if _, err := io.ReadFull(b, cmd); err != nil {
		t.Fatalf("b did not receive broadcast: %v", err)
	}
	if cmd[0] != wire.CmdChatMessage {
		t.Fatalf("unexpected command byte %v", cmd[0])
	}
	sender, msg, err := wire.ReadChatBody(b)
	if err != nil {
		t.Fatalf("ReadChatBody: %v", err)
	}
	if sender != "alice" || msg != "hi from a" {
		t.Fatalf("got (%q, %q), want (alice, hi from a)", sender, msg)
	}

	// The server publishes to the sink before broadcasting, so by now the
	// message has been recorded.
	sink.mu.Lock()
	published := 0
	for _, m := range sink.msgs {
		if m == "alice:hi from a:received" {
			published++
		}
	}
	sink.mu.Unlock()
	if published != 1 {
		t.Fatalf("local sink got the message %d times, want 1", published)
	}

	a.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, err := io.ReadFull(a, cmd); err == nil {
		t.Fatal("sender should not receive its own broadcast message")
	}
}

func TestServerStopIsIdempotent(t *testing.T) {
	state := appstate.New()
	state.IsStreaming.Store(true)
	sink := newRecordingSink()

	srv, err := StartServer(state, sink, log.New(io.Discard))
	if err != nil {
		t.Fatalf("StartServer: %v", err)
	}

	srv.Stop()
	srv.Stop() // must not panic or double-close already-nil connections
}

func TestClientStopIsIdempotentBeforeConnect(t *testing.T) {
	state := appstate.New()
	state.IsReceiving.Store(true)

	c := &Client{state: state, log: log.New(io.Discard), cancel: func() {}}
	c.Stop()
	c.Stop()
}
