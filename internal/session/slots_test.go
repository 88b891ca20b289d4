package session

import (
	"net"
	"testing"
)

func pipePairTCP(t *testing.T) (*net.TCPConn, *net.TCPConn) {
	t.Helper()
	l, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()

	var server *net.TCPConn
	done := make(chan struct{})
	go func() {
		server, _ = l.AcceptTCP()
		close(done)
	}()

	client, err := net.DialTCP("tcp", nil, l.Addr().(*net.TCPAddr))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	<-done
	return client, server
}

func TestSlotTableAddRemove(t *testing.T) {
	tbl := newSlotTable()
	c1, s1 := pipePairTCP(t)
	defer c1.Close()
	defer s1.Close()

	if !tbl.add(s1, "127.0.0.1") {
		t.Fatal("expected slot to be admitted")
	}
	if got := tbl.connectedCount(); got != 1 {
		t.Fatalf("count = %d, want 1", got)
	}

	tbl.remove(0)
	if got := tbl.connectedCount(); got != 0 {
		t.Fatalf("count after remove = %d, want 0", got)
	}
}

func TestSlotTableCapacity(t *testing.T) {
	tbl := newSlotTable()
	var conns []*net.TCPConn

	for i := 0; i < MaxClients; i++ {
		c, s := pipePairTCP(t)
		conns = append(conns, c, s)
		if !tbl.add(s, "127.0.0.1") {
			t.Fatalf("slot %d: expected admission", i)
		}
	}

	extraClient, extraServer := pipePairTCP(t)
	defer extraClient.Close()
	defer extraServer.Close()
	if tbl.add(extraServer, "127.0.0.1") {
		t.Fatal("expected capacity-exceeded rejection at MaxClients+1")
	}

	for _, c := range conns {
		defer c.Close()
	}
}

func TestSlotTableForEachConnectedSkipsEmpty(t *testing.T) {
	tbl := newSlotTable()
	c1, s1 := pipePairTCP(t)
	defer c1.Close()
	defer s1.Close()
	tbl.add(s1, "127.0.0.1")

	seen := 0
	tbl.forEachConnected(func(i int, conn *net.TCPConn) {
		seen++
	})
	if seen != 1 {
		t.Fatalf("forEachConnected visited %d slots, want 1", seen)
	}
}

func TestSlotTableForEachConnectedIsolatesFailure(t *testing.T) {
	tbl := newSlotTable()

	c1, s1 := pipePairTCP(t)
	defer c1.Close()
	c2, s2 := pipePairTCP(t)
	defer c2.Close()
	defer s2.Close()

	tbl.add(s1, "127.0.0.1")
	tbl.add(s2, "127.0.0.1")

	// Close both ends of the first slot's connection so a write through it fails,
	// then confirm the callback still runs for the second, healthy slot.
	c1.Close()
	s1.Close()

	visited := 0
	var failingIdx int
	tbl.forEachConnected(func(i int, conn *net.TCPConn) {
		if _, err := conn.Write([]byte{0}); err != nil {
			failingIdx = i
			tbl.remove(i)
			return
		}
		visited++
	})

	if visited == 0 {
		t.Fatal("expected the healthy slot to still be visited after the other failed")
	}
	tbl.remove(failingIdx)
	if got := tbl.connectedCount(); got != 1 {
		t.Fatalf("count after removing failed slot = %d, want 1 (the healthy one remains)", got)
	}
}

func TestSlotTableCloseAll(t *testing.T) {
	tbl := newSlotTable()
	c1, s1 := pipePairTCP(t)
	defer c1.Close()
	tbl.add(s1, "127.0.0.1")

	tbl.closeAll()
	if got := tbl.connectedCount(); got != 0 {
		t.Fatalf("count after closeAll = %d, want 0", got)
	}
}
