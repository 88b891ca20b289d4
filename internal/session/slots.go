// Package session implements the streamer and receiver sides of a
// SoundShare audio session: the accept/fan-out loop, the fixed-capacity
// client slot table, and the connect/validate/drain loop a receiver runs
// against a streamer.
package session

import (
	"net"
	"sync"
	"sync/atomic"
)

// MaxClients is the fixed capacity of a streamer's receiver slot table.
const MaxClients = 16

// clientSlot is one entry in the streamer's fixed-size client table.
type clientSlot struct {
	conn      *net.TCPConn
	ip        string
	connected atomic.Bool
}

// slotTable is the mutex-guarded, fixed-capacity table of connected
// receivers a streamer fans audio out to. Writes to a connected slot's
// socket happen outside the lock; only slot admission and eviction take it
// — the same split the original streaming loop uses so one slow receiver
// blocked on a socket write never stalls admission of new ones.
type slotTable struct {
	mu      sync.Mutex
	slots   [MaxClients]clientSlot
	count   int
}

func newSlotTable() *slotTable {
	return &slotTable{}
}

// add finds a free slot for conn and ip, returning false if the table is
// already full (MaxClients reached).
func (t *slotTable) add(conn *net.TCPConn, ip string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.slots {
		if !t.slots[i].connected.Load() {
			t.slots[i].conn = conn
			t.slots[i].ip = ip
			t.slots[i].connected.Store(true)
			t.count++
			return true
		}
	}
	return false
}

// remove closes and clears slot i if it is currently connected.
func (t *slotTable) remove(i int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.slots[i].connected.Load() {
		t.slots[i].conn.Close()
		t.slots[i].connected.Store(false)
		t.count--
		if t.count < 0 {
			t.count = 0
		}
	}
}

// closeAll closes every connected slot, used when the streamer stops.
func (t *slotTable) closeAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.slots {
		if t.slots[i].connected.Load() {
			t.slots[i].conn.Close()
			t.slots[i].connected.Store(false)
		}
	}
	t.count = 0
}

// connectedCount returns the current number of connected slots.
func (t *slotTable) connectedCount() int32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return int32(t.count)
}

// forEachConnected calls fn for every slot currently marked connected,
// without holding the table lock during the call — fn performs the actual
// network write, which must not block admission of new clients.
func (t *slotTable) forEachConnected(fn func(i int, conn *net.TCPConn)) {
	for i := range t.slots {
		if t.slots[i].connected.Load() {
			fn(i, t.slots[i].conn)
		}
	}
}
