package ws

import (
	"sync"
	"testing"
)

func newTestConn(h *Hub) *conn {
	c := &conn{send: make(chan []byte, 64), hub: h}
	h.mu.Lock()
	h.allConn[c] = true
	h.mu.Unlock()
	return c
}

func TestSendRoutesByAddress(t *testing.T) {
	h := NewHub()
	c := newTestConn(h)
	h.authenticate(c, "0xABCDEF")

	// Address lookup is case-insensitive.
	if !h.Send("0xabcdef", "match_found", map[string]string{"id": "m1"}) {
		t.Fatal("expected delivery to authenticated conn")
	}
	select {
	case msg := <-c.send:
		if len(msg) == 0 {
			t.Fatal("empty message delivered")
		}
	default:
		t.Fatal("no message queued on conn")
	}

	if h.Send("0xother", "match_found", nil) {
		t.Fatal("expected no delivery for unknown address")
	}
}

func TestSendAfterLogout(t *testing.T) {
	h := NewHub()
	c := newTestConn(h)
	h.authenticate(c, "0xabc")
	h.logout(c)

	if h.Send("0xabc", "match_found", nil) {
		t.Fatal("expected no delivery after logout")
	}
}

func TestSendConcurrentWithRoomChanges(t *testing.T) {
	h := NewHub()
	conns := make([]*conn, 4)
	for i := range conns {
		conns[i] = newTestConn(h)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			h.Send("0xabc", "match_found", i)
			// drain so the buffered channels never block delivery
			for _, c := range conns {
				select {
				case <-c.send:
				default:
				}
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			c := conns[i%len(conns)]
			h.authenticate(c, "0xabc")
			h.logout(c)
		}
	}()
	wg.Wait()
}

func TestRemoveConnLeavesRoom(t *testing.T) {
	h := NewHub()
	c := newTestConn(h)
	h.authenticate(c, "0xabc")
	h.removeConn(c)

	if h.Send("0xabc", "match_found", nil) {
		t.Fatal("expected no delivery to removed conn")
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.rooms) != 0 || len(h.allConn) != 0 {
		t.Fatalf("expected empty hub, got rooms=%d conns=%d", len(h.rooms), len(h.allConn))
	}
}
