package room

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeConn records every frame the hub writes to it.
type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	fail   bool
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("write failed")
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	f.frames = append(f.frames, buf)
	return nil
}

func (f *fakeConn) envelopes(t *testing.T) []Envelope {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Envelope, 0, len(f.frames))
	for _, frame := range f.frames {
		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			t.Fatalf("invalid frame %s: %v", frame, err)
		}
		out = append(out, env)
	}
	return out
}

func (f *fakeConn) events(t *testing.T) []string {
	t.Helper()
	envs := f.envelopes(t)
	names := make([]string, len(envs))
	for i, env := range envs {
		names[i] = env.Event
	}
	return names
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = nil
}

func newTestHub() *Hub {
	return NewHub(NewRegistry(), 33*time.Millisecond)
}

func join(h *Hub, conn *fakeConn, boardID, odID string) *Client {
	c := NewClient(conn)
	h.JoinBoard(c, boardID, odID, "User "+odID, "", true)
	return c
}

func TestJoinBoard(t *testing.T) {
	t.Run("joiner receives current-users without itself", func(t *testing.T) {
		h := newTestHub()
		join(h, &fakeConn{}, "board-1", "u1")
		join(h, &fakeConn{}, "board-1", "u2")

		conn := &fakeConn{}
		join(h, conn, "board-1", "u3")

		envs := conn.envelopes(t)
		if len(envs) == 0 || envs[0].Event != EventCurrentUsers {
			t.Fatalf("first frame must be current-users, got %v", conn.events(t))
		}

		var snapshot []Participant
		if err := json.Unmarshal(envs[0].Data, &snapshot); err != nil {
			t.Fatalf("bad snapshot payload: %v", err)
		}
		if len(snapshot) != 2 {
			t.Fatalf("expected 2 users in snapshot, got %d", len(snapshot))
		}
		for _, p := range snapshot {
			if p.OdID == "u3" {
				t.Error("snapshot contains the joiner")
			}
		}
	})

	t.Run("peers get user-joined, sender does not", func(t *testing.T) {
		h := newTestHub()
		peer := &fakeConn{}
		join(h, peer, "board-1", "u1")

		sender := &fakeConn{}
		join(h, sender, "board-1", "u2")

		peerEvents := peer.events(t)
		if len(peerEvents) != 2 || peerEvents[1] != EventUserJoined {
			t.Fatalf("peer should see user-joined, got %v", peerEvents)
		}

		for _, e := range sender.events(t) {
			if e == EventUserJoined {
				t.Error("join was echoed back to the sender")
			}
		}
	})

	t.Run("malformed join gets error ack and stays unjoined", func(t *testing.T) {
		h := newTestHub()
		conn := &fakeConn{}
		c := NewClient(conn)

		h.JoinBoard(c, "", "u1", "Alice", "", true)

		events := conn.events(t)
		if len(events) != 1 || events[0] != EventError {
			t.Fatalf("expected error ack, got %v", events)
		}
		if c.State() != StateUnjoined {
			t.Errorf("client state = %v, want unjoined", c.State())
		}
	})

	t.Run("join while joined leaves the previous board first", func(t *testing.T) {
		h := newTestHub()
		oldPeer := &fakeConn{}
		join(h, oldPeer, "board-1", "u1")

		conn := &fakeConn{}
		c := join(h, conn, "board-1", "u2")
		oldPeer.reset()

		h.JoinBoard(c, "board-2", "u2", "User u2", "", true)

		events := oldPeer.events(t)
		if len(events) != 1 || events[0] != EventUserLeft {
			t.Fatalf("previous board should see user-left, got %v", events)
		}
		if c.BoardID() != "board-2" {
			t.Errorf("client board = %q, want board-2", c.BoardID())
		}
		if got := len(h.registry.Snapshot("board-1")); got != 1 {
			t.Errorf("board-1 should only have u1 left, got %d participants", got)
		}
	})
}

func TestLeaveAndDisconnect(t *testing.T) {
	t.Run("leave broadcasts user-left to peers only", func(t *testing.T) {
		h := newTestHub()
		peer := &fakeConn{}
		join(h, peer, "board-1", "u1")

		conn := &fakeConn{}
		c := join(h, conn, "board-1", "u2")
		peer.reset()
		conn.reset()

		h.LeaveBoard(c)

		if events := peer.events(t); len(events) != 1 || events[0] != EventUserLeft {
			t.Fatalf("peer should see user-left, got %v", events)
		}
		if events := conn.events(t); len(events) != 0 {
			t.Errorf("leave was echoed back to the leaver: %v", events)
		}
	})

	t.Run("leave is idempotent", func(t *testing.T) {
		h := newTestHub()
		peer := &fakeConn{}
		join(h, peer, "board-1", "u1")
		c := join(h, &fakeConn{}, "board-1", "u2")
		peer.reset()

		h.LeaveBoard(c)
		h.LeaveBoard(c) // 중복 leave
		h.Disconnect(c)

		if events := peer.events(t); len(events) != 1 {
			t.Fatalf("repeated leave produced extra broadcasts: %v", events)
		}
	})

	t.Run("disconnect has the same board effect as leave", func(t *testing.T) {
		h := newTestHub()
		peer := &fakeConn{}
		join(h, peer, "board-1", "u1")
		c := join(h, &fakeConn{}, "board-1", "u2")
		peer.reset()

		h.Disconnect(c)

		events := peer.events(t)
		if len(events) != 1 || events[0] != EventUserLeft {
			t.Fatalf("peers cannot distinguish disconnect from leave, got %v", events)
		}
		if c.State() != StateClosed {
			t.Errorf("client state = %v, want closed", c.State())
		}
		if got := len(h.registry.Snapshot("board-1")); got != 1 {
			t.Errorf("registry should drop disconnected participant, %d remain", got)
		}
	})

	t.Run("last leave drops the room", func(t *testing.T) {
		h := newTestHub()
		c1 := join(h, &fakeConn{}, "board-1", "u1")
		c2 := join(h, &fakeConn{}, "board-1", "u2")

		h.LeaveBoard(c1)
		h.Disconnect(c2)

		if len(h.boards) != 0 {
			t.Errorf("hub kept %d empty room(s)", len(h.boards))
		}
		if h.registry.BoardCount() != 0 {
			t.Errorf("registry kept %d empty board(s)", h.registry.BoardCount())
		}
	})
}

func TestCursorMove(t *testing.T) {
	t.Run("forwarded to peers, not the sender", func(t *testing.T) {
		h := newTestHub()
		peer := &fakeConn{}
		join(h, peer, "board-1", "u1")
		conn := &fakeConn{}
		c := join(h, conn, "board-1", "u2")
		peer.reset()
		conn.reset()

		h.CursorMove(c, 100, 200)

		envs := peer.envelopes(t)
		if len(envs) != 1 || envs[0].Event != EventCursorUpdate {
			t.Fatalf("peer should see cursor-update, got %v", peer.events(t))
		}

		var p CursorPayload
		if err := json.Unmarshal(envs[0].Data, &p); err != nil {
			t.Fatalf("bad cursor payload: %v", err)
		}
		if p.OdID != "u2" || p.X != 100 || p.Y != 200 {
			t.Errorf("unexpected cursor payload: %+v", p)
		}

		if events := conn.events(t); len(events) != 0 {
			t.Errorf("cursor echoed back to sender: %v", events)
		}
	})

	t.Run("samples under the interval are dropped", func(t *testing.T) {
		h := newTestHub()
		now := time.Unix(1000, 0)
		h.now = func() time.Time { return now }

		peer := &fakeConn{}
		join(h, peer, "board-1", "u1")
		c := join(h, &fakeConn{}, "board-1", "u2")
		peer.reset()

		h.CursorMove(c, 1, 1) // 첫 샘플은 통과
		now = now.Add(10 * time.Millisecond)
		h.CursorMove(c, 2, 2) // 간격 미달, 버림
		now = now.Add(10 * time.Millisecond)
		h.CursorMove(c, 3, 3) // 여전히 미달
		now = now.Add(20 * time.Millisecond)
		h.CursorMove(c, 4, 4) // 마지막 전송 후 40ms, 통과

		envs := peer.envelopes(t)
		if len(envs) != 2 {
			t.Fatalf("expected 2 forwarded samples, got %d (%v)", len(envs), peer.events(t))
		}

		var last CursorPayload
		if err := json.Unmarshal(envs[1].Data, &last); err != nil {
			t.Fatal(err)
		}
		if last.X != 4 {
			t.Errorf("second forwarded sample should be the latest, got x=%v", last.X)
		}
	})

	t.Run("per-connection limit is independent", func(t *testing.T) {
		h := newTestHub()
		now := time.Unix(1000, 0)
		h.now = func() time.Time { return now }

		peer := &fakeConn{}
		join(h, peer, "board-1", "u0")
		c1 := join(h, &fakeConn{}, "board-1", "u1")
		c2 := join(h, &fakeConn{}, "board-1", "u2")
		peer.reset()

		// 같은 시각에 서로 다른 연결이 보낸 샘플은 둘 다 통과해야 한다
		h.CursorMove(c1, 1, 1)
		h.CursorMove(c2, 2, 2)

		if envs := peer.envelopes(t); len(envs) != 2 {
			t.Fatalf("expected both connections' samples, got %d", len(envs))
		}
	})

	t.Run("unjoined connection is ignored", func(t *testing.T) {
		h := newTestHub()
		c := NewClient(&fakeConn{})
		h.CursorMove(c, 1, 1)
	})
}

func TestElementRelay(t *testing.T) {
	payload := json.RawMessage(`{"element":{"id":"el-1","type":"rectangle"}}`)

	t.Run("relayed sender-exclusive with renamed event", func(t *testing.T) {
		h := newTestHub()
		peer := &fakeConn{}
		join(h, peer, "board-1", "u1")
		conn := &fakeConn{}
		c := join(h, conn, "board-1", "u2")
		peer.reset()
		conn.reset()

		h.RelayElement(c, "element-add", payload)

		envs := peer.envelopes(t)
		if len(envs) != 1 || envs[0].Event != "element-added" {
			t.Fatalf("expected element-added, got %v", peer.events(t))
		}
		if string(envs[0].Data) != string(payload) {
			t.Errorf("payload was not passed through opaquely: %s", envs[0].Data)
		}

		if events := conn.events(t); len(events) != 0 {
			t.Errorf("element event echoed back to sender: %v", events)
		}
	})

	t.Run("all four element events map to broadcast names", func(t *testing.T) {
		pairs := map[string]string{
			"element-add":    "element-added",
			"element-update": "element-updated",
			"element-delete": "element-deleted",
			"elements-sync":  "elements-synced",
		}
		for inbound, want := range pairs {
			got, ok := ElementEvent(inbound)
			if !ok || got != want {
				t.Errorf("ElementEvent(%q) = %q, %v; want %q", inbound, got, ok, want)
			}
		}
		if _, ok := ElementEvent("cursor-move"); ok {
			t.Error("non-element event mapped to a broadcast name")
		}
	})

	t.Run("read-only participant is suppressed", func(t *testing.T) {
		h := newTestHub()
		peer := &fakeConn{}
		join(h, peer, "board-1", "u1")

		viewer := NewClient(&fakeConn{})
		h.JoinBoard(viewer, "board-1", "u2", "Viewer", "", false)
		peer.reset()

		h.RelayElement(viewer, "element-add", payload)
		h.RelayElement(viewer, "elements-sync", payload)

		if events := peer.events(t); len(events) != 0 {
			t.Errorf("viewer element events were relayed: %v", events)
		}
	})

	t.Run("unknown event is ignored", func(t *testing.T) {
		h := newTestHub()
		peer := &fakeConn{}
		join(h, peer, "board-1", "u1")
		c := join(h, &fakeConn{}, "board-1", "u2")
		peer.reset()

		h.RelayElement(c, "element-explode", payload)

		if events := peer.events(t); len(events) != 0 {
			t.Errorf("unknown event relayed: %v", events)
		}
	})
}

func TestBroadcastBestEffort(t *testing.T) {
	h := newTestHub()
	healthy1 := &fakeConn{}
	join(h, healthy1, "board-1", "u1")
	broken := &fakeConn{fail: true}
	join(h, broken, "board-1", "u2")
	healthy2 := &fakeConn{}
	join(h, healthy2, "board-1", "u3")

	sender := join(h, &fakeConn{}, "board-1", "u4")
	healthy1.reset()
	healthy2.reset()

	h.CursorMove(sender, 5, 5)

	// 한 연결의 전송 실패가 나머지 팬아웃을 중단시키면 안 된다
	for i, conn := range []*fakeConn{healthy1, healthy2} {
		if events := conn.events(t); len(events) != 1 || events[0] != EventCursorUpdate {
			t.Errorf("healthy conn %d missed the broadcast: %v", i+1, events)
		}
	}
}

func TestSenderOrderPreserved(t *testing.T) {
	h := newTestHub()
	now := time.Unix(1000, 0)
	h.now = func() time.Time { return now }

	peer := &fakeConn{}
	join(h, peer, "board-1", "u1")
	c := join(h, &fakeConn{}, "board-1", "u2")
	peer.reset()

	// 한 연결의 읽기 루프가 순서대로 호출하는 시나리오
	h.RelayElement(c, "element-add", json.RawMessage(`{"seq":1}`))
	now = now.Add(50 * time.Millisecond)
	h.CursorMove(c, 1, 1)
	h.RelayElement(c, "element-update", json.RawMessage(`{"seq":2}`))
	h.RelayElement(c, "element-delete", json.RawMessage(`{"seq":3}`))

	want := []string{"element-added", EventCursorUpdate, "element-updated", "element-deleted"}
	got := peer.events(t)
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event order broken: got %v, want %v", got, want)
		}
	}
}
