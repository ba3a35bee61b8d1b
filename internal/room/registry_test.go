package room

import (
	"testing"
)

func TestRegistryJoinSnapshot(t *testing.T) {
	t.Run("first joiner gets empty snapshot", func(t *testing.T) {
		r := NewRegistry()

		snapshot := r.Join("board-1", Participant{OdID: "u1", OdName: "Alice"})
		if len(snapshot) != 0 {
			t.Fatalf("expected empty snapshot, got %d participants", len(snapshot))
		}
	})

	t.Run("snapshot never contains the entrant", func(t *testing.T) {
		r := NewRegistry()
		r.Join("board-1", Participant{OdID: "u1", OdName: "Alice"})
		r.Join("board-1", Participant{OdID: "u2", OdName: "Bob"})

		snapshot := r.Join("board-1", Participant{OdID: "u3", OdName: "Carol"})
		if len(snapshot) != 2 {
			t.Fatalf("expected 2 participants in snapshot, got %d", len(snapshot))
		}
		for _, p := range snapshot {
			if p.OdID == "u3" {
				t.Error("snapshot contains the entrant")
			}
		}
	})

	t.Run("rejoin with same identity replaces, not duplicates", func(t *testing.T) {
		r := NewRegistry()
		r.Join("board-1", Participant{OdID: "u1", OdName: "Alice"})

		snapshot := r.Join("board-1", Participant{OdID: "u1", OdName: "Alice 2"})
		if len(snapshot) != 0 {
			t.Fatalf("rejoin snapshot should exclude own identity, got %d", len(snapshot))
		}

		all := r.Snapshot("board-1")
		if len(all) != 1 {
			t.Fatalf("expected 1 participant after rejoin, got %d", len(all))
		}
		if all[0].OdName != "Alice 2" {
			t.Errorf("rejoin should replace participant data, got name %q", all[0].OdName)
		}
	})

	t.Run("boards are isolated", func(t *testing.T) {
		r := NewRegistry()
		r.Join("board-1", Participant{OdID: "u1"})

		snapshot := r.Join("board-2", Participant{OdID: "u2"})
		if len(snapshot) != 0 {
			t.Fatalf("participant from another board leaked into snapshot")
		}
	})
}

func TestRegistryUpdateCursor(t *testing.T) {
	t.Run("updates stored position", func(t *testing.T) {
		r := NewRegistry()
		r.Join("board-1", Participant{OdID: "u1"})

		r.UpdateCursor("board-1", "u1", 120.5, 48)

		all := r.Snapshot("board-1")
		if all[0].X != 120.5 || all[0].Y != 48 {
			t.Errorf("cursor not updated, got (%v, %v)", all[0].X, all[0].Y)
		}
	})

	t.Run("late cursor for absent participant is a no-op", func(t *testing.T) {
		r := NewRegistry()
		r.Join("board-1", Participant{OdID: "u1"})
		r.Leave("board-1", "u1")

		// leave 이후 도착한 커서는 유령을 만들지 않아야 한다
		r.UpdateCursor("board-1", "u1", 10, 10)

		if len(r.Snapshot("board-1")) != 0 {
			t.Error("late cursor update resurrected a departed participant")
		}
	})

	t.Run("cursor for unknown board is a no-op", func(t *testing.T) {
		r := NewRegistry()
		r.UpdateCursor("no-such-board", "u1", 1, 1)

		if r.BoardCount() != 0 {
			t.Error("cursor update created a board entry")
		}
	})
}

func TestRegistryLeave(t *testing.T) {
	t.Run("leave is idempotent", func(t *testing.T) {
		r := NewRegistry()
		r.Join("board-1", Participant{OdID: "u1"})
		r.Join("board-1", Participant{OdID: "u2"})

		r.Leave("board-1", "u1")
		r.Leave("board-1", "u1") // 중복 leave
		r.Leave("board-1", "ghost")

		all := r.Snapshot("board-1")
		if len(all) != 1 || all[0].OdID != "u2" {
			t.Fatalf("expected only u2 to remain, got %+v", all)
		}
	})

	t.Run("empty board entry is dropped", func(t *testing.T) {
		r := NewRegistry()
		r.Join("board-1", Participant{OdID: "u1"})

		if r.BoardCount() != 1 {
			t.Fatalf("expected 1 board, got %d", r.BoardCount())
		}

		r.Leave("board-1", "u1")

		if r.BoardCount() != 0 {
			t.Errorf("empty board entry not garbage collected, %d boards remain", r.BoardCount())
		}
	})

	t.Run("leave on unknown board is a no-op", func(t *testing.T) {
		r := NewRegistry()
		r.Leave("no-such-board", "u1")
	})
}

func TestDisplayColor(t *testing.T) {
	t.Run("deterministic per identity", func(t *testing.T) {
		for _, id := range []string{"u1", "alice@example.com", "42", "한글"} {
			first := DisplayColor(id)
			for i := 0; i < 10; i++ {
				if got := DisplayColor(id); got != first {
					t.Fatalf("color for %q not stable: %s vs %s", id, first, got)
				}
			}
		}
	})

	t.Run("always from the palette", func(t *testing.T) {
		palette := make(map[string]bool, len(cursorPalette))
		for _, c := range cursorPalette {
			palette[c] = true
		}

		for _, id := range []string{"", "a", "user-99999", "아주 긴 식별자 문자열입니다"} {
			if !palette[DisplayColor(id)] {
				t.Errorf("color for %q not in palette", id)
			}
		}
	})
}
