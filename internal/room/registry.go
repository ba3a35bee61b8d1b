package room

import (
	"sync"
)

// Registry tracks which participants are present on each board.
//
// 보드별 participant 맵은 이 네 가지 연산을 통해서만 변경된다.
// 모든 연산은 반복 호출에 안전하다 (중복 leave, join 없는 leave 등).
type Registry struct {
	mu     sync.RWMutex
	boards map[string]map[string]*Participant // boardID -> odID -> participant
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		boards: make(map[string]map[string]*Participant),
	}
}

// Join inserts or replaces the participant under (board, identity) and
// returns a snapshot of everyone already present, excluding the entrant.
// The snapshot is captured before the insert so a joiner never sees itself.
func (r *Registry) Join(boardID string, p Participant) []Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, ok := r.boards[boardID]
	if !ok {
		users = make(map[string]*Participant)
		r.boards[boardID] = users
	}

	snapshot := make([]Participant, 0, len(users))
	for odID, existing := range users {
		if odID == p.OdID {
			continue // 같은 identity의 재입장은 교체이지 중복이 아님
		}
		snapshot = append(snapshot, *existing)
	}

	entrant := p
	users[p.OdID] = &entrant

	return snapshot
}

// UpdateCursor overwrites the stored cursor position. Late telemetry for a
// participant who already left is silently dropped.
func (r *Registry) UpdateCursor(boardID, odID string, x, y float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, ok := r.boards[boardID]
	if !ok {
		return
	}
	p, ok := users[odID]
	if !ok {
		return
	}
	p.X = x
	p.Y = y
}

// Leave removes the participant. When the board becomes empty the board
// entry itself is dropped so repeated join/leave cycles do not grow memory.
func (r *Registry) Leave(boardID, odID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, ok := r.boards[boardID]
	if !ok {
		return
	}
	delete(users, odID)
	if len(users) == 0 {
		delete(r.boards, boardID)
	}
}

// Snapshot returns all current participants of the board.
func (r *Registry) Snapshot(boardID string) []Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := r.boards[boardID]
	snapshot := make([]Participant, 0, len(users))
	for _, p := range users {
		snapshot = append(snapshot, *p)
	}
	return snapshot
}

// BoardCount returns the number of boards with at least one participant.
func (r *Registry) BoardCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.boards)
}
