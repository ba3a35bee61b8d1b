package room

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

// 서버 → 클라이언트 이벤트 이름
const (
	EventCurrentUsers = "current-users"
	EventUserJoined   = "user-joined"
	EventCursorUpdate = "cursor-update"
	EventUserLeft     = "user-left"
	EventError        = "error"
)

// elementEvents 인바운드 요소 이벤트 → 아웃바운드 브로드캐스트 이름
var elementEvents = map[string]string{
	"element-add":    "element-added",
	"element-update": "element-updated",
	"element-delete": "element-deleted",
	"elements-sync":  "elements-synced",
}

// ElementEvent maps an inbound element event name to its broadcast name.
func ElementEvent(inbound string) (string, bool) {
	outbound, ok := elementEvents[inbound]
	return outbound, ok
}

// Envelope WebSocket 메시지 봉투
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinedPayload user-joined 브로드캐스트 페이로드
type JoinedPayload struct {
	OdID    string `json:"odId"`
	OdName  string `json:"odName"`
	OdColor string `json:"odColor"`
}

// CursorPayload cursor-update 브로드캐스트 페이로드
type CursorPayload struct {
	OdID    string  `json:"odId"`
	OdName  string  `json:"odName"`
	OdColor string  `json:"odColor"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// LeftPayload user-left 브로드캐스트 페이로드
type LeftPayload struct {
	OdID string `json:"odId"`
}

// ErrorPayload error 유니캐스트 페이로드
type ErrorPayload struct {
	Message string `json:"message"`
}

// Conn is the transport surface the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
}

// State 연결의 참여 상태
type State int

const (
	StateUnjoined State = iota // 보드 미참여
	StateJoined                // 보드 참여 중
	StateClosed                // 연결 종료
)

// String 상태를 문자열로 반환
func (s State) String() string {
	switch s {
	case StateUnjoined:
		return "unjoined"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Client binds one physical connection to at most one (board, identity).
//
// 모든 라이프사이클/이벤트 메서드는 해당 연결의 읽기 루프에서만 호출된다.
// 따라서 한 연결이 보낸 이벤트는 보낸 순서 그대로 처리된다 (FIFO per sender).
type Client struct {
	conn    Conn
	writeMu sync.Mutex // 피어 브로드캐스트와 유니캐스트의 동시 쓰기 방지

	state      State
	boardID    string
	odID       string
	odName     string
	odColor    string
	canEdit    bool
	lastCursor time.Time
}

// NewClient Client 생성
func NewClient(conn Conn) *Client {
	return &Client{conn: conn}
}

// State 현재 참여 상태
func (c *Client) State() State {
	return c.state
}

// BoardID 참여 중인 보드 ID (미참여 시 빈 문자열)
func (c *Client) BoardID() string {
	return c.boardID
}

// OdID 참여 identity
func (c *Client) OdID() string {
	return c.odID
}

// write 단일 연결로 전송. 실패는 로그만 남긴다 — 한 피어의 전송 실패가
// 나머지 피어로의 전파를 중단시키지 않는다.
func (c *Client) write(msg []byte) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		log.Printf("[Hub] Failed to write to client %s: %v", c.odID, err)
	}
}

// Hub routes realtime events between connections joined to the same board.
// 등록/해제와 브로드캐스트는 전부 Hub를 통해서만 일어난다.
type Hub struct {
	mu       sync.RWMutex
	registry *Registry
	boards   map[string]map[*Client]struct{} // boardID -> joined connections

	cursorInterval time.Duration
	now            func() time.Time // 테스트에서 교체
}

// NewHub creates a hub backed by the given presence registry.
func NewHub(registry *Registry, cursorInterval time.Duration) *Hub {
	return &Hub{
		registry:       registry,
		boards:         make(map[string]map[*Client]struct{}),
		cursorInterval: cursorInterval,
		now:            time.Now,
	}
}

// Registry returns the backing presence registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// JoinBoard registers the connection under (board, identity).
//
// 이미 참여 중인 연결의 재-join은 leave 후 join으로 처리한다
// (재접속 플로우는 leave 없이 join을 다시 보낼 수 있음).
// current-users 스냅샷은 Registry 등록 전에 캡처되므로 입장자 자신을
// 절대 포함하지 않는다 — 이 순서는 최적화가 아니라 계약이다.
func (h *Hub) JoinBoard(c *Client, boardID, odID, odName, odColor string, canEdit bool) {
	if boardID == "" || odID == "" {
		h.Unicast(c, EventError, ErrorPayload{Message: "boardId and odId are required"})
		return
	}
	if odName == "" {
		odName = "Anonymous"
	}
	if odColor == "" {
		odColor = DisplayColor(odID)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if c.state == StateJoined {
		h.leaveLocked(c)
	}

	snapshot := h.registry.Join(boardID, Participant{
		OdID:    odID,
		OdName:  odName,
		OdColor: odColor,
	})
	h.unicastLocked(c, EventCurrentUsers, snapshot)

	set, ok := h.boards[boardID]
	if !ok {
		set = make(map[*Client]struct{})
		h.boards[boardID] = set
	}
	set[c] = struct{}{}

	c.state = StateJoined
	c.boardID = boardID
	c.odID = odID
	c.odName = odName
	c.odColor = odColor
	c.canEdit = canEdit

	h.broadcastLocked(boardID, c, EventUserJoined, JoinedPayload{
		OdID:    odID,
		OdName:  odName,
		OdColor: odColor,
	})

	log.Printf("[Hub] %s joined board %s (editable: %v), participants: %d",
		odID, boardID, canEdit, len(set))
}

// LeaveBoard handles an explicit leave-board event. 미참여 연결이면 no-op.
func (h *Hub) LeaveBoard(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c)
}

// Disconnect handles an abrupt transport close. 명시적 leave와 동일한
// 보드 상태 변화를 만든다 — 피어는 crash와 정상 퇴장을 구분할 수 없다.
func (h *Hub) Disconnect(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c)
	c.state = StateClosed
}

// leaveLocked 참여 해제의 공통 경로. h.mu 잠금 하에 호출해야 한다.
func (h *Hub) leaveLocked(c *Client) {
	if c.state != StateJoined {
		return
	}

	boardID, odID := c.boardID, c.odID

	h.registry.Leave(boardID, odID)
	if set, ok := h.boards[boardID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.boards, boardID)
		}
	}

	h.broadcastLocked(boardID, c, EventUserLeft, LeftPayload{OdID: odID})

	c.state = StateUnjoined
	c.boardID = ""
	c.odID = ""
	c.odName = ""
	c.odColor = ""
	c.canEdit = false

	log.Printf("[Hub] %s left board %s", odID, boardID)
}

// CursorMove updates the stored cursor and relays it to the board.
//
// 연결당 최소 전송 간격(cursorInterval)을 밑도는 샘플은 큐잉하지 않고
// 버린다 — 커서 텔레메트리는 손실 허용이고 최신 값이 우선이다.
func (h *Hub) CursorMove(c *Client, x, y float64) {
	if c.state != StateJoined {
		return
	}

	now := h.now()
	if now.Sub(c.lastCursor) < h.cursorInterval {
		return
	}
	c.lastCursor = now

	h.registry.UpdateCursor(c.boardID, c.odID, x, y)

	h.mu.RLock()
	defer h.mu.RUnlock()
	h.broadcastLocked(c.boardID, c, EventCursorUpdate, CursorPayload{
		OdID:    c.odID,
		OdName:  c.odName,
		OdColor: c.odColor,
		X:       x,
		Y:       y,
	})
}

// RelayElement broadcasts an element mutation event to the board,
// sender-exclusive and payload-opaque. 페이로드는 해석하지 않는다.
// viewer 역할로 참여한 연결의 요소 이벤트는 서버에서 차단한다.
func (h *Hub) RelayElement(c *Client, inboundEvent string, data json.RawMessage) {
	outbound, ok := ElementEvent(inboundEvent)
	if !ok || c.state != StateJoined {
		return
	}
	if !c.canEdit {
		log.Printf("[Hub] Dropped %s from read-only participant %s on board %s",
			inboundEvent, c.odID, c.boardID)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	h.broadcastLocked(c.boardID, c, outbound, data)
}

// Unicast sends a single event to one connection only.
func (h *Hub) Unicast(c *Client, event string, data any) {
	h.unicastLocked(c, event, data)
}

// unicastLocked 잠금 보유 여부와 무관하게 안전 (연결 쓰기는 writeMu가 보호)
func (h *Hub) unicastLocked(c *Client, event string, data any) {
	msg, err := marshalEnvelope(event, data)
	if err != nil {
		log.Printf("[Hub] Failed to marshal %s: %v", event, err)
		return
	}
	c.write(msg)
}

// broadcastLocked 보드의 모든 참여 연결에 전송 (sender 제외).
// h.mu 잠금(읽기 또는 쓰기) 하에 호출해야 한다.
func (h *Hub) broadcastLocked(boardID string, exclude *Client, event string, data any) {
	set := h.boards[boardID]
	if len(set) == 0 {
		return
	}

	msg, err := marshalEnvelope(event, data)
	if err != nil {
		log.Printf("[Hub] Failed to marshal %s: %v", event, err)
		return
	}

	for peer := range set {
		if peer == exclude {
			continue
		}
		peer.write(msg)
	}
}

func marshalEnvelope(event string, data any) ([]byte, error) {
	raw, ok := data.(json.RawMessage)
	if !ok {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
