package handler

import (
	"context"
	"encoding/json"
	"log"
	"strconv"

	"github.com/gofiber/contrib/websocket"

	"whiteboard-backend/internal/presence"
	"whiteboard-backend/internal/room"
	"whiteboard-backend/internal/service"
)

// BoardWSHandler WebSocket 보드 협업 핸들러.
// 이벤트 해석과 권한 확인만 담당하고 방 상태/전파는 전부 Hub에 위임한다.
type BoardWSHandler struct {
	hub     *room.Hub
	members *service.MemberService
	mirror  *presence.Mirror
}

// NewBoardWSHandler BoardWSHandler 생성
func NewBoardWSHandler(hub *room.Hub, members *service.MemberService, mirror *presence.Mirror) *BoardWSHandler {
	return &BoardWSHandler{hub: hub, members: members, mirror: mirror}
}

// JoinPayload join-board 페이로드
type JoinPayload struct {
	BoardID string `json:"boardId"`
	OdID    string `json:"odId"`
	OdName  string `json:"odName"`
	OdColor string `json:"odColor"`
}

// CursorMovePayload cursor-move 페이로드
type CursorMovePayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// HandleWebSocket WebSocket 연결 처리.
// 한 연결의 모든 이벤트는 이 읽기 루프에서 순서대로 처리된다.
func (h *BoardWSHandler) HandleWebSocket(c *websocket.Conn) {
	// 업그레이드 미들웨어가 넣어둔 인증 정보 (익명이면 0)
	userID := int64(0)
	if val := c.Locals("userID"); val != nil {
		if id, ok := val.(int64); ok {
			userID = id
		}
	}
	nickname := ""
	if val := c.Locals("nickname"); val != nil {
		if n, ok := val.(string); ok {
			nickname = n
		}
	}

	client := room.NewClient(c)

	defer func() {
		boardID, odID := client.BoardID(), client.OdID()
		h.hub.Disconnect(client)
		if boardID != "" {
			h.mirror.Remove(context.Background(), boardID, odID)
		}
		c.Close()
	}()

	for {
		_, msgBytes, err := c.ReadMessage()
		if err != nil {
			break
		}

		var env room.Envelope
		if err := json.Unmarshal(msgBytes, &env); err != nil {
			continue
		}

		switch env.Event {
		case "join-board":
			h.handleJoin(client, userID, nickname, env.Data)

		case "cursor-move":
			var p CursorMovePayload
			if err := json.Unmarshal(env.Data, &p); err != nil {
				continue
			}
			h.hub.CursorMove(client, p.X, p.Y)

		case "leave-board":
			boardID, odID := client.BoardID(), client.OdID()
			h.hub.LeaveBoard(client)
			if boardID != "" {
				h.mirror.Remove(context.Background(), boardID, odID)
			}

		case "element-add", "element-update", "element-delete", "elements-sync":
			h.hub.RelayElement(client, env.Event, env.Data)
		}
	}
}

// handleJoin join-board 이벤트 처리: 권한 확인 후 허브에 등록
func (h *BoardWSHandler) handleJoin(client *room.Client, userID int64, nickname string, data json.RawMessage) {
	var p JoinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.BoardID == "" {
		h.hub.Unicast(client, room.EventError, room.ErrorPayload{
			Message: "boardId and odId are required",
		})
		return
	}

	// 로그인 사용자는 서버가 identity를 확정한다 (클라이언트 값 불신)
	odID, odName := p.OdID, p.OdName
	if userID != 0 {
		odID = strconv.FormatInt(userID, 10)
		if nickname != "" {
			odName = nickname
		}
	}

	if !h.members.CanView(p.BoardID, userID) {
		log.Printf("[BoardWS] Join refused for %s on board %s", odID, p.BoardID)
		h.hub.Unicast(client, room.EventError, room.ErrorPayload{
			Message: "access denied",
		})
		return
	}

	// 익명 방문자와 viewer는 요소 이벤트를 보낼 수 없다
	canEdit := false
	if userID != 0 {
		canEdit = h.members.CanEdit(p.BoardID, userID)
	}

	if odName == "" {
		odName = "Anonymous"
	}
	odColor := p.OdColor
	if odColor == "" {
		odColor = room.DisplayColor(odID)
	}

	prevBoard, prevOd := client.BoardID(), client.OdID()

	h.hub.JoinBoard(client, p.BoardID, odID, odName, odColor, canEdit)

	if client.State() != room.StateJoined {
		return
	}

	ctx := context.Background()
	if prevBoard != "" && prevBoard != p.BoardID {
		h.mirror.Remove(ctx, prevBoard, prevOd)
	}
	h.mirror.Add(ctx, p.BoardID, presence.Entry{
		OdID:    odID,
		OdName:  odName,
		OdColor: odColor,
	})
}
