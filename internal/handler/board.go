package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"whiteboard-backend/internal/auth"
	"whiteboard-backend/internal/model"
	"whiteboard-backend/internal/presence"
	"whiteboard-backend/internal/room"
	"whiteboard-backend/internal/service"
)

// BoardHandler 보드 핸들러
type BoardHandler struct {
	db      *gorm.DB
	members *service.MemberService
	hub     *room.Hub
	mirror  *presence.Mirror
}

// NewBoardHandler BoardHandler 생성
func NewBoardHandler(db *gorm.DB, members *service.MemberService, hub *room.Hub, mirror *presence.Mirror) *BoardHandler {
	return &BoardHandler{db: db, members: members, hub: hub, mirror: mirror}
}

// BoardSummary 보드 목록 항목
type BoardSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Thumbnail   *string   `json:"thumbnail,omitempty"`
	IsPublic    bool      `json:"is_public"`
	UpdatedAt   time.Time `json:"updated_at"`
	MemberCount int64     `json:"member_count"` // 소유자 포함
	OwnerName   string    `json:"owner_name,omitempty"`
	IsOwned     bool      `json:"is_owned"`
	IsPinned    bool      `json:"is_pinned"`
}

// BoardListResponse 보드 목록 응답
type BoardListResponse struct {
	Owned  []BoardSummary `json:"owned"`
	Shared []BoardSummary `json:"shared"`
}

// ListBoards 내 보드 목록 (소유 + 공유)
func (h *BoardHandler) ListBoards(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*auth.Claims)

	// 고정된 보드 ID 집합
	var pinnedIDs []string
	h.db.Model(&model.PinnedBoard{}).
		Where("user_id = ?", claims.UserID).
		Pluck("board_id", &pinnedIDs)
	pinnedSet := make(map[string]bool, len(pinnedIDs))
	for _, id := range pinnedIDs {
		pinnedSet[id] = true
	}

	// 소유 보드
	var ownedBoards []model.Board
	if err := h.db.Where("owner_id = ?", claims.UserID).
		Order("updated_at DESC").
		Find(&ownedBoards).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to fetch boards",
		})
	}

	// 공유 보드 (멤버이지만 소유자는 아닌 보드)
	var sharedBoards []model.Board
	if err := h.db.Preload("Owner").
		Joins("JOIN board_members ON board_members.board_id = boards.id").
		Where("board_members.user_id = ? AND boards.owner_id != ?", claims.UserID, claims.UserID).
		Order("boards.updated_at DESC").
		Find(&sharedBoards).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to fetch shared boards",
		})
	}

	resp := BoardListResponse{
		Owned:  make([]BoardSummary, 0, len(ownedBoards)),
		Shared: make([]BoardSummary, 0, len(sharedBoards)),
	}

	for _, b := range ownedBoards {
		resp.Owned = append(resp.Owned, BoardSummary{
			ID:          b.ID,
			Name:        b.Name,
			Thumbnail:   b.Thumbnail,
			IsPublic:    b.IsPublic,
			UpdatedAt:   b.UpdatedAt,
			MemberCount: h.memberCount(b.ID),
			IsOwned:     true,
			IsPinned:    pinnedSet[b.ID],
		})
	}

	for _, b := range sharedBoards {
		ownerName := b.Owner.Nickname
		if ownerName == "" {
			ownerName = b.Owner.Email
		}
		resp.Shared = append(resp.Shared, BoardSummary{
			ID:          b.ID,
			Name:        b.Name,
			Thumbnail:   b.Thumbnail,
			IsPublic:    b.IsPublic,
			UpdatedAt:   b.UpdatedAt,
			MemberCount: h.memberCount(b.ID),
			OwnerName:   ownerName,
			IsOwned:     false,
			IsPinned:    pinnedSet[b.ID],
		})
	}

	return c.JSON(resp)
}

// memberCount 멤버 수 (+1은 소유자)
func (h *BoardHandler) memberCount(boardID string) int64 {
	var count int64
	h.db.Model(&model.BoardMember{}).Where("board_id = ?", boardID).Count(&count)
	return count + 1
}

// CreateBoardRequest 보드 생성 요청
type CreateBoardRequest struct {
	Name     string `json:"name"`
	IsPublic bool   `json:"is_public"`
}

// CreateBoard 보드 생성
func (h *BoardHandler) CreateBoard(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*auth.Claims)

	var req CreateBoardRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	req.Name = sanitizeString(req.Name)
	if req.Name == "" || len(req.Name) > 100 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "name must be between 1 and 100 characters",
		})
	}

	board := model.Board{
		ID:       uuid.NewString(),
		Name:     req.Name,
		IsPublic: req.IsPublic,
		OwnerID:  claims.UserID,
	}
	if err := h.db.Create(&board).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create board",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(board)
}

// GetBoard 보드 단건 조회 (공개 보드는 비로그인도 허용)
func (h *BoardHandler) GetBoard(c *fiber.Ctx) error {
	boardID := c.Params("id")
	userID := currentUserID(c)

	var board model.Board
	if err := h.db.First(&board, "id = ?", boardID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "board not found",
		})
	}

	if !h.members.CanView(boardID, userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "access denied",
		})
	}

	return c.JSON(fiber.Map{
		"id":         board.ID,
		"name":       board.Name,
		"thumbnail":  board.Thumbnail,
		"is_public":  board.IsPublic,
		"owner_id":   board.OwnerID,
		"updated_at": board.UpdatedAt,
		"role":       h.members.BoardRole(boardID, userID).String(),
	})
}

// RenameBoardRequest 보드 이름 변경 요청
type RenameBoardRequest struct {
	Name string `json:"name"`
}

// RenameBoard 보드 이름 변경 (소유자만)
func (h *BoardHandler) RenameBoard(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*auth.Claims)
	boardID := c.Params("id")

	var req RenameBoardRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	req.Name = sanitizeString(req.Name)
	if req.Name == "" || len(req.Name) > 100 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "name must be between 1 and 100 characters",
		})
	}

	var board model.Board
	if err := h.db.First(&board, "id = ?", boardID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "board not found",
		})
	}

	if board.OwnerID != claims.UserID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "only the board owner can rename this board",
		})
	}

	board.Name = req.Name
	if err := h.db.Save(&board).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to rename board",
		})
	}

	return c.JSON(board)
}

// DeleteBoard 보드 삭제 (소유자만)
func (h *BoardHandler) DeleteBoard(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*auth.Claims)
	boardID := c.Params("id")

	var board model.Board
	if err := h.db.First(&board, "id = ?", boardID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "board not found",
		})
	}

	if board.OwnerID != claims.UserID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "only the board owner can delete this board",
		})
	}

	// 종속 레코드부터 제거
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("board_id = ?", boardID).Delete(&model.Element{}).Error; err != nil {
			return err
		}
		if err := tx.Where("board_id = ?", boardID).Delete(&model.BoardMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("board_id = ?", boardID).Delete(&model.BoardInvite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("board_id = ?", boardID).Delete(&model.PinnedBoard{}).Error; err != nil {
			return err
		}
		return tx.Delete(&board).Error
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to delete board",
		})
	}

	// presence 미러 정리 (실패해도 무시)
	h.mirror.ClearBoard(c.Context(), boardID)

	return c.JSON(fiber.Map{"success": true})
}

// LeaveBoard 공유 보드에서 나가기 (멤버만)
func (h *BoardHandler) LeaveBoard(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*auth.Claims)
	boardID := c.Params("id")

	var membership model.BoardMember
	err := h.db.Where("board_id = ? AND user_id = ?", boardID, claims.UserID).
		First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "you are not a member of this board",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "database error",
		})
	}

	if err := h.db.Delete(&membership).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to leave board",
		})
	}

	return c.JSON(fiber.Map{"success": true})
}

// PinBoard 보드 고정 (소유자 또는 멤버)
func (h *BoardHandler) PinBoard(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*auth.Claims)
	boardID := c.Params("id")

	if !h.members.IsBoardOwner(boardID, claims.UserID) && !h.members.IsBoardMember(boardID, claims.UserID) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "board not found",
		})
	}

	// 중복 고정은 무시 (upsert)
	var count int64
	h.db.Model(&model.PinnedBoard{}).
		Where("user_id = ? AND board_id = ?", claims.UserID, boardID).
		Count(&count)
	if count == 0 {
		pin := model.PinnedBoard{UserID: claims.UserID, BoardID: boardID}
		if err := h.db.Create(&pin).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to pin board",
			})
		}
	}

	return c.JSON(fiber.Map{"success": true})
}

// UnpinBoard 보드 고정 해제
func (h *BoardHandler) UnpinBoard(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*auth.Claims)
	boardID := c.Params("id")

	h.db.Where("user_id = ? AND board_id = ?", claims.UserID, boardID).
		Delete(&model.PinnedBoard{})

	return c.JSON(fiber.Map{"success": true})
}

// OnlineUsers 보드의 현재 접속자 목록
//
// 실시간 허브의 인메모리 스냅샷이 우선이고, Redis 미러는 다른 서버
// 인스턴스의 접속자까지 포함한다 (미러 비활성 시 인메모리만).
func (h *BoardHandler) OnlineUsers(c *fiber.Ctx) error {
	boardID := c.Params("id")
	userID := currentUserID(c)

	if !h.members.CanView(boardID, userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "access denied",
		})
	}

	entries, err := h.mirror.Online(c.Context(), boardID)
	if err != nil || len(entries) == 0 {
		// 미러 조회 실패 또는 비활성 시 인메모리 레지스트리로 폴백
		snapshot := h.hub.Registry().Snapshot(boardID)
		users := make([]presence.Entry, 0, len(snapshot))
		for _, p := range snapshot {
			users = append(users, presence.Entry{
				OdID:    p.OdID,
				OdName:  p.OdName,
				OdColor: p.OdColor,
			})
		}
		return c.JSON(fiber.Map{"users": users, "count": len(users)})
	}

	return c.JSON(fiber.Map{"users": entries, "count": len(entries)})
}
