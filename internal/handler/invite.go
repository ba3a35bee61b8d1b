package handler

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"whiteboard-backend/internal/auth"
	"whiteboard-backend/internal/model"
	"whiteboard-backend/internal/service"
)

// InviteHandler 보드 초대/멤버 관리 핸들러
type InviteHandler struct {
	db      *gorm.DB
	members *service.MemberService
}

// NewInviteHandler InviteHandler 생성
func NewInviteHandler(db *gorm.DB, members *service.MemberService) *InviteHandler {
	return &InviteHandler{db: db, members: members}
}

// InviteRequest 초대 요청
type InviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// InviteMember 이메일로 보드 초대 (소유자만)
func (h *InviteHandler) InviteMember(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*auth.Claims)
	boardID := c.Params("id")

	var req InviteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "valid email is required",
		})
	}
	if req.Role == "" {
		req.Role = model.RoleEditor.String()
	}
	if !model.ValidInviteRole(req.Role) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "role must be viewer, editor or admin",
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
			"error": "only the board owner can invite people",
		})
	}

	// 자기 자신은 초대 불가
	if req.Email == strings.ToLower(claims.Email) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "you can't invite yourself",
		})
	}

	// 이미 멤버인 사용자는 초대 불가
	var existingUser model.User
	err := h.db.Where("email = ?", req.Email).First(&existingUser).Error
	if err == nil && h.members.IsBoardMember(boardID, existingUser.ID) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "this user is already a member of this board",
		})
	}

	// 기존 초대가 있으면 역할/초대자만 갱신 (upsert)
	var invite model.BoardInvite
	err = h.db.Where("board_id = ? AND invited_email = ?", boardID, req.Email).
		First(&invite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		invite = model.BoardInvite{
			ID:           uuid.NewString(),
			BoardID:      boardID,
			InvitedEmail: req.Email,
			InvitedBy:    claims.UserID,
			Role:         req.Role,
		}
		if err := h.db.Create(&invite).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to create invite",
			})
		}
	} else if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "database error",
		})
	} else {
		invite.Role = req.Role
		invite.InvitedBy = claims.UserID
		if err := h.db.Save(&invite).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to update invite",
			})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(invite)
}

// PendingInviteResponse 내 대기 초대 항목
type PendingInviteResponse struct {
	ID        string    `json:"id"`
	BoardID   string    `json:"board_id"`
	BoardName string    `json:"board_name"`
	OwnerName string    `json:"owner_name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// PendingInvites 현재 사용자의 대기 중인 초대 목록
func (h *InviteHandler) PendingInvites(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*auth.Claims)

	var invites []model.BoardInvite
	if err := h.db.Preload("Board").Preload("Board.Owner").
		Where("invited_email = ?", strings.ToLower(claims.Email)).
		Order("created_at DESC").
		Find(&invites).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to fetch invites",
		})
	}

	resp := make([]PendingInviteResponse, 0, len(invites))
	for _, inv := range invites {
		ownerName := inv.Board.Owner.Nickname
		if ownerName == "" {
			ownerName = inv.Board.Owner.Email
		}
		resp = append(resp, PendingInviteResponse{
			ID:        inv.ID,
			BoardID:   inv.BoardID,
			BoardName: inv.Board.Name,
			OwnerName: ownerName,
			Role:      inv.Role,
			CreatedAt: inv.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{"invites": resp})
}

// loadInviteForInvitee 초대 조회 + 수신자 본인 확인
func (h *InviteHandler) loadInviteForInvitee(c *fiber.Ctx, claims *auth.Claims) (*model.BoardInvite, error) {
	inviteID := c.Params("inviteId")

	var invite model.BoardInvite
	if err := h.db.First(&invite, "id = ?", inviteID).Error; err != nil {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "invite not found",
		})
	}

	if !strings.EqualFold(invite.InvitedEmail, claims.Email) {
		return nil, c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "this invite is not for you",
		})
	}

	return &invite, nil
}

// AcceptInvite 초대 수락 (수신자만)
func (h *InviteHandler) AcceptInvite(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*auth.Claims)

	invite, err := h.loadInviteForInvitee(c, claims)
	if invite == nil {
		return err
	}

	// 멤버 추가와 초대 삭제는 한 트랜잭션으로
	txErr := h.db.Transaction(func(tx *gorm.DB) error {
		member := model.BoardMember{
			BoardID: invite.BoardID,
			UserID:  claims.UserID,
			Role:    invite.Role,
		}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}
		return tx.Delete(invite).Error
	})
	if txErr != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to accept invite",
		})
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"board_id": invite.BoardID,
	})
}

// DeclineInvite 초대 거절 (수신자만)
func (h *InviteHandler) DeclineInvite(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*auth.Claims)

	invite, err := h.loadInviteForInvitee(c, claims)
	if invite == nil {
		return err
	}

	if err := h.db.Delete(invite).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to decline invite",
		})
	}

	return c.JSON(fiber.Map{"success": true})
}

// CancelInvite 대기 초대 취소 (보드 소유자만)
func (h *InviteHandler) CancelInvite(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*auth.Claims)
	inviteID := c.Params("inviteId")

	var invite model.BoardInvite
	if err := h.db.First(&invite, "id = ?", inviteID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "invite not found",
		})
	}

	if !h.members.IsBoardOwner(invite.BoardID, claims.UserID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "only the board owner can cancel invites",
		})
	}

	if err := h.db.Delete(&invite).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to cancel invite",
		})
	}

	return c.JSON(fiber.Map{"success": true})
}

// MemberResponse 보드 멤버 항목
type MemberResponse struct {
	ID         int64      `json:"id"`
	Nickname   string     `json:"nickname"`
	Email      string     `json:"email"`
	ProfileImg *string    `json:"profile_img,omitempty"`
	Role       string     `json:"role"`
	JoinedAt   *time.Time `json:"joined_at,omitempty"`
}

// BoardMembersResponse 보드 멤버 목록 응답
type BoardMembersResponse struct {
	Owner          MemberResponse          `json:"owner"`
	Members        []MemberResponse        `json:"members"`
	PendingInvites []PendingInviteListItem `json:"pending_invites"`
}

// PendingInviteListItem 보드 관리 화면용 대기 초대 항목
type PendingInviteListItem struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// GetBoardMembers 보드 멤버 및 대기 초대 목록 (소유자만)
func (h *InviteHandler) GetBoardMembers(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*auth.Claims)
	boardID := c.Params("id")

	var board model.Board
	if err := h.db.Preload("Owner").First(&board, "id = ?", boardID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "board not found",
		})
	}

	if board.OwnerID != claims.UserID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "only the board owner can view members",
		})
	}

	var members []model.BoardMember
	if err := h.db.Preload("User").
		Where("board_id = ?", boardID).
		Order("joined_at ASC").
		Find(&members).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to fetch members",
		})
	}

	var invites []model.BoardInvite
	if err := h.db.Where("board_id = ?", boardID).
		Order("created_at DESC").
		Find(&invites).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to fetch invites",
		})
	}

	resp := BoardMembersResponse{
		Owner: MemberResponse{
			ID:         board.Owner.ID,
			Nickname:   board.Owner.Nickname,
			Email:      board.Owner.Email,
			ProfileImg: board.Owner.ProfileImg,
			Role:       model.RoleOwner.String(),
		},
		Members:        make([]MemberResponse, 0, len(members)),
		PendingInvites: make([]PendingInviteListItem, 0, len(invites)),
	}

	for _, m := range members {
		joinedAt := m.JoinedAt
		resp.Members = append(resp.Members, MemberResponse{
			ID:         m.User.ID,
			Nickname:   m.User.Nickname,
			Email:      m.User.Email,
			ProfileImg: m.User.ProfileImg,
			Role:       m.Role,
			JoinedAt:   &joinedAt,
		})
	}

	for _, inv := range invites {
		resp.PendingInvites = append(resp.PendingInvites, PendingInviteListItem{
			ID:        inv.ID,
			Email:     inv.InvitedEmail,
			Role:      inv.Role,
			CreatedAt: inv.CreatedAt,
		})
	}

	return c.JSON(resp)
}

// RemoveMember 보드 멤버 제거 (소유자만, 소유자 자신은 불가)
func (h *InviteHandler) RemoveMember(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*auth.Claims)
	boardID := c.Params("id")

	targetID, err := strconv.ParseInt(c.Params("userId"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid user id",
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
			"error": "only the board owner can remove members",
		})
	}

	if targetID == board.OwnerID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "cannot remove the board owner",
		})
	}

	if err := h.db.Where("board_id = ? AND user_id = ?", boardID, targetID).
		Delete(&model.BoardMember{}).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to remove member",
		})
	}

	return c.JSON(fiber.Map{"success": true})
}

// UpdateMemberRoleRequest 멤버 역할 변경 요청
type UpdateMemberRoleRequest struct {
	Role string `json:"role"`
}

// UpdateMemberRole 멤버 역할 변경 (소유자만)
func (h *InviteHandler) UpdateMemberRole(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*auth.Claims)
	boardID := c.Params("id")

	targetID, err := strconv.ParseInt(c.Params("userId"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid user id",
		})
	}

	var req UpdateMemberRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if !model.ValidInviteRole(req.Role) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "role must be viewer, editor or admin",
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
			"error": "only the board owner can update member roles",
		})
	}

	if targetID == board.OwnerID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "cannot change the owner's role",
		})
	}

	result := h.db.Model(&model.BoardMember{}).
		Where("board_id = ? AND user_id = ?", boardID, targetID).
		Update("role", req.Role)
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to update role",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "member not found",
		})
	}

	return c.JSON(fiber.Map{"success": true})
}
