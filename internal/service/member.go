package service

import (
	"errors"

	"gorm.io/gorm"

	"whiteboard-backend/internal/model"
)

// MemberService 보드 멤버십/권한 관련 비즈니스 로직
type MemberService struct {
	db *gorm.DB
}

// NewMemberService MemberService 생성
func NewMemberService(db *gorm.DB) *MemberService {
	return &MemberService{db: db}
}

// IsBoardOwner 보드 소유자 여부 확인
func (s *MemberService) IsBoardOwner(boardID string, userID int64) bool {
	var ownerID int64
	s.db.Table("boards").Where("id = ?", boardID).Select("owner_id").Scan(&ownerID)
	return ownerID != 0 && ownerID == userID
}

// IsBoardMember 보드 멤버 여부 확인 (소유자 제외)
func (s *MemberService) IsBoardMember(boardID string, userID int64) bool {
	var count int64
	s.db.Model(&model.BoardMember{}).
		Where("board_id = ? AND user_id = ?", boardID, userID).
		Count(&count)
	return count > 0
}

// BoardRole 사용자의 보드 역할 조회 (소유자는 owner, 비멤버는 빈 문자열)
func (s *MemberService) BoardRole(boardID string, userID int64) model.BoardRole {
	if userID == 0 {
		return ""
	}
	if s.IsBoardOwner(boardID, userID) {
		return model.RoleOwner
	}

	var member model.BoardMember
	err := s.db.Select("role").
		Where("board_id = ? AND user_id = ?", boardID, userID).
		First(&member).Error
	if err != nil {
		return ""
	}
	return model.BoardRole(member.Role)
}

// CanView 보드 조회 가능 여부 (공개 보드는 누구나)
func (s *MemberService) CanView(boardID string, userID int64) bool {
	var board model.Board
	err := s.db.Select("is_public", "owner_id").Where("id = ?", boardID).First(&board).Error
	if err != nil {
		return false
	}
	if board.IsPublic {
		return true
	}
	if userID == 0 {
		return false
	}
	return board.OwnerID == userID || s.IsBoardMember(boardID, userID)
}

// CanEdit 요소 변경 가능 여부 (editor 이상)
func (s *MemberService) CanEdit(boardID string, userID int64) bool {
	return s.BoardRole(boardID, userID).CanEdit()
}

// BoardExists 보드 존재 여부 확인
func (s *MemberService) BoardExists(boardID string) (bool, error) {
	var count int64
	err := s.db.Model(&model.Board{}).Where("id = ?", boardID).Count(&count).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	return count > 0, nil
}
