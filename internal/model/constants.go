package model

// BoardRole 보드 멤버 역할
type BoardRole string

const (
	RoleViewer BoardRole = "viewer"
	RoleEditor BoardRole = "editor"
	RoleAdmin  BoardRole = "admin"
	RoleOwner  BoardRole = "owner" // 멤버 행이 아닌 boards.owner_id에서 파생
)

// String 메서드
func (r BoardRole) String() string {
	return string(r)
}

// CanEdit 요소 변경 가능 여부 (viewer만 읽기 전용)
func (r BoardRole) CanEdit() bool {
	return r == RoleEditor || r == RoleAdmin || r == RoleOwner
}

// ValidInviteRole 초대에 지정 가능한 역할인지 확인
func ValidInviteRole(role string) bool {
	switch BoardRole(role) {
	case RoleViewer, RoleEditor, RoleAdmin:
		return true
	}
	return false
}

// ElementType 요소 타입
type ElementType string

const (
	ElementFreehand   ElementType = "freehand"
	ElementConnector  ElementType = "connector"
	ElementShape      ElementType = "shape"
	ElementText       ElementType = "text"
	ElementStickyNote ElementType = "sticky_note"
	ElementImage      ElementType = "image"
)

func (e ElementType) String() string {
	return string(e)
}

// ValidElementType 저장 가능한 요소 타입인지 확인
func ValidElementType(t string) bool {
	switch ElementType(t) {
	case ElementFreehand, ElementConnector, ElementShape, ElementText, ElementStickyNote, ElementImage:
		return true
	}
	return false
}
