package model

import (
	"time"
)

// User 사용자
type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Nickname     string    `gorm:"type:varchar(100);not null" json:"nickname"`
	PasswordHash *string   `gorm:"type:varchar(255)" json:"-"` // OAuth 전용 계정은 NULL
	ProfileImg   *string   `gorm:"type:text" json:"profile_img,omitempty"`
	Provider     *string   `gorm:"type:varchar(50)" json:"provider,omitempty"`
	ProviderID   *string   `gorm:"type:varchar(255)" json:"provider_id,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	Boards      []Board       `gorm:"foreignKey:OwnerID" json:"boards,omitempty"`
	Memberships []BoardMember `gorm:"foreignKey:UserID" json:"memberships,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// Board 보드 (화이트보드 단위)
type Board struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	Thumbnail *string   `gorm:"type:text" json:"thumbnail,omitempty"`
	IsPublic  bool      `gorm:"default:false" json:"is_public"`
	OwnerID   int64     `gorm:"not null;index" json:"owner_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Owner    User          `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Members  []BoardMember `gorm:"foreignKey:BoardID" json:"members,omitempty"`
	Invites  []BoardInvite `gorm:"foreignKey:BoardID" json:"invites,omitempty"`
	Elements []Element     `gorm:"foreignKey:BoardID" json:"elements,omitempty"`
}

func (Board) TableName() string {
	return "boards"
}

// BoardMember 보드 멤버 (소유자는 멤버 행 없이 boards.owner_id로 취급)
type BoardMember struct {
	ID       int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	BoardID  string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_board_user" json:"board_id"`
	UserID   int64     `gorm:"not null;uniqueIndex:idx_board_user" json:"user_id"`
	Role     string    `gorm:"type:varchar(20);not null;default:'editor'" json:"role"` // viewer, editor, admin
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`

	// Relations
	Board Board `gorm:"foreignKey:BoardID" json:"board,omitempty"`
	User  User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (BoardMember) TableName() string {
	return "board_members"
}

// BoardInvite 보드 초대 (이메일 기준, 수락 전 상태)
type BoardInvite struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	BoardID      string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_board_email" json:"board_id"`
	InvitedEmail string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_board_email" json:"invited_email"`
	InvitedBy    int64     `gorm:"not null" json:"invited_by"`
	Role         string    `gorm:"type:varchar(20);not null;default:'editor'" json:"role"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	Board   Board `gorm:"foreignKey:BoardID" json:"board,omitempty"`
	Inviter User  `gorm:"foreignKey:InvitedBy" json:"inviter,omitempty"`
}

func (BoardInvite) TableName() string {
	return "board_invites"
}

// PinnedBoard 사용자별 보드 고정
type PinnedBoard struct {
	ID       int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID   int64     `gorm:"not null;uniqueIndex:idx_user_board" json:"user_id"`
	BoardID  string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_user_board" json:"board_id"`
	PinnedAt time.Time `gorm:"autoCreateTime" json:"pinned_at"`

	// Relations
	User  User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Board Board `gorm:"foreignKey:BoardID" json:"board,omitempty"`
}

func (PinnedBoard) TableName() string {
	return "pinned_boards"
}

// Element 그리기 요소 (content는 클라이언트가 해석하는 불투명 jsonb)
type Element struct {
	ID        string    `gorm:"type:varchar(64);primaryKey" json:"id"` // 클라이언트 생성 ID
	BoardID   string    `gorm:"type:varchar(36);not null;index:idx_board_zindex" json:"board_id"`
	Type      string    `gorm:"type:varchar(20);not null" json:"type"` // freehand, connector, shape, text, sticky_note, image
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Width     *float64  `json:"width,omitempty"`
	Height    *float64  `json:"height,omitempty"`
	ZIndex    int       `gorm:"default:0;index:idx_board_zindex" json:"z_index"`
	Content   string    `gorm:"type:jsonb;not null" json:"content"` // 점 목록, 색, 텍스트 등
	CreatedBy *int64    `json:"created_by,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Board Board `gorm:"foreignKey:BoardID" json:"board,omitempty"`
}

func (Element) TableName() string {
	return "elements"
}
