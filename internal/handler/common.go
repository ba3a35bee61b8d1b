package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// UserResponse 사용자 응답
type UserResponse struct {
	ID         int64   `json:"id"`
	Email      string  `json:"email"`
	Nickname   string  `json:"nickname"`
	ProfileImg *string `json:"profile_img,omitempty"`
	Provider   *string `json:"provider,omitempty"`
}

// currentUserID 컨텍스트에서 사용자 ID 추출 (비로그인 시 0)
func currentUserID(c *fiber.Ctx) int64 {
	if val := c.Locals("userID"); val != nil {
		if id, ok := val.(int64); ok {
			return id
		}
	}
	return 0
}

// sanitizeString 문자열 정제 (XSS 방지)
func sanitizeString(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "<", "")
	s = strings.ReplaceAll(s, ">", "")
	return s
}
