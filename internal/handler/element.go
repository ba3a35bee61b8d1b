package handler

import (
	"encoding/json"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"whiteboard-backend/internal/model"
	"whiteboard-backend/internal/service"
)

// ElementHandler persists board elements. The realtime hub relays element
// events without touching the DB; clients checkpoint through these endpoints.
type ElementHandler struct {
	db      *gorm.DB
	members *service.MemberService
}

func NewElementHandler(db *gorm.DB, members *service.MemberService) *ElementHandler {
	return &ElementHandler{db: db, members: members}
}

// ElementPayload is the client representation of one element. Content is
// opaque to the server (points, colors, text) and stored as jsonb.
type ElementPayload struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	X       float64         `json:"x"`
	Y       float64         `json:"y"`
	Width   *float64        `json:"width,omitempty"`
	Height  *float64        `json:"height,omitempty"`
	Content json.RawMessage `json:"content"`
}

// ListElements returns all elements of a board ordered by z_index.
// Public boards are readable by anyone, private ones need owner/membership.
func (h *ElementHandler) ListElements(c *fiber.Ctx) error {
	boardID := c.Params("id")
	userID := currentUserID(c)

	exists, err := h.members.BoardExists(boardID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}
	if !exists {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "board not found"})
	}

	if !h.members.CanView(boardID, userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "access denied"})
	}

	var elements []model.Element
	if err := h.db.Where("board_id = ?", boardID).
		Order("z_index ASC").
		Find(&elements).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch elements"})
	}

	return c.JSON(fiber.Map{"elements": elements})
}

// CreateElement stores a new element with the next z_index for the board.
func (h *ElementHandler) CreateElement(c *fiber.Ctx) error {
	boardID := c.Params("id")
	userID := currentUserID(c)

	if !h.members.CanEdit(boardID, userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "no edit access"})
	}

	var req ElementPayload
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if req.ID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "element id is required"})
	}
	if !model.ValidElementType(req.Type) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid element type"})
	}
	if len(req.Content) == 0 {
		req.Content = json.RawMessage("{}")
	}

	// Next z_index for the board
	var maxZ int
	h.db.Model(&model.Element{}).
		Where("board_id = ?", boardID).
		Select("COALESCE(MAX(z_index), 0)").
		Scan(&maxZ)

	element := model.Element{
		ID:        req.ID,
		BoardID:   boardID,
		Type:      req.Type,
		X:         req.X,
		Y:         req.Y,
		Width:     req.Width,
		Height:    req.Height,
		ZIndex:    maxZ + 1,
		Content:   string(req.Content),
		CreatedBy: &userID,
	}
	if err := h.db.Create(&element).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create element"})
	}

	return c.Status(fiber.StatusCreated).JSON(element)
}

// ElementUpdateRequest carries partial updates. Geometry fields replace,
// content keys are merged into the existing content object.
type ElementUpdateRequest struct {
	X       *float64        `json:"x,omitempty"`
	Y       *float64        `json:"y,omitempty"`
	Width   *float64        `json:"width,omitempty"`
	Height  *float64        `json:"height,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
}

// UpdateElement applies a partial update to one element.
func (h *ElementHandler) UpdateElement(c *fiber.Ctx) error {
	boardID := c.Params("id")
	elementID := c.Params("elementId")
	userID := currentUserID(c)

	if !h.members.CanEdit(boardID, userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "no edit access"})
	}

	var req ElementUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	var element model.Element
	if err := h.db.Where("id = ? AND board_id = ?", elementID, boardID).
		First(&element).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "element not found"})
	}

	if req.X != nil {
		element.X = *req.X
	}
	if req.Y != nil {
		element.Y = *req.Y
	}
	if req.Width != nil {
		element.Width = req.Width
	}
	if req.Height != nil {
		element.Height = req.Height
	}

	// Merge content keys instead of replacing the whole object so a move
	// update does not wipe text/color set by an earlier edit.
	if len(req.Content) > 0 {
		merged, err := mergeContent(element.Content, req.Content)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid content"})
		}
		element.Content = merged
	}

	if err := h.db.Save(&element).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update element"})
	}

	return c.JSON(element)
}

// DeleteElement removes one element.
func (h *ElementHandler) DeleteElement(c *fiber.Ctx) error {
	boardID := c.Params("id")
	elementID := c.Params("elementId")
	userID := currentUserID(c)

	if !h.members.CanEdit(boardID, userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "no edit access"})
	}

	if err := h.db.Where("id = ? AND board_id = ?", elementID, boardID).
		Delete(&model.Element{}).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete element"})
	}

	return c.JSON(fiber.Map{"success": true})
}

// SyncRequest is the client's debounced checkpoint: the full element set.
type SyncRequest struct {
	Elements []ElementPayload `json:"elements"`
}

// SyncElements replaces the whole element set of a board. Last write wins;
// the server does not diff against the previous state.
func (h *ElementHandler) SyncElements(c *fiber.Ctx) error {
	boardID := c.Params("id")
	userID := currentUserID(c)

	if !h.members.CanEdit(boardID, userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "no edit access"})
	}

	var req SyncRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("board_id = ?", boardID).Delete(&model.Element{}).Error; err != nil {
			return err
		}

		if len(req.Elements) == 0 {
			return nil
		}

		elements := make([]model.Element, 0, len(req.Elements))
		for i, el := range req.Elements {
			elType := el.Type
			if !model.ValidElementType(elType) {
				elType = model.ElementFreehand.String()
			}
			content := el.Content
			if len(content) == 0 {
				content = json.RawMessage("{}")
			}
			elements = append(elements, model.Element{
				ID:        el.ID,
				BoardID:   boardID,
				Type:      elType,
				X:         el.X,
				Y:         el.Y,
				Width:     el.Width,
				Height:    el.Height,
				ZIndex:    i, // array order defines stacking
				Content:   string(content),
				CreatedBy: &userID,
			})
		}
		return tx.Create(&elements).Error
	})
	if err != nil {
		log.Printf("[Element] Sync failed for board %s: %v", boardID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to sync elements"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(req.Elements),
	})
}

func mergeContent(existing string, updates json.RawMessage) (string, error) {
	base := make(map[string]any)
	if existing != "" {
		if err := json.Unmarshal([]byte(existing), &base); err != nil {
			// Corrupt stored content should not block the update
			base = make(map[string]any)
		}
	}

	patch := make(map[string]any)
	if err := json.Unmarshal(updates, &patch); err != nil {
		return "", err
	}

	for k, v := range patch {
		base[k] = v
	}

	merged, err := json.Marshal(base)
	if err != nil {
		return "", err
	}
	return string(merged), nil
}
