package handler

import (
	"context"

	"github.com/labstack/echo/v4"

	"marketchat/internal/usecase"
	"marketchat/pkg/response"
	"marketchat/pkg/utils"
)

// ChatService is the slice of the chat use case consumed by the HTTP facade
// and the websocket gateway.
type ChatService interface {
	FindOrCreateRoom(ctx context.Context, sellerID, buyerID, productID string) (*usecase.RoomResponse, error)
	ListRooms(ctx context.Context, userID string) ([]*usecase.RoomResponse, error)
	GetRoomByID(ctx context.Context, roomID, userID string) (*usecase.RoomResponse, error)
	DeleteRoom(ctx context.Context, roomID, userID string) error
	SendMessage(ctx context.Context, senderID string, input usecase.SendMessageInput) (*usecase.MessageResponse, error)
	ListMessages(ctx context.Context, roomID, userID string, page, pageSize int) (*usecase.MessagePage, error)
	MarkRoomAsRead(ctx context.Context, roomID, userID string) error
}

type ChatHandler struct {
	chat ChatService
}

func NewChatHandler(chat ChatService) *ChatHandler {
	return &ChatHandler{
		chat: chat,
	}
}

type createRoomRequest struct {
	SellerID  string `json:"sellerId" validate:"required"`
	ProductID string `json:"productId" validate:"required"`
}

type sendMessageRequest struct {
	Content string `json:"content" validate:"required"`
	Type    string `json:"type" validate:"omitempty,oneof=TEXT IMAGE FILE SYSTEM"`
}

// CreateRoom finds or creates the room between the caller (buyer) and the
// seller for a product.
func (h *ChatHandler) CreateRoom(c echo.Context) error {
	var req createRoomRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	buyerID := c.Get("uid").(string)

	room, err := h.chat.FindOrCreateRoom(c.Request().Context(), req.SellerID, buyerID, req.ProductID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, room)
}

// ListRooms returns the caller's rooms, most recently updated first.
func (h *ChatHandler) ListRooms(c echo.Context) error {
	userID := c.Get("uid").(string)

	rooms, err := h.chat.ListRooms(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, rooms)
}

func (h *ChatHandler) GetRoom(c echo.Context) error {
	roomID := c.Param("id")
	userID := c.Get("uid").(string)

	room, err := h.chat.GetRoomByID(c.Request().Context(), roomID, userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, room)
}

// GetMessages returns one page of the room's messages in chronological order.
func (h *ChatHandler) GetMessages(c echo.Context) error {
	roomID := c.Param("id")
	userID := c.Get("uid").(string)
	params := utils.GetPageParams(c)

	page, err := h.chat.ListMessages(c.Request().Context(), roomID, userID, params.Page, params.PageSize)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, page)
}

func (h *ChatHandler) SendMessage(c echo.Context) error {
	roomID := c.Param("id")
	userID := c.Get("uid").(string)

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	message, err := h.chat.SendMessage(c.Request().Context(), userID, usecase.SendMessageInput{
		ChatRoomID: roomID,
		Content:    req.Content,
		Type:       req.Type,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

func (h *ChatHandler) MarkAsRead(c echo.Context) error {
	roomID := c.Param("id")
	userID := c.Get("uid").(string)

	if err := h.chat.MarkRoomAsRead(c.Request().Context(), roomID, userID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"message": "Messages marked as read"})
}

func (h *ChatHandler) DeleteRoom(c echo.Context) error {
	roomID := c.Param("id")
	userID := c.Get("uid").(string)

	if err := h.chat.DeleteRoom(c.Request().Context(), roomID, userID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"message": "Chat room deleted"})
}
