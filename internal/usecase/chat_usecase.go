package usecase

import (
	"context"
	"time"

	"marketchat/internal/domain/entity"
	"marketchat/internal/domain/repository"
	"marketchat/internal/infrastructure/ratelimit"
	"marketchat/pkg/errors"
	"marketchat/pkg/logger"
)

// ChatUseCase implements the room and message store operations. It owns no
// realtime state; fan-out to connected peers is the gateway's job.
type ChatUseCase struct {
	chatRepo    repository.ChatRepository
	userRepo    repository.UserRepository
	productRepo repository.ProductRepository
	rateLimiter *ratelimit.RateLimiter
}

func NewChatUseCase(
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	productRepo repository.ProductRepository,
) *ChatUseCase {
	return &ChatUseCase{
		chatRepo:    chatRepo,
		userRepo:    userRepo,
		productRepo: productRepo,
		rateLimiter: ratelimit.NewRateLimiter(),
	}
}

type SendMessageInput struct {
	ChatRoomID string
	Content    string
	Type       string
}

// RoomResponse is a room decorated with participant and listing summaries.
type RoomResponse struct {
	*entity.ChatRoom
	Product     *entity.ProductSummary `json:"product,omitempty"`
	Seller      *entity.UserSummary    `json:"seller,omitempty"`
	Buyer       *entity.UserSummary    `json:"buyer,omitempty"`
	OtherUser   *entity.UserSummary    `json:"otherUser,omitempty"`
	LastMessage *entity.Message        `json:"lastMessage,omitempty"`
	UnreadCount int64                  `json:"unreadCount"`
}

type MessageResponse struct {
	*entity.Message
	Sender *entity.UserSummary `json:"sender,omitempty"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

type MessagePage struct {
	Messages   []*MessageResponse `json:"messages"`
	Pagination Pagination         `json:"pagination"`
}

// FindOrCreateRoom returns the room for the seller/buyer/product triple,
// creating it on first contact. Concurrent calls for the same triple are
// serialized by the storage layer: the loser of the create race observes a
// conflict and re-reads the winner's room.
func (uc *ChatUseCase) FindOrCreateRoom(ctx context.Context, sellerID, buyerID, productID string) (*RoomResponse, error) {
	if sellerID == "" || buyerID == "" || productID == "" {
		return nil, errors.BadRequest("sellerId, buyerId and productId are required", nil)
	}

	roomID := entity.ChatRoomID(sellerID, buyerID, productID)

	room, err := uc.chatRepo.GetRoomByID(ctx, roomID)
	if errors.Is(err, "NOT_FOUND") {
		// The store has no reference constraints, so a room must not be
		// persisted until the listing and both participants are known to
		// exist; otherwise a failed create leaves a phantom room behind.
		if _, err := uc.productRepo.GetByID(ctx, productID); err != nil {
			return nil, err
		}
		if _, err := uc.userRepo.GetByID(ctx, sellerID); err != nil {
			return nil, err
		}
		if _, err := uc.userRepo.GetByID(ctx, buyerID); err != nil {
			return nil, err
		}

		if allowed, _ := uc.rateLimiter.Allow(buyerID, "create_room"); !allowed {
			return nil, errors.TooManyRequests("You are creating chat rooms too quickly")
		}

		room = entity.NewChatRoom(sellerID, buyerID, productID)
		if createErr := uc.chatRepo.CreateRoom(ctx, room); createErr != nil {
			if !errors.Is(createErr, "CONFLICT") {
				return nil, createErr
			}
			// Lost the race; the other caller's room is now visible.
			room, err = uc.chatRepo.GetRoomByID(ctx, roomID)
			if err != nil {
				return nil, err
			}
		}
	} else if err != nil {
		return nil, err
	}

	return uc.decorateRoom(ctx, room, buyerID, true)
}

// ListRooms returns every room the user participates in, most recently
// updated first, each with the other party's profile, the latest message and
// the user's unread count.
func (uc *ChatUseCase) ListRooms(ctx context.Context, userID string) ([]*RoomResponse, error) {
	rooms, err := uc.chatRepo.ListRoomsByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	responses := make([]*RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		resp, err := uc.decorateRoom(ctx, room, userID, false)
		if err != nil {
			logger.Warn("Skipping room %s for user %s: %v", room.ID, userID, err)
			continue
		}
		responses = append(responses, resp)
	}

	return responses, nil
}

func (uc *ChatUseCase) GetRoomByID(ctx context.Context, roomID, userID string) (*RoomResponse, error) {
	room, err := uc.authorizeRoom(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}

	return uc.decorateRoom(ctx, room, userID, false)
}

// DeleteRoom removes the room and its messages irreversibly.
func (uc *ChatUseCase) DeleteRoom(ctx context.Context, roomID, userID string) error {
	if _, err := uc.authorizeRoom(ctx, roomID, userID); err != nil {
		return err
	}

	return uc.chatRepo.DeleteRoom(ctx, roomID)
}

// SendMessage appends a message to the room and bumps its updatedAt. The
// message is persisted before any broadcast happens, so the store's commit
// order is the delivery order every subscriber observes.
func (uc *ChatUseCase) SendMessage(ctx context.Context, senderID string, input SendMessageInput) (*MessageResponse, error) {
	if input.Content == "" {
		return nil, errors.BadRequest("content is required", nil)
	}

	msgType := input.Type
	if msgType == "" {
		msgType = entity.MessageTypeText
	}
	if !entity.ValidMessageType(msgType) {
		return nil, errors.BadRequest("invalid message type", nil)
	}

	if allowed, wait := uc.rateLimiter.Allow(senderID, "send_message"); !allowed {
		logger.Warn("Rate limited: user %s must wait %v before sending", senderID, wait)
		return nil, errors.TooManyRequests("You are sending messages too quickly")
	}

	if _, err := uc.authorizeRoom(ctx, input.ChatRoomID, senderID); err != nil {
		return nil, err
	}

	// SYSTEM messages are informational and never attributed to the human
	// participant that triggered them.
	if msgType == entity.MessageTypeSystem {
		return uc.SendSystemMessage(ctx, input.ChatRoomID, input.Content)
	}

	sender, err := uc.userRepo.GetByID(ctx, senderID)
	if err != nil {
		return nil, err
	}

	message := &entity.Message{
		ChatRoomID: input.ChatRoomID,
		SenderID:   senderID,
		Content:    input.Content,
		Type:       msgType,
		IsRead:     false,
		CreatedAt:  time.Now(),
	}

	if err := uc.chatRepo.CreateMessage(ctx, message); err != nil {
		return nil, err
	}

	if err := uc.chatRepo.TouchRoom(ctx, input.ChatRoomID, message.CreatedAt); err != nil {
		logger.Warn("Failed to touch room %s after message %s: %v", input.ChatRoomID, message.ID, err)
	}

	return &MessageResponse{
		Message: message,
		Sender:  sender.Summary(),
	}, nil
}

// SendSystemMessage persists an informational message attributed to the
// reserved system sender, e.g. when the listing's status changes.
func (uc *ChatUseCase) SendSystemMessage(ctx context.Context, roomID, content string) (*MessageResponse, error) {
	if content == "" {
		return nil, errors.BadRequest("content is required", nil)
	}

	if _, err := uc.chatRepo.GetRoomByID(ctx, roomID); err != nil {
		return nil, err
	}

	message := &entity.Message{
		ChatRoomID: roomID,
		SenderID:   entity.SystemSenderID,
		Content:    content,
		Type:       entity.MessageTypeSystem,
		IsRead:     false,
		CreatedAt:  time.Now(),
	}

	if err := uc.chatRepo.CreateMessage(ctx, message); err != nil {
		return nil, err
	}

	if err := uc.chatRepo.TouchRoom(ctx, roomID, message.CreatedAt); err != nil {
		logger.Warn("Failed to touch room %s after system message: %v", roomID, err)
	}

	return &MessageResponse{Message: message}, nil
}

// ListMessages returns one page of a room's messages. Messages are stored and
// paged newest first, then the page is reversed so it reads chronologically.
func (uc *ChatUseCase) ListMessages(ctx context.Context, roomID, userID string, page, pageSize int) (*MessagePage, error) {
	if _, err := uc.authorizeRoom(ctx, roomID, userID); err != nil {
		return nil, err
	}

	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	messages, total, err := uc.chatRepo.ListMessagesByRoom(ctx, roomID, pageSize, offset)
	if err != nil {
		return nil, err
	}

	// Reverse into chronological order within the page.
	responses := make([]*MessageResponse, 0, len(messages))
	senders := make(map[string]*entity.UserSummary)
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		responses = append(responses, &MessageResponse{
			Message: msg,
			Sender:  uc.senderSummary(ctx, senders, msg.SenderID),
		})
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return &MessagePage{
		Messages: responses,
		Pagination: Pagination{
			Page:       page,
			Limit:      pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
			HasPrev:    page > 1,
		},
	}, nil
}

// MarkRoomAsRead flips every message in the room not sent by userID to read.
// Calling it again once everything is read is a no-op.
func (uc *ChatUseCase) MarkRoomAsRead(ctx context.Context, roomID, userID string) error {
	if _, err := uc.authorizeRoom(ctx, roomID, userID); err != nil {
		return err
	}

	return uc.chatRepo.MarkMessagesRead(ctx, roomID, userID)
}

// authorizeRoom loads the room and verifies userID is one of its two
// participants. Membership is re-checked on every call; it is immutable after
// creation but the check is cheap and never stale.
func (uc *ChatUseCase) authorizeRoom(ctx context.Context, roomID, userID string) (*entity.ChatRoom, error) {
	room, err := uc.chatRepo.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if !room.HasParticipant(userID) {
		return nil, errors.Forbidden("User is not a participant in this chat room", nil)
	}

	return room, nil
}

// decorateRoom attaches listing and profile summaries plus last-message and
// unread-count data. With strict set, a missing collaborator record fails the
// call; otherwise decoration is best effort.
func (uc *ChatUseCase) decorateRoom(ctx context.Context, room *entity.ChatRoom, viewerID string, strict bool) (*RoomResponse, error) {
	resp := &RoomResponse{ChatRoom: room}

	product, err := uc.productRepo.GetByID(ctx, room.ProductID)
	if err != nil {
		if strict {
			return nil, err
		}
		logger.Warn("Missing product %s for room %s: %v", room.ProductID, room.ID, err)
	} else {
		resp.Product = product.Summary()
	}

	seller, err := uc.userRepo.GetByID(ctx, room.SellerID)
	if err != nil {
		if strict {
			return nil, err
		}
	} else {
		resp.Seller = seller.Summary()
	}

	buyer, err := uc.userRepo.GetByID(ctx, room.BuyerID)
	if err != nil {
		if strict {
			return nil, err
		}
	} else {
		resp.Buyer = buyer.Summary()
	}

	if viewerID == room.SellerID {
		resp.OtherUser = resp.Buyer
	} else {
		resp.OtherUser = resp.Seller
	}

	last, err := uc.chatRepo.LatestMessage(ctx, room.ID)
	if err != nil {
		logger.Warn("Failed to load latest message for room %s: %v", room.ID, err)
	} else {
		resp.LastMessage = last
	}

	unread, err := uc.chatRepo.CountUnread(ctx, room.ID, viewerID)
	if err != nil {
		logger.Warn("Failed to count unread messages for room %s: %v", room.ID, err)
	} else {
		resp.UnreadCount = unread
	}

	return resp, nil
}

func (uc *ChatUseCase) senderSummary(ctx context.Context, cache map[string]*entity.UserSummary, senderID string) *entity.UserSummary {
	if senderID == entity.SystemSenderID {
		return nil
	}
	if summary, ok := cache[senderID]; ok {
		return summary
	}

	user, err := uc.userRepo.GetByID(ctx, senderID)
	if err != nil {
		logger.Warn("Failed to load sender %s: %v", senderID, err)
		cache[senderID] = nil
		return nil
	}

	cache[senderID] = user.Summary()
	return cache[senderID]
}
