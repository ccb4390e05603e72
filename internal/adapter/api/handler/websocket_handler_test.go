package handler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketchat/internal/domain/entity"
	ws "marketchat/internal/infrastructure/websocket"
	"marketchat/internal/usecase"
	"marketchat/pkg/errors"
)

// fakeChatService records calls and returns canned responses so dispatch
// behavior can be tested without a store.
type fakeChatService struct {
	room       *usecase.RoomResponse
	roomErr    error
	message    *usecase.MessageResponse
	messageErr error
	markErr    error

	markedRead []string
	sent       []usecase.SendMessageInput
	listedPage int
	listedSize int
	deleted    []string
}

func (f *fakeChatService) FindOrCreateRoom(ctx context.Context, sellerID, buyerID, productID string) (*usecase.RoomResponse, error) {
	return f.room, f.roomErr
}

func (f *fakeChatService) ListRooms(ctx context.Context, userID string) ([]*usecase.RoomResponse, error) {
	if f.room == nil {
		return nil, nil
	}
	return []*usecase.RoomResponse{f.room}, nil
}

func (f *fakeChatService) GetRoomByID(ctx context.Context, roomID, userID string) (*usecase.RoomResponse, error) {
	return f.room, f.roomErr
}

func (f *fakeChatService) DeleteRoom(ctx context.Context, roomID, userID string) error {
	if f.roomErr != nil {
		return f.roomErr
	}
	f.deleted = append(f.deleted, roomID)
	return nil
}

func (f *fakeChatService) SendMessage(ctx context.Context, senderID string, input usecase.SendMessageInput) (*usecase.MessageResponse, error) {
	f.sent = append(f.sent, input)
	return f.message, f.messageErr
}

func (f *fakeChatService) ListMessages(ctx context.Context, roomID, userID string, page, pageSize int) (*usecase.MessagePage, error) {
	if f.roomErr != nil {
		return nil, f.roomErr
	}
	f.listedPage = page
	f.listedSize = pageSize
	return &usecase.MessagePage{
		Messages:   []*usecase.MessageResponse{},
		Pagination: usecase.Pagination{Page: page, Limit: pageSize},
	}, nil
}

func (f *fakeChatService) MarkRoomAsRead(ctx context.Context, roomID, userID string) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.markedRead = append(f.markedRead, roomID+":"+userID)
	return nil
}

func testRoom() *usecase.RoomResponse {
	return &usecase.RoomResponse{
		ChatRoom: &entity.ChatRoom{
			ID:        "room-1",
			SellerID:  "seller-1",
			BuyerID:   "buyer-1",
			ProductID: "product-1",
		},
	}
}

func newGateway(chat ChatService) (*WebSocketHandler, *ws.Manager) {
	manager := ws.NewManager()
	return NewWebSocketHandler(manager, nil, chat, 1024, 1024), manager
}

func receive(t *testing.T, c *ws.Client) map[string]interface{} {
	t.Helper()
	select {
	case data := <-c.Send:
		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &payload))
		return payload
	case <-time.After(time.Second):
		t.Fatal("expected a payload, got none")
		return nil
	}
}

func assertSilent(t *testing.T, c *ws.Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("unexpected payload: %s", data)
	default:
	}
}

func dispatch(h *WebSocketHandler, client *ws.Client, action ws.Action) {
	h.Dispatch(context.Background(), client, ws.Encode(action))
}

func TestGatewayUsesConfiguredBuffers(t *testing.T) {
	manager := ws.NewManager()
	h := NewWebSocketHandler(manager, nil, &fakeChatService{}, 4096, 2048)

	assert.Equal(t, 4096, h.upgrader.ReadBufferSize)
	assert.Equal(t, 2048, h.upgrader.WriteBufferSize)
}

func TestDispatchInvalidJSON(t *testing.T) {
	h, manager := newGateway(&fakeChatService{})
	buyer := ws.NewClient("buyer-1", nil)
	manager.Register(buyer)

	h.Dispatch(context.Background(), buyer, []byte("{not json"))

	ack := receive(t, buyer)
	assert.Equal(t, "error", ack["status"])
	assert.Equal(t, "Invalid action format", ack["message"])
}

func TestDispatchRequiresRoomID(t *testing.T) {
	h, manager := newGateway(&fakeChatService{})
	buyer := ws.NewClient("buyer-1", nil)
	manager.Register(buyer)

	dispatch(h, buyer, ws.Action{Action: ws.ActionSendMessage, Content: "hi"})

	ack := receive(t, buyer)
	assert.Equal(t, "error", ack["status"])
	assert.Equal(t, "chatRoomId is required", ack["message"])
}

func TestDispatchUnknownAction(t *testing.T) {
	h, manager := newGateway(&fakeChatService{})
	buyer := ws.NewClient("buyer-1", nil)
	manager.Register(buyer)

	dispatch(h, buyer, ws.Action{Action: "selfDestruct", ChatRoomID: "room-1"})

	ack := receive(t, buyer)
	assert.Equal(t, "error", ack["status"])
	assert.Equal(t, "selfDestruct", ack["action"])
	assert.Equal(t, "Unknown action", ack["message"])
}

func TestJoinRoom(t *testing.T) {
	chat := &fakeChatService{room: testRoom()}
	h, manager := newGateway(chat)

	buyer := ws.NewClient("buyer-1", nil)
	seller := ws.NewClient("seller-1", nil)
	manager.Register(buyer)
	manager.Register(seller)
	manager.Subscribe(seller, "room-1")

	dispatch(h, buyer, ws.Action{Action: ws.ActionJoinRoom, ChatRoomID: "room-1"})

	ack := receive(t, buyer)
	assert.Equal(t, "success", ack["status"])
	assert.Equal(t, "Joined chat room", ack["message"])
	assert.Equal(t, []string{"room-1:buyer-1"}, chat.markedRead)
	assert.True(t, manager.Subscribed(buyer, "room-1"))

	// The seller learns their messages were seen.
	push := receive(t, seller)
	assert.Equal(t, "messagesRead", push["event"])
	data := push["data"].(map[string]interface{})
	assert.Equal(t, "room-1", data["chatRoomId"])
	assert.Equal(t, "buyer-1", data["userId"])
}

func TestJoinRoomUnauthorized(t *testing.T) {
	chat := &fakeChatService{roomErr: errors.Forbidden("User is not a participant in this chat room", nil)}
	h, manager := newGateway(chat)

	outsider := ws.NewClient("other-user", nil)
	manager.Register(outsider)

	dispatch(h, outsider, ws.Action{Action: ws.ActionJoinRoom, ChatRoomID: "room-1"})

	ack := receive(t, outsider)
	assert.Equal(t, "error", ack["status"])
	assert.Equal(t, "User is not a participant in this chat room", ack["message"])
	assert.False(t, manager.Subscribed(outsider, "room-1"))
}

func TestSendMessagePushesToOthersOnly(t *testing.T) {
	chat := &fakeChatService{
		room: testRoom(),
		message: &usecase.MessageResponse{
			Message: &entity.Message{
				ID:         "msg-1",
				ChatRoomID: "room-1",
				SenderID:   "buyer-1",
				Content:    "Is this still available?",
				Type:       entity.MessageTypeText,
			},
		},
	}
	h, manager := newGateway(chat)

	buyer := ws.NewClient("buyer-1", nil)
	seller := ws.NewClient("seller-1", nil)
	manager.Register(buyer)
	manager.Register(seller)
	manager.Subscribe(buyer, "room-1")
	manager.Subscribe(seller, "room-1")

	dispatch(h, buyer, ws.Action{Action: ws.ActionSendMessage, ChatRoomID: "room-1", Content: "Is this still available?"})

	require.Len(t, chat.sent, 1)
	assert.Equal(t, "room-1", chat.sent[0].ChatRoomID)

	// Subscribers other than the sender get the push.
	push := receive(t, seller)
	assert.Equal(t, "newMessage", push["event"])
	msg := push["data"].(map[string]interface{})
	assert.Equal(t, "msg-1", msg["id"])

	// The seller also gets a room list nudge as the other participant.
	nudge := receive(t, seller)
	assert.Equal(t, "chatRoomUpdated", nudge["event"])

	// The sender sees the created message in the ack only.
	ack := receive(t, buyer)
	assert.Equal(t, "success", ack["status"])
	assert.Equal(t, ws.ActionSendMessage, ack["action"])
	assert.Equal(t, "room-1", ack["chatRoomId"])
	created := ack["message"].(map[string]interface{})
	assert.Equal(t, "msg-1", created["id"])
	assertSilent(t, buyer)
}

func TestSendMessageFailureAcksCallerOnly(t *testing.T) {
	chat := &fakeChatService{
		room:       testRoom(),
		messageErr: errors.TooManyRequests("You are sending messages too quickly"),
	}
	h, manager := newGateway(chat)

	buyer := ws.NewClient("buyer-1", nil)
	seller := ws.NewClient("seller-1", nil)
	manager.Register(buyer)
	manager.Register(seller)
	manager.Subscribe(buyer, "room-1")
	manager.Subscribe(seller, "room-1")

	dispatch(h, buyer, ws.Action{Action: ws.ActionSendMessage, ChatRoomID: "room-1", Content: "spam"})

	ack := receive(t, buyer)
	assert.Equal(t, "error", ack["status"])
	assert.Equal(t, "You are sending messages too quickly", ack["message"])
	assertSilent(t, seller)
}

func TestTypingRelaysWithoutAck(t *testing.T) {
	h, manager := newGateway(&fakeChatService{room: testRoom()})

	buyer := ws.NewClient("buyer-1", nil)
	seller := ws.NewClient("seller-1", nil)
	manager.Register(buyer)
	manager.Register(seller)
	manager.Subscribe(buyer, "room-1")
	manager.Subscribe(seller, "room-1")

	dispatch(h, buyer, ws.Action{Action: ws.ActionTyping, ChatRoomID: "room-1", IsTyping: true})

	push := receive(t, seller)
	assert.Equal(t, "userTyping", push["event"])
	data := push["data"].(map[string]interface{})
	assert.Equal(t, "buyer-1", data["userId"])
	assert.Equal(t, true, data["isTyping"])
	assertSilent(t, buyer)
}

func TestLeaveRoomStopsDelivery(t *testing.T) {
	h, manager := newGateway(&fakeChatService{room: testRoom()})

	buyer := ws.NewClient("buyer-1", nil)
	manager.Register(buyer)
	manager.Subscribe(buyer, "room-1")

	dispatch(h, buyer, ws.Action{Action: ws.ActionLeaveRoom, ChatRoomID: "room-1"})

	assert.False(t, manager.Subscribed(buyer, "room-1"))
	assertSilent(t, buyer)

	manager.BroadcastToRoom("room-1", ws.Encode(ws.Event{Event: ws.EventNewMessage}), nil)
	assertSilent(t, buyer)
}

func TestMarkAsRead(t *testing.T) {
	chat := &fakeChatService{room: testRoom()}
	h, manager := newGateway(chat)

	seller := ws.NewClient("seller-1", nil)
	buyer := ws.NewClient("buyer-1", nil)
	manager.Register(seller)
	manager.Register(buyer)
	manager.Subscribe(seller, "room-1")
	manager.Subscribe(buyer, "room-1")

	dispatch(h, seller, ws.Action{Action: ws.ActionMarkAsRead, ChatRoomID: "room-1"})

	ack := receive(t, seller)
	assert.Equal(t, "success", ack["status"])
	assert.Equal(t, []string{"room-1:seller-1"}, chat.markedRead)

	push := receive(t, buyer)
	assert.Equal(t, "messagesRead", push["event"])
}

func TestProductStatusChangedRelay(t *testing.T) {
	h, manager := newGateway(&fakeChatService{room: testRoom()})

	seller := ws.NewClient("seller-1", nil)
	buyer := ws.NewClient("buyer-1", nil)
	manager.Register(seller)
	manager.Register(buyer)
	manager.Subscribe(seller, "room-1")
	manager.Subscribe(buyer, "room-1")

	dispatch(h, seller, ws.Action{
		Action:     ws.ActionProductStatusChanged,
		ChatRoomID: "room-1",
		ProductID:  "product-1",
		NewStatus:  entity.ProductStatusSold,
		ChangedBy:  "seller-1",
	})

	push := receive(t, buyer)
	assert.Equal(t, "productStatusChanged", push["event"])
	data := push["data"].(map[string]interface{})
	assert.Equal(t, "product-1", data["productId"])
	assert.Equal(t, entity.ProductStatusSold, data["newStatus"])
	assertSilent(t, seller)
}
