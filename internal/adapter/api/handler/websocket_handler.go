package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"marketchat/internal/infrastructure/ratelimit"
	ws "marketchat/internal/infrastructure/websocket"
	"marketchat/internal/usecase"
	apperrors "marketchat/pkg/errors"
	"marketchat/pkg/logger"
)

// TokenVerifier validates a bearer credential and yields the stable user id.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}

// WebSocketHandler is the session gateway: it authenticates connections,
// auto-subscribes them to their rooms, and dispatches inbound realtime
// actions to the chat service, fanning results out through the manager.
type WebSocketHandler struct {
	manager  *ws.Manager
	verifier TokenVerifier
	chat     ChatService
	limiter  *ratelimit.RateLimiter
	upgrader gorillaws.Upgrader
}

func NewWebSocketHandler(manager *ws.Manager, verifier TokenVerifier, chat ChatService, readBufferSize, writeBufferSize int) *WebSocketHandler {
	return &WebSocketHandler{
		manager:  manager,
		verifier: verifier,
		chat:     chat,
		limiter:  ratelimit.NewRateLimiter(),
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  readBufferSize,
			WriteBufferSize: writeBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true // Restrict in production deployments.
			},
		},
	}
}

// HandleWebSocket upgrades the connection after authenticating the handshake
// credential. An invalid credential terminates the connection attempt with no
// session state left behind.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	token := bearerToken(c)
	if token == "" {
		return apperrors.Unauthorized("Authentication required", nil)
	}

	userID, err := h.verifier.VerifyToken(c.Request().Context(), token)
	if err != nil {
		return apperrors.Unauthorized("Invalid or expired token", err)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return apperrors.Internal("Failed to upgrade connection", err)
	}

	client := ws.NewClient(userID, conn)
	h.manager.Register(client)

	// Subscribe the connection to every room the user participates in, so
	// pushes arrive without an explicit join.
	ctx := context.Background()
	rooms, err := h.chat.ListRooms(ctx, userID)
	if err != nil {
		logger.Error("Failed to subscribe user %s to their rooms: %v", userID, err)
		h.manager.Unregister(client)
		conn.Close()
		return nil
	}
	for _, room := range rooms {
		h.manager.Subscribe(client, room.ID)
	}

	logger.Info("User %s connected with %d room subscriptions", userID, len(rooms))

	go client.WritePump()
	go func() {
		client.ReadPump(func(data []byte) {
			h.Dispatch(ctx, client, data)
		})
		h.manager.Unregister(client)
		logger.Info("User %s disconnected", userID)
	}()

	return nil
}

// bearerToken pulls the credential from the auth query parameter or the
// Authorization header.
func bearerToken(c echo.Context) string {
	if token := c.QueryParam("token"); token != "" {
		return token
	}

	authHeader := c.Request().Header.Get("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}

	return ""
}

// Dispatch routes one inbound frame to its action handler. Failures are
// answered to the calling connection only; they never reach other
// subscribers and never tear down the connection.
func (h *WebSocketHandler) Dispatch(ctx context.Context, client *ws.Client, data []byte) {
	var action ws.Action
	if err := json.Unmarshal(data, &action); err != nil {
		h.ackError(client, "", "", "Invalid action format")
		return
	}

	if action.ChatRoomID == "" {
		h.ackError(client, action.Action, "", "chatRoomId is required")
		return
	}

	switch action.Action {
	case ws.ActionJoinRoom:
		h.handleJoinRoom(ctx, client, action)
	case ws.ActionLeaveRoom:
		h.manager.Unsubscribe(client, action.ChatRoomID)
	case ws.ActionSendMessage:
		h.handleSendMessage(ctx, client, action)
	case ws.ActionTyping:
		h.handleTyping(client, action)
	case ws.ActionMarkAsRead:
		h.handleMarkAsRead(ctx, client, action)
	case ws.ActionProductStatusChanged:
		h.handleProductStatusChanged(client, action)
	default:
		h.ackError(client, action.Action, action.ChatRoomID, "Unknown action")
	}
}

// handleJoinRoom authorizes the caller, subscribes the connection, marks the
// room read and tells the other participant their messages were seen.
func (h *WebSocketHandler) handleJoinRoom(ctx context.Context, client *ws.Client, action ws.Action) {
	if _, err := h.chat.GetRoomByID(ctx, action.ChatRoomID, client.UserID); err != nil {
		h.ackFailure(client, action, err)
		return
	}

	h.manager.Subscribe(client, action.ChatRoomID)

	if err := h.chat.MarkRoomAsRead(ctx, action.ChatRoomID, client.UserID); err != nil {
		h.ackFailure(client, action, err)
		return
	}

	h.broadcastMessagesRead(client, action.ChatRoomID)
	h.ackSuccess(client, action, "Joined chat room")
}

// handleSendMessage persists the message, then pushes it to the room's other
// subscribers. The sender gets the message back in the ack, not as a push.
func (h *WebSocketHandler) handleSendMessage(ctx context.Context, client *ws.Client, action ws.Action) {
	message, err := h.chat.SendMessage(ctx, client.UserID, usecase.SendMessageInput{
		ChatRoomID: action.ChatRoomID,
		Content:    action.Content,
		Type:       action.Type,
	})
	if err != nil {
		h.ackFailure(client, action, err)
		return
	}

	h.manager.BroadcastToRoom(action.ChatRoomID, ws.Encode(ws.Event{
		Event: ws.EventNewMessage,
		Data:  message,
	}), client)

	// Nudge the other participant's room list even when they are not
	// subscribed to this room right now.
	room, err := h.chat.GetRoomByID(ctx, action.ChatRoomID, client.UserID)
	if err != nil {
		logger.Warn("Failed to resolve other participant for room %s: %v", action.ChatRoomID, err)
	} else {
		h.manager.SendToUser(room.OtherParticipant(client.UserID), ws.Encode(ws.Event{
			Event: ws.EventChatRoomUpdated,
			Data:  ws.ChatRoomUpdatedData{ChatRoomID: action.ChatRoomID},
		}))
	}

	h.ack(client, ws.Ack{
		Status:     ws.StatusSuccess,
		Action:     action.Action,
		ChatRoomID: action.ChatRoomID,
		Message:    message,
	})
}

// handleTyping relays the indicator to other subscribers. Fire and forget.
func (h *WebSocketHandler) handleTyping(client *ws.Client, action ws.Action) {
	if allowed, _ := h.limiter.Allow(client.UserID, "typing"); !allowed {
		return
	}

	h.manager.BroadcastToRoom(action.ChatRoomID, ws.Encode(ws.Event{
		Event: ws.EventUserTyping,
		Data: ws.UserTypingData{
			UserID:     client.UserID,
			IsTyping:   action.IsTyping,
			ChatRoomID: action.ChatRoomID,
		},
	}), client)
}

func (h *WebSocketHandler) handleMarkAsRead(ctx context.Context, client *ws.Client, action ws.Action) {
	if err := h.chat.MarkRoomAsRead(ctx, action.ChatRoomID, client.UserID); err != nil {
		h.ackFailure(client, action, err)
		return
	}

	h.broadcastMessagesRead(client, action.ChatRoomID)
	h.ackSuccess(client, action, "Messages marked as read")
}

// handleProductStatusChanged relays the listing-status event to other
// subscribers. Nothing is persisted on this path; the caller sends a
// SYSTEM-kind message separately if a durable notice is wanted.
func (h *WebSocketHandler) handleProductStatusChanged(client *ws.Client, action ws.Action) {
	h.manager.BroadcastToRoom(action.ChatRoomID, ws.Encode(ws.Event{
		Event: ws.EventProductStatusChanged,
		Data: ws.ProductStatusChangedData{
			ChatRoomID:    action.ChatRoomID,
			ProductID:     action.ProductID,
			NewStatus:     action.NewStatus,
			StatusMessage: action.StatusMessage,
			ChangedBy:     action.ChangedBy,
		},
	}), client)
}

func (h *WebSocketHandler) broadcastMessagesRead(client *ws.Client, roomID string) {
	h.manager.BroadcastToRoom(roomID, ws.Encode(ws.Event{
		Event: ws.EventMessagesRead,
		Data: ws.MessagesReadData{
			ChatRoomID: roomID,
			UserID:     client.UserID,
		},
	}), client)
}

func (h *WebSocketHandler) ack(client *ws.Client, ack ws.Ack) {
	if !client.Deliver(ws.Encode(ack)) {
		logger.Warn("Dropping unresponsive client %s", client.UserID)
		h.manager.Unregister(client)
	}
}

func (h *WebSocketHandler) ackSuccess(client *ws.Client, action ws.Action, message string) {
	h.ack(client, ws.Ack{
		Status:     ws.StatusSuccess,
		Action:     action.Action,
		ChatRoomID: action.ChatRoomID,
		Message:    message,
	})
}

func (h *WebSocketHandler) ackError(client *ws.Client, action, roomID, message string) {
	h.ack(client, ws.Ack{
		Status:     ws.StatusError,
		Action:     action,
		ChatRoomID: roomID,
		Message:    message,
	})
}

// ackFailure converts a store failure into an error ack for the caller only.
func (h *WebSocketHandler) ackFailure(client *ws.Client, action ws.Action, err error) {
	message := "Something went wrong"
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	h.ackError(client, action.Action, action.ChatRoomID, message)
}
