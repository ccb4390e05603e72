package websocket

import "encoding/json"

// Inbound action kinds. The gateway dispatches over this closed set; anything
// else is answered with an error ack.
const (
	ActionJoinRoom             = "joinRoom"
	ActionLeaveRoom            = "leaveRoom"
	ActionSendMessage          = "sendMessage"
	ActionTyping               = "typing"
	ActionMarkAsRead           = "markAsRead"
	ActionProductStatusChanged = "productStatusChanged"
)

// Server push event kinds.
const (
	EventNewMessage           = "newMessage"
	EventMessagesRead         = "messagesRead"
	EventUserTyping           = "userTyping"
	EventChatRoomUpdated      = "chatRoomUpdated"
	EventProductStatusChanged = "productStatusChanged"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Action is the inbound envelope. Fields beyond Action and ChatRoomID are
// populated depending on the action kind.
type Action struct {
	Action        string `json:"action"`
	ChatRoomID    string `json:"chatRoomId"`
	Content       string `json:"content,omitempty"`
	Type          string `json:"type,omitempty"`
	IsTyping      bool   `json:"isTyping,omitempty"`
	ProductID     string `json:"productId,omitempty"`
	NewStatus     string `json:"newStatus,omitempty"`
	StatusMessage string `json:"statusMessage,omitempty"`
	ChangedBy     string `json:"changedBy,omitempty"`
}

// Ack is the per-action reply sent to the calling connection only. Message
// carries either a human-readable string or, for sendMessage, the created
// message object.
type Ack struct {
	Status     string      `json:"status"`
	Action     string      `json:"action,omitempty"`
	ChatRoomID string      `json:"chatRoomId,omitempty"`
	Message    interface{} `json:"message,omitempty"`
}

// Event is the outbound push envelope.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type MessagesReadData struct {
	ChatRoomID string `json:"chatRoomId"`
	UserID     string `json:"userId"`
}

type UserTypingData struct {
	UserID     string `json:"userId"`
	IsTyping   bool   `json:"isTyping"`
	ChatRoomID string `json:"chatRoomId"`
}

type ChatRoomUpdatedData struct {
	ChatRoomID string `json:"chatRoomId"`
}

type ProductStatusChangedData struct {
	ChatRoomID    string `json:"chatRoomId"`
	ProductID     string `json:"productId"`
	NewStatus     string `json:"newStatus"`
	StatusMessage string `json:"statusMessage"`
	ChangedBy     string `json:"changedBy"`
}

// Encode marshals an envelope, swallowing the error: every payload the
// gateway builds is marshalable by construction.
func Encode(v interface{}) []byte {
	data, _ := json.Marshal(v)
	return data
}
