package entity

import "time"

const (
	MessageTypeText   = "TEXT"
	MessageTypeImage  = "IMAGE"
	MessageTypeFile   = "FILE"
	MessageTypeSystem = "SYSTEM"
)

// SystemSenderID is the reserved sender id for SYSTEM messages, which are not
// attributed to either human participant.
const SystemSenderID = "system"

type Message struct {
	ID         string    `json:"id" firestore:"id"`
	ChatRoomID string    `json:"chatRoomId" firestore:"chatRoomId"`
	SenderID   string    `json:"senderId" firestore:"senderId"`
	Content    string    `json:"content" firestore:"content"`
	Type       string    `json:"type" firestore:"type"`
	IsRead     bool      `json:"isRead" firestore:"isRead"`
	CreatedAt  time.Time `json:"createdAt" firestore:"createdAt"`
}

func ValidMessageType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeSystem:
		return true
	}
	return false
}
