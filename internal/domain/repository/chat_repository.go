package repository

import (
	"context"
	"time"

	"marketchat/internal/domain/entity"
)

// ChatRepository owns chat rooms and their append-only message logs.
type ChatRepository interface {
	// CreateRoom persists a new room. It fails with a CONFLICT error when a
	// room with the same id already exists, which callers use to resolve
	// concurrent find-or-create races.
	CreateRoom(ctx context.Context, room *entity.ChatRoom) error
	GetRoomByID(ctx context.Context, id string) (*entity.ChatRoom, error)
	// ListRoomsByUserID returns every room the user participates in, most
	// recently updated first.
	ListRoomsByUserID(ctx context.Context, userID string) ([]*entity.ChatRoom, error)
	// TouchRoom bumps the room's updatedAt, used when a message arrives.
	TouchRoom(ctx context.Context, id string, at time.Time) error
	// DeleteRoom removes the room and all of its messages.
	DeleteRoom(ctx context.Context, id string) error

	CreateMessage(ctx context.Context, message *entity.Message) error
	// ListMessagesByRoom returns one page of messages ordered newest first,
	// plus the total message count for the room.
	ListMessagesByRoom(ctx context.Context, roomID string, limit, offset int) ([]*entity.Message, int64, error)
	// LatestMessage returns the newest message in the room, or nil when the
	// room has none.
	LatestMessage(ctx context.Context, roomID string) (*entity.Message, error)
	// CountUnread counts messages in the room that userID has not read and
	// did not send.
	CountUnread(ctx context.Context, roomID, userID string) (int64, error)
	// MarkMessagesRead flips isRead on every unread message in the room not
	// sent by userID. Idempotent.
	MarkMessagesRead(ctx context.Context, roomID, userID string) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
}

type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Product, error)
}
