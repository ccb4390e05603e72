package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChatRoomIDDeterministic(t *testing.T) {
	a := ChatRoomID("seller-1", "buyer-1", "product-1")
	b := ChatRoomID("seller-1", "buyer-1", "product-1")
	assert.Equal(t, a, b)
	assert.Len(t, a, 40)
}

func TestChatRoomIDDistinguishesTriples(t *testing.T) {
	base := ChatRoomID("seller-1", "buyer-1", "product-1")

	assert.NotEqual(t, base, ChatRoomID("seller-1", "buyer-2", "product-1"))
	assert.NotEqual(t, base, ChatRoomID("seller-1", "buyer-1", "product-2"))
	assert.NotEqual(t, base, ChatRoomID("seller-2", "buyer-1", "product-1"))

	// Roles are positional: swapping seller and buyer yields a different room.
	assert.NotEqual(t, base, ChatRoomID("buyer-1", "seller-1", "product-1"))

	// Field boundaries matter; concatenation ambiguity must not collide.
	assert.NotEqual(t, ChatRoomID("ab", "c", "p"), ChatRoomID("a", "bc", "p"))
}

func TestNewChatRoom(t *testing.T) {
	room := NewChatRoom("seller-1", "buyer-1", "product-1")

	assert.Equal(t, ChatRoomID("seller-1", "buyer-1", "product-1"), room.ID)
	assert.Equal(t, []string{"seller-1", "buyer-1"}, room.Participants)

	assert.True(t, room.HasParticipant("seller-1"))
	assert.True(t, room.HasParticipant("buyer-1"))
	assert.False(t, room.HasParticipant("stranger"))

	assert.Equal(t, "buyer-1", room.OtherParticipant("seller-1"))
	assert.Equal(t, "seller-1", room.OtherParticipant("buyer-1"))
}
