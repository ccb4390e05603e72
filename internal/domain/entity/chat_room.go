package entity

import (
	"crypto/sha1"
	"encoding/hex"
	"time"
)

// ChatRoom is a two-party conversation between a product's seller and a
// prospective buyer. At most one room exists per (seller, buyer, product)
// triple; the room id is derived from the triple so the storage layer can
// enforce uniqueness through the document key.
type ChatRoom struct {
	ID           string    `json:"id" firestore:"id"`
	SellerID     string    `json:"sellerId" firestore:"sellerId"`
	BuyerID      string    `json:"buyerId" firestore:"buyerId"`
	ProductID    string    `json:"productId" firestore:"productId"`
	Participants []string  `json:"-" firestore:"participants"`
	CreatedAt    time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// ChatRoomID returns the deterministic room id for a seller/buyer/product triple.
func ChatRoomID(sellerID, buyerID, productID string) string {
	sum := sha1.Sum([]byte(sellerID + "\x00" + buyerID + "\x00" + productID))
	return hex.EncodeToString(sum[:])
}

// NewChatRoom builds a room for the triple with its id and participants set.
func NewChatRoom(sellerID, buyerID, productID string) *ChatRoom {
	return &ChatRoom{
		ID:           ChatRoomID(sellerID, buyerID, productID),
		SellerID:     sellerID,
		BuyerID:      buyerID,
		ProductID:    productID,
		Participants: []string{sellerID, buyerID},
	}
}

func (r *ChatRoom) HasParticipant(userID string) bool {
	return userID == r.SellerID || userID == r.BuyerID
}

// OtherParticipant returns the participant that is not userID.
func (r *ChatRoom) OtherParticipant(userID string) string {
	if userID == r.SellerID {
		return r.BuyerID
	}
	return r.SellerID
}
