package entity

import "time"

// User is owned by the account service; the chat core only reads it to
// decorate rooms and messages with public profile data.
type User struct {
	ID           string    `json:"id" firestore:"id"`
	Email        string    `json:"email,omitempty" firestore:"email,omitempty"`
	Username     string    `json:"username" firestore:"username"`
	ProfileImage string    `json:"profileImage,omitempty" firestore:"profileImage,omitempty"`
	CreatedAt    time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// UserSummary is the public slice of a profile exposed to chat peers.
type UserSummary struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	ProfileImage string `json:"profileImage,omitempty"`
}

func (u *User) Summary() *UserSummary {
	return &UserSummary{
		ID:           u.ID,
		Username:     u.Username,
		ProfileImage: u.ProfileImage,
	}
}
