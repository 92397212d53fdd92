package models

import "time"

// Tweet is a short text post that may carry one attached image stored in
// remote object storage. ImageKey is the storage reference used for
// lifecycle operations; ImageURL is what clients render.
type Tweet struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"-"`
	Content   string     `json:"content"`
	ImageKey  string     `json:"-"`
	ImageURL  string     `json:"tweetImage,omitempty"`
	Owner     *TweetUser `json:"owner,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// TweetUser is the slice of owner fields embedded in tweet responses.
type TweetUser struct {
	ID        string `json:"id"`
	UserName  string `json:"username"`
	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatar"`
}
