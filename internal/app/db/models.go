package db

import "time"

// User is a full account row. PasswordHash never leaves the server.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	AvatarURL    string    `json:"avatar_url"`
	Bio          string    `json:"bio"`
	ProfileCSS   string    `json:"profile_css"`
	ProfileHTML  string    `json:"profile_html"`
	MediaURL     string    `json:"media_url"`
	TopFriends   []int64   `json:"top_friends"`
	BlockedUsers []int64   `json:"blocked_users"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserSummary is the public card shown in lists, chat lines and friend grids.
type UserSummary struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// ProfileUpdate carries the editable profile fields.
type ProfileUpdate struct {
	AvatarURL   string
	Bio         string
	ProfileCSS  string
	ProfileHTML string
	MediaURL    string
}

type Room struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Message is a persisted chat line.
type Message struct {
	ID        int64     `json:"id"`
	RoomID    int64     `json:"room_id"`
	UserID    int64     `json:"user_id"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"timestamp"`
}

// MessageView is a Message joined with its sender's public card.
type MessageView struct {
	Message
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

type BoardPost struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"timestamp"`
	Username     string    `json:"username"`
	AvatarURL    string    `json:"avatar_url"`
	CommentCount int64     `json:"comment_count"`
}

type BoardComment struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"post_id"`
	UserID    int64     `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"timestamp"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url"`
}
