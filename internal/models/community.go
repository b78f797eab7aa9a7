package models

import "time"

// User is a community member. Users with a password hash can log in
// against the local auth endpoints; AI users are system-owned.
type User struct {
	UserID       int64      `json:"user_id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	IsAI         bool       `json:"is_ai"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// Post is a community feed entry.
type Post struct {
	PostID        int64     `json:"post_id"`
	AuthorID      int64     `json:"author_id"`
	AuthorName    string    `json:"author_name,omitempty"`
	IsAI          bool      `json:"is_ai"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
	LikesCount    int       `json:"likes_count"`
	CommentsCount int       `json:"comments_count"`
}

// Comment is a reply to a community post.
type Comment struct {
	CommentID  int64     `json:"comment_id"`
	PostID     int64     `json:"post_id"`
	AuthorID   int64     `json:"author_id"`
	AuthorName string    `json:"author_name,omitempty"`
	IsAI       bool      `json:"is_ai"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}
