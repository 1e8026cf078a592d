package models

import (
	"time"
)

// Post is a blog entry joined with its owner's username. ImageURL is nil when
// the post has no image.
type Post struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	Username  string    `json:"username"`
	UserID    int64     `json:"userId"`
	ImageURL  *string   `json:"imageUrl"`
}

// PostChanges carries the mutable fields of a post. A nil ImageURL leaves the
// stored image untouched; an empty one clears it.
type PostChanges struct {
	Title    string
	Body     string
	ImageURL *string
}

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
