package model

import "time"

// Bookmark is a saved link owned by exactly one user. ID and CreatedAt are
// assigned by the server at insert time and never change afterwards.
type Bookmark struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    string    `json:"user_id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
}

const (
	EventInsert = "INSERT"
	EventDelete = "DELETE"
)

// ChangeEvent is a single mutation observed on the bookmarks table,
// fanned out to every open session of the owning user.
// Bookmark is set for INSERT, ID for DELETE. UserID tags the owner on both
// so consumers can reject events that leaked past transport scoping.
type ChangeEvent struct {
	Type     string    `json:"type"`
	UserID   string    `json:"user_id"`
	ID       string    `json:"id,omitempty"`
	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

type CreateBookmarkRequest struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type DeleteBookmarkResponse struct {
	ID string `json:"id"`
}
