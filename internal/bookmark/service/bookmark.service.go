package service

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"markit/internal/bookmark/model"
	"markit/internal/bookmark/repository"
	"markit/socket"
)

var (
	ErrEmptyField = errors.New("title and url must not be empty")
	ErrNotFound   = errors.New("bookmark not found")
)

type BookmarkService struct {
	Repo *repository.BookmarkRepository
	Hub  *socket.Hub
}

func NewBookmarkService(repo *repository.BookmarkRepository, hub *socket.Hub) *BookmarkService {
	return &BookmarkService{Repo: repo, Hub: hub}
}

// CreateBookmark validates the fields, assigns id and created_at, persists the
// record, and only then broadcasts the change to the owner's sessions. The
// event never precedes the durable write.
func (s *BookmarkService) CreateBookmark(userID, title, url string) (model.Bookmark, error) {
	title = strings.TrimSpace(title)
	url = strings.TrimSpace(url)
	if title == "" || url == "" {
		return model.Bookmark{}, ErrEmptyField
	}

	b := model.Bookmark{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		UserID:    userID,
		URL:       url,
		Title:     title,
	}
	if err := s.Repo.Insert(b); err != nil {
		return model.Bookmark{}, err
	}

	s.Hub.Broadcast <- model.ChangeEvent{Type: model.EventInsert, UserID: userID, Bookmark: &b}
	return b, nil
}

// DeleteBookmark removes the record scoped to its owner. Deleting an id that
// does not exist (or belongs to someone else) reports ErrNotFound and
// broadcasts nothing.
func (s *BookmarkService) DeleteBookmark(id, userID string) error {
	found, err := s.Repo.Delete(id, userID)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}

	s.Hub.Broadcast <- model.ChangeEvent{Type: model.EventDelete, UserID: userID, ID: id}
	return nil
}

func (s *BookmarkService) ListBookmarks(userID string) ([]model.Bookmark, error) {
	return s.Repo.ListByUser(userID)
}
