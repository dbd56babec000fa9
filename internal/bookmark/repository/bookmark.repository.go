package repository

import (
	"database/sql"

	"markit/internal/bookmark/model"
	"markit/pkg/logger"
)

type BookmarkRepository struct {
	DB *sql.DB
}

func NewBookmarkRepository(db *sql.DB) *BookmarkRepository {
	return &BookmarkRepository{DB: db}
}

// ListByUser returns the user's bookmarks newest first. This is the snapshot
// query: clients seed their local collection from it before applying events.
func (r *BookmarkRepository) ListByUser(userID string) ([]model.Bookmark, error) {
	rows, err := r.DB.Query(
		`SELECT id, created_at, user_id, url, title FROM bookmarks WHERE user_id = $1 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		logger.Sugar.Errorf("Failed to list bookmarks for user %s: %v", userID, err)
		return nil, err
	}
	defer rows.Close()

	bookmarks := []model.Bookmark{}
	for rows.Next() {
		var b model.Bookmark
		if err := rows.Scan(&b.ID, &b.CreatedAt, &b.UserID, &b.URL, &b.Title); err != nil {
			logger.Sugar.Errorf("Failed to scan bookmark row: %v", err)
			return nil, err
		}
		bookmarks = append(bookmarks, b)
	}
	return bookmarks, rows.Err()
}

func (r *BookmarkRepository) Insert(b model.Bookmark) error {
	_, err := r.DB.Exec(
		`INSERT INTO bookmarks (id, created_at, user_id, url, title) VALUES ($1, $2, $3, $4, $5)`,
		b.ID, b.CreatedAt, b.UserID, b.URL, b.Title)
	if err != nil {
		logger.Sugar.Errorf("Failed to insert bookmark: %v", err)
	}
	return err
}

// Delete removes the bookmark only if it belongs to userID. The bool reports
// whether a row was actually deleted.
func (r *BookmarkRepository) Delete(id, userID string) (bool, error) {
	result, err := r.DB.Exec(`DELETE FROM bookmarks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		logger.Sugar.Errorf("Failed to delete bookmark %s: %v", id, err)
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
