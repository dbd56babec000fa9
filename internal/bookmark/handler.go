package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"markit/internal/bookmark/model"
	"markit/internal/bookmark/service"
	"markit/middleware"
	"markit/pkg/logger"
)

type BookmarkHandler struct {
	Service *service.BookmarkService
}

func NewBookmarkHandler(svc *service.BookmarkService) *BookmarkHandler {
	return &BookmarkHandler{Service: svc}
}

func (h *BookmarkHandler) CreateBookmark(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	var req model.CreateBookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	b, err := h.Service.CreateBookmark(userID, req.Title, req.URL)
	if err != nil {
		if errors.Is(err, service.ErrEmptyField) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Sugar.Errorf("Handler: Failed to create bookmark: %v", err)
		http.Error(w, "Failed to create bookmark", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(b)
}

func (h *BookmarkHandler) DeleteBookmark(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Missing id parameter", http.StatusBadRequest)
		return
	}

	userID := middleware.UserID(r)

	if err := h.Service.DeleteBookmark(id, userID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		logger.Sugar.Errorf("Handler: Failed to delete bookmark %s: %v", id, err)
		http.Error(w, "Failed to delete bookmark", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(model.DeleteBookmarkResponse{ID: id})
}

func (h *BookmarkHandler) ListBookmarks(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	bookmarks, err := h.Service.ListBookmarks(userID)
	if err != nil {
		logger.Sugar.Errorf("Error fetching bookmarks: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(bookmarks)
}
