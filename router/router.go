package router

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	bookmarkHandler "markit/internal/bookmark"
	"markit/internal/bookmark/repository"
	"markit/internal/bookmark/service"
	"markit/middleware"
	"markit/socket"
)

// Setup builds the route table. jwtSecret signs the session tokens the auth
// middleware validates.
func Setup(db *sql.DB, hub *socket.Hub, jwtSecret string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS)

	repo := repository.NewBookmarkRepository(db)
	svc := service.NewBookmarkService(repo, hub)
	h := bookmarkHandler.NewBookmarkHandler(svc)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(jwtSecret))

		// WebSocket event stream
		r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
			socket.ServeWs(hub, w, req, middleware.UserID(req))
		})

		// REST API
		r.Get("/api/bookmarks", h.ListBookmarks)
		r.Post("/api/bookmarks/create", h.CreateBookmark)
		r.Delete("/api/bookmarks/delete", h.DeleteBookmark)
	})

	return r
}
