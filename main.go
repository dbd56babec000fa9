package main

import (
	"net/http"

	"markit/config"
	"markit/config/database"
	"markit/internal/bookmark/repository"
	"markit/pkg/logger"
	"markit/router"
	"markit/socket"
)

func main() {
	logger.Init()
	defer logger.Log.Sync()

	cfg := config.Load()

	db := database.Connect(cfg)
	defer db.Close()

	// The hub is the change-event transport: it fans every committed bookmark
	// mutation out to the owner's open sessions.
	hub := socket.NewHub(repository.NewBookmarkRepository(db))
	go hub.Run()

	handler := router.Setup(db, hub, cfg.JWTSecret)

	logger.Sugar.Infof("MarkIt backend listening on %s", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, handler); err != nil {
		logger.Sugar.Fatalf("Server stopped: %v", err)
	}
}
