package socket

import (
	"encoding/json"
	"fmt"
	"sync"

	"markit/internal/bookmark/model"
	"markit/internal/bookmark/repository"
	"markit/pkg/logger"
)

const (
	SnapshotType = "SNAPSHOT" // Full bookmark list, sent once on join
	InsertType   = "INSERT"   // A bookmark was created
	DeleteType   = "DELETE"   // A bookmark was removed
)

type WSMessage struct {
	Type    string          `json:"type"`
	UserID  string          `json:"user_id"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans bookmark change events out to every open session of a user.
// Rooms are keyed by user id: one user with three tabs open has three clients
// in the same room, and all of them converge on the same collection.
type Hub struct {
	Rooms      map[string]map[*Client]bool
	Broadcast  chan model.ChangeEvent
	Register   chan *Client
	Unregister chan *Client
	repo       *repository.BookmarkRepository
	mu         sync.Mutex
}

func NewHub(repo *repository.BookmarkRepository) *Hub {
	return &Hub{
		Rooms:      make(map[string]map[*Client]bool),
		Broadcast:  make(chan model.ChangeEvent),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		repo:       repo,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			// The snapshot goes into the send queue before the client joins
			// the room, so it always precedes any broadcast for this session.
			bookmarks, err := h.repo.ListByUser(client.UserID)
			if err != nil {
				logger.Sugar.Errorf("Failed to load snapshot for user %s: %v", client.UserID, err)
				bookmarks = []model.Bookmark{}
			}
			snapshot, _ := json.Marshal(bookmarks)
			initialMsg, _ := json.Marshal(WSMessage{Type: SnapshotType, UserID: client.UserID, Payload: snapshot})
			client.Send <- initialMsg

			h.mu.Lock()
			if h.Rooms[client.UserID] == nil {
				h.Rooms[client.UserID] = make(map[*Client]bool)
			}
			h.Rooms[client.UserID][client] = true
			sessions := len(h.Rooms[client.UserID])
			h.mu.Unlock()

			logger.Sugar.Infof("Session joined for user %s (%d open)", client.UserID, sessions)

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.Rooms[client.UserID][client]; ok {
				delete(h.Rooms[client.UserID], client)
				close(client.Send)
				if len(h.Rooms[client.UserID]) == 0 {
					delete(h.Rooms, client.UserID)
					logger.Sugar.Infof("Closed empty room for user %s", client.UserID)
				}
			}
			h.mu.Unlock()

		case ev := <-h.Broadcast:
			payload, err := marshalEvent(ev)
			if err != nil {
				logger.Sugar.Errorf("Error marshalling broadcast message: %v", err)
				continue
			}

			// Copy the recipient list so no I/O happens under the lock.
			// Unlike a collaborative editor room, the originating session is
			// NOT skipped: every session replays the same event stream and
			// deduplicates by bookmark id.
			h.mu.Lock()
			clientsToSend := make([]*Client, 0, len(h.Rooms[ev.UserID]))
			for client := range h.Rooms[ev.UserID] {
				clientsToSend = append(clientsToSend, client)
			}
			h.mu.Unlock()

			for _, client := range clientsToSend {
				select {
				case client.Send <- payload:
				default:
					// The client is lagging. Closing the connection makes its
					// readPump exit and unregister without blocking the hub.
					logger.Sugar.Warnf("Client of user %s has a full send buffer, disconnecting", client.UserID)
					client.Conn.Close()
				}
			}
		}
	}
}

func marshalEvent(ev model.ChangeEvent) ([]byte, error) {
	var payload []byte
	var err error
	switch ev.Type {
	case model.EventInsert:
		payload, err = json.Marshal(ev.Bookmark)
	case model.EventDelete:
		payload, err = json.Marshal(model.DeleteBookmarkResponse{ID: ev.ID})
	default:
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(WSMessage{Type: ev.Type, UserID: ev.UserID, Payload: payload})
}
