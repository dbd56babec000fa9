package socket

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"markit/internal/bookmark/model"
)

// Stream is the consumer side of the hub: a live change-event subscription
// for one authenticated user. The server's snapshot message is replayed as a
// sequence of INSERT events, so a fresh subscriber can seed an empty
// collection purely from the stream, and a subscriber that already holds a
// snapshot converges through the same idempotent upserts.
type Stream struct {
	conn      *websocket.Conn
	events    chan model.ChangeEvent
	done      chan struct{}
	closeOnce sync.Once
}

// Dial opens a subscription against serverURL (http:// or https://); the token
// travels in the query string because browser websockets cannot set headers
// and the server accepts both forms.
func Dial(ctx context.Context, serverURL, token string) (*Stream, error) {
	wsURL := "ws" + strings.TrimPrefix(serverURL, "http")
	wsURL = strings.TrimSuffix(wsURL, "/") + "/ws?token=" + url.QueryEscape(token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	s := &Stream{
		conn:   conn,
		events: make(chan model.ChangeEvent, 64),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// Events yields change events until the stream is closed or drops. The
// channel is closed when no further events will be delivered; consumers must
// treat that as a staleness condition and re-subscribe if they care.
func (s *Stream) Events() <-chan model.ChangeEvent {
	return s.events
}

// Close tears the subscription down. Safe to call more than once.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

func (s *Stream) readLoop() {
	defer close(s.events)
	for {
		var msg WSMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case SnapshotType:
			var bookmarks []model.Bookmark
			if err := json.Unmarshal(msg.Payload, &bookmarks); err != nil {
				continue
			}
			for i := range bookmarks {
				b := bookmarks[i]
				if !s.emit(model.ChangeEvent{Type: model.EventInsert, UserID: b.UserID, Bookmark: &b}) {
					return
				}
			}
		case InsertType:
			var b model.Bookmark
			if err := json.Unmarshal(msg.Payload, &b); err != nil {
				continue
			}
			if !s.emit(model.ChangeEvent{Type: model.EventInsert, UserID: b.UserID, Bookmark: &b}) {
				return
			}
		case DeleteType:
			var del model.DeleteBookmarkResponse
			if err := json.Unmarshal(msg.Payload, &del); err != nil {
				continue
			}
			if !s.emit(model.ChangeEvent{Type: model.EventDelete, UserID: msg.UserID, ID: del.ID}) {
				return
			}
		}
	}
}

func (s *Stream) emit(ev model.ChangeEvent) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}
