// Package client is the Go consumer of the MarkIt backend: the REST API for
// commands and snapshots, the websocket for the change-event stream.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"markit/internal/bookmark/model"
	"markit/internal/bookmark/view"
	"markit/socket"
)

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// List fetches the snapshot: all of the caller's bookmarks, newest first.
func (c *Client) List(ctx context.Context) ([]model.Bookmark, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/bookmarks", nil)
	if err != nil {
		return nil, err
	}
	var bookmarks []model.Bookmark
	if err := c.do(req, &bookmarks); err != nil {
		return nil, err
	}
	return bookmarks, nil
}

// Insert submits a creation; the server assigns id and created_at and returns
// the full record.
func (c *Client) Insert(ctx context.Context, title, url string) (model.Bookmark, error) {
	body, _ := json.Marshal(model.CreateBookmarkRequest{Title: title, URL: url})
	req, err := c.newRequest(ctx, http.MethodPost, "/api/bookmarks/create", bytes.NewReader(body))
	if err != nil {
		return model.Bookmark{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	var b model.Bookmark
	if err := c.do(req, &b); err != nil {
		return model.Bookmark{}, err
	}
	return b, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/bookmarks/delete?id="+url.QueryEscape(id), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// Subscribe opens the change-event stream; satisfies view.Subscriber.
func (c *Client) Subscribe(ctx context.Context) (view.Subscription, error) {
	return socket.Dial(ctx, c.BaseURL, c.Token)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	return req, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
