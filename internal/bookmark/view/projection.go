// Package view keeps a per-user, in-memory mirror of the bookmark collection
// consistent with the server while commands and pushed change events interleave
// in arbitrary order.
package view

import (
	"sort"
	"strings"

	"markit/internal/bookmark/model"
)

// Projection is the local mirror of one user's bookmarks. All mutation goes
// through Apply, whose per-id upsert/delete is idempotent and commutative for
// disjoint ids: whatever order duplicates and reorderings arrive in, the
// collection converges to the same state.
//
// Projection does no locking of its own; ViewModel serializes access.
type Projection struct {
	userID  string
	entries map[string]model.Bookmark
	filter  string
}

// NewProjection seeds the collection from a snapshot. Snapshot records owned
// by someone else are dropped, the same as for events.
func NewProjection(userID string, snapshot []model.Bookmark) *Projection {
	p := &Projection{
		userID:  userID,
		entries: make(map[string]model.Bookmark, len(snapshot)),
	}
	for _, b := range snapshot {
		if b.UserID == userID {
			p.entries[b.ID] = b
		}
	}
	return p
}

// Apply merges one change event into the collection and reports whether the
// collection changed. The subscription is already scoped to the user, but the
// owner check is repeated here: the merge must not trust transport scoping.
func (p *Projection) Apply(ev model.ChangeEvent) bool {
	if ev.UserID != p.userID {
		return false
	}
	switch ev.Type {
	case model.EventInsert:
		if ev.Bookmark == nil || ev.Bookmark.UserID != p.userID {
			return false
		}
		// Upsert. id and created_at are server-assigned and immutable, so a
		// duplicate delivery overwrites an entry with itself.
		p.entries[ev.Bookmark.ID] = *ev.Bookmark
		return true
	case model.EventDelete:
		if _, ok := p.entries[ev.ID]; !ok {
			return false // already gone, at-least-once delivery
		}
		delete(p.entries, ev.ID)
		return true
	}
	return false
}

func (p *Projection) SetFilter(term string) {
	p.filter = term
}

func (p *Projection) Filter() string {
	return p.filter
}

// Visible returns the bookmarks whose title or url contains the filter term
// case-insensitively, newest first. Ties on created_at break by id so the
// order is stable.
func (p *Projection) Visible() []model.Bookmark {
	term := strings.ToLower(p.filter)
	out := make([]model.Bookmark, 0, len(p.entries))
	for _, b := range p.entries {
		if term == "" ||
			strings.Contains(strings.ToLower(b.Title), term) ||
			strings.Contains(strings.ToLower(b.URL), term) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (p *Projection) Len() int {
	return len(p.entries)
}

func (p *Projection) Get(id string) (model.Bookmark, bool) {
	b, ok := p.entries[id]
	return b, ok
}
