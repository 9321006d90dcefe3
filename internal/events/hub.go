// Package events is the in-process change feed. Services publish an Event
// after every successful note mutation; the SSE handler relays the events of
// one owner to every browser tab that owner has open.
//
// Delivery is best effort. A subscriber that is not keeping up loses
// messages rather than stalling the publisher, and clients treat every event
// as "re-fetch now", so a dropped one only delays a refresh.
package events

import (
	"sync"
	"time"
)

const (
	NoteCreated  = "note.created"
	NoteUpdated  = "note.updated"
	NoteDeleted  = "note.deleted"
	NoteArchived = "note.archived"
	NoteLocked   = "note.locked"
	NoteUnlocked = "note.unlocked"
	NoteShared   = "note.shared"
	NoteViewed   = "note.viewed"
)

// subscriberBuffer is how many events may queue per subscriber before new
// ones are dropped.
const subscriberBuffer = 8

type Event struct {
	Type   string    `json:"type"`
	NoteID string    `json:"noteId"`
	At     time.Time `json:"at"`
}

// Publisher is what services depend on. A nil Publisher is never passed
// around; use Discard when no feed is wanted.
type Publisher interface {
	Publish(ownerID string, ev Event)
}

type discard struct{}

func (discard) Publish(string, Event) {}

// Discard is a Publisher that drops everything.
var Discard Publisher = discard{}

// Hub fans events out to subscribers keyed by owner ID.
type Hub struct {
	mu      sync.Mutex
	clients map[string]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[chan Event]struct{})}
}

// Subscribe registers a new listener for ownerID. The returned cancel func
// unregisters it and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(ownerID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if _, ok := h.clients[ownerID]; !ok {
		h.clients[ownerID] = make(map[chan Event]struct{})
	}
	h.clients[ownerID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if chans, ok := h.clients[ownerID]; ok {
				delete(chans, ch)
				if len(chans) == 0 {
					delete(h.clients, ownerID)
				}
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber of ownerID without blocking.
// The lock is held while sending so a concurrent cancel cannot close a
// channel mid-send; the sends never block, so the critical section is short.
func (h *Hub) Publish(ownerID string, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients[ownerID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribers reports how many listeners ownerID currently has.
func (h *Hub) Subscribers(ownerID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[ownerID])
}
