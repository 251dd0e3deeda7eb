package realtime

import (
	"sync"

	"github.com/siddhantsaxena45/AI-Interviewer/internal/models"
)

// Hub manages the rooms of users connected to this instance.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewHub() *Hub { return &Hub{rooms: make(map[string]*Room)} }

func (h *Hub) Get(id string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[id]
	return r, ok
}

// Join registers c in its user's room.
func (h *Hub) Join(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[c.UserID]
	if !ok {
		r = NewRoom(c.UserID)
		h.rooms[c.UserID] = r
	}
	r.Join(c)
}

// Leave removes c and drops the room once it is empty. The hub lock is held
// so a concurrent Join cannot land in a room that is being deleted.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[c.UserID]
	if !ok {
		return
	}
	if r.Leave(c) == 0 {
		delete(h.rooms, c.UserID)
	}
}

// Deliver pushes a frame to every local subscription of userID and reports
// how many clients were reached.
func (h *Hub) Deliver(userID string, frame models.WSFrame) int {
	r, ok := h.Get(userID)
	if !ok {
		return 0
	}
	failed := r.Broadcast(frame)
	return r.GetClientCount() - len(failed)
}
