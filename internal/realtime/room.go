package realtime

import (
	"sync"

	"github.com/siddhantsaxena45/AI-Interviewer/internal/models"
)

// Room holds every open subscription of a single user.
type Room struct {
	ID      string
	mu      sync.Mutex
	clients map[*Client]struct{}
}

func NewRoom(id string) *Room {
	return &Room{
		ID:      id,
		clients: make(map[*Client]struct{}),
	}
}

func (r *Room) Join(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c] = struct{}{}
}

func (r *Room) GetClientCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

func (r *Room) Leave(c *Client) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, c)
	return len(r.clients)
}

// Broadcast sends to every client and returns those whose write failed.
func (r *Room) Broadcast(frame models.WSFrame) []*Client {
	r.mu.Lock()
	clients := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		clients = append(clients, c)
	}
	r.mu.Unlock()

	var failed []*Client
	for _, c := range clients {
		if err := c.Send(frame); err != nil {
			failed = append(failed, c)
		}
	}
	return failed
}
