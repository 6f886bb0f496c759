// Package relay is the realtime room relay. Clients join named rooms and
// "update-event" notices are fanned out to every connected client.
package relay

import (
	"context"
	"encoding/json"

	"github.com/tazhibayda/event-service/internal/metrics"
	"go.uber.org/zap"
)

const (
	EventJoin   = "join"
	EventLeave  = "leave"
	EventUpdate = "update-event"
)

// Frame is the JSON envelope carried in every text message.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Hub owns the room registry. All registry state is touched only by the Run goroutine.
type Hub struct {
	ops  chan func()
	done chan struct{}
	log  *zap.Logger

	clients  map[*Client]struct{}
	rooms    map[string]map[*Client]struct{}
	memberOf map[*Client]map[string]struct{}
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		ops:      make(chan func()),
		done:     make(chan struct{}),
		log:      log,
		clients:  map[*Client]struct{}{},
		rooms:    map[string]map[*Client]struct{}{},
		memberOf: map[*Client]map[string]struct{}{},
	}
}

// Run processes registry operations until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return
		case op := <-h.ops:
			op()
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) do(op func()) bool {
	select {
	case h.ops <- op:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) wait(op func()) {
	fin := make(chan struct{})
	if h.do(func() { op(); close(fin) }) {
		<-fin
	}
}

func (h *Hub) Register(c *Client) bool {
	ok := false
	h.wait(func() {
		h.clients[c] = struct{}{}
		ok = true
		h.gauges()
	})
	return ok
}

// Unregister removes c from every room and closes its send buffer.
func (h *Hub) Unregister(c *Client) {
	h.wait(func() { h.drop(c) })
}

func (h *Hub) Join(c *Client, room string) {
	h.wait(func() {
		if _, ok := h.clients[c]; !ok {
			return
		}
		members := h.rooms[room]
		if members == nil {
			members = map[*Client]struct{}{}
			h.rooms[room] = members
		}
		members[c] = struct{}{}
		set := h.memberOf[c]
		if set == nil {
			set = map[string]struct{}{}
			h.memberOf[c] = set
		}
		set[room] = struct{}{}
		h.gauges()
	})
}

// Leave is a no-op when c is not in room.
func (h *Hub) Leave(c *Client, room string) {
	h.wait(func() {
		h.removeFromRoom(c, room)
		h.gauges()
	})
}

// Broadcast sends an update-event frame carrying data to every connected client.
func (h *Hub) Broadcast(data json.RawMessage) {
	msg, err := json.Marshal(Frame{Event: EventUpdate, Data: data})
	if err != nil {
		h.log.Warn("relay: encode broadcast", zap.Error(err))
		return
	}
	h.wait(func() {
		for c := range h.clients {
			select {
			case c.send <- msg:
			default:
				h.log.Warn("relay: slow client dropped", zap.String("conn", c.id))
				h.drop(c)
			}
		}
		metrics.RelayBroadcasts.Inc()
	})
}

// Rooms returns the rooms c currently belongs to.
func (h *Hub) Rooms(c *Client) []string {
	var out []string
	h.wait(func() {
		for r := range h.memberOf[c] {
			out = append(out, r)
		}
	})
	return out
}

func (h *Hub) Members(room string) []*Client {
	var out []*Client
	h.wait(func() {
		for c := range h.rooms[room] {
			out = append(out, c)
		}
	})
	return out
}

func (h *Hub) ConnCount() int {
	n := 0
	h.wait(func() { n = len(h.clients) })
	return n
}

func (h *Hub) removeFromRoom(c *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	if set, ok := h.memberOf[c]; ok {
		delete(set, room)
	}
}

func (h *Hub) drop(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	for r := range h.memberOf[c] {
		h.removeFromRoom(c, r)
	}
	delete(h.memberOf, c)
	delete(h.clients, c)
	close(c.send)
	h.gauges()
}

func (h *Hub) gauges() {
	metrics.RelayConnections.Set(float64(len(h.clients)))
	metrics.RelayRooms.Set(float64(len(h.rooms)))
}
