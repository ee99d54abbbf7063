// Package session drives the WebSocket lifecycle: upgrade, per-connection
// send/receive pumps, token-expiry enforcement, and the per-user mailbox
// registry that fans outbound events out to live connections. It knows
// nothing about room/message semantics — every inbound frame is handed to
// chat.Dispatch, which owns that.
package session

import (
	"hash/fnv"
	"sync"

	"github.com/RoseWrightdev/chat-backend/internal/v1/chat"
	"github.com/RoseWrightdev/chat-backend/internal/v1/metrics"
)

const shardCount = 32

// Registry maps each authenticated user to at most one live mailbox. It is
// sharded by hashed user id so inserts/removes/sends for unrelated users
// never contend on the same lock, the same "sharded concurrent map" shape
// used for the subscriber tables this design is drawn from.
type Registry struct {
	shards [shardCount]registryShard
}

type registryShard struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i].clients = make(map[string]*Client)
	}
	return r
}

func (r *Registry) shardFor(userID string) *registryShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &r.shards[h.Sum32()%shardCount]
}

// Put inserts c as userID's mailbox, replacing (and closing) any existing
// connection for that user — last-writer-wins, per the single-connection
// rule. The replaced client's own cleanup path (its readPump/writePump
// exit) will find its registry entry already gone and skip the removal.
func (r *Registry) Put(userID string, c *Client) {
	shard := r.shardFor(userID)
	shard.mu.Lock()
	old, existed := shard.clients[userID]
	shard.clients[userID] = c
	shard.mu.Unlock()

	if existed && old != c {
		old.Close()
	}
}

// Remove deletes userID's entry only if it still points at c, so a
// superseded connection's own cleanup never clobbers the newer one.
func (r *Registry) Remove(userID string, c *Client) {
	shard := r.shardFor(userID)
	shard.mu.Lock()
	if shard.clients[userID] == c {
		delete(shard.clients, userID)
	}
	shard.mu.Unlock()
}

// Send enqueues event into userID's mailbox. A user with no live mailbox
// is a silent no-op; there is no offline store-and-forward.
func (r *Registry) Send(userID string, event chat.Event) {
	shard := r.shardFor(userID)
	shard.mu.RLock()
	c, ok := shard.clients[userID]
	shard.mu.RUnlock()
	if !ok {
		metrics.WebsocketEvents.WithLabelValues(event.Type, "dropped_offline").Inc()
		return
	}
	c.enqueue(event)
}

var _ chat.Broadcaster = (*Registry)(nil)
