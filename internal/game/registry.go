package game

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"suquid-trivia-server/internal/domain"
	"suquid-trivia-server/internal/wire"
)

// Conn is the server's handle on one connected player. Implementations must
// be safe for concurrent Send calls.
type Conn interface {
	Send(msg wire.ServerMessage) error
	Close() error
	RemoteAddr() string
}

// Registry is the authoritative set of connected, authenticated players.
// Username uniqueness is enforced atomically with insertion.
type Registry struct {
	log zerolog.Logger

	mu    sync.RWMutex
	conns map[string]Conn
}

func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		log:   log.With().Str("component", "registry").Logger(),
		conns: make(map[string]Conn),
	}
}

// Register inserts the connection under username. The membership check and
// insert happen under one critical section, so at most one registration per
// name can ever succeed while that name is live.
func (r *Registry) Register(username string, conn Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.conns[username]; exists {
		return domain.ErrNameTaken
	}
	r.conns[username] = conn
	return nil
}

// Unregister removes username and reports whether it was present. Removing
// an absent name is a no-op.
func (r *Registry) Unregister(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.conns[username]; !exists {
		return false
	}
	delete(r.conns, username)
	return true
}

// Has reports whether username is currently registered.
func (r *Registry) Has(username string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[username]
	return ok
}

// Count returns the number of live players.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Snapshot returns the current username set, sorted for determinism.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.conns))
	for username := range r.conns {
		names = append(names, username)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Broadcast sends msg to every registered player. Delivery is best-effort: a
// failed send is logged and skipped, never aborting the fan-out. The
// membership view is captured under the lock; sends happen outside it.
func (r *Registry) Broadcast(msg wire.ServerMessage) {
	for _, target := range r.targets() {
		if err := target.conn.Send(msg); err != nil {
			r.log.Warn().Err(err).Str("player", target.username).Msg("broadcast send failed")
		}
	}
}

// SendTo delivers msg to a single player, used for the personalized round
// results. Sending to an absent player is a no-op.
func (r *Registry) SendTo(username string, msg wire.ServerMessage) {
	r.mu.RLock()
	conn, ok := r.conns[username]
	r.mu.RUnlock()
	if !ok {
		return
	}
	if err := conn.Send(msg); err != nil {
		r.log.Warn().Err(err).Str("player", username).Msg("send failed")
	}
}

// CloseAll closes every connection and empties the registry, used on server
// shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for username, conn := range r.conns {
		if err := conn.Close(); err != nil {
			r.log.Debug().Err(err).Str("player", username).Msg("close failed")
		}
		delete(r.conns, username)
	}
}

type sendTarget struct {
	username string
	conn     Conn
}

func (r *Registry) targets() []sendTarget {
	r.mu.RLock()
	defer r.mu.RUnlock()
	targets := make([]sendTarget, 0, len(r.conns))
	for username, conn := range r.conns {
		targets = append(targets, sendTarget{username: username, conn: conn})
	}
	return targets
}
