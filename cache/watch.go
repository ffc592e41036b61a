package cache

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// watchConn is one subscriber: a long-lived websocket connection
// interested in changes to a single cache Key, the counterpart of the
// teacher's session.Session entry keyed by a random ID with a
// last-access deadline.
type watchConn struct {
	id       string
	key      string
	conn     *websocket.Conn
	lastPing time.Time
}

// changeNotice is pushed to a subscriber when its watched entry is
// invalidated, so a development server can trigger a live reload
// without the client polling.
type changeNotice struct {
	Event    string `json:"event"`
	Template string `json:"template,omitempty"`
}

// Watcher fans out cache-invalidation events to subscribed websocket
// clients, adapted from the teacher's session.Manager: a
// mutex-guarded map of TTL-expiring entries, generalized from
// per-user sessions to per-cache-key subscriptions.
type Watcher struct {
	mu    sync.RWMutex
	conns map[string]*watchConn
	ttl   time.Duration
}

// NewWatcher returns a Watcher that drops subscriptions idle for
// longer than ttl (0 defaults to one hour).
func NewWatcher(ttl time.Duration) *Watcher {
	if ttl == 0 {
		ttl = time.Hour
	}
	return &Watcher{conns: make(map[string]*watchConn), ttl: ttl}
}

// Subscribe registers conn to receive notifications for key and
// returns a subscription ID usable with Unsubscribe.
func (w *Watcher) Subscribe(key Key, conn *websocket.Conn) (string, error) {
	id, err := randomNonce()
	if err != nil {
		return "", err
	}
	w.mu.Lock()
	w.conns[id] = &watchConn{id: id, key: key.normalize().String(), conn: conn, lastPing: time.Now()}
	w.mu.Unlock()
	return id, nil
}

// Unsubscribe drops a subscription; it does not close the connection.
func (w *Watcher) Unsubscribe(id string) {
	w.mu.Lock()
	delete(w.conns, id)
	w.mu.Unlock()
}

// Notify pushes a changed-template notice to every subscriber of key,
// dropping any connection that fails to accept the write.
func (w *Watcher) Notify(key Key, template string) {
	ks := key.normalize().String()
	notice := changeNotice{Event: "invalidated", Template: template}
	payload, err := json.Marshal(notice)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for id, c := range w.conns {
		if c.key != ks {
			continue
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			delete(w.conns, id)
			continue
		}
		c.lastPing = time.Now()
	}
}

// CleanupExpired drops subscriptions idle longer than the configured
// TTL, the watch-side counterpart of session.Manager's
// CleanupExpiredSessions.
func (w *Watcher) CleanupExpired() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	cutoff := time.Now().Add(-w.ttl)
	n := 0
	for id, c := range w.conns {
		if c.lastPing.Before(cutoff) {
			delete(w.conns, id)
			n++
		}
	}
	return n
}
