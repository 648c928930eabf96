// Package telemetry is the Live Debug Channel: a registry of websocket
// subscribers that the facade publishes a StatementExecuted event to
// after every statement, satisfying spec.md's Concrete Scenario 6
// ("access path chosen ... observable via a debug hook") without any
// test reaching into executor internals.
//
// Collapses the teacher repo's internal/reactive.Registry and
// internal/protocol.Registry — two near-identical subscriber maps kept
// for the same concern — into the one this engine needs.
package telemetry

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// StatementExecuted is one statement's execution summary, broadcast as a
// JSON frame to every subscriber.
type StatementExecuted struct {
	Type          string        `json:"type"`
	StatementKind string        `json:"statement_kind"`
	Tables        []string      `json:"tables,omitempty"`
	AccessPaths   []string      `json:"access_path,omitempty"`
	Handles       []string      `json:"handles,omitempty"` // common.EncodeHandle(tableID, columnIndex) per access path
	RowsAffected  int           `json:"rows"`
	RowsReturned  int           `json:"rows_returned"`
	Duration      time.Duration `json:"-"`
	DurationMS    float64       `json:"duration_ms"`
	Error         string        `json:"error,omitempty"`
}

// Registry tracks every live websocket subscriber and fans a
// StatementExecuted event out to all of them.
type Registry struct {
	mu   sync.RWMutex
	subs map[string]*websocket.Conn
}

func NewRegistry() *Registry {
	return &Registry{subs: make(map[string]*websocket.Conn)}
}

func (r *Registry) Add(id string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[id] = conn
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, id)
}

// Publish stamps evt's type/duration fields and fans it out to every
// connected subscriber, dropping (and removing) any connection whose
// write fails.
func (r *Registry) Publish(evt StatementExecuted) {
	evt.Type = "statement_executed"
	evt.DurationMS = float64(evt.Duration.Microseconds()) / 1000.0

	r.mu.RLock()
	dead := make([]string, 0)
	for id, conn := range r.subs {
		if err := conn.WriteJSON(evt); err != nil {
			dead = append(dead, id)
		}
	}
	r.mu.RUnlock()

	if len(dead) == 0 {
		return
	}
	r.mu.Lock()
	for _, id := range dead {
		delete(r.subs, id)
	}
	r.mu.Unlock()
}

func (r *Registry) SubscriberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
