package kb

import (
	"net"
	"strings"
	"sync"
	"time"

	"github.com/signalsfoundry/peerglobe/core"
	"github.com/signalsfoundry/peerglobe/model"
)

// EventType indicates what kind of change happened in the KB.
type EventType int

const (
	EventEntitiesReplaced EventType = iota
)

// Event is emitted to subscribers when something interesting happens.
type Event struct {
	Type     EventType
	Snapshot Snapshot
}

// Snapshot is an immutable view of one entity list and everything derived from it.
// Callers MUST treat the slices and maps as read-only.
type Snapshot struct {
	Version       uint64
	UpdatedAt     time.Time
	Layout        core.LayoutResult
	BuildDuration time.Duration

	byExternal map[string]string
}

// Lookup resolves an external identifier (ID, secondary key, address or the
// host part of an address) to an entity ID. Matching is case-insensitive.
func (s Snapshot) Lookup(identifier string) (string, bool) {
	norm := normalizeIdentifier(identifier)
	if norm == "" || s.byExternal == nil {
		return "", false
	}
	if id, ok := s.byExternal[norm]; ok {
		return id, true
	}
	if host := hostPart(norm); host != "" && host != norm {
		id, ok := s.byExternal[host]
		return id, ok
	}
	return "", false
}

// Point returns the layout point of an entity.
func (s Snapshot) Point(id string) (model.LayoutPoint, bool) {
	p, ok := s.Layout.Index[id]
	return p, ok
}

// Entity returns a normalised entity by ID.
func (s Snapshot) Entity(id string) (model.Entity, bool) {
	for _, e := range s.Layout.Entities {
		if e.ID == id {
			return e, true
		}
	}
	return model.Entity{}, false
}

// KnowledgeBase is an in-memory, thread-safe store for the current entity list.
// Every Replace is wholesale: the layout is rebuilt from scratch and
// subscribers receive the new snapshot.
type KnowledgeBase struct {
	mu sync.RWMutex

	opts    core.LayoutOptions
	current Snapshot
	now     func() time.Time

	nextSub int
	subs    map[int]func(Event)
}

// NewKnowledgeBase constructs an empty KB.
func NewKnowledgeBase(opts core.LayoutOptions) *KnowledgeBase {
	return &KnowledgeBase{
		opts:    opts,
		current: Snapshot{Layout: core.BuildLayout(nil, opts)},
		now:     time.Now,
		subs:    make(map[int]func(Event)),
	}
}

// Replace swaps in a new entity list and notifies subscribers.
func (kb *KnowledgeBase) Replace(entities []model.Entity) Snapshot {
	start := time.Now()
	layout := core.BuildLayout(entities, kb.opts)
	byExternal := externalIndex(layout.Entities)
	took := time.Since(start)

	kb.mu.Lock()
	snap := Snapshot{
		Version:       kb.current.Version + 1,
		UpdatedAt:     kb.now(),
		Layout:        layout,
		BuildDuration: took,
		byExternal:    byExternal,
	}
	kb.current = snap
	subs := make([]func(Event), 0, len(kb.subs))
	for _, fn := range kb.subs {
		subs = append(subs, fn)
	}
	kb.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	event := Event{Type: EventEntitiesReplaced, Snapshot: snap}
	for _, sub := range subs {
		sub(event)
	}
	return snap
}

// Snapshot returns the current snapshot.
func (kb *KnowledgeBase) Snapshot() Snapshot {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.current
}

// Subscribe registers a callback for KB events. It returns an unsubscribe function.
func (kb *KnowledgeBase) Subscribe(fn func(Event)) (unsubscribe func()) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	id := kb.nextSub
	kb.nextSub++
	kb.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			kb.mu.Lock()
			defer kb.mu.Unlock()
			delete(kb.subs, id)
		})
	}
}

func externalIndex(entities []model.Entity) map[string]string {
	idx := make(map[string]string, len(entities)*2)
	add := func(k, id string) {
		k = normalizeIdentifier(k)
		if k == "" {
			return
		}
		// First writer wins so an ID is never shadowed by another entity's key.
		if _, exists := idx[k]; !exists {
			idx[k] = id
		}
	}
	for _, e := range entities {
		add(e.ID, e.ID)
	}
	for _, e := range entities {
		add(e.Key, e.ID)
		add(e.Address, e.ID)
		add(hostPart(normalizeIdentifier(e.Address)), e.ID)
	}
	return idx
}

func normalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// hostPart strips a port and brackets from an address-like string.
func hostPart(addr string) string {
	if addr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return strings.Trim(addr, "[]")
}
