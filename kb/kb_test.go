package kb

import (
	"sync"
	"testing"

	"github.com/signalsfoundry/peerglobe/core"
	"github.com/signalsfoundry/peerglobe/model"
)

func entity(id, key, addr string, lat, lon float64) model.Entity {
	e := model.NewEntity(id, lat, lon)
	e.Key = key
	e.Address = addr
	return e
}

func TestReplaceBuildsLayoutAndBumpsVersion(t *testing.T) {
	store := NewKnowledgeBase(core.DefaultLayoutOptions())
	if got := store.Snapshot().Version; got != 0 {
		t.Fatalf("initial version = %d, want 0", got)
	}

	snap := store.Replace([]model.Entity{
		model.NewEntity("a", 1, 1),
		model.NewEntity("b", 1, 1),
		{ID: "broken"},
	})
	if snap.Version != 1 {
		t.Fatalf("version = %d, want 1", snap.Version)
	}
	if len(snap.Layout.Points) != 2 {
		t.Fatalf("layout points = %d, want 2", len(snap.Layout.Points))
	}
	if p, ok := snap.Point("b"); !ok || p.ClusterSize != 2 {
		t.Fatalf("Point(b) = %+v, %v; want cluster size 2", p, ok)
	}
	if snap.Layout.Report.MissingCoords != 1 {
		t.Fatalf("report = %+v, want one missing coordinate", snap.Layout.Report)
	}

	snap = store.Replace([]model.Entity{model.NewEntity("a", 1, 1)})
	if p, _ := snap.Point("a"); p.ClusterSize != 1 {
		t.Fatalf("cluster size after shrink = %d, want 1", p.ClusterSize)
	}
	if snap.Version != 2 {
		t.Fatalf("version = %d, want 2", snap.Version)
	}
}

func TestSnapshotLookup(t *testing.T) {
	store := NewKnowledgeBase(core.DefaultLayoutOptions())
	snap := store.Replace([]model.Entity{
		entity("node-1", "GABC123", "203.0.113.7:11625", 10, 10),
		entity("node-2", "", "[2001:db8::1]:11625", 20, 20),
		entity("node-3", "node-1", "", 30, 30),
	})

	tests := []struct {
		in     string
		wantID string
		wantOK bool
	}{
		{"node-1", "node-1", true},
		{"  NODE-1 ", "node-1", true},
		{"gabc123", "node-1", true},
		{"203.0.113.7:11625", "node-1", true},
		{"203.0.113.7", "node-1", true},
		{"203.0.113.7:9999", "node-1", true},
		{"2001:db8::1", "node-2", true},
		{"[2001:db8::1]:11625", "node-2", true},
		{"unknown", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		id, ok := snap.Lookup(tc.in)
		if id != tc.wantID || ok != tc.wantOK {
			t.Errorf("Lookup(%q) = %q, %v; want %q, %v", tc.in, id, ok, tc.wantID, tc.wantOK)
		}
	}
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	store := NewKnowledgeBase(core.DefaultLayoutOptions())

	var mu sync.Mutex
	var versions []uint64
	unsub := store.Subscribe(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		if ev.Type != EventEntitiesReplaced {
			t.Errorf("event type = %v, want EventEntitiesReplaced", ev.Type)
		}
		versions = append(versions, ev.Snapshot.Version)
	})
	other := 0
	store.Subscribe(func(Event) { other++ })

	store.Replace([]model.Entity{model.NewEntity("a", 0, 0)})
	unsub()
	unsub()
	store.Replace([]model.Entity{model.NewEntity("b", 0, 0)})

	mu.Lock()
	defer mu.Unlock()
	if len(versions) != 1 || versions[0] != 1 {
		t.Fatalf("received versions %v, want [1]", versions)
	}
	if other != 2 {
		t.Fatalf("remaining subscriber notified %d times, want 2", other)
	}
}
