package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/signalsfoundry/peerglobe/core"
	"github.com/signalsfoundry/peerglobe/kb"
)

const twoEntities = `[
  {"id": "alpha", "lat": 51.5, "lon": -0.12},
  {"id": "beta", "lat": 48.85, "lon": 2.35, "address": "10.0.0.2:9000"}
]`

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int
		wantErr bool
	}{
		{name: "array", in: twoEntities, want: 2},
		{name: "object", in: `{"entities": [{"id": "alpha", "lat": 1, "lon": 2}]}`, want: 1},
		{name: "empty array", in: ` [] `, want: 0},
		{name: "object without entities", in: `{"nodes": []}`, wantErr: true},
		{name: "blank", in: "  \n", wantErr: true},
		{name: "garbage", in: `[{"id": }`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.in))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %d entities", len(got))
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if len(got) != tt.want {
				t.Fatalf("got %d entities, want %d", len(got), tt.want)
			}
		})
	}
}

func TestDecodeKeepsMissingCoordinates(t *testing.T) {
	got, err := Decode([]byte(`[{"id": "nowhere"}]`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if _, ok := got[0].Coordinate(); ok {
		t.Fatalf("entity without lat/lon reported a coordinate")
	}
}

func TestNewSource(t *testing.T) {
	if _, err := NewSource("a.json", "http://x", 0); err == nil {
		t.Fatalf("expected error for path and url")
	}
	if _, err := NewSource("", "", 0); err == nil {
		t.Fatalf("expected error for no source")
	}
	src, err := NewSource("a.json", "", 0)
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	if src.String() != "file:a.json" {
		t.Fatalf("source = %q", src.String())
	}
}

func TestPollerFileSourceSkipsUnchangedContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entities.json")
	if err := os.WriteFile(path, []byte(twoEntities), 0o644); err != nil {
		t.Fatal(err)
	}
	knowledge := kb.NewKnowledgeBase(core.DefaultLayoutOptions())
	p := NewPoller(FileSource{Path: path}, knowledge, 0, nil, nil)
	ctx := context.Background()

	if res, err := p.Refresh(ctx); err != nil || res != ResultOK {
		t.Fatalf("first refresh = %q, %v", res, err)
	}
	if v := knowledge.Snapshot().Version; v != 1 {
		t.Fatalf("version = %d, want 1", v)
	}
	if res, _ := p.Refresh(ctx); res != ResultUnchanged {
		t.Fatalf("second refresh = %q, want unchanged", res)
	}
	if v := knowledge.Snapshot().Version; v != 1 {
		t.Fatalf("unchanged content bumped version to %d", v)
	}

	os.WriteFile(path, []byte(`{"entities": [{"id": "gamma", "lat": 0, "lon": 0}]}`), 0o644)
	if res, err := p.Refresh(ctx); err != nil || res != ResultOK {
		t.Fatalf("third refresh = %q, %v", res, err)
	}
	snap := knowledge.Snapshot()
	if snap.Version != 2 || len(snap.Layout.Entities) != 1 || snap.Layout.Entities[0].ID != "gamma" {
		t.Fatalf("snapshot = v%d %+v", snap.Version, snap.Layout.Entities)
	}
}

func TestPollerKeepsPreviousListOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entities.json")
	os.WriteFile(path, []byte(twoEntities), 0o644)
	knowledge := kb.NewKnowledgeBase(core.DefaultLayoutOptions())
	p := NewPoller(FileSource{Path: path}, knowledge, 0, nil, nil)
	p.Refresh(context.Background())

	os.WriteFile(path, []byte(`{"oops": true}`), 0o644)
	if res, err := p.Refresh(context.Background()); err == nil || res != ResultError {
		t.Fatalf("refresh = %q, %v, want error", res, err)
	}
	os.Remove(path)
	if res, err := p.Refresh(context.Background()); err == nil || res != ResultError {
		t.Fatalf("refresh of missing file = %q, %v, want error", res, err)
	}
	if n := len(knowledge.Snapshot().Layout.Entities); n != 2 {
		t.Fatalf("entities = %d, want previous 2", n)
	}
}

func TestHTTPSourceRevalidatesWithETag(t *testing.T) {
	var hits, notModified atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			notModified.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte(twoEntities))
	}))
	defer srv.Close()

	knowledge := kb.NewKnowledgeBase(core.DefaultLayoutOptions())
	p := NewPoller(NewHTTPSource(srv.URL, srv.Client()), knowledge, 0, nil, nil)

	if res, err := p.Refresh(context.Background()); err != nil || res != ResultOK {
		t.Fatalf("first refresh = %q, %v", res, err)
	}
	if res, err := p.Refresh(context.Background()); err != nil || res != ResultUnchanged {
		t.Fatalf("second refresh = %q, %v", res, err)
	}
	if hits.Load() != 2 || notModified.Load() != 1 {
		t.Fatalf("hits = %d notModified = %d, want 2 and 1", hits.Load(), notModified.Load())
	}
	if v := knowledge.Snapshot().Version; v != 1 {
		t.Fatalf("version = %d, want 1", v)
	}
}

func TestHTTPSourceRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTPSource(srv.URL, srv.Client()).Fetch(context.Background())
	if err == nil || errors.Is(err, ErrNotModified) {
		t.Fatalf("err = %v, want status error", err)
	}
}

func TestRunWithoutIntervalRefreshesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entities.json")
	os.WriteFile(path, []byte(twoEntities), 0o644)
	knowledge := kb.NewKnowledgeBase(core.DefaultLayoutOptions())

	if err := NewPoller(FileSource{Path: path}, knowledge, 0, nil, nil).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n := len(knowledge.Snapshot().Layout.Entities); n != 2 {
		t.Fatalf("entities = %d, want 2", n)
	}
}
